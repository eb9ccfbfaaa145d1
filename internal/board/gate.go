package board

import (
	"errors"

	"gorm.io/gorm"

	"go-board/internal/auth"
	. "go-board/pkg/board"
)

// ErrDenied is the expected outcome for non-members, not an exceptional
// condition. Callers drop the frame and keep the connection open.
var ErrDenied = errors.New("board access denied")

type Role int

const (
	RoleMember Role = iota
	RoleAdmin
)

// MembershipGate answers whether an identity may subscribe to or publish on a
// board. Every call is a fresh query against the membership store so a
// revocation takes effect on the next frame, not the next reconnect.
type MembershipGate struct {
	db *gorm.DB
}

func NewMembershipGate(db *gorm.DB) *MembershipGate {
	return &MembershipGate{db: db}
}

func (g *MembershipGate) Authorize(identity *auth.Identity, boardID uint, role Role) error {
	if identity == nil || boardID == 0 {
		return ErrDenied
	}

	var member BoardMember
	err := g.db.Where("user_id = ? AND board_id = ?", identity.UserID, boardID).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDenied
		}
		return err
	}

	if role == RoleAdmin && !member.IsAdmin {
		return ErrDenied
	}

	return nil
}
