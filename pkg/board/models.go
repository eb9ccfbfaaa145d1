package board

import (
	nanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Email    string `gorm:"uniqueIndex;not null"`
	Name     string `gorm:"not null"`
	Password string `gorm:"not null"`
}

type Board struct {
	gorm.Model
	Name       string `gorm:"not null"`
	OwnerID    uint   `gorm:"not null"`
	InviteCode string `gorm:"uniqueIndex;not null"`

	Owner   User `gorm:"foreignKey:OwnerID"`
	Members []BoardMember
}

// BoardMember is the membership row the gate queries per action. Revoking
// access is deleting this row.
type BoardMember struct {
	gorm.Model
	UserID  uint `gorm:"not null;index:idx_board_member"`
	BoardID uint `gorm:"not null;index:idx_board_member"`
	IsAdmin bool `gorm:"default:false"`

	User  User  `gorm:"foreignKey:UserID"`
	Board Board `gorm:"foreignKey:BoardID"`
}

type ChatMessage struct {
	gorm.Model
	BoardID    uint   `gorm:"not null;index"`
	UserID     uint   `gorm:"not null"`
	Content    string `gorm:"not null"`
	InstanceID string

	User User `gorm:"foreignKey:UserID"`
}

type RefreshToken struct {
	gorm.Model
	UserID    uint   `gorm:"not null"`
	TokenHash string `gorm:"not null"`
	ExpiresAt int64  `gorm:"not null"`
}

func (b *Board) BeforeCreate(tx *gorm.DB) (err error) {
	if b.InviteCode == "" {
		b.InviteCode, err = nanoid.New(8)
	}
	return
}
