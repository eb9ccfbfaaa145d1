package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"go-board/pkg/board"
)

// Identity is resolved once per connection and pinned for the socket lifetime.
// A token expiring mid-session is not re-checked; membership is.
type Identity struct {
	UserID       uint
	Email        string
	Name         string
	Capabilities []string
}

type FailureReason string

const (
	ExpiredToken   FailureReason = "expired_token"
	MalformedToken FailureReason = "malformed_token"
	UnknownSubject FailureReason = "unknown_subject"
)

// AuthFailure is terminal for the connection attempt that presented the
// credential.
type AuthFailure struct {
	Reason FailureReason
	Err    error
}

func (f *AuthFailure) Error() string {
	return fmt.Sprintf("authentication failed (%s): %v", f.Reason, f.Err)
}

func (f *AuthFailure) Unwrap() error {
	return f.Err
}

// PrincipalResolver turns the bearer credential presented at connection time
// into an authenticated identity backed by the user store.
type PrincipalResolver struct {
	db *gorm.DB
}

func NewPrincipalResolver(db *gorm.DB) *PrincipalResolver {
	return &PrincipalResolver{db: db}
}

func (r *PrincipalResolver) Resolve(credential string) (*Identity, error) {
	claims, err := ValidateToken(credential)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &AuthFailure{Reason: ExpiredToken, Err: err}
		}
		return nil, &AuthFailure{Reason: MalformedToken, Err: err}
	}

	var user board.User
	if err := r.db.First(&user, claims.UserID).Error; err != nil {
		return nil, &AuthFailure{Reason: UnknownSubject, Err: err}
	}

	return &Identity{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Capabilities: claims.Roles,
	}, nil
}
