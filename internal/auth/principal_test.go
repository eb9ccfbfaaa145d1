package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signClaims(t *testing.T, claims *Claims) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(jwtSecret)
	require.NoError(t, err)
	return signed
}

func TestPrincipalResolver_Resolve(t *testing.T) {
	SetSecret("test-secret")

	db := setupTestDB(t)
	service := NewAuthService(db)
	resolver := NewPrincipalResolver(db)

	user, err := service.Register("alice@example.com", "Alice", "password")
	require.NoError(t, err)

	t.Run("valid credential", func(t *testing.T) {
		credential, err := GenerateToken(user.ID, user.Email, []string{"member"})
		require.NoError(t, err)

		identity, err := resolver.Resolve(credential)
		require.NoError(t, err)
		assert.Equal(t, user.ID, identity.UserID)
		assert.Equal(t, "alice@example.com", identity.Email)
		assert.Equal(t, "Alice", identity.Name)
		assert.Equal(t, []string{"member"}, identity.Capabilities)
	})

	t.Run("expired token", func(t *testing.T) {
		credential := signClaims(t, &Claims{
			UserID: user.ID,
			Email:  user.Email,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		})

		identity, err := resolver.Resolve(credential)
		assert.Nil(t, identity)

		var failure *AuthFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, ExpiredToken, failure.Reason)
	})

	t.Run("malformed token", func(t *testing.T) {
		identity, err := resolver.Resolve("not-a-jwt")
		assert.Nil(t, identity)

		var failure *AuthFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, MalformedToken, failure.Reason)
	})

	t.Run("empty credential", func(t *testing.T) {
		identity, err := resolver.Resolve("")
		assert.Nil(t, identity)

		var failure *AuthFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, MalformedToken, failure.Reason)
	})

	t.Run("tampered signature", func(t *testing.T) {
		credential, err := GenerateToken(user.ID, user.Email, nil)
		require.NoError(t, err)

		identity, err := resolver.Resolve(credential + "x")
		assert.Nil(t, identity)

		var failure *AuthFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, MalformedToken, failure.Reason)
	})

	t.Run("unknown subject", func(t *testing.T) {
		credential, err := GenerateToken(user.ID+999, "ghost@example.com", nil)
		require.NoError(t, err)

		identity, err := resolver.Resolve(credential)
		assert.Nil(t, identity)

		var failure *AuthFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, UnknownSubject, failure.Reason)
	})
}
