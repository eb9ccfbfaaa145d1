package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenUsesInstalledSigningKey(t *testing.T) {
	SetSecret("first-secret")

	token, err := GenerateToken(1, "alice@example.com", []string{"member"})
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)

	// Tokens signed under the previous key stop validating once it rotates:
	// issue and verify share the one installed key.
	SetSecret("second-secret")
	_, err = ValidateToken(token)
	assert.Error(t, err)
}
