package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, expiresAt, err := GenerateJWT("u1", "agent@example.com", "agent", "test-secret", 24)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now().Add(23*time.Hour)))

	claims, err := ValidateJWT(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "agent@example.com", claims.Email)
	assert.Equal(t, "agent", claims.Role)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, _, err := GenerateJWT("u1", "agent@example.com", "agent", "test-secret", 24)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, _, err := GenerateJWT("u1", "agent@example.com", "agent", "test-secret", -1)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "test-secret")
	assert.Error(t, err)
}

func TestValidateJWT_Garbage(t *testing.T) {
	_, err := ValidateJWT("not.a.token", "test-secret")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-passw0rd")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-passw0rd", hash)

	assert.True(t, CheckPassword(hash, "s3cret-passw0rd"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
