package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateToken(42, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")

	token, err := GenerateToken(42, -time.Minute)
	require.NoError(t, err)

	_, err = VerifyToken(token)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	t.Setenv("SECRET_KEY", "test-secret")
	token, err := GenerateToken(42, time.Hour)
	require.NoError(t, err)

	t.Setenv("SECRET_KEY", "another-secret")
	_, err = VerifyToken(token)
	assert.Error(t, err)
}
