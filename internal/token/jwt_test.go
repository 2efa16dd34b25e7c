package token

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AccessTokenRoundTrip(t *testing.T) {
	mgr := NewJWT("test-secret")
	userID := uuid.New()

	tokenString, err := mgr.GenerateAccessToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	parsedID, err := mgr.ParseAccessToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
}

func TestJWT_RefreshTokenRoundTrip(t *testing.T) {
	mgr := NewJWT("test-secret")
	userID := uuid.New()

	tokenString, jti, err := mgr.GenerateRefreshToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)
	require.NotEmpty(t, jti)

	parsedID, parsedJTI, err := mgr.ParseRefreshToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, userID, parsedID)
	assert.Equal(t, jti, parsedJTI)
}

func TestJWT_TokenTypeMismatch(t *testing.T) {
	mgr := NewJWT("test-secret")
	userID := uuid.New()

	access, err := mgr.GenerateAccessToken(userID)
	require.NoError(t, err)

	_, _, err = mgr.ParseRefreshToken(access)
	assert.Error(t, err)

	refresh, _, err := mgr.GenerateRefreshToken(userID)
	require.NoError(t, err)

	_, err = mgr.ParseAccessToken(refresh)
	assert.Error(t, err)
}

func TestJWT_WrongSecret(t *testing.T) {
	userID := uuid.New()

	tokenString, err := NewJWT("secret-a").GenerateAccessToken(userID)
	require.NoError(t, err)

	_, err = NewJWT("secret-b").ParseAccessToken(tokenString)
	assert.Error(t, err)
}
