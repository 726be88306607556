package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, expiresAt, err := tm.GenerateToken("ops")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	require.Equal(t, "ops", claims.Username)
	require.Equal(t, "ops", claims.Subject)
}

func TestParseToken_RejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", 30).GenerateToken("ops")
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 30).ParseToken(token)
	require.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hashed, err := HashPassword("hunter2", 4)
	require.NoError(t, err)
	require.NoError(t, ComparePassword(hashed, "hunter2"))
	require.Error(t, ComparePassword(hashed, "wrong"))
}

func TestHashPassword_DefaultsNonPositiveCost(t *testing.T) {
	hashed, err := HashPassword("hunter2", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}
