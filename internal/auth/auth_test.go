package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = User{
	Username:   "petra",
	Name:       "Petra Admin",
	ClientCode: "admin",
	Role:       RoleAdmin,
}

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateToken(testUser)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "petra", claims.Username)
	assert.Equal(t, "admin", claims.ClientCode)
	assert.True(t, claims.IsAdmin())
}

func TestJWTExpired(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateToken(testUser)
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour).GenerateToken(testUser)
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	_, err := m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRegistryAuthenticate(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	registry := NewRegistry([]User{{
		Username:     "sam",
		Name:         "Sam Client",
		PasswordHash: hash,
		ClientCode:   "AVI",
		Role:         "client",
	}})

	t.Run("valid credentials", func(t *testing.T) {
		user, err := registry.Authenticate("sam", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, "AVI", user.ClientCode)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := registry.Authenticate("sam", "battery staple")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := registry.Authenticate("nobody", "whatever")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}
