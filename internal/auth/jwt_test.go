package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)

	token, err := m.Generate("operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "operator", claims.Subject)
	assert.Equal(t, "operator", claims.Role)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", time.Hour)
	token, err := m.Generate("operator")
	require.NoError(t, err)

	other := NewJWTManager("secret-b", time.Hour)
	_, err = other.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute)
	token, err := m.Generate("operator")
	require.NoError(t, err)

	_, err = m.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsMalformedToken(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	_, err := m.Verify("not-a-jwt")
	assert.Error(t, err)
}
