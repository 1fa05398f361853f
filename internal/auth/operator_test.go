package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)

	svc := NewService(Operator{Subject: "operator", PasswordHash: hash}, NewJWTManager("secret", time.Hour))

	token, err := svc.Login(context.Background(), LoginRequest{Password: "correct-horse-battery-staple"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("correct-horse-battery-staple")
	require.NoError(t, err)

	svc := NewService(Operator{Subject: "operator", PasswordHash: hash}, NewJWTManager("secret", time.Hour))

	_, err = svc.Login(context.Background(), LoginRequest{Password: "wrong"})
	assert.Error(t, err)
}

func TestHashPasswordProducesVerifiableHash(t *testing.T) {
	hash, err := HashPassword("p@ssw0rd")
	require.NoError(t, err)
	assert.NotEqual(t, "p@ssw0rd", hash)
}
