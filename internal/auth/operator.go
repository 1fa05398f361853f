package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/dwarkesh-labs/transcript-rag/internal/apperr"
)

// Operator is the single credential set guarding ingest/ops routes.
// There is exactly one operator identity per deployment; config.Config
// carries its bcrypt hash rather than a users table, since there is no
// multi-tenant user model left to persist.
type Operator struct {
	Subject      string
	PasswordHash string
}

// Service authenticates the configured operator and issues JWTs.
type Service struct {
	operator Operator
	jwt      *JWTManager
}

func NewService(operator Operator, jwt *JWTManager) *Service {
	return &Service{operator: operator, jwt: jwt}
}

type LoginRequest struct {
	Password string
}

// Login verifies the given password against the configured operator
// hash and issues a JWT on success.
func (s *Service) Login(_ context.Context, req LoginRequest) (string, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(s.operator.PasswordHash), []byte(req.Password)); err != nil {
		return "", apperr.New(apperr.BadInput, "invalid credentials")
	}
	return s.jwt.Generate(s.operator.Subject)
}

// HashPassword is a thin wrapper exposed for the bootstrap/seeding path
// that derives config.OperatorPasswordHash from an operator-supplied
// plaintext password at deploy time.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.InternalInvariantViolated, "hash password", err)
	}
	return string(hash), nil
}
