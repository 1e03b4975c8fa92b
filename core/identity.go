package core

import (
	"context"

	"github.com/pkg/errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailInUse         = errors.New("an account with this email already exists")
)

// Identity is the hosted authentication provider issuing user identities.
// Implementations map their own failure modes onto ErrInvalidCredentials
// and ErrEmailInUse.
type Identity interface {
	// Authenticate verifies the credentials and returns the account id.
	Authenticate(ctx context.Context, email, password string) (string, error)
	// CreateAccount registers new credentials and returns the new account id.
	CreateAccount(ctx context.Context, email, password string) (string, error)
	DeleteAccount(ctx context.Context, id string) error
}
