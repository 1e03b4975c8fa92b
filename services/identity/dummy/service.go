// Package dummyid provides an in-memory identity backend for local
// development and tests.
package dummyid

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/maharatedu/platform/core"
)

type account struct {
	id       string
	email    string
	password []byte
}

type Service struct {
	mu       sync.RWMutex
	accounts map[string]account // keyed by lowercased email
}

var _ core.Identity = (*Service)(nil)

func NewService() *Service {
	return &Service{accounts: make(map[string]account)}
}

func (svc *Service) Authenticate(ctx context.Context, email, password string) (string, error) {
	svc.mu.RLock()
	acct, ok := svc.accounts[strings.ToLower(email)]
	svc.mu.RUnlock()
	if !ok {
		return "", core.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.password, []byte(password)); err != nil {
		return "", core.ErrInvalidCredentials
	}
	return acct.id, nil
}

func (svc *Service) CreateAccount(ctx context.Context, email, password string) (string, error) {
	key := strings.ToLower(email)

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if _, ok := svc.accounts[key]; ok {
		return "", core.ErrEmailInUse
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	svc.accounts[key] = account{id: id, email: email, password: hash}
	return id, nil
}

func (svc *Service) DeleteAccount(ctx context.Context, id string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for key, acct := range svc.accounts {
		if acct.id == id {
			delete(svc.accounts, key)
			return nil
		}
	}
	return nil
}

// Exists reports whether an account is registered under email.
func (svc *Service) Exists(email string) bool {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	_, ok := svc.accounts[strings.ToLower(email)]
	return ok
}

// Count returns the number of registered accounts.
func (svc *Service) Count() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.accounts)
}
