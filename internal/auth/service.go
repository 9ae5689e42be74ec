package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/directory"
)

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   directory.Account
}

// Service authenticates accounts and issues sessions.
type Service struct {
	accounts *directory.Service
	issuer   *Issuer
}

// NewService constructs a Service.
func NewService(accounts *directory.Service, issuer *Issuer) *Service {
	return &Service{accounts: accounts, issuer: issuer}
}

// Login verifies credentials and mints a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	account, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	token, expires, err := s.issuer.Issue(account.ID, time.Now())
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, Account: *account}, nil
}

// ChangePassword rotates an account's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID uuid.UUID, current, next string) error {
	return s.accounts.ChangePassword(ctx, accountID, current, next)
}

// Account fetches the full account record behind a principal.
func (s *Service) Account(ctx context.Context, accountID uuid.UUID) (*directory.Account, error) {
	return s.accounts.Find(ctx, accountID)
}
