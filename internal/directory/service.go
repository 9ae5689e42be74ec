package directory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Service wraps directory business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Resolve implements the principal directory contract consumed by the
// gating pipeline. The returned principal carries no secret fields.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID) (*shared.Principal, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.Principal(), nil
}

// Authenticate validates email/password credentials and returns the account.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !account.Active {
		return nil, shared.ErrAccountInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return account, nil
}

// CreateAccountInput collects the fields an administrator supplies.
type CreateAccountInput struct {
	Email           string
	Name            string
	InitialPassword string
	Role            shared.Role
	ParishID        *uuid.UUID
}

// CreateAccount registers a new account. The initial password is
// single-use: the account is created with the must-change flag set, so the
// first login is forced through the change-password flow.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (*Account, error) {
	if !input.Role.Valid() {
		return nil, fmt.Errorf("directory: invalid role %q", input.Role)
	}
	if !input.Role.Privileged() && input.ParishID == nil {
		return nil, fmt.Errorf("directory: role %q requires a parish", input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.InitialPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &Account{
		ID:                     uuid.New(),
		Email:                  strings.ToLower(strings.TrimSpace(input.Email)),
		Name:                   shared.CanonicalName(input.Name),
		PasswordHash:           string(hash),
		Role:                   input.Role,
		ParishID:               input.ParishID,
		Active:                 true,
		PasswordChangeRequired: true,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Find fetches an account by id.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// ListAccounts returns every account.
func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.List(ctx)
}

// SetActive activates or deactivates an account.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// ChangePassword verifies the current password and stores the new hash,
// clearing the must-change flag. This is the only transition back from the
// must-change state.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(current)); err != nil {
		return shared.ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdatePassword(ctx, id, string(hash), false)
}
