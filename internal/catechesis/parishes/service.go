package parishes

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Service applies parish business rules on top of the Repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields for a new parish.
type CreateInput struct {
	Name    string
	City    string
	Diocese string
	Phone   string
}

// Create registers a new parish. Names are stored in canonical form.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Parish, error) {
	now := time.Now().UTC()
	parish := &Parish{
		ID:        uuid.New(),
		Name:      shared.CanonicalName(input.Name),
		City:      shared.CanonicalName(input.City),
		Diocese:   input.Diocese,
		Phone:     input.Phone,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, parish); err != nil {
		return nil, err
	}
	return parish, nil
}

// Update rewrites a parish's mutable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input CreateInput) (*Parish, error) {
	parish, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	parish.Name = shared.CanonicalName(input.Name)
	parish.City = shared.CanonicalName(input.City)
	parish.Diocese = input.Diocese
	parish.Phone = input.Phone
	if err := s.repo.Update(ctx, parish); err != nil {
		return nil, err
	}
	return parish, nil
}

// Find fetches a parish by id.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*Parish, error) {
	return s.repo.Find(ctx, id)
}

// List returns every parish.
func (s *Service) List(ctx context.Context) ([]Parish, error) {
	return s.repo.List(ctx)
}

// SetActive activates or deactivates a parish.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
