package catechumens

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Service applies catechumen business rules on top of the Repository.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Input carries the fields for creating or updating a catechumen.
type Input struct {
	ParishID      uuid.UUID
	FirstName     string
	LastName      string
	BirthDate     time.Time
	GuardianName  string
	GuardianPhone string
}

// Create registers a catechumen in a parish.
func (s *Service) Create(ctx context.Context, input Input) (*Catechumen, error) {
	now := time.Now().UTC()
	c := &Catechumen{
		ID:            uuid.New(),
		ParishID:      input.ParishID,
		FirstName:     shared.CanonicalName(input.FirstName),
		LastName:      shared.CanonicalName(input.LastName),
		BirthDate:     input.BirthDate,
		GuardianName:  shared.CanonicalName(input.GuardianName),
		GuardianPhone: input.GuardianPhone,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Update rewrites a catechumen's mutable fields. The parish never changes
// through this path.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (*Catechumen, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	c.FirstName = shared.CanonicalName(input.FirstName)
	c.LastName = shared.CanonicalName(input.LastName)
	c.BirthDate = input.BirthDate
	c.GuardianName = shared.CanonicalName(input.GuardianName)
	c.GuardianPhone = input.GuardianPhone
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Find fetches a catechumen by id.
func (s *Service) Find(ctx context.Context, id uuid.UUID) (*Catechumen, error) {
	return s.repo.Find(ctx, id)
}

// ListByParish returns a parish's catechumens.
func (s *Service) ListByParish(ctx context.Context, parishID uuid.UUID) ([]Catechumen, error) {
	return s.repo.ListByParish(ctx, parishID)
}

// SetActive activates or deactivates a catechumen.
func (s *Service) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// ParishOf exposes the repository tenant lookup for admission checks.
func (s *Service) ParishOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	return s.repo.ParishOf(ctx, id)
}
