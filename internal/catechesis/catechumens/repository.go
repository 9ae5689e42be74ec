package catechumens

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Repository defines persistence operations for catechumens. ParishOf is
// the tenant lookup the admission gate runs before scoped routes.
type Repository interface {
	Find(ctx context.Context, id uuid.UUID) (*Catechumen, error)
	ParishOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListByParish(ctx context.Context, parishID uuid.UUID) ([]Catechumen, error)
	Create(ctx context.Context, c *Catechumen) error
	Update(ctx context.Context, c *Catechumen) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const catechumenColumns = `id, parish_id, first_name, last_name, birth_date, guardian_name, guardian_phone, is_active, created_at, updated_at`

// Find fetches a catechumen by id.
func (r *PGRepository) Find(ctx context.Context, id uuid.UUID) (*Catechumen, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+catechumenColumns+` FROM catechumens WHERE id = $1`, id)
	return scanCatechumen(row)
}

// ParishOf returns the owning parish of a catechumen.
func (r *PGRepository) ParishOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var parishID uuid.UUID
	err := r.pool.QueryRow(ctx, `SELECT parish_id FROM catechumens WHERE id = $1`, id).Scan(&parishID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, shared.ErrNotFound
		}
		return uuid.Nil, err
	}
	return parishID, nil
}

// ListByParish returns a parish's catechumens ordered by last name.
func (r *PGRepository) ListByParish(ctx context.Context, parishID uuid.UUID) ([]Catechumen, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+catechumenColumns+` FROM catechumens WHERE parish_id = $1 ORDER BY last_name, first_name`,
		parishID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Catechumen{}
	for rows.Next() {
		c, err := scanCatechumen(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Create inserts a new catechumen.
func (r *PGRepository) Create(ctx context.Context, c *Catechumen) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO catechumens (`+catechumenColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.ParishID, c.FirstName, c.LastName, c.BirthDate,
		c.GuardianName, c.GuardianPhone, c.Active, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return err
}

// Update rewrites the mutable fields of a catechumen.
func (r *PGRepository) Update(ctx context.Context, c *Catechumen) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE catechumens
		 SET first_name = $2, last_name = $3, birth_date = $4, guardian_name = $5, guardian_phone = $6, updated_at = NOW()
		 WHERE id = $1`,
		c.ID, c.FirstName, c.LastName, c.BirthDate, c.GuardianName, c.GuardianPhone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the catechumen's active flag.
func (r *PGRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE catechumens SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanCatechumen(row pgx.Row) (*Catechumen, error) {
	var c Catechumen
	err := row.Scan(&c.ID, &c.ParishID, &c.FirstName, &c.LastName, &c.BirthDate,
		&c.GuardianName, &c.GuardianPhone, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

var _ Repository = (*PGRepository)(nil)

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*Catechumen
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]*Catechumen)}
}

// Find fetches a catechumen by id.
func (m *MemoryRepository) Find(_ context.Context, id uuid.UUID) (*Catechumen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.records[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

// ParishOf returns the owning parish of a catechumen.
func (m *MemoryRepository) ParishOf(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.records[id]
	if !ok {
		return uuid.Nil, shared.ErrNotFound
	}
	return c.ParishID, nil
}

// ListByParish returns a parish's catechumens ordered by last name.
func (m *MemoryRepository) ListByParish(_ context.Context, parishID uuid.UUID) ([]Catechumen, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Catechumen{}
	for _, c := range m.records {
		if c.ParishID == parishID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

// Create inserts a new catechumen.
func (m *MemoryRepository) Create(_ context.Context, c *Catechumen) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *c
	m.records[c.ID] = &copied
	return nil
}

// Update rewrites the mutable fields of a catechumen.
func (m *MemoryRepository) Update(_ context.Context, c *Catechumen) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.records[c.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.FirstName = c.FirstName
	existing.LastName = c.LastName
	existing.BirthDate = c.BirthDate
	existing.GuardianName = c.GuardianName
	existing.GuardianPhone = c.GuardianPhone
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// SetActive toggles the catechumen's active flag.
func (m *MemoryRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.records[id]
	if !ok {
		return shared.ErrNotFound
	}
	c.Active = active
	c.UpdatedAt = time.Now().UTC()
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
