package parishes

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Repository defines persistence operations for parishes.
type Repository interface {
	Find(ctx context.Context, id uuid.UUID) (*Parish, error)
	List(ctx context.Context) ([]Parish, error)
	Create(ctx context.Context, parish *Parish) error
	Update(ctx context.Context, parish *Parish) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
}

const uniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const parishColumns = `id, name, city, diocese, phone, is_active, created_at, updated_at`

// Find fetches a parish by id.
func (r *PGRepository) Find(ctx context.Context, id uuid.UUID) (*Parish, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+parishColumns+` FROM parishes WHERE id = $1`, id)
	return scanParish(row)
}

// List returns every parish ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]Parish, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+parishColumns+` FROM parishes ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Parish{}
	for rows.Next() {
		parish, err := scanParish(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *parish)
	}
	return out, rows.Err()
}

// Create inserts a new parish. A duplicate name maps to ErrDuplicate.
func (r *PGRepository) Create(ctx context.Context, parish *Parish) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO parishes (`+parishColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		parish.ID, parish.Name, parish.City, parish.Diocese, parish.Phone,
		parish.Active, parish.CreatedAt.UTC(), parish.UpdatedAt.UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicate
		}
		return err
	}
	return nil
}

// Update rewrites the mutable fields of a parish.
func (r *PGRepository) Update(ctx context.Context, parish *Parish) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE parishes SET name = $2, city = $3, diocese = $4, phone = $5, updated_at = NOW()
		 WHERE id = $1`,
		parish.ID, parish.Name, parish.City, parish.Diocese, parish.Phone)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return shared.ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the parish's active flag.
func (r *PGRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE parishes SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanParish(row pgx.Row) (*Parish, error) {
	var parish Parish
	err := row.Scan(&parish.ID, &parish.Name, &parish.City, &parish.Diocese, &parish.Phone,
		&parish.Active, &parish.CreatedAt, &parish.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &parish, nil
}

var _ Repository = (*PGRepository)(nil)

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu       sync.RWMutex
	parishes map[uuid.UUID]*Parish
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{parishes: make(map[uuid.UUID]*Parish)}
}

// Find fetches a parish by id.
func (m *MemoryRepository) Find(_ context.Context, id uuid.UUID) (*Parish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	parish, ok := m.parishes[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *parish
	return &copied, nil
}

// List returns every parish ordered by name.
func (m *MemoryRepository) List(_ context.Context) ([]Parish, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Parish, 0, len(m.parishes))
	for _, parish := range m.parishes {
		out = append(out, *parish)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Create inserts a new parish.
func (m *MemoryRepository) Create(_ context.Context, parish *Parish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.parishes {
		if strings.EqualFold(existing.Name, parish.Name) {
			return shared.ErrDuplicate
		}
	}
	copied := *parish
	m.parishes[parish.ID] = &copied
	return nil
}

// Update rewrites the mutable fields of a parish.
func (m *MemoryRepository) Update(_ context.Context, parish *Parish) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.parishes[parish.ID]
	if !ok {
		return shared.ErrNotFound
	}
	existing.Name = parish.Name
	existing.City = parish.City
	existing.Diocese = parish.Diocese
	existing.Phone = parish.Phone
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// SetActive toggles the parish's active flag.
func (m *MemoryRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	parish, ok := m.parishes[id]
	if !ok {
		return shared.ErrNotFound
	}
	parish.Active = active
	parish.UpdatedAt = time.Now().UTC()
	return nil
}

var _ Repository = (*MemoryRepository)(nil)
