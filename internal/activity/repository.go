package activity

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Repository defines persistence operations for activity records.
type Repository interface {
	Insert(ctx context.Context, rec Record) error
	List(ctx context.Context, req ListRequest) ([]Record, int, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Insert stores one record.
func (r *PGRepository) Insert(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO activity_log (id, principal_id, principal_name, role, action, method, route, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.PrincipalID, rec.PrincipalName, string(rec.Role), rec.Action, rec.Method, rec.Route, rec.OccurredAt.UTC())
	return err
}

// List returns a page of records, newest first, with the total count.
func (r *PGRepository) List(ctx context.Context, req ListRequest) ([]Record, int, error) {
	page := shared.NewPagination(req.Page, req.PerPage, 0)
	offset := (page.Page - 1) * page.PerPage

	where := " WHERE 1=1"
	args := []any{}
	if req.PrincipalID != nil {
		args = append(args, *req.PrincipalID)
		where += " AND principal_id = $1"
	}
	if req.Action != "" {
		args = append(args, req.Action)
		where += " AND action = $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activity_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.PerPage, offset)
	query := `SELECT id, principal_id, principal_name, role, action, method, route, occurred_at
	          FROM activity_log` + where +
		` ORDER BY occurred_at DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var role string
		if err := rows.Scan(&rec.ID, &rec.PrincipalID, &rec.PrincipalName, &role, &rec.Action, &rec.Method, &rec.Route, &rec.OccurredAt); err != nil {
			return nil, 0, err
		}
		rec.Role = shared.Role(role)
		records = append(records, rec)
	}
	return records, total, rows.Err()
}

// PurgeOlderThan deletes records past the retention horizon.
func (r *PGRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activity_log WHERE occurred_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryRepository constructs an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Insert stores one record.
func (m *MemoryRepository) Insert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// List returns a page of records, newest first.
func (m *MemoryRepository) List(_ context.Context, req ListRequest) ([]Record, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := []Record{}
	for i := len(m.records) - 1; i >= 0; i-- {
		rec := m.records[i]
		if req.PrincipalID != nil && rec.PrincipalID != *req.PrincipalID {
			continue
		}
		if req.Action != "" && rec.Action != req.Action {
			continue
		}
		matched = append(matched, rec)
	}

	page := shared.NewPagination(req.Page, req.PerPage, len(matched))
	start := (page.Page - 1) * page.PerPage
	if start >= len(matched) {
		return []Record{}, len(matched), nil
	}
	end := start + page.PerPage
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

// PurgeOlderThan deletes records past the cutoff.
func (m *MemoryRepository) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	var purged int64
	for _, rec := range m.records {
		if rec.OccurredAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, rec)
	}
	m.records = kept
	return purged, nil
}

// All returns a copy of every stored record, oldest first.
func (m *MemoryRepository) All() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}

var _ Repository = (*MemoryRepository)(nil)

