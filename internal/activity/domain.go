// Package activity records who did what, after the fact. Recording is
// best-effort: under backpressure entries are dropped rather than delaying
// the response.
package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Record is one successful action performed by a principal.
type Record struct {
	ID            uuid.UUID
	PrincipalID   uuid.UUID
	PrincipalName string
	Role          shared.Role
	Action        string
	Method        string
	Route         string
	OccurredAt    time.Time
}

// ListRequest filters and pages activity listings.
type ListRequest struct {
	PrincipalID *uuid.UUID
	Action      string
	Page        int
	PerPage     int
}
