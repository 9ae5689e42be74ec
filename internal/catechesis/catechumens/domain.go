package catechumens

import (
	"time"

	"github.com/google/uuid"
)

// Catechumen is a parish-scoped enrollment record. Every non-privileged
// access is checked against ParishID.
type Catechumen struct {
	ID            uuid.UUID
	ParishID      uuid.UUID
	FirstName     string
	LastName      string
	BirthDate     time.Time
	GuardianName  string
	GuardianPhone string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName returns the display name.
func (c Catechumen) FullName() string {
	return c.FirstName + " " + c.LastName
}
