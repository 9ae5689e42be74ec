package parishes

import (
	"time"

	"github.com/google/uuid"
)

// Parish is a tenant boundary: every scoped resource and every
// non-privileged account belongs to exactly one.
type Parish struct {
	ID        uuid.UUID
	Name      string
	City      string
	Diocese   string
	Phone     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
