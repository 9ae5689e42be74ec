// Package directory is the principal directory: the accounts that can
// authenticate against the API, their roles and their parish assignment.
package directory

import (
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Account is a directory entry. PasswordHash never leaves this package:
// resolution hands out a shared.Principal, which has no secret fields.
type Account struct {
	ID                     uuid.UUID
	Email                  string
	Name                   string
	PasswordHash           string
	Role                   shared.Role
	ParishID               *uuid.UUID
	Active                 bool
	PasswordChangeRequired bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Principal converts the account into its request-scoped view, stripping
// the stored hash and every other secret.
func (a *Account) Principal() *shared.Principal {
	p := &shared.Principal{
		ID:                     a.ID,
		Name:                   a.Name,
		Role:                   a.Role,
		Active:                 a.Active,
		PasswordChangeRequired: a.PasswordChangeRequired,
	}
	if a.ParishID != nil {
		parish := *a.ParishID
		p.ParishID = &parish
	}
	return p
}
