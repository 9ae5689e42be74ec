package shared

import (
	"github.com/google/uuid"
)

// Role enumerates the fixed set of account roles.
type Role string

const (
	// RoleAdmin is the privileged role; it is not bound to any parish.
	RoleAdmin Role = "admin"
	// RoleParroco is the parish priest role.
	RoleParroco Role = "parroco"
	// RoleSecretaria is the parish secretary role.
	RoleSecretaria Role = "secretaria"
	// RoleCatequista is the catechist role.
	RoleCatequista Role = "catequista"
	// RoleConsulta is the read-only consultation role.
	RoleConsulta Role = "consulta"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleParroco, RoleSecretaria, RoleCatequista, RoleConsulta}

// Valid reports whether the role belongs to the enumerated set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleParroco, RoleSecretaria, RoleCatequista, RoleConsulta:
		return true
	}
	return false
}

// Privileged reports whether the role bypasses parish scoping.
func (r Role) Privileged() bool {
	return r == RoleAdmin
}

// Principal is the resolved identity attached to a request for its lifetime.
// It carries no secret fields; the directory strips those before handing the
// principal out. A nil *Principal means the request is anonymous.
type Principal struct {
	ID                     uuid.UUID
	Name                   string
	Role                   Role
	ParishID               *uuid.UUID
	Active                 bool
	PasswordChangeRequired bool
}

// MemberOf reports whether the principal belongs to the given parish.
// Privileged principals are members of every parish.
func (p *Principal) MemberOf(parishID uuid.UUID) bool {
	if p == nil {
		return false
	}
	if p.Role.Privileged() {
		return true
	}
	return p.ParishID != nil && *p.ParishID == parishID
}
