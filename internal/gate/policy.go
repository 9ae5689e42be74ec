package gate

import "github.com/catequesis/catequesis-api/internal/shared"

// RoutePolicy is the static per-endpoint gating configuration supplied by
// the routing layer. It is immutable once mounted.
type RoutePolicy struct {
	// Action tags the endpoint for activity records, e.g. "catechumens.update".
	Action string
	// AllowedRoles is the set of admitted roles. Empty means any
	// authenticated principal.
	AllowedRoles []shared.Role
	// ParishScoped marks endpoints whose target resource belongs to a
	// parish; non-privileged principals must match that parish.
	ParishScoped bool
	// CredentialChangeExempt marks the few endpoints (profile, change
	// password, logout) reachable while a password change is pending. The
	// credential-change gate reads this flag; there is no separate path list.
	CredentialChangeExempt bool
}

// Allows reports whether the role satisfies the policy's allowed set.
func (p RoutePolicy) Allows(role shared.Role) bool {
	if len(p.AllowedRoles) == 0 {
		return true
	}
	for _, allowed := range p.AllowedRoles {
		if allowed == role {
			return true
		}
	}
	return false
}
