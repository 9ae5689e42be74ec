package gate

import (
	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// CheckRole authorizes the principal's role against the policy's allowed
// set. An empty set admits any authenticated principal. Pure: evaluating it
// twice with the same inputs yields the same decision.
func CheckRole(p *shared.Principal, policy RoutePolicy) *Rejection {
	if p == nil {
		return Reject(KindMissingCredential, "authentication required")
	}
	if !policy.Allows(p.Role) {
		return Reject(KindInsufficientRole, "role "+string(p.Role)+" may not perform this action")
	}
	return nil
}

// CheckParishScope confines non-privileged principals to their own parish.
// The privileged role bypasses the check unconditionally. A principal with
// no parish at all is rejected regardless of the resource.
func CheckParishScope(p *shared.Principal, resourceParish uuid.UUID) *Rejection {
	if p == nil {
		return Reject(KindMissingCredential, "authentication required")
	}
	if p.Role.Privileged() {
		return nil
	}
	if p.ParishID == nil {
		return Reject(KindNoTenantAssigned, "account has no parish assigned")
	}
	if *p.ParishID != resourceParish {
		return Reject(KindTenantMismatch, "resource belongs to another parish")
	}
	return nil
}

// CheckCredentialChange blocks principals flagged for a password change from
// everything except policy-exempt endpoints. The gate only reads the flag;
// clearing it is the change-password operation's job.
func CheckCredentialChange(p *shared.Principal, policy RoutePolicy) *Rejection {
	if p == nil || !p.PasswordChangeRequired {
		return nil
	}
	if policy.CredentialChangeExempt {
		return nil
	}
	return Reject(KindCredentialChangeRequired, "password change required before continuing")
}
