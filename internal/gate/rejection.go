// Package gate implements the request-gating pipeline: credential
// verification, principal resolution, rate limiting, role and parish
// authorization, the credential-change gate and the activity decorator.
package gate

import (
	"net/http"
	"time"
)

// Kind tags a rejection with its cause. Stages never reclassify a kind once
// produced; the boundary renders it as-is.
type Kind string

const (
	KindMissingCredential        Kind = "missing_credential"
	KindInvalidCredential        Kind = "invalid_credential"
	KindExpiredCredential        Kind = "expired_credential"
	KindUnknownPrincipal         Kind = "unknown_principal"
	KindInactivePrincipal        Kind = "inactive_principal"
	KindDirectoryUnavailable     Kind = "directory_unavailable"
	KindRateLimited              Kind = "rate_limited"
	KindInsufficientRole         Kind = "insufficient_role"
	KindTenantMismatch           Kind = "parish_mismatch"
	KindNoTenantAssigned         Kind = "no_parish_assigned"
	KindCredentialChangeRequired Kind = "password_change_required"
)

// HTTPStatus returns the fixed status code mapping for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMissingCredential, KindInvalidCredential, KindExpiredCredential,
		KindUnknownPrincipal, KindInactivePrincipal:
		return http.StatusUnauthorized
	case KindInsufficientRole, KindTenantMismatch, KindNoTenantAssigned,
		KindCredentialChangeRequired:
		return http.StatusForbidden
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindDirectoryUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Rejection is the terminal, typed outcome of a gating stage. It terminates
// only the current request; nothing in the pipeline is fatal to the process.
type Rejection struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration // set only for KindRateLimited
}

// Error implements the error interface so rejections can travel through
// error-shaped plumbing without losing their kind.
func (r *Rejection) Error() string {
	return string(r.Kind) + ": " + r.Message
}

// Reject builds a Rejection.
func Reject(kind Kind, message string) *Rejection {
	return &Rejection{Kind: kind, Message: message}
}
