package gate

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/shared"
)

// Directory resolves subject identifiers to principals. Implementations must
// never leak stored secrets (password hashes) through the returned principal.
// The lookup may block on I/O; callers impose timeouts through the context.
type Directory interface {
	Resolve(ctx context.Context, id uuid.UUID) (*shared.Principal, error)
}

// Resolver turns a verified subject id into an enriched principal.
type Resolver struct {
	directory Directory
}

// NewResolver constructs a Resolver backed by the given directory.
func NewResolver(directory Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve looks the subject up. Unknown subjects and deactivated accounts
// are terminal rejections; any other directory failure surfaces as
// DirectoryUnavailable rather than an unrelated error.
func (r *Resolver) Resolve(ctx context.Context, subject uuid.UUID) (*shared.Principal, *Rejection) {
	p, err := r.directory.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, Reject(KindUnknownPrincipal, "principal not found")
		}
		return nil, Reject(KindDirectoryUnavailable, "principal directory unavailable")
	}
	if !p.Active {
		return nil, Reject(KindInactivePrincipal, "account is deactivated")
	}
	// Copy so downstream stages and handlers share an immutable view.
	out := *p
	if p.ParishID != nil {
		parish := *p.ParishID
		out.ParishID = &parish
	}
	return &out, nil
}
