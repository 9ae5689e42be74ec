package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/ratelimit"
	"github.com/catequesis/catequesis-api/internal/shared"
)

// State carries what the chain has established so far for one request. A
// fresh State is built per request and discarded with it.
type State struct {
	// Bearer is the raw credential from the Authorization header, without
	// the scheme prefix. Empty when the header was absent.
	Bearer string
	// ClientIP keys anonymous rate limiting.
	ClientIP string
	// Now is the evaluation time for the whole chain.
	Now time.Time
	// LookupParish fetches the target resource's parish. Set by the boundary
	// on parish-scoped item routes; nil otherwise. This preliminary fetch is
	// the one place the chain touches handler territory.
	LookupParish func(ctx context.Context) (uuid.UUID, error)

	// Subject is filled by the verify stage.
	Subject uuid.UUID
	// Principal is filled by the resolve stage; nil means anonymous.
	Principal *shared.Principal
}

// Stage is one link of the chain: it inspects the state, may extend it, and
// either passes or terminates the request with a typed rejection.
type Stage func(ctx context.Context, st *State) *Rejection

// Chain is an explicit ordered list of stages with short-circuit-on-reject
// semantics.
type Chain struct {
	policy RoutePolicy
	stages []Stage
}

// Policy returns the route policy the chain was built for.
func (c Chain) Policy() RoutePolicy { return c.policy }

// Admit folds the stages over the state. The first rejection terminates the
// chain and is returned unchanged; no later stage runs.
func (c Chain) Admit(ctx context.Context, st *State) *Rejection {
	if st.Now.IsZero() {
		st.Now = time.Now()
	}
	for _, stage := range c.stages {
		if rej := stage(ctx, st); rej != nil {
			return rej
		}
	}
	return nil
}

// Pipeline builds gating chains. Authenticated and Anonymous are distinct
// entry points rather than a flag, so "missing credential tolerated" never
// leaks into routes that require one.
type Pipeline struct {
	verifier *Verifier
	resolver *Resolver
	logger   *slog.Logger
}

// NewPipeline constructs a Pipeline.
func NewPipeline(verifier *Verifier, resolver *Resolver, logger *slog.Logger) *Pipeline {
	return &Pipeline{verifier: verifier, resolver: resolver, logger: logger}
}

// Authenticated builds the chain for routes that require a credential:
// verify, resolve, rate limit, role, parish scope, credential-change.
func (p *Pipeline) Authenticated(policy RoutePolicy, limiter *ratelimit.Limiter) Chain {
	return Chain{policy: policy, stages: []Stage{
		p.verifyStage(),
		p.resolveStage(),
		p.limitStage(limiter),
		roleStage(policy),
		parishStage(policy),
		credentialChangeStage(policy),
	}}
}

// Anonymous builds the chain for optional-auth routes: an absent credential
// proceeds with a nil principal, but a present-and-broken one still rejects.
// A resolved principal still has to satisfy the policy's role set.
func (p *Pipeline) Anonymous(policy RoutePolicy, limiter *ratelimit.Limiter) Chain {
	return Chain{policy: policy, stages: []Stage{
		p.optionalVerifyStage(),
		p.limitStage(limiter),
		optionalRoleStage(policy),
		parishStage(policy),
		credentialChangeStage(policy),
	}}
}

func (p *Pipeline) verifyStage() Stage {
	return func(_ context.Context, st *State) *Rejection {
		subject, rej := p.verifier.Verify(st.Bearer)
		if rej != nil {
			return rej
		}
		st.Subject = subject
		return nil
	}
}

// optionalVerifyStage verifies and resolves only when a bearer is present.
func (p *Pipeline) optionalVerifyStage() Stage {
	resolve := p.resolveStage()
	return func(ctx context.Context, st *State) *Rejection {
		if st.Bearer == "" {
			return nil
		}
		subject, rej := p.verifier.Verify(st.Bearer)
		if rej != nil {
			return rej
		}
		st.Subject = subject
		return resolve(ctx, st)
	}
}

func (p *Pipeline) resolveStage() Stage {
	return func(ctx context.Context, st *State) *Rejection {
		principal, rej := p.resolver.Resolve(ctx, st.Subject)
		if rej != nil {
			return rej
		}
		st.Principal = principal
		return nil
	}
}

// limitStage keys authenticated traffic by principal id and anonymous
// traffic by client IP. The store records before the handler runs, so an
// admission counts even if the request is later abandoned. A store failure
// admits the request: throughput control degrades open, it never takes the
// API down with it.
func (p *Pipeline) limitStage(limiter *ratelimit.Limiter) Stage {
	return func(ctx context.Context, st *State) *Rejection {
		if limiter == nil {
			return nil
		}
		key := "ip:" + st.ClientIP
		if st.Principal != nil {
			key = "principal:" + st.Principal.ID.String()
		}
		result, err := limiter.AllowAt(ctx, key, st.Now)
		if err != nil {
			p.logger.Error("rate limit check failed", slog.Any("error", err))
			return nil
		}
		if !result.Allowed {
			rej := Reject(KindRateLimited, "request quota exceeded, slow down")
			rej.RetryAfter = result.RetryAfter
			return rej
		}
		return nil
	}
}

func roleStage(policy RoutePolicy) Stage {
	return func(_ context.Context, st *State) *Rejection {
		return CheckRole(st.Principal, policy)
	}
}

// optionalRoleStage enforces the role set only on resolved principals.
// Anonymity itself is permitted on optional-auth routes.
func optionalRoleStage(policy RoutePolicy) Stage {
	return func(_ context.Context, st *State) *Rejection {
		if st.Principal == nil {
			return nil
		}
		return CheckRole(st.Principal, policy)
	}
}

// parishStage runs the preliminary resource fetch and the parish check. The
// lookup is skipped entirely for privileged principals. A lookup failure is
// not a gating concern: the handler repeats the fetch and surfaces it.
func parishStage(policy RoutePolicy) Stage {
	return func(ctx context.Context, st *State) *Rejection {
		if !policy.ParishScoped || st.Principal == nil {
			return nil
		}
		if st.Principal.Role.Privileged() {
			return nil
		}
		if st.Principal.ParishID == nil {
			return Reject(KindNoTenantAssigned, "account has no parish assigned")
		}
		if st.LookupParish == nil {
			return nil
		}
		resourceParish, err := st.LookupParish(ctx)
		if err != nil {
			return nil
		}
		return CheckParishScope(st.Principal, resourceParish)
	}
}

func credentialChangeStage(policy RoutePolicy) Stage {
	return func(_ context.Context, st *State) *Rejection {
		return CheckCredentialChange(st.Principal, policy)
	}
}
