package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/catequesis/catequesis-api/internal/activity"
	"github.com/catequesis/catequesis-api/internal/ratelimit"
	"github.com/catequesis/catequesis-api/internal/shared"
)

type middlewareFixture struct {
	*pipelineFixture
	guard *Middleware
	repo  *activity.MemoryRepository
	stop  context.CancelFunc
}

func newMiddlewareFixture(t *testing.T, role shared.Role, limiter *ratelimit.Limiter) *middlewareFixture {
	t.Helper()
	pf := newPipelineFixture(t, role)
	repo := activity.NewMemoryRepository()
	recorder := activity.NewRecorder(repo, discardLogger(), 64)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = recorder.Run(ctx) }()
	t.Cleanup(cancel)

	if limiter == nil {
		limiter = pf.limiter
	}
	guard := NewMiddleware(MiddlewareConfig{
		Pipeline: pf.pipeline,
		Limiter:  limiter,
		Recorder: recorder,
		Logger:   discardLogger(),
	})
	return &middlewareFixture{pipelineFixture: pf, guard: guard, repo: repo, stop: cancel}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
}

func TestMiddlewareAdmitsAndRecordsOnce(t *testing.T) {
	f := newMiddlewareFixture(t, shared.RoleSecretaria, nil)
	var seen *shared.Principal
	handler := f.guard.Require(RoutePolicy{Action: "catechumens.create"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = shared.PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusCreated)
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/catechumens", nil)
	req.Header.Set("Authorization", "Bearer "+f.bearer(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, seen)
	require.Equal(t, f.subject, seen.ID)

	require.Eventually(t, func() bool {
		return len(f.repo.All()) == 1
	}, time.Second, 10*time.Millisecond)

	entry := f.repo.All()[0]
	require.Equal(t, "catechumens.create", entry.Action)
	require.Equal(t, f.subject, entry.PrincipalID)
	require.Equal(t, shared.RoleSecretaria, entry.Role)
	require.Equal(t, http.MethodPost, entry.Method)
	require.Equal(t, "/api/catechumens", entry.Route)
}

func TestMiddlewareDoesNotRecordFailures(t *testing.T) {
	f := newMiddlewareFixture(t, shared.RoleSecretaria, nil)
	handler := f.guard.Require(RoutePolicy{Action: "catechumens.create"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

	req := httptest.NewRequest(http.MethodPost, "/api/catechumens", nil)
	req.Header.Set("Authorization", "Bearer "+f.bearer(t))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, f.repo.All())
}

func TestMiddlewareRendersRejectionEnvelope(t *testing.T) {
	f := newMiddlewareFixture(t, shared.RoleSecretaria, nil)
	handler := f.guard.Require(RoutePolicy{Action: "catechumens.list"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/catechumens", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "missing_credential", body["error"])
	require.NotEmpty(t, body["message"])
	require.NotEmpty(t, body["timestamp"])
	require.Equal(t, "/api/catechumens", body["path"])
	require.Empty(t, f.repo.All())
}

func TestMiddlewareRateLimitResponse(t *testing.T) {
	tight := ratelimit.New(ratelimit.NewMemoryStore(), "api", 1, time.Minute)
	f := newMiddlewareFixture(t, shared.RoleSecretaria, tight)
	handler := f.guard.Require(RoutePolicy{Action: "catechumens.list"})(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/catechumens", nil)
	first.Header.Set("Authorization", "Bearer "+f.bearer(t))
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodGet, "/api/catechumens", nil)
	second.Header.Set("Authorization", "Bearer "+f.bearer(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "rate_limited", body["error"])
	retry, ok := body["retry_after"].(float64)
	require.True(t, ok)
	require.GreaterOrEqual(t, retry, float64(1))
}

func TestMiddlewarePerRouteLimiterOverride(t *testing.T) {
	f := newMiddlewareFixture(t, shared.RoleSecretaria, nil)
	tight := ratelimit.New(ratelimit.NewMemoryStore(), "login", 1, time.Minute)
	handler := f.guard.Optional(RoutePolicy{Action: "auth.login"}, WithLimiter(tight))(okHandler())

	first := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	first.RemoteAddr = "203.0.113.9:40000"
	handler.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	second.RemoteAddr = "203.0.113.9:40002"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, second)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// A different source address starts with a fresh window.
	third := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	third.RemoteAddr = "203.0.113.77:40000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, third)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareParishLookupOption(t *testing.T) {
	f := newMiddlewareFixture(t, shared.RoleCatequista, nil)
	foreign := uuid.New()
	lookup := WithParishLookup(func(*http.Request) ParishLookup {
		return func(context.Context) (uuid.UUID, error) { return foreign, nil }
	})
	handler := f.guard.Require(RoutePolicy{Action: "catechumens.view", ParishScoped: true}, lookup)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/catechumens/abc", nil)
	req.Header.Set("Authorization", "Bearer "+f.bearer(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "parish_mismatch", body["error"])
}
