package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/catequesis/catequesis-api/internal/activity"
	"github.com/catequesis/catequesis-api/internal/auth"
	"github.com/catequesis/catequesis-api/internal/catechesis/catechumens"
	"github.com/catequesis/catequesis-api/internal/catechesis/parishes"
	"github.com/catequesis/catequesis-api/internal/directory"
	"github.com/catequesis/catequesis-api/internal/gate"
	"github.com/catequesis/catequesis-api/internal/observability"
	"github.com/catequesis/catequesis-api/internal/shared"
	"github.com/catequesis/catequesis-api/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	Guard              *gate.Middleware
	AuthHandler        *auth.Handler
	UsersHandler       *directory.Handler
	ParishesHandler    *parishes.Handler
	CatechumensHandler *catechumens.Handler
	ActivityHandler    *activity.Handler
	JobsHandler        *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with catequesis defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r, params.Guard)
		})
		r.Route("/users", func(r chi.Router) {
			params.UsersHandler.MountRoutes(r, params.Guard)
		})
		r.Route("/parishes", func(r chi.Router) {
			params.ParishesHandler.MountRoutes(r, params.Guard)
		})
		r.Route("/catechumens", func(r chi.Router) {
			params.CatechumensHandler.MountRoutes(r, params.Guard)
		})
		r.Route("/activity", func(r chi.Router) {
			r.Use(params.Guard.Require(gate.RoutePolicy{
				Action:       "activity.list",
				AllowedRoles: []shared.Role{shared.RoleAdmin},
			}))
			params.ActivityHandler.MountRoutes(r)
		})
		if params.JobsHandler != nil {
			r.Route("/jobs", func(r chi.Router) {
				r.Use(params.Guard.Require(gate.RoutePolicy{
					Action:       "jobs.health",
					AllowedRoles: []shared.Role{shared.RoleAdmin},
				}))
				params.JobsHandler.MountRoutes(r)
			})
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
