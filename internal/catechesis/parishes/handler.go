package parishes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/gate"
	"github.com/catequesis/catequesis-api/internal/platform/httpx"
	"github.com/catequesis/catequesis-api/internal/shared"
)

// Handler exposes parish endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

// MountRoutes registers parish endpoints. Reads are open to any
// authenticated principal; writes are reserved to the privileged role.
func (h *Handler) MountRoutes(r chi.Router, guard *gate.Middleware) {
	adminOnly := func(action string) gate.RoutePolicy {
		return gate.RoutePolicy{Action: action, AllowedRoles: []shared.Role{shared.RoleAdmin}}
	}
	r.With(guard.Require(gate.RoutePolicy{Action: "parishes.list"})).Get("/", h.list)
	r.With(guard.Require(gate.RoutePolicy{Action: "parishes.view"})).Get("/{id}", h.get)
	r.With(guard.Require(adminOnly("parishes.create"))).Post("/", h.create)
	r.With(guard.Require(adminOnly("parishes.update"))).Put("/{id}", h.update)
	r.With(guard.Require(adminOnly("parishes.deactivate"))).Post("/{id}/deactivate", h.setActive(false))
	r.With(guard.Require(adminOnly("parishes.reactivate"))).Post("/{id}/reactivate", h.setActive(true))
}

type parishResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	City      string    `json:"city"`
	Diocese   string    `json:"diocese"`
	Phone     string    `json:"phone"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toParishResponse(p Parish) parishResponse {
	return parishResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		City:      p.City,
		Diocese:   p.Diocese,
		Phone:     p.Phone,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

type parishRequest struct {
	Name    string `json:"name" validate:"required,min=3"`
	City    string `json:"city" validate:"required"`
	Diocese string `json:"diocese"`
	Phone   string `json:"phone"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list parishes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := make([]parishResponse, 0, len(out))
	for _, p := range out {
		resp = append(resp, toParishResponse(p))
	}
	httpx.OK(w, http.StatusOK, "", resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	parish, err := h.service.Find(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", toParishResponse(*parish))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req parishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	parish, err := h.service.Create(r.Context(), CreateInput{
		Name:    req.Name,
		City:    req.City,
		Diocese: req.Diocese,
		Phone:   req.Phone,
	})
	if err != nil {
		h.logger.Error("create parish", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "parish created", toParishResponse(*parish))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	var req parishRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	parish, err := h.service.Update(r.Context(), id, CreateInput{
		Name:    req.Name,
		City:    req.City,
		Diocese: req.Diocese,
		Phone:   req.Phone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "parish updated", toParishResponse(*parish))
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "id must be a UUID")
			return
		}
		if err := h.service.SetActive(r.Context(), id, active); err != nil {
			httpx.RespondError(w, err)
			return
		}
		message := "parish deactivated"
		if active {
			message = "parish reactivated"
		}
		httpx.OK(w, http.StatusOK, message, nil)
	}
}
