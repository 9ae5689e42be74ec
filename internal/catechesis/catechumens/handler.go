package catechumens

import (
	"context"
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

// Handler exposes catechumen endpoints.
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

var writerRoles = []shared.Role{shared.RoleAdmin, shared.RoleParroco, shared.RoleSecretaria}

// MountRoutes registers catechumen endpoints. Item routes carry the
// preliminary parish lookup so the admission chain can scope them; on the
// collection routes the handler scopes by the caller's own parish.
func (h *Handler) MountRoutes(r chi.Router, guard *gate.Middleware) {
	lookup := gate.WithParishLookup(h.parishLookup)

	r.With(guard.Require(gate.RoutePolicy{
		Action:       "catechumens.list",
		ParishScoped: true,
	})).Get("/", h.list)
	r.With(guard.Require(gate.RoutePolicy{
		Action:       "catechumens.create",
		AllowedRoles: writerRoles,
		ParishScoped: true,
	})).Post("/", h.create)

	r.With(guard.Require(gate.RoutePolicy{
		Action:       "catechumens.view",
		ParishScoped: true,
	}, lookup)).Get("/{id}", h.get)
	r.With(guard.Require(gate.RoutePolicy{
		Action:       "catechumens.update",
		AllowedRoles: writerRoles,
		ParishScoped: true,
	}, lookup)).Put("/{id}", h.update)
	r.With(guard.Require(gate.RoutePolicy{
		Action:       "catechumens.deactivate",
		AllowedRoles: writerRoles,
		ParishScoped: true,
	}, lookup)).Post("/{id}/deactivate", h.setActive(false))
	r.With(guard.Require(gate.RoutePolicy{
		Action:       "catechumens.reactivate",
		AllowedRoles: writerRoles,
		ParishScoped: true,
	}, lookup)).Post("/{id}/reactivate", h.setActive(true))
}

// parishLookup is the preliminary tenant fetch for item routes.
func (h *Handler) parishLookup(r *http.Request) gate.ParishLookup {
	raw := chi.URLParam(r, "id")
	return func(ctx context.Context) (uuid.UUID, error) {
		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, err
		}
		return h.service.ParishOf(ctx, id)
	}
}

type catechumenResponse struct {
	ID            string    `json:"id"`
	ParishID      string    `json:"parish_id"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	BirthDate     string    `json:"birth_date"`
	GuardianName  string    `json:"guardian_name"`
	GuardianPhone string    `json:"guardian_phone"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
}

func toCatechumenResponse(c Catechumen) catechumenResponse {
	return catechumenResponse{
		ID:            c.ID.String(),
		ParishID:      c.ParishID.String(),
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		BirthDate:     c.BirthDate.Format("2006-01-02"),
		GuardianName:  c.GuardianName,
		GuardianPhone: c.GuardianPhone,
		Active:        c.Active,
		CreatedAt:     c.CreatedAt,
	}
}

type catechumenRequest struct {
	ParishID      string `json:"parish_id"`
	FirstName     string `json:"first_name" validate:"required,min=2"`
	LastName      string `json:"last_name" validate:"required,min=2"`
	BirthDate     string `json:"birth_date" validate:"required"`
	GuardianName  string `json:"guardian_name"`
	GuardianPhone string `json:"guardian_phone"`
}

// targetParish picks the parish a collection request operates on. Scoped
// roles always act on their own parish; privileged callers name one in the
// request.
func targetParish(principal *shared.Principal, requested string) (uuid.UUID, bool) {
	if principal.Role.Privileged() {
		id, err := uuid.Parse(requested)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	}
	if principal.ParishID == nil {
		return uuid.Nil, false
	}
	return *principal.ParishID, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Fail(w, http.StatusUnauthorized, "no session")
		return
	}
	parishID, ok := targetParish(principal, r.URL.Query().Get("parish_id"))
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "parish_id must be a UUID")
		return
	}
	out, err := h.service.ListByParish(r.Context(), parishID)
	if err != nil {
		h.logger.Error("list catechumens", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	resp := make([]catechumenResponse, 0, len(out))
	for _, c := range out {
		resp = append(resp, toCatechumenResponse(c))
	}
	httpx.OK(w, http.StatusOK, "", resp)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Fail(w, http.StatusUnauthorized, "no session")
		return
	}
	var req catechumenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	parishID, ok := targetParish(principal, req.ParishID)
	if !ok {
		httpx.Fail(w, http.StatusBadRequest, "parish_id must be a UUID")
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
		return
	}
	c, err := h.service.Create(r.Context(), Input{
		ParishID:      parishID,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		BirthDate:     birthDate,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		h.logger.Error("create catechumen", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "catechumen registered", toCatechumenResponse(*c))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	c, err := h.service.Find(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "", toCatechumenResponse(*c))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "id must be a UUID")
		return
	}
	var req catechumenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD")
		return
	}
	c, err := h.service.Update(r.Context(), id, Input{
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		BirthDate:     birthDate,
		GuardianName:  req.GuardianName,
		GuardianPhone: req.GuardianPhone,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "catechumen updated", toCatechumenResponse(*c))
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
		message := "catechumen deactivated"
		if active {
			message = "catechumen reactivated"
		}
		httpx.OK(w, http.StatusOK, message, nil)
	}
}
