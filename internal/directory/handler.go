package directory

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

// Handler exposes account administration endpoints.
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

// MountRoutes registers account administration endpoints. All of them are
// reserved to the privileged role.
func (h *Handler) MountRoutes(r chi.Router, guard *gate.Middleware) {
	adminOnly := func(action string) gate.RoutePolicy {
		return gate.RoutePolicy{Action: action, AllowedRoles: []shared.Role{shared.RoleAdmin}}
	}
	r.With(guard.Require(adminOnly("users.list"))).Get("/", h.list)
	r.With(guard.Require(adminOnly("users.create"))).Post("/", h.create)
	r.With(guard.Require(adminOnly("users.deactivate"))).Post("/{id}/deactivate", h.setActive(false))
	r.With(guard.Require(adminOnly("users.reactivate"))).Post("/{id}/reactivate", h.setActive(true))
}

type accountResponse struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	Name                   string    `json:"name"`
	Role                   string    `json:"role"`
	ParishID               *string   `json:"parish_id,omitempty"`
	Active                 bool      `json:"active"`
	PasswordChangeRequired bool      `json:"password_change_required"`
	CreatedAt              time.Time `json:"created_at"`
}

func toAccountResponse(a Account) accountResponse {
	resp := accountResponse{
		ID:                     a.ID.String(),
		Email:                  a.Email,
		Name:                   a.Name,
		Role:                   string(a.Role),
		Active:                 a.Active,
		PasswordChangeRequired: a.PasswordChangeRequired,
		CreatedAt:              a.CreatedAt,
	}
	if a.ParishID != nil {
		id := a.ParishID.String()
		resp.ParishID = &id
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.OK(w, http.StatusOK, "", out)
}

type createAccountRequest struct {
	Email           string  `json:"email" validate:"required,email"`
	Name            string  `json:"name" validate:"required,min=3"`
	InitialPassword string  `json:"initial_password" validate:"required,min=8"`
	Role            string  `json:"role" validate:"required"`
	ParishID        *string `json:"parish_id"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	input := CreateAccountInput{
		Email:           req.Email,
		Name:            req.Name,
		InitialPassword: req.InitialPassword,
		Role:            shared.Role(req.Role),
	}
	if req.ParishID != nil {
		parishID, err := uuid.Parse(*req.ParishID)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "parish_id must be a UUID")
			return
		}
		input.ParishID = &parishID
	}
	if !input.Role.Valid() {
		httpx.Fail(w, http.StatusBadRequest, "unknown role")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), input)
	if err != nil {
		h.logger.Error("create account", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, "account created", toAccountResponse(*account))
}

func (h *Handler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "id must be a UUID")
			return
		}
		if err := h.service.SetActive(r.Context(), id, active); err != nil {
			h.logger.Error("set account active", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		message := "account deactivated"
		if active {
			message = "account reactivated"
		}
		httpx.OK(w, http.StatusOK, message, nil)
	}
}
