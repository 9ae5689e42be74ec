package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/activity"
	"github.com/catequesis/catequesis-api/internal/gate"
	"github.com/catequesis/catequesis-api/internal/platform/httpx"
	"github.com/catequesis/catequesis-api/internal/ratelimit"
	"github.com/catequesis/catequesis-api/internal/shared"
)

// Handler exposes session endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *Service
	recorder     *activity.Recorder
	loginLimiter *ratelimit.Limiter
	validate     *validator.Validate
}

// NewHandler constructs a Handler. recorder and loginLimiter may be nil.
func NewHandler(logger *slog.Logger, service *Service, recorder *activity.Recorder, loginLimiter *ratelimit.Limiter) *Handler {
	return &Handler{
		logger:       logger,
		service:      service,
		recorder:     recorder,
		loginLimiter: loginLimiter,
		validate:     validator.New(),
	}
}

// MountRoutes registers session endpoints with their admission policies.
// Everything here stays reachable while a password change is pending; the
// change-password endpoint is the way out of that state.
func (h *Handler) MountRoutes(r chi.Router, guard *gate.Middleware) {
	r.With(guard.Optional(gate.RoutePolicy{
		Action:                 "auth.login",
		CredentialChangeExempt: true,
	}, gate.WithLimiter(h.loginLimiter))).Post("/login", h.login)

	r.With(guard.Require(gate.RoutePolicy{
		Action:                 "auth.profile",
		CredentialChangeExempt: true,
	})).Get("/profile", h.profile)

	r.With(guard.Require(gate.RoutePolicy{
		Action:                 "auth.change_password",
		CredentialChangeExempt: true,
	})).Put("/change-password", h.changePassword)

	r.With(guard.Require(gate.RoutePolicy{
		Action:                 "auth.logout",
		CredentialChangeExempt: true,
	})).Post("/logout", h.logout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", slog.String("email", req.Email))
		httpx.RespondError(w, err)
		return
	}

	// Login succeeds before the gate knows the principal, so the record is
	// written here rather than by the admission middleware.
	if h.recorder != nil {
		h.recorder.Record(activity.Record{
			ID:            uuid.New(),
			PrincipalID:   session.Account.ID,
			PrincipalName: session.Account.Name,
			Role:          session.Account.Role,
			Action:        "auth.login",
			Method:        r.Method,
			Route:         r.URL.Path,
			OccurredAt:    time.Now(),
		})
	}

	httpx.OK(w, http.StatusOK, "login successful", map[string]any{
		"token":      session.Token,
		"expires_at": session.ExpiresAt.UTC(),
		"user": map[string]any{
			"id":                       session.Account.ID.String(),
			"name":                     session.Account.Name,
			"role":                     string(session.Account.Role),
			"password_change_required": session.Account.PasswordChangeRequired,
		},
	})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Fail(w, http.StatusUnauthorized, "no session")
		return
	}
	account, err := h.service.Account(r.Context(), principal.ID)
	if err != nil {
		h.logger.Error("load profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := map[string]any{
		"id":                       account.ID.String(),
		"email":                    account.Email,
		"name":                     account.Name,
		"role":                     string(account.Role),
		"active":                   account.Active,
		"password_change_required": account.PasswordChangeRequired,
	}
	if account.ParishID != nil {
		out["parish_id"] = account.ParishID.String()
	}
	httpx.OK(w, http.StatusOK, "", out)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		httpx.Fail(w, http.StatusUnauthorized, "no session")
		return
	}
	var req changePasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	if err := h.service.ChangePassword(r.Context(), principal.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, "password updated", nil)
}

// logout is advisory: tokens are stateless, so the client discards its copy.
func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, http.StatusOK, "session closed", nil)
}
