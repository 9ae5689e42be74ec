package activity

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/catequesis/catequesis-api/internal/platform/httpx"
	"github.com/catequesis/catequesis-api/internal/shared"
)

// Handler exposes activity listings to administrators.
type Handler struct {
	logger *slog.Logger
	repo   Repository
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers activity endpoints on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

type recordResponse struct {
	ID            string    `json:"id"`
	PrincipalID   string    `json:"principal_id"`
	PrincipalName string    `json:"principal_name"`
	Role          string    `json:"role"`
	Action        string    `json:"action"`
	Method        string    `json:"method"`
	Route         string    `json:"route"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListRequest{
		Action: r.URL.Query().Get("action"),
	}
	req.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	req.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if raw := r.URL.Query().Get("principal_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Fail(w, http.StatusBadRequest, "principal_id must be a UUID")
			return
		}
		req.PrincipalID = &id
	}

	records, total, err := h.repo.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, recordResponse{
			ID:            rec.ID.String(),
			PrincipalID:   rec.PrincipalID.String(),
			PrincipalName: rec.PrincipalName,
			Role:          string(rec.Role),
			Action:        rec.Action,
			Method:        rec.Method,
			Route:         rec.Route,
			OccurredAt:    rec.OccurredAt,
		})
	}

	page := shared.NewPagination(req.Page, req.PerPage, total)
	httpx.OK(w, http.StatusOK, "", map[string]any{
		"records":     out,
		"page":        page.Page,
		"per_page":    page.PerPage,
		"total":       page.Total,
		"total_pages": page.TotalPages,
	})
}
