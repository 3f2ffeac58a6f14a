// Package admin exposes operator endpoints for the rate limiter.
package admin

//go:generate mockgen -source=admin.go -destination=mocks/mocks.go -package=mocks WindowResetter

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"countriapi/internal/ratelimit/models"
	"countriapi/pkg/platform/httputil"
	adminmw "countriapi/pkg/platform/middleware/admin"
)

const Prefix = "/admin/ratelimit"

// WindowResetter clears the current window of a tier.
type WindowResetter interface {
	ResetWindow(ctx context.Context, tier models.Tier) error
}

type Handler struct {
	resetter WindowResetter
	token    string
	logger   *slog.Logger
}

type ResetResponse struct {
	Tier  string `json:"tier"`
	Reset bool   `json:"reset"`
}

func New(resetter WindowResetter, token string, logger *slog.Logger) *Handler {
	return &Handler{resetter: resetter, token: token, logger: logger}
}

// Register mounts the admin routes behind the X-Admin-Token check.
func (h *Handler) Register(r chi.Router) {
	r.Route(Prefix, func(r chi.Router) {
		r.Use(adminmw.RequireAdminToken(h.token, h.logger))
		r.Post("/{tier}/reset", h.HandleReset)
	})
}

// HandleReset reopens an exhausted tier without waiting for its window to end.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	tier := models.Tier(chi.URLParam(r, "tier"))
	if err := h.resetter.ResetWindow(r.Context(), tier); err != nil {
		h.logger.WarnContext(r.Context(), "rate limit reset failed", "tier", tier.String(), "error", err)
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ResetResponse{Tier: tier.String(), Reset: true})
}
