package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"countriapi/internal/auth/models"
	rlmiddleware "countriapi/internal/ratelimit/middleware"
	rlmodels "countriapi/internal/ratelimit/models"
	dErrors "countriapi/pkg/domain-errors"
	"countriapi/pkg/platform/httputil"
	"countriapi/pkg/requestcontext"
)

const AuthenticatePath = "/api/v1/auth/authenticate"

//go:generate mockgen -source=handler.go -destination=mocks/auth-mocks.go -package=mocks Service
type Service interface {
	Authenticate(ctx context.Context, req *models.AuthenticateRequest) (*models.AuthenticateResult, error)
}

// Throttle paces authentication attempts per client.
type Throttle interface {
	Admit(ctx context.Context, key string) *rlmodels.RateLimitResult
}

type Handler struct {
	auth     Service
	logger   *slog.Logger
	throttle Throttle
}

type Option func(*Handler)

func WithThrottle(t Throttle) Option {
	return func(h *Handler) {
		h.throttle = t
	}
}

func New(auth Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{auth: auth, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Register(r chi.Router) {
	r.Post(AuthenticatePath, h.HandleAuthenticate)
}

// HandleAuthenticate exchanges an email and password for a session token.
func (h *Handler) HandleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.throttle != nil {
		decision := h.throttle.Admit(ctx, clientKey(ctx))
		if !decision.Allowed {
			rlmiddleware.AddHeaders(w, decision)
			httputil.WriteError(w, r, dErrors.New(dErrors.CodeTooManyRequests, rlmodels.MsgRateLimitExceeded))
			return
		}
	}

	req, err := httputil.DecodeJSON[models.AuthenticateRequest](r)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to decode authenticate request", "error", err)
		httputil.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	res, err := h.auth.Authenticate(ctx, req)
	if err != nil {
		h.logger.InfoContext(ctx, "authentication rejected", "error", err)
		httputil.WriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func clientKey(ctx context.Context) string {
	if ip := requestcontext.ClientIP(ctx); ip != "" {
		return ip
	}
	return "unknown"
}
