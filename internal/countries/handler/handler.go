package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"countriapi/internal/countries/metrics"
	"countriapi/internal/pipeline"
	rlmiddleware "countriapi/internal/ratelimit/middleware"
	rlmodels "countriapi/internal/ratelimit/models"
	dErrors "countriapi/pkg/domain-errors"
	"countriapi/pkg/platform/httputil"
)

const (
	PublicPrefix  = "/api/v1/public/countries"
	PrivatePrefix = "/api/v1/private/countries"
)

// Lookup runs one request through the processing pipeline.
type Lookup interface {
	Handle(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type Handler struct {
	lookup  Lookup
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Handler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

func New(lookup Lookup, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{lookup: lookup, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts both tiers. The bare prefixes are routed too so an empty code
// list reaches the pipeline instead of the router's 404.
func (h *Handler) Register(r chi.Router) {
	for prefix, tier := range map[string]rlmodels.Tier{
		PublicPrefix:  rlmodels.TierPublic,
		PrivatePrefix: rlmodels.TierAuthenticated,
	} {
		handle := h.handleLookup(tier)
		r.Get(prefix, handle)
		r.Get(prefix+"/", handle)
		r.Get(prefix+"/{codes}", handle)
	}
}

func (h *Handler) handleLookup(tier rlmodels.Tier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		start := time.Now()

		result, err := h.lookup.Handle(ctx, pipeline.Request{
			Tier:          tier,
			Authorization: r.Header.Get("Authorization"),
			RawCodes:      splitCodes(r),
		})

		if result != nil {
			rlmiddleware.AddHeaders(w, result.RateLimit)
		}

		status := http.StatusOK
		if err != nil {
			status = http.StatusInternalServerError
			if de, ok := dErrors.As(err); ok {
				status = httputil.StatusFor(de.Code)
			}
			if status >= http.StatusInternalServerError {
				h.logger.ErrorContext(ctx, "country lookup failed", "tier", tier.String(), "error", err)
			} else {
				h.logger.InfoContext(ctx, "country lookup rejected", "tier", tier.String(), "error", err)
			}
			httputil.WriteError(w, r, err)
		} else {
			h.logger.InfoContext(ctx, "country lookup served", "tier", tier.String(), "groups", len(result.Groups))
			httputil.WriteJSON(w, http.StatusOK, result.Groups)
		}

		if h.metrics != nil {
			h.metrics.ObserveLookup(tier.String(), status, time.Since(start))
		}
	}
}

// splitCodes returns the comma separated path segment as-is, blank entries
// included, so normalization can reject them. An absent segment yields nil.
func splitCodes(r *http.Request) []string {
	raw := chi.URLParam(r, "codes")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(raw); err == nil {
			raw = unescaped
		}
	}
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
