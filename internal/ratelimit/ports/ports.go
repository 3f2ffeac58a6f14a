// Package ports defines shared interfaces for the ratelimit module.
package ports

import (
	"context"
	"log/slog"
	"time"

	"countriapi/internal/ratelimit/models"
	"countriapi/pkg/requestcontext"
)

// Limiter makes admission decisions for a single tier. Implementations must
// serialize the read-check-increment sequence.
type Limiter interface {
	Admit(ctx context.Context) (*models.RateLimitResult, error)
}

// Resetter is implemented by limiters whose current window can be cleared by
// an operator.
type Resetter interface {
	ResetWindow(ctx context.Context) error
}

// BucketStore manages fixed-window counters in a store shared between processes.
type BucketStore interface {
	// Allow counts one request against key and reports whether it fits in limit.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)

	// Reset clears the counter for key.
	Reset(ctx context.Context, key string) error
}

// LogAudit logs a security-relevant rate limit event with the request ID attached.
func LogAudit(ctx context.Context, logger *slog.Logger, event string, attrs ...any) {
	if logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	logger.InfoContext(ctx, event, args...)
}
