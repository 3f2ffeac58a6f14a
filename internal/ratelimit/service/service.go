package service

import (
	"context"
	"errors"
	"log/slog"

	"countriapi/internal/ratelimit/metrics"
	"countriapi/internal/ratelimit/models"
	"countriapi/internal/ratelimit/ports"
	dErrors "countriapi/pkg/domain-errors"
)

// Tiers routes admission checks to the limiter owning each tier. The two
// limiters never share state, so exhausting one tier leaves the other untouched.
type Tiers struct {
	public        ports.Limiter
	authenticated ports.Limiter
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Tiers)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tiers) {
		t.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tiers) {
		t.metrics = m
	}
}

func New(public, authenticated ports.Limiter, opts ...Option) (*Tiers, error) {
	if public == nil {
		return nil, errors.New("public limiter is required")
	}
	if authenticated == nil {
		return nil, errors.New("authenticated limiter is required")
	}

	t := &Tiers{
		public:        public,
		authenticated: authenticated,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// For returns the limiter for tier, or nil for an unknown tier.
func (t *Tiers) For(tier models.Tier) ports.Limiter {
	switch tier {
	case models.TierPublic:
		return t.public
	case models.TierAuthenticated:
		return t.authenticated
	default:
		return nil
	}
}

// Admit counts one request against the tier's window.
func (t *Tiers) Admit(ctx context.Context, tier models.Tier) (*models.RateLimitResult, error) {
	limiter := t.For(tier)
	if limiter == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "no rate limiter configured for tier "+tier.String())
	}

	result, err := limiter.Admit(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	result.Tier = tier

	if t.metrics != nil {
		t.metrics.RecordDecision(tier, result.Allowed)
	}
	if !result.Allowed {
		ports.LogAudit(ctx, t.logger, "rate_limit_exceeded",
			"tier", tier.String(),
			"limit", result.Limit,
			"retry_after_seconds", result.RetryAfterSeconds(),
			"degraded", result.Degraded,
		)
	}

	return result, nil
}

// ResetWindow clears the current window of tier so its next request starts a
// fresh count.
func (t *Tiers) ResetWindow(ctx context.Context, tier models.Tier) error {
	if !tier.IsValid() {
		return dErrors.New(dErrors.CodeNotFound, "unknown tier "+tier.String())
	}
	resetter, ok := t.For(tier).(ports.Resetter)
	if !ok {
		return dErrors.New(dErrors.CodeBadRequest, "rate limiter for tier "+tier.String()+" cannot be reset")
	}
	if err := resetter.ResetWindow(ctx); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset rate limit window")
	}
	ports.LogAudit(ctx, t.logger, "rate_limit_reset", "tier", tier.String())
	return nil
}
