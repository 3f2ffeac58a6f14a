// Package resilient keeps rate limiting alive while the shared backend is down.
//
// Every admission is tried against the primary limiter first. Primary errors are
// counted by a circuit breaker and the request is decided by the in-process
// fallback window instead, so the service never fails open. Once the circuit is
// open the fallback keeps deciding until enough consecutive primary successes
// close it again.
package resilient

import (
	"context"
	"errors"
	"log/slog"

	"countriapi/internal/ratelimit/metrics"
	"countriapi/internal/ratelimit/models"
	"countriapi/internal/ratelimit/ports"
	"countriapi/pkg/platform/circuit"
)

type Limiter struct {
	tier     models.Tier
	primary  ports.Limiter
	fallback ports.Limiter
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		l.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithBreaker replaces the default breaker (5 failures to open, 3 successes to close).
func WithBreaker(b *circuit.Breaker) Option {
	return func(l *Limiter) {
		if b != nil {
			l.breaker = b
		}
	}
}

func New(tier models.Tier, primary, fallback ports.Limiter, opts ...Option) (*Limiter, error) {
	if primary == nil {
		return nil, errors.New("primary limiter is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback limiter is required")
	}

	l := &Limiter{
		tier:     tier,
		primary:  primary,
		fallback: fallback,
		breaker:  circuit.New("ratelimit-" + tier.String()),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *Limiter) Admit(ctx context.Context) (*models.RateLimitResult, error) {
	result, err := l.primary.Admit(ctx)
	if err != nil {
		if l.metrics != nil {
			l.metrics.RecordBackendError(l.tier)
		}
		_, change := l.breaker.RecordFailure()
		if change.Opened {
			l.onOpened(ctx, err)
		} else if l.logger != nil {
			l.logger.WarnContext(ctx, "shared rate limit backend failed", "tier", l.tier.String(), "error", err)
		}
		return l.admitFallback(ctx)
	}

	usePrimary, change := l.breaker.RecordSuccess()
	if change.Closed {
		l.onClosed(ctx)
	}
	if !usePrimary {
		return l.admitFallback(ctx)
	}
	return result, nil
}

// ResetWindow clears the fallback window and, when reachable, the shared one.
func (l *Limiter) ResetWindow(ctx context.Context) error {
	var errs []error
	if r, ok := l.fallback.(ports.Resetter); ok {
		errs = append(errs, r.ResetWindow(ctx))
	}
	if r, ok := l.primary.(ports.Resetter); ok {
		errs = append(errs, r.ResetWindow(ctx))
	}
	return errors.Join(errs...)
}

// Degraded reports whether decisions currently come from the fallback.
func (l *Limiter) Degraded() bool {
	return l.breaker.IsOpen()
}

func (l *Limiter) admitFallback(ctx context.Context) (*models.RateLimitResult, error) {
	result, err := l.fallback.Admit(ctx)
	if err != nil {
		return nil, err
	}
	result.Degraded = true
	if l.metrics != nil {
		l.metrics.RecordFallback(l.tier)
	}
	return result, nil
}

func (l *Limiter) onOpened(ctx context.Context, cause error) {
	if l.metrics != nil {
		l.metrics.RecordCircuitOpened(l.tier)
	}
	if l.logger != nil {
		l.logger.ErrorContext(ctx, "rate limit circuit opened, using in-process fallback",
			"tier", l.tier.String(),
			"breaker", l.breaker.Name(),
			"error", cause,
		)
	}
}

func (l *Limiter) onClosed(ctx context.Context) {
	if l.metrics != nil {
		l.metrics.RecordCircuitClosed(l.tier)
	}
	if l.logger != nil {
		l.logger.InfoContext(ctx, "rate limit circuit closed, shared backend restored",
			"tier", l.tier.String(),
			"breaker", l.breaker.Name(),
		)
	}
}
