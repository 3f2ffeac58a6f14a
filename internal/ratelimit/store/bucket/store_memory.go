package bucket

import (
	"context"
	"sync"
	"time"

	"countriapi/internal/ratelimit/models"
)

// Clock returns the current time; injected for tests.
type Clock func() time.Time

// FixedWindow is the in-process limiter for one tier. All admission decisions
// are serialized by mu, so at most limit requests are admitted per window no
// matter how callers interleave.
type FixedWindow struct {
	mu          sync.Mutex
	tier        models.Tier
	limit       int
	period      time.Duration
	count       int
	windowStart time.Time
	clock       Clock
}

type Option func(*FixedWindow)

// WithClock overrides time.Now.
func WithClock(clock Clock) Option {
	return func(w *FixedWindow) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// NewFixedWindow creates a limiter admitting limit.RequestsPerWindow requests per limit.Window.
func NewFixedWindow(tier models.Tier, limit models.Limit, opts ...Option) *FixedWindow {
	w := &FixedWindow{
		tier:   tier,
		limit:  limit.RequestsPerWindow,
		period: limit.Window,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Admit counts the request against the current window.
func (w *FixedWindow) Admit(_ context.Context) (*models.RateLimitResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock()
	if w.windowStart.IsZero() || now.Sub(w.windowStart) >= w.period {
		w.count = 0
		w.windowStart = now
	}
	resetAt := w.windowStart.Add(w.period)

	if w.count < w.limit {
		w.count++
		return &models.RateLimitResult{
			Tier:      w.tier,
			Allowed:   true,
			Limit:     w.limit,
			Remaining: w.limit - w.count,
			ResetAt:   resetAt,
		}, nil
	}

	return &models.RateLimitResult{
		Tier:       w.tier,
		Allowed:    false,
		Limit:      w.limit,
		Remaining:  0,
		ResetAt:    resetAt,
		RetryAfter: resetAt.Sub(now),
	}, nil
}

// CurrentCount returns the number of requests admitted in the current window.
func (w *FixedWindow) CurrentCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.windowStart.IsZero() || w.clock().Sub(w.windowStart) >= w.period {
		return 0
	}
	return w.count
}

// Reset starts a fresh window on the next admission.
func (w *FixedWindow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.count = 0
	w.windowStart = time.Time{}
}

// ResetWindow is Reset for callers that hold a ports.Resetter.
func (w *FixedWindow) ResetWindow(context.Context) error {
	w.Reset()
	return nil
}
