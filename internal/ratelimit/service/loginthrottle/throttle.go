// Package loginthrottle paces authentication attempts per client with a token
// bucket, so password guessing against one account or from one address is
// slowed without affecting lookups.
package loginthrottle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"countriapi/internal/ratelimit/models"
	"countriapi/internal/ratelimit/ports"
)

const (
	defaultIdleTTL      = 15 * time.Minute
	defaultCleanupEvery = 2 * time.Minute
)

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Throttle holds one limiter per client key. Keys idle for longer than the
// idle TTL are evicted by Cleanup.
type Throttle struct {
	mu           sync.Mutex
	entries      map[string]*entry
	rps          rate.Limit
	burst        int
	idleTTL      time.Duration
	cleanupEvery time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

type Option func(*Throttle)

func WithIdleTTL(d time.Duration) Option {
	return func(t *Throttle) { t.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(t *Throttle) { t.cleanupEvery = d }
}

func WithClock(now func() time.Time) Option {
	return func(t *Throttle) { t.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Throttle) { t.logger = logger }
}

func New(ratePerSecond float64, burst int, opts ...Option) *Throttle {
	t := &Throttle{
		entries:      make(map[string]*entry),
		rps:          rate.Limit(ratePerSecond),
		burst:        burst,
		idleTTL:      defaultIdleTTL,
		cleanupEvery: defaultCleanupEvery,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Admit consumes one token for key. A rejected result carries the delay until
// the next token is available.
func (t *Throttle) Admit(ctx context.Context, key string) *models.RateLimitResult {
	now := t.now()
	lim := t.limiter(key, now)

	r := lim.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	if delay > 0 {
		r.CancelAt(now)
		ports.LogAudit(ctx, t.logger, "login_throttled", "client", key, "retry_after", delay)
		return &models.RateLimitResult{
			Allowed:    false,
			Limit:      t.burst,
			Remaining:  0,
			ResetAt:    now.Add(delay),
			RetryAfter: delay,
		}
	}

	return &models.RateLimitResult{
		Allowed:   true,
		Limit:     t.burst,
		Remaining: int(lim.TokensAt(now)),
		ResetAt:   now,
	}
}

func (t *Throttle) limiter(key string, now time.Time) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[key]; ok {
		e.lastSeen = now
		return e.lim
	}
	lim := rate.NewLimiter(t.rps, t.burst)
	t.entries[key] = &entry{lim: lim, lastSeen: now}
	return lim
}

// Cleanup evicts keys not seen within the idle TTL.
func (t *Throttle) Cleanup() int {
	cutoff := t.now().Add(-t.idleTTL)

	t.mu.Lock()
	defer t.mu.Unlock()

	evicted := 0
	for k, e := range t.entries {
		if e.lastSeen.Before(cutoff) {
			delete(t.entries, k)
			evicted++
		}
	}
	return evicted
}

// Len reports the number of tracked keys.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// RunJanitor calls Cleanup periodically until ctx is done.
func (t *Throttle) RunJanitor(ctx context.Context) error {
	if t.cleanupEvery <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(t.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			t.Cleanup()
		}
	}
}
