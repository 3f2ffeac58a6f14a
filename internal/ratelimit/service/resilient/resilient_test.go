package resilient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"countriapi/internal/ratelimit/metrics"
	"countriapi/internal/ratelimit/models"
	"countriapi/internal/ratelimit/store/bucket"
	"countriapi/pkg/platform/circuit"
)

var errBackendDown = errors.New("connection refused")

// switchableLimiter fails while down is set, and otherwise allows everything.
type switchableLimiter struct {
	mu    sync.Mutex
	down  bool
	calls int
}

func (l *switchableLimiter) setDown(down bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.down = down
}

func (l *switchableLimiter) Admit(context.Context) (*models.RateLimitResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.down {
		return nil, errBackendDown
	}
	return &models.RateLimitResult{Allowed: true, Limit: 100, Remaining: 99}, nil
}

type ResilientSuite struct {
	suite.Suite
	primary  *switchableLimiter
	fallback *bucket.FixedWindow
	metrics  *metrics.Metrics
	limiter  *Limiter
}

func TestResilientSuite(t *testing.T) {
	suite.Run(t, new(ResilientSuite))
}

func (s *ResilientSuite) SetupTest() {
	s.primary = &switchableLimiter{}
	s.fallback = bucket.NewFixedWindow(models.TierPublic, models.Limit{RequestsPerWindow: 2, Window: time.Hour})
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.limiter, err = New(models.TierPublic, s.primary, s.fallback,
		WithMetrics(s.metrics),
		WithBreaker(circuit.New("test", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(2))),
	)
	s.Require().NoError(err)
}

func (s *ResilientSuite) TestNew() {
	_, err := New(models.TierPublic, nil, s.fallback)
	s.ErrorContains(err, "primary limiter is required")

	_, err = New(models.TierPublic, s.primary, nil)
	s.ErrorContains(err, "fallback limiter is required")
}

func (s *ResilientSuite) TestHealthyPrimaryDecides() {
	result, err := s.limiter.Admit(context.Background())
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.False(result.Degraded)
	s.Equal(99, result.Remaining)
	s.Equal(0, s.fallback.CurrentCount())
}

func (s *ResilientSuite) TestPrimaryFailureUsesFallback() {
	ctx := context.Background()
	s.primary.setDown(true)

	result, err := s.limiter.Admit(ctx)
	s.Require().NoError(err)
	s.True(result.Degraded)
	s.True(result.Allowed)
	s.False(s.limiter.Degraded(), "one failure stays below the threshold")

	result, err = s.limiter.Admit(ctx)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.True(s.limiter.Degraded())

	// fallback window is still enforced, so the outage never fails open
	result, err = s.limiter.Admit(ctx)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.True(result.Degraded)

	s.Equal(3.0, promtest.ToFloat64(s.metrics.BackendErrors.WithLabelValues("public")))
	s.Equal(3.0, promtest.ToFloat64(s.metrics.FallbackDecisions.WithLabelValues("public")))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.CircuitOpen.WithLabelValues("public")))
}

func (s *ResilientSuite) TestCircuitClosesAfterConsecutiveSuccesses() {
	ctx := context.Background()
	s.primary.setDown(true)
	for range 2 {
		_, err := s.limiter.Admit(ctx)
		s.Require().NoError(err)
	}
	s.Require().True(s.limiter.Degraded())
	s.fallback.Reset()

	s.primary.setDown(false)

	result, err := s.limiter.Admit(ctx)
	s.Require().NoError(err)
	s.True(result.Degraded, "first success while open is still decided by the fallback")

	result, err = s.limiter.Admit(ctx)
	s.Require().NoError(err)
	s.False(result.Degraded)
	s.False(s.limiter.Degraded())

	s.Equal(0.0, promtest.ToFloat64(s.metrics.CircuitOpen.WithLabelValues("public")))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.CircuitTransitions.WithLabelValues("public", "closed")))
}

func (s *ResilientSuite) TestResetWindowClearsFallback() {
	ctx := context.Background()
	s.primary.setDown(true)
	for range 3 {
		_, _ = s.limiter.Admit(ctx)
	}

	// switchableLimiter cannot be reset, so only the fallback is touched.
	s.Require().NoError(s.limiter.ResetWindow(ctx))

	result, err := s.fallback.Admit(ctx)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(1, result.Remaining)
}

func TestFallbackErrorPropagates(t *testing.T) {
	primary := &switchableLimiter{down: true}
	l, err := New(models.TierAuthenticated, primary, primary)
	require.NoError(t, err)

	_, err = l.Admit(context.Background())
	require.ErrorIs(t, err, errBackendDown)
}
