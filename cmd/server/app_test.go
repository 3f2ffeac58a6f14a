package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countriapi/internal/auth/models"
	countrymodels "countriapi/internal/countries/models"
	"countriapi/internal/pipeline"
	"countriapi/internal/platform/config"
	platformmetrics "countriapi/internal/platform/metrics"
	"countriapi/internal/platform/middleware"
	adminmw "countriapi/pkg/platform/middleware/admin"
	"countriapi/pkg/testutil"
)

const (
	seedEmail    = "jane@example.com"
	seedPassword = "correct-horse"
)

func testConfig() config.Server {
	return config.Server{
		Addr:           ":0",
		RequestTimeout: 5 * time.Second,
		JWTSigningKey:  "app-test-signing-key-0123456789abcdef",
		TokenTTL:       time.Hour,
		RateLimit: config.RateLimitConfig{
			Backend:       config.BackendMemory,
			Public:        config.TierLimit{Limit: 3, Period: time.Minute},
			Authenticated: config.TierLimit{Limit: 10, Period: time.Minute},
		},
		Login:     config.LoginConfig{RatePerSecond: 10, Burst: 10},
		CacheTTL:  time.Minute,
		SeedUsers: seedEmail + ":" + seedPassword,
	}
}

func newTestApp(t *testing.T, cfg config.Server) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := buildApp(context.Background(), cfg, logger, platformmetrics.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func login(t *testing.T, a *app, email, password string) string {
	t.Helper()
	rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/authenticate",
		models.AuthenticateRequest{Email: email, Password: password}))
	testutil.AssertStatus(t, rr, http.StatusOK)
	return testutil.UnmarshalResponse[models.AuthenticateResult](t, rr).Token
}

func TestLookupJourney(t *testing.T) {
	a := newTestApp(t, testConfig())

	testutil.Given(t, "an anonymous caller", func(t *testing.T) {
		testutil.When(t, "looking up codes on the public tier", func(t *testing.T) {
			rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/IT,US", ""))

			testutil.Then(t, "continents are grouped and headers set", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				groups := testutil.UnmarshalResponse[[]countrymodels.ContinentGroup](t, rr)
				require.Len(t, groups, 2)
				assert.Equal(t, []string{"IT"}, groups[0].Countries)
				assert.Equal(t, []string{"US"}, groups[1].Countries)
				assert.Equal(t, "3", rr.Header().Get("X-RateLimit-Limit"))
				assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))
			})
		})

		testutil.When(t, "calling the private tier", func(t *testing.T) {
			rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/private/countries/IT", ""))

			testutil.Then(t, "the call is unauthenticated", func(t *testing.T) {
				testutil.AssertError(t, rr, http.StatusUnauthorized, pipeline.MsgUnauthenticated)
			})
		})
	})

	testutil.Given(t, "a seeded user", func(t *testing.T) {
		token := login(t, a, seedEmail, seedPassword)

		testutil.When(t, "looking up codes with the issued token", func(t *testing.T) {
			rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/private/countries/ca,mx", token))

			testutil.Then(t, "the authenticated tier answers", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusOK)
				groups := testutil.UnmarshalResponse[[]countrymodels.ContinentGroup](t, rr)
				require.Len(t, groups, 1)
				assert.Equal(t, []string{"CA", "MX"}, groups[0].Countries)
				assert.Equal(t, "10", rr.Header().Get("X-RateLimit-Limit"))
			})
		})

		testutil.When(t, "logging in with the wrong password", func(t *testing.T) {
			rr := testutil.DoRequest(a.router, testutil.NewJSONRequest(t, http.MethodPost, "/api/v1/auth/authenticate",
				models.AuthenticateRequest{Email: seedEmail, Password: "wrong"}))

			testutil.Then(t, "credentials are rejected", func(t *testing.T) {
				testutil.AssertStatus(t, rr, http.StatusUnauthorized)
			})
		})
	})

	testutil.Given(t, "the public budget is spent", func(t *testing.T) {
		for range 3 {
			testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/FR", ""))
		}
		rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/FR", ""))

		testutil.Then(t, "the public tier is rejected", func(t *testing.T) {
			testutil.AssertError(t, rr, http.StatusTooManyRequests, pipeline.MsgRateLimited)
			assert.NotEmpty(t, rr.Header().Get("Retry-After"))
		})
	})
}

func TestHealth(t *testing.T) {
	t.Run("in-memory process is up", func(t *testing.T) {
		a := newTestApp(t, testConfig())

		rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/health", ""))

		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, "UP", testutil.UnmarshalResponse[healthResponse](t, rr).Status)
	})

	t.Run("redis outage reports down", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := testConfig()
		cfg.Redis = config.RedisConfig{URL: "redis://" + mr.Addr()}
		a := newTestApp(t, cfg)

		mr.Close()
		rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/health", ""))

		testutil.AssertStatus(t, rr, http.StatusServiceUnavailable)
		assert.Equal(t, "DOWN", testutil.UnmarshalResponse[healthResponse](t, rr).Checks["redis"])
	})
}

func TestRedisBackendSharesWindowsAndSurvivesOutage(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RateLimit.Backend = config.BackendRedis
	cfg.Redis = config.RedisConfig{URL: "redis://" + mr.Addr()}

	first := newTestApp(t, cfg)
	second := newTestApp(t, cfg)

	for i, a := range []*app{first, second, first} {
		rr := testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/JP", ""))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, 3-(i+1), atoi(t, rr.Header().Get("X-RateLimit-Remaining")))
	}
	rr := testutil.DoRequest(second.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/JP", ""))
	testutil.AssertStatus(t, rr, http.StatusTooManyRequests)

	mr.Close()
	rr = testutil.DoRequest(first.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/JP", ""))
	testutil.AssertStatus(t, rr, http.StatusOK)
	assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
}

func TestAdminReset(t *testing.T) {
	resetRequest := func(t *testing.T, token string) *http.Request {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/admin/ratelimit/public/reset", nil)
		if token != "" {
			req.Header.Set(adminmw.HeaderAdminToken, token)
		}
		return req
	}

	t.Run("routes are absent without a token", func(t *testing.T) {
		a := newTestApp(t, testConfig())
		rr := testutil.DoRequest(a.router, resetRequest(t, "anything"))
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})

	t.Run("reset reopens the public tier", func(t *testing.T) {
		cfg := testConfig()
		cfg.AdminToken = "ops-token"
		a := newTestApp(t, cfg)

		for range 4 {
			testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/FR", ""))
		}
		rr := testutil.DoRequest(a.router, resetRequest(t, "ops-token"))
		testutil.AssertStatus(t, rr, http.StatusOK)

		rr = testutil.DoRequest(a.router, testutil.NewBearerRequest(t, "/api/v1/public/countries/FR", ""))
		testutil.AssertStatus(t, rr, http.StatusOK)
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestBuildAppRejectsBadSeed(t *testing.T) {
	cfg := testConfig()
	cfg.SeedUsers = "no-colon"

	_, err := buildApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), platformmetrics.NewRegistry())
	assert.ErrorContains(t, err, "seed users")
}

func atoi(t *testing.T, s string) int {
	t.Helper()
	n, err := strconv.Atoi(s)
	require.NoError(t, err)
	return n
}
