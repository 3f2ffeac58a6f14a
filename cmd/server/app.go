package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	authhandler "countriapi/internal/auth/handler"
	authmetrics "countriapi/internal/auth/metrics"
	"countriapi/internal/auth/password"
	authservice "countriapi/internal/auth/service"
	"countriapi/internal/auth/store/user"
	"countriapi/internal/countries/aggregate"
	countryhandler "countriapi/internal/countries/handler"
	countrymetrics "countriapi/internal/countries/metrics"
	"countriapi/internal/countries/store/cache"
	"countriapi/internal/countries/store/memory"
	countrypg "countriapi/internal/countries/store/postgres"
	jwttoken "countriapi/internal/jwt_token"
	"countriapi/internal/pipeline"
	"countriapi/internal/platform/config"
	platformmetrics "countriapi/internal/platform/metrics"
	"countriapi/internal/platform/middleware"
	platformredis "countriapi/internal/platform/redis"
	rladmin "countriapi/internal/ratelimit/admin"
	rlmetrics "countriapi/internal/ratelimit/metrics"
	rlmodels "countriapi/internal/ratelimit/models"
	"countriapi/internal/ratelimit/ports"
	rlservice "countriapi/internal/ratelimit/service"
	"countriapi/internal/ratelimit/service/loginthrottle"
	"countriapi/internal/ratelimit/service/resilient"
	"countriapi/internal/ratelimit/store/bucket"
	"countriapi/pkg/platform/httputil"
	"countriapi/pkg/platform/middleware/metadata"
	"countriapi/pkg/platform/middleware/requesttime"
)

// credentialStore is what both the login service and the pipeline need from
// the user store, plus seeding.
type credentialStore interface {
	authservice.UserStore
	user.Saver
}

// app is the wired process: the public router plus the resources main must
// run and release.
type app struct {
	router   http.Handler
	throttle *loginthrottle.Throttle
	checks   map[string]func(context.Context) error
	closers  []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// buildApp wires every component from cfg. reg receives all metrics.
func buildApp(ctx context.Context, cfg config.Server, logger *slog.Logger, reg *prometheus.Registry) (_ *app, err error) {
	a := &app{checks: make(map[string]func(context.Context) error)}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, redisClient.Close)
		a.checks["redis"] = redisClient.Health
	}

	var db *sql.DB
	if cfg.Database.URL != "" {
		db, err = openPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.checks["postgres"] = db.PingContext
	}

	countries, err := buildCountryStore(ctx, db, redisClient, cfg, logger)
	if err != nil {
		return nil, err
	}

	hasher := password.NewBcrypt(bcrypt.DefaultCost)
	users, err := buildUserStore(ctx, db)
	if err != nil {
		return nil, err
	}
	if cfg.SeedUsers != "" {
		n, err := user.Seed(ctx, users, hasher, cfg.SeedUsers, time.Now())
		if err != nil {
			return nil, fmt.Errorf("seed users: %w", err)
		}
		logger.InfoContext(ctx, "seeded users", "count", n)
	}

	tokens := jwttoken.NewJWTService([]byte(cfg.JWTSigningKey), cfg.TokenTTL)

	tiers, err := buildTiers(cfg, redisClient, logger, rlmetrics.New(reg))
	if err != nil {
		return nil, err
	}

	lookups, err := pipeline.New(tokens, users, tiers, countries, pipeline.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	auth, err := authservice.New(users, hasher, tokens,
		authservice.WithLogger(logger),
		authservice.WithMetrics(authmetrics.New(reg)),
	)
	if err != nil {
		return nil, err
	}

	a.throttle = loginthrottle.New(cfg.Login.RatePerSecond, cfg.Login.Burst, loginthrottle.WithLogger(logger))

	httpMetrics := platformmetrics.NewHTTP(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata(cfg.TrustProxyHeaders))
	r.Use(requesttime.Middleware)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(httpMetrics.Middleware)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Get("/health", a.handleHealth)
	authhandler.New(auth, logger, authhandler.WithThrottle(a.throttle)).Register(r)
	countryhandler.New(lookups, logger, countryhandler.WithMetrics(countrymetrics.New(reg))).Register(r)
	if cfg.AdminToken != "" {
		rladmin.New(tiers, cfg.AdminToken, logger).Register(r)
	}

	a.router = r
	return a, nil
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// buildCountryStore picks PostgreSQL when configured, otherwise the embedded
// fixture, and fronts either with the Redis cache when Redis is available.
// An empty PostgreSQL catalogue is loaded from the fixture.
func buildCountryStore(ctx context.Context, db *sql.DB, redisClient *platformredis.Client, cfg config.Server, logger *slog.Logger) (aggregate.CountryStore, error) {
	var store aggregate.CountryStore
	if db != nil {
		pg := countrypg.New(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		n, err := pg.Count(ctx)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			records, err := memory.FixtureRecords()
			if err != nil {
				return nil, err
			}
			if err := pg.UpsertContinents(ctx, records); err != nil {
				return nil, err
			}
			logger.InfoContext(ctx, "loaded country catalogue from fixture", "continents", len(records))
		}
		store = pg
	} else {
		mem, err := memory.LoadFixture()
		if err != nil {
			return nil, err
		}
		store = mem
	}

	if redisClient != nil {
		store = cache.New(redisClient.Client, store, cache.WithTTL(cfg.CacheTTL), cache.WithLogger(logger))
	}
	return store, nil
}

func buildUserStore(ctx context.Context, db *sql.DB) (credentialStore, error) {
	if db == nil {
		return user.New(), nil
	}
	pg := user.NewPostgres(db)
	if err := pg.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// buildTiers creates one independent window per tier. With the Redis backend
// each tier counts in Redis and falls back to its own in-process window while
// Redis is unreachable.
func buildTiers(cfg config.Server, redisClient *platformredis.Client, logger *slog.Logger, m *rlmetrics.Metrics) (*rlservice.Tiers, error) {
	limits := map[rlmodels.Tier]config.TierLimit{
		rlmodels.TierPublic:        cfg.RateLimit.Public,
		rlmodels.TierAuthenticated: cfg.RateLimit.Authenticated,
	}

	build := func(tier rlmodels.Tier) (ports.Limiter, error) {
		tl := limits[tier]
		limit := rlmodels.Limit{RequestsPerWindow: tl.Limit, Window: tl.Period}
		if err := limit.Validate(); err != nil {
			return nil, fmt.Errorf("%s tier: %w", tier, err)
		}
		local := bucket.NewFixedWindow(tier, limit)
		if cfg.RateLimit.Backend != config.BackendRedis {
			return local, nil
		}
		if redisClient == nil {
			return nil, errors.New("redis rate limit backend requires REDIS_URL")
		}
		remote := rlservice.NewRemoteWindow(bucket.NewRedisStore(redisClient.Client), tier, limit)
		return resilient.New(tier, remote, local, resilient.WithLogger(logger), resilient.WithMetrics(m))
	}

	public, err := build(rlmodels.TierPublic)
	if err != nil {
		return nil, err
	}
	authenticated, err := build(rlmodels.TierAuthenticated)
	if err != nil {
		return nil, err
	}
	return rlservice.New(public, authenticated, rlservice.WithLogger(logger), rlservice.WithMetrics(m))
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "UP"}
	status := http.StatusOK
	if len(a.checks) > 0 {
		resp.Checks = make(map[string]string, len(a.checks))
	}
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = "DOWN"
			resp.Status = "DOWN"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "UP"
	}
	httputil.WriteJSON(w, status, resp)
}
