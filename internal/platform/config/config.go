package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Rate limit backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Server captures process-level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
	LogLevel    string

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool

	// RequestTimeout bounds each HTTP request, store calls included.
	RequestTimeout time.Duration

	JWTSigningKey string
	TokenTTL      time.Duration

	RateLimit RateLimitConfig
	Login     LoginConfig
	Redis     RedisConfig
	Database  DatabaseConfig

	CacheTTL      time.Duration
	SeedUsers     string
	GraphQLAPIURL string

	// AdminToken guards the operator routes; they are not mounted when empty.
	AdminToken string
}

// TierLimit is one tier's fixed window.
type TierLimit struct {
	Limit  int
	Period time.Duration
}

type RateLimitConfig struct {
	Backend       string
	Public        TierLimit
	Authenticated TierLimit
}

// LoginConfig throttles authentication attempts per client IP.
type LoginConfig struct {
	RatePerSecond float64
	Burst         int
}

// RedisConfig holds connection settings; an empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig selects PostgreSQL; an empty URL keeps the in-memory stores.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

const devSigningKey = "dev-secret-key-change-in-production"

// FromEnv builds a Server config from environment variables so main stays lean.
// Parse failures are collected and returned together.
func FromEnv() (Server, error) {
	p := &envParser{}

	cfg := Server{
		Addr:           p.str("COUNTRIAPI_ADDR", ":8080"),
		MetricsAddr:    p.str("METRICS_ADDR", ":9090"),
		LogLevel:       p.str("LOG_LEVEL", "info"),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", 10*time.Second),
		JWTSigningKey:  p.str("JWT_SIGNING_KEY", devSigningKey),
		TokenTTL:       p.duration("JWT_TTL", time.Hour),
		RateLimit: RateLimitConfig{
			Backend: strings.ToLower(p.str("RATE_LIMIT_BACKEND", BackendMemory)),
			Public: TierLimit{
				Limit:  p.integer("RATE_LIMIT_PUBLIC_LIMIT", 5),
				Period: p.duration("RATE_LIMIT_PUBLIC_PERIOD", time.Second),
			},
			Authenticated: TierLimit{
				Limit:  p.integer("RATE_LIMIT_AUTH_LIMIT", 20),
				Period: p.duration("RATE_LIMIT_AUTH_PERIOD", time.Second),
			},
		},
		Login: LoginConfig{
			RatePerSecond: p.float("LOGIN_RATE_PER_SECOND", 1),
			Burst:         p.integer("LOGIN_BURST", 5),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Database: DatabaseConfig{
			URL:          p.str("DATABASE_URL", ""),
			MaxOpenConns: p.integer("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: p.integer("DATABASE_MAX_IDLE_CONNS", 5),
		},
		CacheTTL:      p.duration("COUNTRY_CACHE_TTL", time.Hour),
		SeedUsers:     p.str("SEED_USERS", ""),
		GraphQLAPIURL: p.str("GRAPHQL_API_URL", "https://countries.trevorblades.com/"),
		AdminToken:    p.str("ADMIN_TOKEN", ""),

		TrustProxyHeaders: p.boolean("TRUST_PROXY_HEADERS", false),
	}

	if err := errors.Join(p.errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// UsesDevSigningKey reports whether the built-in development key is active.
func (c Server) UsesDevSigningKey() bool {
	return c.JWTSigningKey == devSigningKey
}

// Validate checks cross-field constraints.
func (c Server) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if len(c.JWTSigningKey) < 32 {
		errs = append(errs, errors.New("JWT_SIGNING_KEY must be at least 32 bytes"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	errs = append(errs, c.RateLimit.Public.validate("RATE_LIMIT_PUBLIC"), c.RateLimit.Authenticated.validate("RATE_LIMIT_AUTH"))

	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when RATE_LIMIT_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RATE_LIMIT_BACKEND %q", c.RateLimit.Backend))
	}

	if c.Login.RatePerSecond <= 0 || c.Login.Burst <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_SECOND and LOGIN_BURST must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("COUNTRY_CACHE_TTL must be positive"))
	}
	return errors.Join(errs...)
}

func (t TierLimit) validate(prefix string) error {
	if t.Limit <= 0 {
		return fmt.Errorf("%s_LIMIT must be positive", prefix)
	}
	if t.Period <= 0 {
		return fmt.Errorf("%s_PERIOD must be positive", prefix)
	}
	return nil
}

type envParser struct {
	errs []error
}

func (p *envParser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (p *envParser) integer(key string, def int) int {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *envParser) boolean(key string, def bool) bool {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (p *envParser) float(key string, def float64) float64 {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

// duration accepts Go durations ("1s", "500ms") or a bare number of seconds.
func (p *envParser) duration(key string, def time.Duration) time.Duration {
	raw := p.str(key, "")
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
