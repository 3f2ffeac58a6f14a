package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, BackendMemory, cfg.RateLimit.Backend)
	assert.Equal(t, TierLimit{Limit: 5, Period: time.Second}, cfg.RateLimit.Public)
	assert.Equal(t, TierLimit{Limit: 20, Period: time.Second}, cfg.RateLimit.Authenticated)
	assert.Equal(t, "https://countries.trevorblades.com/", cfg.GraphQLAPIURL)
	assert.Empty(t, cfg.AdminToken)
	assert.False(t, cfg.TrustProxyHeaders)
	assert.True(t, cfg.UsesDevSigningKey())
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("COUNTRIAPI_ADDR", ":9000")
	t.Setenv("RATE_LIMIT_PUBLIC_LIMIT", "3")
	t.Setenv("RATE_LIMIT_PUBLIC_PERIOD", "2")
	t.Setenv("RATE_LIMIT_AUTH_PERIOD", "1500ms")
	t.Setenv("RATE_LIMIT_BACKEND", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("ADMIN_TOKEN", "ops")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, TierLimit{Limit: 3, Period: 2 * time.Second}, cfg.RateLimit.Public)
	assert.Equal(t, 1500*time.Millisecond, cfg.RateLimit.Authenticated.Period)
	assert.Equal(t, BackendRedis, cfg.RateLimit.Backend)
	assert.Equal(t, "ops", cfg.AdminToken)
	assert.True(t, cfg.TrustProxyHeaders)
	assert.False(t, cfg.UsesDevSigningKey())
	assert.NoError(t, cfg.Validate())
}

func TestFromEnvCollectsParseErrors(t *testing.T) {
	t.Setenv("RATE_LIMIT_PUBLIC_LIMIT", "five")
	t.Setenv("JWT_TTL", "soon")
	t.Setenv("TRUST_PROXY_HEADERS", "maybe")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_PUBLIC_LIMIT")
	assert.Contains(t, err.Error(), "JWT_TTL")
	assert.Contains(t, err.Error(), "TRUST_PROXY_HEADERS")
}

func TestValidate(t *testing.T) {
	base, err := FromEnv()
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(*Server)
		wantErr string
	}{
		{"short signing key", func(c *Server) { c.JWTSigningKey = "short" }, "JWT_SIGNING_KEY"},
		{"zero public limit", func(c *Server) { c.RateLimit.Public.Limit = 0 }, "RATE_LIMIT_PUBLIC_LIMIT"},
		{"negative auth period", func(c *Server) { c.RateLimit.Authenticated.Period = -time.Second }, "RATE_LIMIT_AUTH_PERIOD"},
		{"redis backend without url", func(c *Server) { c.RateLimit.Backend = BackendRedis }, "REDIS_URL"},
		{"unknown backend", func(c *Server) { c.RateLimit.Backend = "memcached" }, "unknown RATE_LIMIT_BACKEND"},
		{"zero login burst", func(c *Server) { c.Login.Burst = 0 }, "LOGIN_BURST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
