package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"countriapi/internal/platform/config"
	"countriapi/internal/platform/httpserver"
	"countriapi/internal/platform/logger"
	platformmetrics "countriapi/internal/platform/metrics"
)

const shutdownGrace = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		slog.Error("countriapi exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using the development key")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := platformmetrics.NewRegistry()
	a, err := buildApp(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting countriapi",
			"addr", cfg.Addr,
			"rate_limit_backend", cfg.RateLimit.Backend,
			"public_limit", cfg.RateLimit.Public.Limit,
			"authenticated_limit", cfg.RateLimit.Authenticated.Limit,
		)
		return httpserver.Serve(gctx, httpserver.New(cfg.Addr, a.router), shutdownGrace)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			log.InfoContext(gctx, "serving metrics", "addr", cfg.MetricsAddr)
			return httpserver.Serve(gctx, httpserver.New(cfg.MetricsAddr, platformmetrics.Handler(reg)), shutdownGrace)
		})
	}
	g.Go(func() error {
		return a.throttle.RunJanitor(gctx)
	})

	err = g.Wait()
	log.Info("countriapi stopped")
	return err
}
