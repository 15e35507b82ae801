package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/h3-cities/internal/app"
	"github.com/mohammed-shakir/h3-cities/internal/core/config"
	"github.com/mohammed-shakir/h3-cities/internal/core/server"
	"github.com/mohammed-shakir/h3-cities/internal/hotness"
	"github.com/mohammed-shakir/h3-cities/internal/logger"
	"github.com/mohammed-shakir/h3-cities/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	if err != nil {
		appLog.Error("failed to load .env", "err", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLog.Info("starting h3-cities",
		"addr", cfg.Addr,
		"version", Version,
		"nominatim", cfg.Nominatim.URL,
		"default_res", cfg.H3Res)

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.Error("failed to initialize", "err", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			appLog.Warn("shutdown", "err", err)
		}
	}()

	deps := server.Deps{Source: a.Source, Events: a.Events, Ready: a.Ready}
	if cfg.MetricsEnabled {
		p := metrics.Init(metrics.Config{Build: metrics.ReadBuildInfo(Version)})
		deps.Metrics = p.Handler()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, cfg, appLog, deps)
	})
	if a.Invalidator != nil {
		// a broken consumer only stops invalidation, requests keep being served
		g.Go(func() error {
			if err := a.Invalidator.Start(gctx); err != nil {
				appLog.Error("invalidation consumer stopped", "err", err)
			}
			return nil
		})
	}
	if a.Hotness != nil {
		g.Go(func() error {
			pruneHotness(gctx, a.Hotness, cfg.Cache.HotHalfLife)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// drop places that went cold so the tracker stays bounded
func pruneHotness(ctx context.Context, t *hotness.Tracker, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	tick := time.NewTicker(every)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Prune(0.05)
		}
	}
}
