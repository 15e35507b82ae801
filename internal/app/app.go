// Package app assembles the tessellation pipeline from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mohammed-shakir/h3-cities/internal/cache/hexcache"
	"github.com/mohammed-shakir/h3-cities/internal/cache/redisstore"
	"github.com/mohammed-shakir/h3-cities/internal/cityhex"
	"github.com/mohammed-shakir/h3-cities/internal/core/config"
	"github.com/mohammed-shakir/h3-cities/internal/core/health"
	"github.com/mohammed-shakir/h3-cities/internal/core/httpclient"
	"github.com/mohammed-shakir/h3-cities/internal/core/router"
	"github.com/mohammed-shakir/h3-cities/internal/events"
	"github.com/mohammed-shakir/h3-cities/internal/geocode"
	"github.com/mohammed-shakir/h3-cities/internal/hotness"
	"github.com/mohammed-shakir/h3-cities/internal/invalidation"
	h3mapper "github.com/mohammed-shakir/h3-cities/internal/mapper/h3"
)

type App struct {
	Service *cityhex.Service
	Source  router.HexSource
	Events  events.Sink
	Ready   map[string]health.Check
	// Invalidator is nil unless both the result cache and invalidation are enabled.
	Invalidator *invalidation.Consumer
	// Hotness is nil unless the cache runs with a hot TTL.
	Hotness *hotness.Tracker

	closers []func() error
}

// New wires geocoder, grid and service. Redis and Kafka are only dialed
// when enabled in cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	nom, err := geocode.NewNominatim(logger, httpclient.NewOutbound(cfg.Nominatim.Timeout), geocode.NominatimConfig{
		BaseURL:   cfg.Nominatim.URL,
		UserAgent: cfg.Nominatim.UserAgent,
		RPS:       cfg.Nominatim.RPS,
	})
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}
	resolver := geocode.NewCached(nom, cfg.Nominatim.CacheSize, cfg.Nominatim.CacheTTL)

	a := &App{
		Service: cityhex.New(resolver, h3mapper.New()),
		Events:  events.Nop{},
		Ready:   map[string]health.Check{},
	}
	a.Source = router.Uncached{Interface: a.Service}

	if cfg.Cache.Enabled {
		rc, err := redisstore.New(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("result cache: %w", err)
		}
		a.closers = append(a.closers, rc.Close)
		a.Ready["redis"] = rc.Ping
		hc := hexcache.Config{
			TTL:       cfg.Cache.TTL,
			OpTimeout: cfg.Cache.OpTimeout,
		}
		if cfg.Cache.HotTTL > 0 {
			a.Hotness = hotness.New(cfg.Cache.HotHalfLife)
			hc.Hot = a.Hotness
			hc.HotTTL = cfg.Cache.HotTTL
			hc.HotThreshold = cfg.Cache.HotThreshold
		}
		a.Source = hexcache.New(a.Service, rc, hc, logger)
		logger.Info("result cache enabled", "redis", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)

		if cfg.Invalidation.Enabled {
			a.Invalidator = invalidation.New(invalidation.Config{
				Brokers:             cfg.Events.Brokers,
				Topic:               cfg.Invalidation.Topic,
				GroupID:             cfg.Invalidation.GroupID,
				InitialOffsetOldest: cfg.Invalidation.FromOldest,
			}, logger, rc, resolver)
		}
	}

	if cfg.Events.Enabled {
		pub, err := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("events: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		a.Events = pub
		logger.Info("tessellation events enabled", "topic", cfg.Events.Topic)
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
