// Package hexcache memoizes tessellation results in Redis as GeoJSON.
package hexcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/h3-cities/internal/cache/keys"
	"github.com/mohammed-shakir/h3-cities/internal/cityhex"
	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

// Popularity scores how often a place is requested.
type Popularity interface {
	Inc(place string) float64
}

type Config struct {
	TTL       time.Duration
	OpTimeout time.Duration

	// With Hot set, places scoring at least HotThreshold are stored with
	// HotTTL instead of TTL. HotTTL must exceed TTL to have any effect.
	Hot          Popularity
	HotTTL       time.Duration
	HotThreshold float64
}

// Cache wraps a tessellation source. Store failures are logged and
// degrade to a miss so a Redis outage never fails a request.
type Cache struct {
	next   cityhex.Interface
	store  Store
	cfg    Config
	logger *slog.Logger
}

func New(next cityhex.Interface, store Store, cfg Config, logger *slog.Logger) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 150 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{next: next, store: store, cfg: cfg, logger: logger}
}

func (c *Cache) Hexagons(ctx context.Context, place string, res int) (model.HexCollection, error) {
	hexes, _, err := c.Lookup(ctx, place, res)
	return hexes, err
}

// Lookup is Hexagons plus whether the result came from the store.
func (c *Cache) Lookup(ctx context.Context, place string, res int) (model.HexCollection, bool, error) {
	if err := cityhex.ValidateResolution(res); err != nil {
		return nil, false, err
	}
	if err := cityhex.ValidatePlace(place); err != nil {
		return nil, false, err
	}

	score := c.touch(place)
	key := keys.Key(place, res)
	if hexes, ok := c.get(ctx, key); ok {
		observability.IncCacheHit()
		return hexes, true, nil
	}
	observability.IncCacheMiss()

	hexes, err := c.next.Hexagons(ctx, place, res)
	if err != nil {
		return nil, false, err
	}
	c.set(ctx, key, hexes, c.ttlFor(score))
	return hexes, false, nil
}

func (c *Cache) touch(place string) float64 {
	if c.cfg.Hot == nil {
		return 0
	}
	return c.cfg.Hot.Inc(place)
}

func (c *Cache) ttlFor(score float64) time.Duration {
	if c.cfg.Hot != nil && c.cfg.HotTTL > c.cfg.TTL && score >= c.cfg.HotThreshold {
		return c.cfg.HotTTL
	}
	return c.cfg.TTL
}

func (c *Cache) get(ctx context.Context, key string) (model.HexCollection, bool) {
	opCtx, cancel := context.WithTimeout(ctx, c.cfg.OpTimeout)
	defer cancel()

	raw, ok, err := c.store.Get(opCtx, key)
	if err != nil {
		c.logger.Warn("tessellation cache read failed", "key", key, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		c.logger.Warn("tessellation cache payload undecodable", "key", key, "err", err)
		return nil, false
	}
	hexes, err := cityhex.FromFeatureCollection(fc)
	if err != nil {
		c.logger.Warn("tessellation cache payload malformed", "key", key, "err", err)
		return nil, false
	}
	return hexes, true
}

func (c *Cache) set(ctx context.Context, key string, hexes model.HexCollection, ttl time.Duration) {
	raw, err := json.Marshal(cityhex.ToFeatureCollection(hexes))
	if err != nil {
		c.logger.Warn("tessellation cache encode failed", "key", key, "err", err)
		return
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.OpTimeout)
	defer cancel()
	if err := c.store.Set(opCtx, key, raw, ttl); err != nil {
		c.logger.Warn("tessellation cache write failed", "key", key, "err", err)
	}
}
