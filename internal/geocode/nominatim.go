package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"
	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
)

const defaultUserAgent = "h3-cities/dev (+https://github.com/mohammed-shakir/h3-cities)"

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	// RPS caps outgoing requests per second; <= 0 disables the limiter.
	RPS   float64
	Limit int
}

type Nominatim struct {
	logger  *slog.Logger
	client  *http.Client
	search  *url.URL
	ua      string
	limit   int
	limiter *rate.Limiter
	now     func() time.Time // for tests
}

type searchResult struct {
	DisplayName string          `json:"display_name"`
	OSMType     string          `json:"osm_type"`
	OSMID       int64           `json:"osm_id"`
	GeoJSON     json.RawMessage `json:"geojson"`
}

func NewNominatim(logger *slog.Logger, client *http.Client, cfg NominatimConfig) (*Nominatim, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("nominatim base url is required")
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/search")
	if err != nil {
		return nil, fmt.Errorf("parse nominatim url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = http.DefaultClient
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &Nominatim{
		logger:  logger,
		client:  client,
		search:  u,
		ua:      ua,
		limit:   limit,
		limiter: lim,
		now:     time.Now,
	}, nil
}

// Resolve returns the first polygonal result for place.
func (n *Nominatim) Resolve(ctx context.Context, place string) (model.Boundary, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("q", place)
	params.Set("format", "json")
	params.Set("polygon_geojson", "1")
	params.Set("dedupe", "0")
	params.Set("limit", strconv.Itoa(n.limit))

	u := *n.search
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.ua)
	req.Header.Set("Accept", "application/json")

	start := n.now()
	resp, err := n.client.Do(req)
	observability.ObserveUpstreamLatency("nominatim", time.Since(start).Seconds())
	if err != nil {
		observability.IncGeocode("error")
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		observability.IncGeocode("error")
		return nil, fmt.Errorf("nominatim status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		observability.IncGeocode("error")
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		observability.IncGeocode("not_found")
		return nil, fmt.Errorf("%w: %q", ErrNotFound, place)
	}

	var kinds []string
	for _, r := range results {
		if len(r.GeoJSON) == 0 {
			continue
		}
		g, err := geojson.UnmarshalGeometry(r.GeoJSON)
		if err != nil {
			observability.IncGeocode("error")
			return nil, fmt.Errorf("decode geometry of %s/%d: %w", r.OSMType, r.OSMID, err)
		}
		b, err := ToBoundary(g.Geometry())
		if errors.Is(err, ErrUnsupportedGeometry) {
			kinds = append(kinds, g.Type)
			continue
		}
		if err != nil {
			return nil, err
		}
		n.logger.Debug("geocoded place",
			"place", place,
			"match", r.DisplayName,
			"osm", fmt.Sprintf("%s/%d", r.OSMType, r.OSMID))
		observability.IncGeocode("found")
		return b, nil
	}

	observability.IncGeocode("unsupported")
	return nil, fmt.Errorf("%w: %d results for %q, geometry types %v",
		ErrUnsupportedGeometry, len(results), place, kinds)
}
