package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/h3-cities/internal/cityhex"
	"github.com/mohammed-shakir/h3-cities/internal/core/config"
	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
	"github.com/mohammed-shakir/h3-cities/internal/events"
	"github.com/mohammed-shakir/h3-cities/internal/export"
	mylog "github.com/mohammed-shakir/h3-cities/internal/logger"
)

const hexagonsRoute = "/hexagons"

// HexSource produces tessellations and reports whether the result was cached.
type HexSource interface {
	Lookup(ctx context.Context, place string, res int) (model.HexCollection, bool, error)
}

// Uncached adapts a plain tessellator to HexSource.
type Uncached struct {
	cityhex.Interface
}

func (u Uncached) Lookup(ctx context.Context, place string, res int) (model.HexCollection, bool, error) {
	hexes, err := u.Hexagons(ctx, place, res)
	return hexes, false, err
}

// HandleHexagons validates query params, tessellates and writes GeoJSON.
func HandleHexagons(logger *slog.Logger, cfg config.Config, src HexSource, sink events.Sink) http.HandlerFunc {
	if sink == nil {
		sink = events.Nop{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			observability.ObserveHTTP(r.Method, hexagonsRoute, sw.code, time.Since(start).Seconds())
		}()

		q, err := ParseHexRequest(r, cfg.H3Res, cfg.H3MaxRes)
		if err != nil {
			writeError(sw, err)
			return
		}
		ctx := mylog.WithQuery(r.Context(), q.Place, q.Res)

		hexes, hit, err := src.Lookup(ctx, q.Place, q.Res)
		if err != nil {
			status := writeError(sw, err)
			logger.LogAttrs(ctx, levelFor(status), "tessellation failed",
				slog.Int("status", status), slog.String("err", err.Error()))
			return
		}

		body, err := json.Marshal(cityhex.ToFeatureCollection(hexes))
		if err != nil {
			logger.ErrorContext(ctx, "encode feature collection", "err", err)
			http.Error(sw, "internal server error", http.StatusInternalServerError)
			return
		}

		h := sw.Header()
		h.Set("Content-Type", export.ContentType)
		h.Set("X-Hex-Count", strconv.Itoa(len(hexes)))
		h.Set("X-Cache", cacheLabel(hit))
		if q.Download {
			h.Set("Content-Disposition", mime.FormatMediaType("attachment",
				map[string]string{"filename": export.FileName(q.Place, q.Res)}))
		}
		sw.WriteHeader(http.StatusOK)
		_, _ = sw.Write(body)

		observability.ObserveTessellation(q.Res, len(hexes))
		sink.Publish(events.Tessellation{
			Place:    q.Place,
			Res:      q.Res,
			Cells:    len(hexes),
			CacheHit: hit,
			TS:       time.Now().UTC(),
		})
		logger.InfoContext(ctx, "tessellation served",
			"cells", len(hexes), "cache", cacheLabel(hit), "took", time.Since(start))
	}
}

// ParseHexRequest reads place, res and download. A missing res falls back to
// defaultRes. Resolutions above maxRes are rejected; maxRes <= 0 means
// config.DefaultMaxRes. The place is passed on exactly as sent.
func ParseHexRequest(r *http.Request, defaultRes, maxRes int) (model.HexRequest, error) {
	v := r.URL.Query()
	if maxRes <= 0 {
		maxRes = config.DefaultMaxRes
	}

	place := v.Get("place")
	if err := cityhex.ValidatePlace(place); err != nil {
		return model.HexRequest{}, err
	}

	res := defaultRes
	if raw, ok := v["res"]; ok && len(raw) > 0 {
		n, err := cityhex.ParseResolution(raw[0])
		if err != nil {
			return model.HexRequest{}, err
		}
		res = n
	}
	if err := cityhex.ValidateResolution(res); err != nil {
		return model.HexRequest{}, err
	}
	// cell count grows about 7x per level, a city at 15 does not fit in memory
	if res > maxRes {
		return model.HexRequest{}, fmt.Errorf("%w: resolution %d exceeds this server's limit of %d",
			cityhex.ErrInvalidArgument, res, maxRes)
	}

	download := false
	switch strings.ToLower(strings.TrimSpace(v.Get("download"))) {
	case "1", "true", "yes":
		download = true
	}

	return model.HexRequest{Place: place, Res: res, Download: download}, nil
}

// StatusFor maps a tessellation error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, cityhex.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, cityhex.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled):
		return 499
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
	return status
}

func levelFor(status int) slog.Level {
	if status >= 500 {
		return slog.LevelError
	}
	return slog.LevelInfo
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
