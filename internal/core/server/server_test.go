package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/h3-cities/internal/core/config"
	"github.com/mohammed-shakir/h3-cities/internal/core/health"
	"github.com/mohammed-shakir/h3-cities/internal/core/model"
	"github.com/mohammed-shakir/h3-cities/internal/core/observability"
	"github.com/mohammed-shakir/h3-cities/internal/metrics"
)

type staticSource struct{}

func (staticSource) Lookup(context.Context, string, int) (model.HexCollection, bool, error) {
	return model.HexCollection{{
		Cell:    "881fb46625fffff",
		Polygon: orb.Polygon{{{2, 48}, {3, 48}, {3, 49}, {2, 48}}},
	}}, false, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	p := metrics.Init(metrics.Config{})
	observability.Init(p.Registerer())

	h := NewHandler(config.Config{H3Res: 8}, slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{
		Source:  staticSource{},
		Metrics: p.Handler(),
		Ready:   map[string]health.Check{"noop": func(context.Context) error { return nil }},
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	for path, want := range map[string]int{
		"/healthz":              http.StatusOK,
		"/readyz":               http.StatusOK,
		"/hexagons?place=Paris": http.StatusOK,
		"/hexagons":             http.StatusBadRequest,
		"/nope":                 http.StatusNotFound,
	} {
		resp, _ := get(t, srv.URL+path)
		if resp.StatusCode != want {
			t.Fatalf("%s: status=%d want %d", path, resp.StatusCode, want)
		}
	}

	resp, body := get(t, srv.URL+"/metrics")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/metrics status=%d", resp.StatusCode)
	}
	if !strings.Contains(body, `http_requests_total{method="GET",route="/hexagons",status="200"}`) {
		t.Fatalf("missing request counter:\n%s", body)
	}
	if !strings.Contains(body, `tessellation_cells_bucket{res="8"`) {
		t.Fatalf("missing tessellation histogram:\n%s", body)
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, config.Config{Addr: "127.0.0.1:0", H3Res: 8},
			slog.New(slog.NewTextHandler(io.Discard, nil)), Deps{Source: staticSource{}})
	}()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}
