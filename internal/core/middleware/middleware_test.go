package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mylog "github.com/mohammed-shakir/h3-cities/internal/logger"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestLogging_PropagatesOrAssignsRequestID(t *testing.T) {
	var seen string
	h := Logging(discard())(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = mylog.RequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/hexagons", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc" || rr.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get("X-Request-ID"))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hexagons", nil))
	if seen == "" || seen == "abc" || rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("request id not generated: ctx=%q header=%q", seen, rr.Header().Get("X-Request-ID"))
	}
}

func TestRecover_Returns500JSON(t *testing.T) {
	h := Recover(discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d want 500", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	if !strings.Contains(rr.Body.String(), `"error":"internal server error"`) {
		t.Fatalf("body=%s", rr.Body)
	}
}

func TestLogging_RecordsStatusAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ok := Logging(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fine"))
	}))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hexagons", nil))
	if buf.Len() != 0 {
		t.Fatalf("2xx must log below warn: %s", buf.String())
	}

	bad := Logging(l)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	bad.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/hexagons", nil))
	if out := buf.String(); !strings.Contains(out, "status=502") || !strings.Contains(out, "request done") {
		t.Fatalf("5xx access line missing: %s", out)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/hexagons", nil))
	if rr.Code != http.StatusNoContent || called {
		t.Fatalf("preflight: status=%d called=%v", rr.Code, called)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing allow-origin")
	}
	if exp := rr.Header().Get("Access-Control-Expose-Headers"); !strings.Contains(exp, "X-Hex-Count") || !strings.Contains(exp, "X-Request-ID") {
		t.Fatalf("expose headers=%q", exp)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/hexagons", nil))
	if !called {
		t.Fatalf("GET must reach the handler")
	}
}
