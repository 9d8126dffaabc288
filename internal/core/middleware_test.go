package core

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"airtwin/internal/config"
	"airtwin/internal/types"
)

type recordedRequest struct {
	method, endpoint, status string
}

type mockCollector struct {
	mu    sync.Mutex
	calls []recordedRequest
}

func (m *mockCollector) RecordRequest(method, endpoint, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedRequest{method, endpoint, status})
}

func newMountedServer(t *testing.T, registrar func(chi.Router)) (*Server, *mockCollector) {
	t.Helper()
	cfg := &config.Config{Environment: "local"}
	srv, err := NewServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	mc := &mockCollector{}
	srv.Metrics = mc
	if registrar != nil {
		srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, registrar)
	}
	srv.MountRoutes()
	return srv, mc
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-Id", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if seen != "abc-123" {
			t.Errorf("expected abc-123 in context, got %q", seen)
		}
		if got := rec.Header().Get("X-Request-Id"); got != "abc-123" {
			t.Errorf("expected abc-123 echoed, got %q", got)
		}
	})

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if seen == "" {
			t.Fatal("expected generated id")
		}
		if got := rec.Header().Get("X-Request-Id"); got != seen {
			t.Errorf("header %q does not match context %q", got, seen)
		}
	})
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantVary   bool
		wantStatus int
	}{
		{"wildcard", []string{"*"}, "http://ops.local", http.MethodGet, "*", false, http.StatusOK},
		{"listed origin", []string{"http://ops.local"}, "http://ops.local", http.MethodGet, "http://ops.local", true, http.StatusOK},
		{"unlisted origin", []string{"http://ops.local"}, "http://evil.local", http.MethodGet, "", false, http.StatusOK},
		{"preflight", []string{"*"}, "http://ops.local", http.MethodOptions, "*", false, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/flights", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			NewCORSMiddleware(tt.allowed)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("expected allow-origin %q, got %q", tt.wantOrigin, got)
			}
			if got := rec.Header().Get("Vary") == "Origin"; got != tt.wantVary {
				t.Errorf("expected Vary set=%v", tt.wantVary)
			}
		})
	}
}

func TestRecoverer(t *testing.T) {
	srv, _ := newMountedServer(t, func(r chi.Router) {
		r.Get("/boom", func(w http.ResponseWriter, r *http.Request) {
			panic("engine exploded")
		})
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != string(types.ErrCodeInternalUnexpected) {
		t.Errorf("unexpected code %q", resp.Error.Code)
	}
	if strings.Contains(rec.Body.String(), "engine exploded") {
		t.Error("panic value leaked into the response")
	}
}

func TestMetricsMiddleware_RoutePattern(t *testing.T) {
	srv, mc := newMountedServer(t, func(r chi.Router) {
		r.Get("/flights/{callSign}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	})

	for _, cs := range []string{"UA123", "DL456"} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/flights/"+cs, nil))
	}

	if len(mc.calls) != 2 {
		t.Fatalf("expected 2 recorded requests, got %d", len(mc.calls))
	}
	for _, c := range mc.calls {
		if c.endpoint != "/v1/flights/{callSign}" {
			t.Errorf("expected route pattern, got %q", c.endpoint)
		}
		if c.method != http.MethodGet || c.status != "404" {
			t.Errorf("unexpected call %+v", c)
		}
	}
}

func TestContextTimeoutMiddleware(t *testing.T) {
	var deadline time.Time
	var ok bool
	h := ContextTimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("expected a deadline on the request context")
	}
	if remaining := time.Until(deadline); remaining > time.Second {
		t.Errorf("deadline too far away: %v", remaining)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _ := newMountedServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}

func TestCompressionMiddleware(t *testing.T) {
	payload := strings.Repeat(`{"callSign":"UA123","status":"boarding"},`, 200)
	srv, _ := newMountedServer(t, func(r chi.Router) {
		r.Get("/big", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, payload)
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/big", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(body) != payload {
		t.Error("decompressed body does not match")
	}
}

func TestRequestTimeoutDefault(t *testing.T) {
	srv := &Server{}
	if got := srv.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("expected %v, got %v", defaultRequestTimeout, got)
	}
	srv.Config = &config.Config{}
	srv.Config.Server.RequestTimeout = 3 * time.Second
	if got := srv.requestTimeout(); got != 3*time.Second {
		t.Errorf("expected 3s, got %v", got)
	}
}
