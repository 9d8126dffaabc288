package core

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airtwin/internal/config"
)

func newTestServerForHealth(probes ...HealthProbe) *Server {
	cfg := &config.Config{Environment: "local", Build: config.BuildInfo{Version: "1.2.3"}}
	srv, _ := NewServer(cfg, slog.Default())
	srv.HealthProbes = probes
	return srv
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) healthResponse {
	t.Helper()
	var resp healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	return resp
}

func TestHandleHealth_NoProbes(t *testing.T) {
	srv := newTestServerForHealth()
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "healthy" || resp.Version != "1.2.3" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandleHealth_Probes(t *testing.T) {
	tests := []struct {
		name       string
		probes     []HealthProbe
		wantStatus int
		wantState  map[string]string
	}{
		{
			name: "all healthy",
			probes: []HealthProbe{
				NewProbe("snapshot", func(context.Context) error { return nil }),
				NewProbe("broker", func(context.Context) error { return nil }),
			},
			wantStatus: http.StatusOK,
			wantState:  map[string]string{"snapshot": "healthy", "broker": "healthy"},
		},
		{
			name: "one failing",
			probes: []HealthProbe{
				NewProbe("snapshot", func(context.Context) error { return nil }),
				NewProbe("broker", func(context.Context) error { return errors.New("connection refused") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  map[string]string{"snapshot": "healthy", "broker": "unhealthy"},
		},
		{
			name: "panicking probe",
			probes: []HealthProbe{
				NewProbe("snapshot", func(context.Context) error { panic("boom") }),
			},
			wantStatus: http.StatusServiceUnavailable,
			wantState:  map[string]string{"snapshot": "unhealthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServerForHealth(tt.probes...)
			rec := httptest.NewRecorder()
			srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			resp := decodeHealth(t, rec)
			for name, want := range tt.wantState {
				if got := resp.Components[name].Status; got != want {
					t.Errorf("component %s: expected %q, got %q", name, want, got)
				}
			}
		})
	}
}

func TestHandleHealth_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := NewProbe("broker", func(ctx context.Context) error {
		<-release
		return nil
	})
	srv := newTestServerForHealth(slow)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/health", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if msg := decodeHealth(t, rec).Components["broker"].Message; msg != "health check timed out" {
		t.Errorf("unexpected message %q", msg)
	}
}
