package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"airtwin/internal/core"
	"airtwin/internal/dashboard"
	"airtwin/internal/types"
)

// --- Mock Service ---

type mockSimulationService struct {
	state types.SimulationState

	weatherErr error
	trafficErr error
	speedErr   error
	stepErr    error
	log        []types.LogEntry

	gotScenario types.WeatherScenario
	gotLevel    types.TrafficLevel
	gotSpeed    float64
	steps       int
	cleared     bool
}

func (m *mockSimulationService) Simulation() types.SimulationState { return m.state }

func (m *mockSimulationService) ToggleSimulation() types.SimulationState {
	m.state.Running = !m.state.Running
	return m.state
}

func (m *mockSimulationService) ResetSimulation() types.SimulationState {
	m.state = types.SimulationState{Speed: m.state.Speed, Weather: types.ScenarioNormal, Traffic: types.TrafficMedium}
	return m.state
}

func (m *mockSimulationService) SetWeatherScenario(s types.WeatherScenario) (types.SimulationState, error) {
	m.gotScenario = s
	if m.weatherErr != nil {
		return m.state, m.weatherErr
	}
	m.state.Weather = s
	return m.state, nil
}

func (m *mockSimulationService) SetTrafficLevel(l types.TrafficLevel) (types.SimulationState, error) {
	m.gotLevel = l
	if m.trafficErr != nil {
		return m.state, m.trafficErr
	}
	m.state.Traffic = l
	return m.state, nil
}

func (m *mockSimulationService) ToggleEmergency() types.SimulationState {
	m.state.Emergency = !m.state.Emergency
	return m.state
}

func (m *mockSimulationService) SetSpeed(x float64) (types.SimulationState, error) {
	m.gotSpeed = x
	if m.speedErr != nil {
		return m.state, m.speedErr
	}
	m.state.Speed = x
	return m.state, nil
}

func (m *mockSimulationService) Step(context.Context) (dashboard.TickReport, error) {
	m.steps++
	if m.stepErr != nil {
		return dashboard.TickReport{}, m.stepErr
	}
	m.state.Ticks++
	return dashboard.TickReport{Advanced: true, DurationMs: 3, Simulation: m.state}, nil
}

func (m *mockSimulationService) Log() []types.LogEntry { return m.log }
func (m *mockSimulationService) ClearLog()             { m.cleared = true }

// --- Helpers ---

func makeSimulationRouter(svc SimulationServiceInterface) http.Handler {
	logger := slog.Default()
	h := NewSimulationHandler(svc, core.NewValidator(logger), logger)
	r := chi.NewRouter()
	r.Route("/v1", h.RegisterRoutes)
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) types.SimulationState {
	t.Helper()
	var st types.SimulationState
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return st
}

// --- Tests ---

func TestHandleGetState(t *testing.T) {
	svc := &mockSimulationService{state: types.SimulationState{Running: true, Speed: 2}}

	rec := doRequest(t, makeSimulationRouter(svc), http.MethodGet, "/v1/simulation")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if st := decodeState(t, rec); !st.Running || st.Speed != 2 {
		t.Errorf("unexpected state %+v", st)
	}
}

func TestHandleToggleAndEmergency(t *testing.T) {
	svc := &mockSimulationService{}
	router := makeSimulationRouter(svc)

	if st := decodeState(t, doRequest(t, router, http.MethodPost, "/v1/simulation/toggle")); !st.Running {
		t.Error("expected running after first toggle")
	}
	if st := decodeState(t, doRequest(t, router, http.MethodPost, "/v1/simulation/toggle")); st.Running {
		t.Error("expected paused after second toggle")
	}
	if st := decodeState(t, doRequest(t, router, http.MethodPost, "/v1/simulation/emergency")); !st.Emergency {
		t.Error("expected emergency mode on")
	}
}

func TestHandleReset(t *testing.T) {
	svc := &mockSimulationService{state: types.SimulationState{Running: true, Speed: 4, Traffic: types.TrafficPeak}}

	st := decodeState(t, doRequest(t, makeSimulationRouter(svc), http.MethodPost, "/v1/simulation/reset"))

	if st.Running || st.Speed != 4 || st.Traffic != types.TrafficMedium {
		t.Errorf("unexpected state after reset %+v", st)
	}
}

func TestHandleScenarioCommands(t *testing.T) {
	scenarioErr := types.NewAppError(types.ErrCodeScenarioInvalidSpeed, "speed must be between 0.5 and 5", nil)

	tests := []struct {
		name       string
		path       string
		body       string
		svc        *mockSimulationService
		wantStatus int
		wantCode   string
	}{
		{"weather", "/v1/simulation/weather", `{"scenario":"storm"}`, &mockSimulationService{}, http.StatusOK, ""},
		{"traffic", "/v1/simulation/traffic", `{"level":"peak"}`, &mockSimulationService{}, http.StatusOK, ""},
		{"speed", "/v1/simulation/speed", `{"speed":2.5}`, &mockSimulationService{}, http.StatusOK, ""},
		{"speed out of range", "/v1/simulation/speed", `{"speed":9}`, &mockSimulationService{speedErr: scenarioErr}, http.StatusUnprocessableEntity, "scenario_invalid_speed"},
		{"zero speed", "/v1/simulation/speed", `{"speed":0}`, &mockSimulationService{speedErr: scenarioErr}, http.StatusUnprocessableEntity, "scenario_invalid_speed"},
		{"negative speed", "/v1/simulation/speed", `{"speed":-1}`, &mockSimulationService{speedErr: scenarioErr}, http.StatusUnprocessableEntity, "scenario_invalid_speed"},
		{"missing speed", "/v1/simulation/speed", `{}`, &mockSimulationService{}, http.StatusBadRequest, "validation_invalid_body"},
		{"unknown scenario", "/v1/simulation/weather", `{"scenario":"tornado"}`,
			&mockSimulationService{weatherErr: types.NewAppError(types.ErrCodeScenarioInvalidWeather, "unknown weather scenario", nil)},
			http.StatusUnprocessableEntity, "scenario_invalid_weather"},
		{"missing level", "/v1/simulation/traffic", `{}`, &mockSimulationService{}, http.StatusBadRequest, "validation_invalid_body"},
		{"malformed body", "/v1/simulation/speed", `{"speed":`, &mockSimulationService{}, http.StatusBadRequest, "validation_invalid_body"},
		{"unknown field", "/v1/simulation/weather", `{"scenario":"fog","wind":3}`, &mockSimulationService{}, http.StatusBadRequest, "validation_invalid_body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, makeSimulationRouter(tt.svc), http.MethodPut, tt.path, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				if code := decodeEnvelope(t, rec).Error.Code; code != tt.wantCode {
					t.Errorf("expected %q, got %q", tt.wantCode, code)
				}
			}
		})
	}
}

func TestHandleScenarioCommands_PassValues(t *testing.T) {
	svc := &mockSimulationService{}
	router := makeSimulationRouter(svc)

	doJSON(t, router, http.MethodPut, "/v1/simulation/weather", `{"scenario":"fog"}`)
	doJSON(t, router, http.MethodPut, "/v1/simulation/traffic", `{"level":"low"}`)
	doJSON(t, router, http.MethodPut, "/v1/simulation/speed", `{"speed":0.5}`)

	if svc.gotScenario != types.ScenarioFog {
		t.Errorf("expected fog, got %q", svc.gotScenario)
	}
	if svc.gotLevel != types.TrafficLow {
		t.Errorf("expected low, got %q", svc.gotLevel)
	}
	if svc.gotSpeed != 0.5 {
		t.Errorf("expected 0.5, got %v", svc.gotSpeed)
	}

	doJSON(t, router, http.MethodPut, "/v1/simulation/speed", `{"speed":0}`)
	if svc.gotSpeed != 0 {
		t.Errorf("expected zero speed to reach the service, got %v", svc.gotSpeed)
	}
}

func TestHandleTick(t *testing.T) {
	svc := &mockSimulationService{}

	rec := doRequest(t, makeSimulationRouter(svc), http.MethodPost, "/v1/simulation/tick")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var report dashboard.TickReport
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !report.Advanced || report.Simulation.Ticks != 1 || svc.steps != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestHandleTick_Error(t *testing.T) {
	svc := &mockSimulationService{stepErr: context.DeadlineExceeded}

	rec := doRequest(t, makeSimulationRouter(svc), http.MethodPost, "/v1/simulation/tick")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleLog(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := &mockSimulationService{
		log: []types.LogEntry{
			{ID: "2", At: at.Add(time.Minute), Message: "UA123 landed on RW27L"},
			{ID: "1", At: at, Message: "simulation started"},
		},
	}
	router := makeSimulationRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/v1/simulation/log")
	var entries []types.LogEntry
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "2" {
		t.Errorf("expected newest first, got %+v", entries)
	}

	rec = doRequest(t, router, http.MethodDelete, "/v1/simulation/log")
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if !svc.cleared {
		t.Error("expected log to be cleared")
	}
}

func TestHandleLog_EmptyIsArray(t *testing.T) {
	rec := doRequest(t, makeSimulationRouter(&mockSimulationService{}), http.MethodGet, "/v1/simulation/log")

	if data := string(decodeEnvelope(t, rec).Data); data != "[]" {
		t.Errorf("expected empty array, got %s", data)
	}
}
