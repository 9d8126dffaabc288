package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"airtwin/internal/core"
	"airtwin/internal/dashboard"
	"airtwin/internal/types"
)

// SimulationServiceInterface is the operator command contract used by
// SimulationHandler.
type SimulationServiceInterface interface {
	Simulation() types.SimulationState
	ToggleSimulation() types.SimulationState
	ResetSimulation() types.SimulationState
	SetWeatherScenario(s types.WeatherScenario) (types.SimulationState, error)
	SetTrafficLevel(l types.TrafficLevel) (types.SimulationState, error)
	ToggleEmergency() types.SimulationState
	SetSpeed(x float64) (types.SimulationState, error)
	Step(ctx context.Context) (dashboard.TickReport, error)
	Log() []types.LogEntry
	ClearLog()
}

// SimulationHandler exposes the scenario controls under /v1/simulation.
type SimulationHandler struct {
	service   SimulationServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewSimulationHandler creates a handler over svc. val validates request bodies.
func NewSimulationHandler(svc SimulationServiceInterface, val *core.Validator, logger *slog.Logger) *SimulationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SimulationHandler{service: svc, validator: val, logger: logger}
}

// Request bodies. Only presence is checked here; the engine owns the allowed
// values and reports violations as scenario errors (422).
type (
	weatherRequest struct {
		Scenario types.WeatherScenario `json:"scenario" validate:"required"`
	}
	trafficRequest struct {
		Level types.TrafficLevel `json:"level" validate:"required"`
	}
	speedRequest struct {
		Speed *float64 `json:"speed" validate:"required"`
	}
)

// RegisterRoutes mounts the simulation endpoints on the /v1 router.
func (h *SimulationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/simulation", func(r chi.Router) {
		r.Get("/", h.HandleGetState)
		r.Post("/toggle", h.HandleToggle)
		r.Post("/reset", h.HandleReset)
		r.Put("/weather", h.HandleSetWeather)
		r.Put("/traffic", h.HandleSetTraffic)
		r.Put("/speed", h.HandleSetSpeed)
		r.Post("/emergency", h.HandleToggleEmergency)
		r.Post("/tick", h.HandleTick)
		r.Get("/log", h.HandleGetLog)
		r.Delete("/log", h.HandleClearLog)
	})
}

// HandleGetState handles GET /v1/simulation.
func (h *SimulationHandler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	core.Data(w, r, http.StatusOK, h.service.Simulation())
}

// HandleToggle handles POST /v1/simulation/toggle, flipping running and paused.
func (h *SimulationHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	st := h.service.ToggleSimulation()
	h.logger.InfoContext(r.Context(), "simulation toggled", "running", st.Running)
	core.Data(w, r, http.StatusOK, st)
}

// HandleReset handles POST /v1/simulation/reset. The speed multiplier is kept.
func (h *SimulationHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	st := h.service.ResetSimulation()
	h.logger.InfoContext(r.Context(), "simulation reset")
	core.Data(w, r, http.StatusOK, st)
}

// HandleSetWeather handles PUT /v1/simulation/weather {"scenario": "..."}.
func (h *SimulationHandler) HandleSetWeather(w http.ResponseWriter, r *http.Request) {
	var req weatherRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.SetWeatherScenario(req.Scenario)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, st)
}

// HandleSetTraffic handles PUT /v1/simulation/traffic {"level": "..."}.
func (h *SimulationHandler) HandleSetTraffic(w http.ResponseWriter, r *http.Request) {
	var req trafficRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.SetTrafficLevel(req.Level)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, st)
}

// HandleSetSpeed handles PUT /v1/simulation/speed {"speed": 2.0}.
func (h *SimulationHandler) HandleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req speedRequest
	if !h.decode(w, r, &req) {
		return
	}
	st, err := h.service.SetSpeed(*req.Speed)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, st)
}

// HandleToggleEmergency handles POST /v1/simulation/emergency.
func (h *SimulationHandler) HandleToggleEmergency(w http.ResponseWriter, r *http.Request) {
	st := h.service.ToggleEmergency()
	h.logger.InfoContext(r.Context(), "emergency mode toggled", "emergency", st.Emergency)
	core.Data(w, r, http.StatusOK, st)
}

// HandleTick handles POST /v1/simulation/tick: one step outside the clock's
// schedule. While the simulation is stopped nothing advances and the report
// has advanced=false.
func (h *SimulationHandler) HandleTick(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Step(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, report)
}

// HandleGetLog handles GET /v1/simulation/log, most recent entry first.
func (h *SimulationHandler) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	entries := h.service.Log()
	if entries == nil {
		entries = []types.LogEntry{}
	}
	core.Data(w, r, http.StatusOK, entries)
}

// HandleClearLog handles DELETE /v1/simulation/log.
func (h *SimulationHandler) HandleClearLog(w http.ResponseWriter, r *http.Request) {
	h.service.ClearLog()
	w.WriteHeader(http.StatusNoContent)
}

// decode reads and validates a request body, writing the error response on
// failure.
func (h *SimulationHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := core.DecodeJSON(w, r, dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	if err := h.validator.ValidateStruct(dst); err != nil {
		core.Error(w, r, err)
		return false
	}
	return true
}
