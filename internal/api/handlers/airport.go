// Package handlers contains the HTTP handlers of the airport twin API.
//
// This file implements the read side of the dashboard:
//   - Flights (GET /v1/flights, GET /v1/flights/{callSign})
//   - Runways (GET /v1/runways, GET /v1/runways/{id})
//   - Weather, alerts, summary and trend
//   - Snapshot refresh (POST/GET /v1/refresh)
//   - Attribute history (GET /v1/history/{entityId})
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"airtwin/internal/core"
	"airtwin/internal/dashboard"
	"airtwin/internal/store"
	"airtwin/internal/types"
)

// AirportServiceInterface is the dashboard read contract used by AirportHandler.
// Defined locally so the handler can be tested against a mock.
type AirportServiceInterface interface {
	Source() types.DataSource
	GeneratedAt() (time.Time, bool)
	Flights(f dashboard.FlightFilter) ([]types.Flight, error)
	Flight(callSign string) (types.Flight, error)
	Runways() []types.Runway
	Runway(id string) (dashboard.RunwayDetail, error)
	Weather() (dashboard.WeatherView, error)
	Alerts() []types.Alert
	Summary() (types.DashboardSummary, error)
	Trend() []types.TrendSample
	Refresh(ctx context.Context) (store.RefreshResult, error)
	LastRefresh() (store.RefreshResult, bool)
	History(ctx context.Context, q types.HistoryQuery) (types.TimeSeries, error)
}

// AirportHandler serves the airport state read models.
type AirportHandler struct {
	service AirportServiceInterface
	logger  *slog.Logger
}

// NewAirportHandler creates a handler over svc. A nil logger uses slog.Default().
func NewAirportHandler(svc AirportServiceInterface, logger *slog.Logger) *AirportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AirportHandler{service: svc, logger: logger}
}

// RegisterRoutes mounts the read endpoints on the /v1 router.
func (h *AirportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/flights", h.HandleListFlights)
	r.Get("/flights/{callSign}", h.HandleGetFlight)
	r.Get("/runways", h.HandleListRunways)
	r.Get("/runways/{id}", h.HandleGetRunway)
	r.Get("/weather", h.HandleGetWeather)
	r.Get("/alerts", h.HandleListAlerts)
	r.Get("/summary", h.HandleGetSummary)
	r.Get("/trend", h.HandleGetTrend)
	r.Post("/refresh", h.HandleRefresh)
	r.Get("/refresh", h.HandleGetRefresh)
	r.Get("/history/{entityId}", h.HandleGetHistory)
}

// meta describes the snapshot a read model was derived from.
func (h *AirportHandler) meta(count *int) *core.ResponseMeta {
	m := &core.ResponseMeta{Source: h.service.Source(), Count: count}
	if at, ok := h.service.GeneratedAt(); ok {
		m.GeneratedAt = &at
	}
	return m
}

// HandleListFlights handles GET /v1/flights?status=&q=&sort=.
// status may be repeated or comma separated.
func (h *AirportHandler) HandleListFlights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := dashboard.FlightFilter{
		Query: q.Get("q"),
		Sort:  store.SortKey(q.Get("sort")),
	}
	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				filter.Statuses = append(filter.Statuses, types.FlightStatus(s))
			}
		}
	}

	flights, err := h.service.Flights(filter)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	n := len(flights)
	core.DataWithMeta(w, r, http.StatusOK, flights, h.meta(&n))
}

// HandleGetFlight handles GET /v1/flights/{callSign}.
func (h *AirportHandler) HandleGetFlight(w http.ResponseWriter, r *http.Request) {
	flight, err := h.service.Flight(chi.URLParam(r, "callSign"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, flight, h.meta(nil))
}

// HandleListRunways handles GET /v1/runways.
func (h *AirportHandler) HandleListRunways(w http.ResponseWriter, r *http.Request) {
	runways := h.service.Runways()
	n := len(runways)
	core.DataWithMeta(w, r, http.StatusOK, runways, h.meta(&n))
}

// HandleGetRunway handles GET /v1/runways/{id}. The response carries the
// alerts derived from the runway.
func (h *AirportHandler) HandleGetRunway(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Runway(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, detail, h.meta(nil))
}

// HandleGetWeather handles GET /v1/weather: current conditions, forecast,
// operational impact and recommendations.
func (h *AirportHandler) HandleGetWeather(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Weather()
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, view, h.meta(nil))
}

// HandleListAlerts handles GET /v1/alerts.
func (h *AirportHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.service.Alerts()
	n := len(alerts)
	core.DataWithMeta(w, r, http.StatusOK, alerts, h.meta(&n))
}

// HandleGetSummary handles GET /v1/summary.
func (h *AirportHandler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary()
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, summary, h.meta(nil))
}

// HandleGetTrend handles GET /v1/trend, oldest sample first.
func (h *AirportHandler) HandleGetTrend(w http.ResponseWriter, r *http.Request) {
	trend := h.service.Trend()
	if trend == nil {
		trend = []types.TrendSample{}
	}
	n := len(trend)
	core.DataWithMeta(w, r, http.StatusOK, trend, h.meta(&n))
}

// HandleRefresh handles POST /v1/refresh. Upstream failures map to 502/504 and
// leave the previous snapshot in place.
func (h *AirportHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Refresh(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "manual refresh failed", "error", err)
		core.Error(w, r, err)
		return
	}
	core.DataWithMeta(w, r, http.StatusOK, res, h.meta(nil))
}

type refreshStatus struct {
	Source types.DataSource     `json:"source"`
	Last   *store.RefreshResult `json:"last"`
}

// HandleGetRefresh handles GET /v1/refresh. last is null until the first refresh.
func (h *AirportHandler) HandleGetRefresh(w http.ResponseWriter, r *http.Request) {
	status := refreshStatus{Source: h.service.Source()}
	if res, ok := h.service.LastRefresh(); ok {
		status.Last = &res
	}
	core.Data(w, r, http.StatusOK, status)
}

// HandleGetHistory handles GET /v1/history/{entityId}?type=&attrs=a,b&from=&to=&lastN=.
// from and to are RFC3339 timestamps.
func (h *AirportHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := types.HistoryQuery{
		EntityID:   chi.URLParam(r, "entityId"),
		EntityType: q.Get("type"),
	}
	for _, a := range strings.Split(q.Get("attrs"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			query.Attrs = append(query.Attrs, a)
		}
	}
	if len(query.Attrs) == 0 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationMissingField,
			"attrs query parameter is required",
			nil,
		))
		return
	}

	var err error
	if query.From, err = parseTimeParam(q.Get("from"), "from"); err != nil {
		core.Error(w, r, err)
		return
	}
	if query.To, err = parseTimeParam(q.Get("to"), "to"); err != nil {
		core.Error(w, r, err)
		return
	}
	if s := q.Get("lastN"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			core.Error(w, r, types.NewAppErrorWithDetails(
				types.ErrCodeValidationInvalidQuery,
				"lastN must be a non-negative integer",
				nil,
				map[string]any{"field": "lastN"},
			))
			return
		}
		query.LastN = n
	}

	ts, err := h.service.History(r.Context(), query)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.Data(w, r, http.StatusOK, ts)
}

func parseTimeParam(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidQuery,
			field+" must be a valid RFC3339 timestamp",
			nil,
			map[string]any{"field": field},
		)
	}
	return t.UTC(), nil
}
