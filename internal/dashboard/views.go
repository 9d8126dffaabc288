package dashboard

import (
	"context"
	"strings"
	"time"

	"airtwin/internal/rules"
	"airtwin/internal/store"
	"airtwin/internal/types"
)

// FlightFilter narrows and orders the flight listing.
type FlightFilter struct {
	Statuses []types.FlightStatus
	Query    string
	Sort     store.SortKey
}

// RunwayDetail is a runway with the alerts derived from it.
type RunwayDetail struct {
	Runway types.Runway  `json:"runway"`
	Alerts []types.Alert `json:"alerts"`
}

// WeatherView is the weather panel: current conditions, forecast and assessment.
type WeatherView struct {
	Current         types.WeatherSnapshot   `json:"current"`
	Forecast        []types.WeatherSnapshot `json:"forecast"`
	Impact          types.WeatherImpact     `json:"impact"`
	Recommendations []string                `json:"recommendations"`
}

// Flights lists flights matching f. Before the first snapshot the list is empty.
func (s *Service) Flights(f FlightFilter) ([]types.Flight, error) {
	for _, st := range f.Statuses {
		if !st.Valid() {
			return nil, types.NewValidationError("status", "unknown flight status "+string(st))
		}
	}
	if !f.Sort.Valid() {
		return nil, types.NewValidationError("sort", "unknown sort key "+string(f.Sort))
	}
	pred := store.StatusFilter(f.Statuses...)
	if q := strings.TrimSpace(f.Query); q != "" {
		pred = store.And(pred, store.SearchFilter(q))
	}
	return s.store.FilterFlights(pred, f.Sort), nil
}

// Flight returns the flight with the given call sign, or a not_found error.
func (s *Service) Flight(callSign string) (types.Flight, error) {
	return s.store.SelectFlight(callSign)
}

// Runways returns a copy of the snapshot runways. It is empty before
// the first snapshot.
func (s *Service) Runways() []types.Runway {
	snap := s.store.Current()
	if snap == nil {
		return []types.Runway{}
	}
	out := make([]types.Runway, len(snap.Runways))
	copy(out, snap.Runways)
	return out
}

// Runway returns a runway together with the alerts derived from it.
func (s *Service) Runway(id string) (RunwayDetail, error) {
	r, err := s.store.SelectRunway(id)
	if err != nil {
		return RunwayDetail{}, err
	}
	alerts := rules.DeriveRunwayAlerts(r)
	if alerts == nil {
		alerts = []types.Alert{}
	}
	return RunwayDetail{Runway: r, Alerts: alerts}, nil
}

// Weather returns current conditions with the forecast, operational impact
// and recommendations. It fails with internal_no_snapshot before the first
// snapshot.
func (s *Service) Weather() (WeatherView, error) {
	snap, err := s.snapshot()
	if err != nil {
		return WeatherView{}, err
	}
	forecast := make([]types.WeatherSnapshot, len(snap.Forecast))
	copy(forecast, snap.Forecast)
	return WeatherView{
		Current:         snap.Weather,
		Forecast:        forecast,
		Impact:          rules.DeriveWeatherImpact(snap.Weather),
		Recommendations: rules.WeatherRecommendations(snap.Weather),
	}, nil
}

// Alerts derives every alert for the current snapshot.
func (s *Service) Alerts() []types.Alert {
	alerts := rules.DeriveAll(s.store.Current())
	if alerts == nil {
		return []types.Alert{}
	}
	return alerts
}

// Summary returns the headline figures of the current snapshot.
func (s *Service) Summary() (types.DashboardSummary, error) {
	snap, err := s.snapshot()
	if err != nil {
		return types.DashboardSummary{}, err
	}
	return rules.Summary(snap), nil
}

// Simulation returns the current scenario parameters.
func (s *Service) Simulation() types.SimulationState {
	return s.engine.State()
}

// Log returns the event log, most recent first.
func (s *Service) Log() []types.LogEntry {
	return s.engine.Log().Entries()
}

// GeneratedAt reports when the current snapshot was produced.
func (s *Service) GeneratedAt() (time.Time, bool) {
	snap := s.store.Current()
	if snap == nil {
		return time.Time{}, false
	}
	return snap.GeneratedAt, true
}

// LastRefresh reports the outcome of the most recent refresh, if any.
func (s *Service) LastRefresh() (store.RefreshResult, bool) {
	return s.store.LastRefresh()
}

// Trend returns the recorded summary samples, oldest first.
func (s *Service) Trend() []types.TrendSample {
	return s.store.Trend()
}

// History returns attribute history. It requires a history store, which only
// exists when snapshots come from the context broker.
func (s *Service) History(ctx context.Context, q types.HistoryQuery) (types.TimeSeries, error) {
	if s.history == nil {
		return types.TimeSeries{}, types.NewAppError(types.ErrCodeUpstreamUnavailable, "history store not configured", nil)
	}
	return s.history.GetHistory(ctx, q)
}

func (s *Service) snapshot() (*types.Snapshot, error) {
	snap := s.store.Current()
	if snap == nil {
		return nil, types.NewAppError(types.ErrCodeInternalNoSnapshot, "no snapshot loaded yet", nil)
	}
	return snap, nil
}
