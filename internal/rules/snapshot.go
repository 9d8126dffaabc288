package rules

import (
	"fmt"

	"airtwin/internal/types"
)

// DeriveAll returns every alert for a snapshot: runway alerts in runway order,
// then the weather alert, then one alert per priority flight.
func DeriveAll(s *types.Snapshot) []types.Alert {
	if s == nil {
		return nil
	}
	var alerts []types.Alert
	for _, r := range s.Runways {
		alerts = append(alerts, DeriveRunwayAlerts(r)...)
	}
	if s.Weather.Alert {
		alerts = append(alerts, types.Alert{
			Kind:     types.AlertWeather,
			Severity: types.SeverityCritical,
			Message:  fmt.Sprintf("Adverse weather: %s, wind %.0f kt, visibility %.1f km", s.Weather.Condition, s.Weather.WindSpeed, s.Weather.Visibility),
		})
	}
	for _, f := range s.Flights {
		if f.Priority && f.Active() {
			alerts = append(alerts, types.Alert{
				Kind:     types.AlertEmergencyPriority,
				Severity: types.SeverityCritical,
				Message:  fmt.Sprintf("%s requesting emergency landing", f.CallSign),
				CallSign: f.CallSign,
			})
		}
	}
	return alerts
}

// CountActionable counts alerts above info severity.
func CountActionable(alerts []types.Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Severity != types.SeverityInfo {
			n++
		}
	}
	return n
}

// Summary computes the headline dashboard figures for a snapshot.
func Summary(s *types.Snapshot) types.DashboardSummary {
	if s == nil {
		return types.DashboardSummary{}
	}
	sum := types.DashboardSummary{
		Condition:   s.Weather.Condition,
		Temperature: s.Weather.Temperature,
		WindSpeed:   s.Weather.WindSpeed,
		Alerts:      CountActionable(DeriveAll(s)),
	}
	for _, f := range s.Flights {
		if f.Active() {
			sum.ActiveFlights++
		}
	}
	for _, r := range s.Runways {
		if r.Status == types.RunwayActive {
			sum.ActiveRunways++
		}
	}
	return sum
}

// NewAlerts returns the alerts in next whose key is absent from prev.
func NewAlerts(prev, next []types.Alert) []types.Alert {
	seen := make(map[string]struct{}, len(prev))
	for _, a := range prev {
		seen[a.Key()] = struct{}{}
	}
	var fresh []types.Alert
	for _, a := range next {
		if _, ok := seen[a.Key()]; !ok {
			fresh = append(fresh, a)
		}
	}
	return fresh
}
