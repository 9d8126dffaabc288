// Package rules derives operational alerts and weather impact assessments from
// entity state. Every function is pure: the same input always yields the same output.
package rules

import (
	"airtwin/internal/types"
)

// Runway alert thresholds.
const (
	MinOptimalVisibilityKm = 7.0
	MinOptimalCapacity     = 70
)

const (
	MsgRunwayMaintenance   = "Runway is currently under maintenance"
	MsgRunwayWet           = "Wet surface conditions - increased landing distance required"
	MsgRunwayContaminated  = "Contaminated surface - braking action reports required"
	MsgRunwayLowVisibility = "Reduced visibility operations in effect - increased separation required"
	MsgRunwayLowCapacity   = "Runway operating below optimal capacity - consider redistributing operations"
	MsgRunwayOptimal       = "Runway operating under optimal conditions - no special procedures required"
)

type runwayRule struct {
	kind     types.AlertKind
	severity types.Severity
	message  string
	match    func(types.Runway) bool
}

// Evaluated in this order; every matching rule contributes an alert.
var runwayRules = []runwayRule{
	{types.AlertRunwayMaintenance, types.SeverityCritical, MsgRunwayMaintenance,
		func(r types.Runway) bool { return r.Status == types.RunwayMaintenance }},
	{types.AlertRunwayWet, types.SeverityWarning, MsgRunwayWet,
		func(r types.Runway) bool { return r.Surface == types.SurfaceWet }},
	{types.AlertRunwayContaminated, types.SeverityWarning, MsgRunwayContaminated,
		func(r types.Runway) bool { return r.Surface == types.SurfaceSnow || r.Surface == types.SurfaceIcy }},
	{types.AlertRunwayLowVisibility, types.SeverityWarning, MsgRunwayLowVisibility,
		func(r types.Runway) bool { return r.Visibility < MinOptimalVisibilityKm }},
	{types.AlertRunwayLowCapacity, types.SeverityWarning, MsgRunwayLowCapacity,
		func(r types.Runway) bool { return r.Capacity < MinOptimalCapacity }},
}

// DeriveRunwayAlerts returns the advisories for a runway. The optimal-conditions
// advisory is emitted only for an active, dry runway with good visibility and capacity.
// A runway that is neither degraded nor active yields no alerts.
func DeriveRunwayAlerts(r types.Runway) []types.Alert {
	var alerts []types.Alert
	for _, rule := range runwayRules {
		if rule.match(r) {
			alerts = append(alerts, types.Alert{
				Kind:     rule.kind,
				Severity: rule.severity,
				Message:  rule.message,
				RunwayID: r.ID,
			})
		}
	}
	if len(alerts) == 0 && isOptimal(r) {
		alerts = append(alerts, types.Alert{
			Kind:     types.AlertRunwayOptimal,
			Severity: types.SeverityInfo,
			Message:  MsgRunwayOptimal,
			RunwayID: r.ID,
		})
	}
	return alerts
}

func isOptimal(r types.Runway) bool {
	return r.Status == types.RunwayActive &&
		r.Surface == types.SurfaceDry &&
		r.Visibility >= MinOptimalVisibilityKm &&
		r.Capacity >= MinOptimalCapacity
}
