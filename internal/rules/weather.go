package rules

import (
	"airtwin/internal/types"
)

// Weather impact thresholds.
const (
	HighImpactWindKt         = 20.0
	HighImpactVisibilityKm   = 5.0
	WetRunwayPrecipMM        = 2.0
	PoorVisibilityKm         = 3.0
	ModerateVisibilityKm     = 7.0
	SevereWindKt             = 25.0
	ModerateWindKt           = 15.0
	WeatherAlertWindKt       = 25.0
	WeatherAlertPrecipMM     = 5.0
	WeatherAlertVisibilityKm = PoorVisibilityKm
)

const (
	RecCrosswind     = "Monitor crosswind component for active runways"
	RecLowVisibility = "Implement reduced visibility procedures"
	RecSurfaceChecks = "Check runway surface conditions regularly"
	RecMonitorTrends = "Continue monitoring weather trends over next 3 hours"
)

// DeriveWeatherImpact classifies the operational impact of w.
func DeriveWeatherImpact(w types.WeatherSnapshot) types.WeatherImpact {
	impact := types.WeatherImpact{
		Operations:      types.ImpactNormal,
		RunwayCondition: types.SurfaceDry,
		Visibility:      types.VisibilityGood,
		Wind:            types.WindLow,
	}
	if w.WindSpeed > HighImpactWindKt || w.Visibility < HighImpactVisibilityKm {
		impact.Operations = types.ImpactHigh
	}
	if w.Precipitation > WetRunwayPrecipMM {
		impact.RunwayCondition = types.SurfaceWet
	}
	switch {
	case w.Visibility < PoorVisibilityKm:
		impact.Visibility = types.VisibilityPoor
	case w.Visibility < ModerateVisibilityKm:
		impact.Visibility = types.VisibilityModerate
	}
	switch {
	case w.WindSpeed > SevereWindKt:
		impact.Wind = types.WindSevere
	case w.WindSpeed > ModerateWindKt:
		impact.Wind = types.WindModerate
	}
	return impact
}

// WeatherRecommendations lists the operator actions advised for w.
// The trend-monitoring recommendation is always last.
func WeatherRecommendations(w types.WeatherSnapshot) []string {
	var recs []string
	if w.WindSpeed > HighImpactWindKt {
		recs = append(recs, RecCrosswind)
	}
	if w.Visibility < HighImpactVisibilityKm {
		recs = append(recs, RecLowVisibility)
	}
	if w.Precipitation > WetRunwayPrecipMM {
		recs = append(recs, RecSurfaceChecks)
	}
	return append(recs, RecMonitorTrends)
}

// IsWeatherAlert reports whether conditions warrant the weather alert flag.
func IsWeatherAlert(w types.WeatherSnapshot) bool {
	return w.WindSpeed > WeatherAlertWindKt ||
		w.Precipitation > WeatherAlertPrecipMM ||
		w.Visibility < WeatherAlertVisibilityKm
}
