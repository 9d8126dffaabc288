package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airtwin/internal/types"
)

func runway(mutate func(r *types.Runway)) types.Runway {
	r := types.Runway{
		ID:         "RW27L",
		Name:       "Runway 27 Left",
		Length:     3500,
		Status:     types.RunwayActive,
		Operation:  types.OperationLanding,
		Surface:    types.SurfaceDry,
		Visibility: 10,
		Capacity:   90,
	}
	if mutate != nil {
		mutate(&r)
	}
	return r
}

func kinds(alerts []types.Alert) []types.AlertKind {
	out := make([]types.AlertKind, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Kind)
	}
	return out
}

func TestDeriveRunwayAlerts(t *testing.T) {
	tests := []struct {
		name   string
		runway types.Runway
		want   []types.AlertKind
	}{
		{
			name:   "optimal",
			runway: runway(nil),
			want:   []types.AlertKind{types.AlertRunwayOptimal},
		},
		{
			name: "maintenance",
			runway: runway(func(r *types.Runway) {
				r.Status = types.RunwayMaintenance
				r.Operation = types.OperationMaintenance
				r.Capacity = 0
			}),
			want: []types.AlertKind{types.AlertRunwayMaintenance, types.AlertRunwayLowCapacity},
		},
		{
			name: "wet low visibility low capacity in fixed order",
			runway: runway(func(r *types.Runway) {
				r.Surface = types.SurfaceWet
				r.Visibility = 4
				r.Capacity = 60
			}),
			want: []types.AlertKind{types.AlertRunwayWet, types.AlertRunwayLowVisibility, types.AlertRunwayLowCapacity},
		},
		{
			name:   "visibility boundary 7 is optimal",
			runway: runway(func(r *types.Runway) { r.Visibility = 7 }),
			want:   []types.AlertKind{types.AlertRunwayOptimal},
		},
		{
			name:   "capacity boundary 70 is optimal",
			runway: runway(func(r *types.Runway) { r.Capacity = 70 }),
			want:   []types.AlertKind{types.AlertRunwayOptimal},
		},
		{
			name:   "capacity 69 is degraded",
			runway: runway(func(r *types.Runway) { r.Capacity = 69 }),
			want:   []types.AlertKind{types.AlertRunwayLowCapacity},
		},
		{
			name:   "inactive runway in good condition has no alerts",
			runway: runway(func(r *types.Runway) { r.Status = types.RunwayInactive }),
			want:   []types.AlertKind{},
		},
		{
			name:   "snow surface",
			runway: runway(func(r *types.Runway) { r.Surface = types.SurfaceSnow }),
			want:   []types.AlertKind{types.AlertRunwayContaminated},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveRunwayAlerts(tt.runway)
			assert.Equal(t, tt.want, kinds(got))
			for _, a := range got {
				assert.Equal(t, tt.runway.ID, a.RunwayID)
				assert.NotEmpty(t, a.Message)
			}
		})
	}
}

func TestDeriveRunwayAlertsMessages(t *testing.T) {
	got := DeriveRunwayAlerts(runway(func(r *types.Runway) { r.Surface = types.SurfaceWet }))
	require.Len(t, got, 1)
	assert.Equal(t, "Wet surface conditions - increased landing distance required", got[0].Message)
	assert.Equal(t, types.SeverityWarning, got[0].Severity)

	got = DeriveRunwayAlerts(runway(nil))
	require.Len(t, got, 1)
	assert.Equal(t, "Runway operating under optimal conditions - no special procedures required", got[0].Message)
	assert.Equal(t, types.SeverityInfo, got[0].Severity)
}

func TestDeriveRunwayAlertsDeterministic(t *testing.T) {
	r := runway(func(r *types.Runway) { r.Visibility = 2; r.Surface = types.SurfaceWet })
	assert.Equal(t, DeriveRunwayAlerts(r), DeriveRunwayAlerts(r))
}

func TestDeriveWeatherImpact(t *testing.T) {
	tests := []struct {
		name    string
		weather types.WeatherSnapshot
		want    types.WeatherImpact
	}{
		{
			name:    "calm",
			weather: types.WeatherSnapshot{WindSpeed: 10, Visibility: 10, Precipitation: 0},
			want:    types.WeatherImpact{Operations: types.ImpactNormal, RunwayCondition: types.SurfaceDry, Visibility: types.VisibilityGood, Wind: types.WindLow},
		},
		{
			name:    "storm",
			weather: types.WeatherSnapshot{WindSpeed: 30, Visibility: 2, Precipitation: 8},
			want:    types.WeatherImpact{Operations: types.ImpactHigh, RunwayCondition: types.SurfaceWet, Visibility: types.VisibilityPoor, Wind: types.WindSevere},
		},
		{
			name:    "thresholds are exclusive",
			weather: types.WeatherSnapshot{WindSpeed: 20, Visibility: 5, Precipitation: 2},
			want:    types.WeatherImpact{Operations: types.ImpactNormal, RunwayCondition: types.SurfaceDry, Visibility: types.VisibilityModerate, Wind: types.WindModerate},
		},
		{
			name:    "moderate wind boundary",
			weather: types.WeatherSnapshot{WindSpeed: 15, Visibility: 7},
			want:    types.WeatherImpact{Operations: types.ImpactNormal, RunwayCondition: types.SurfaceDry, Visibility: types.VisibilityGood, Wind: types.WindLow},
		},
		{
			name:    "visibility just under 3",
			weather: types.WeatherSnapshot{WindSpeed: 5, Visibility: 2.9},
			want:    types.WeatherImpact{Operations: types.ImpactHigh, RunwayCondition: types.SurfaceDry, Visibility: types.VisibilityPoor, Wind: types.WindLow},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveWeatherImpact(tt.weather))
		})
	}
}

func TestWeatherRecommendations(t *testing.T) {
	assert.Equal(t, []string{RecMonitorTrends},
		WeatherRecommendations(types.WeatherSnapshot{WindSpeed: 5, Visibility: 10}))
	assert.Equal(t, []string{RecCrosswind, RecLowVisibility, RecSurfaceChecks, RecMonitorTrends},
		WeatherRecommendations(types.WeatherSnapshot{WindSpeed: 30, Visibility: 2, Precipitation: 8}))
}

func TestIsWeatherAlert(t *testing.T) {
	assert.False(t, IsWeatherAlert(types.WeatherSnapshot{WindSpeed: 25, Visibility: 3, Precipitation: 5}))
	assert.True(t, IsWeatherAlert(types.WeatherSnapshot{WindSpeed: 26, Visibility: 10}))
	assert.True(t, IsWeatherAlert(types.WeatherSnapshot{Visibility: 10, Precipitation: 5.5}))
	assert.True(t, IsWeatherAlert(types.WeatherSnapshot{Visibility: 1}))
}

func TestDeriveAllAndSummary(t *testing.T) {
	s := &types.Snapshot{
		Runways: []types.Runway{
			runway(nil),
			runway(func(r *types.Runway) {
				r.ID = "RW09R"
				r.Status = types.RunwayMaintenance
				r.Operation = types.OperationMaintenance
				r.Capacity = 0
			}),
		},
		Flights: []types.Flight{
			{CallSign: "UA100", Status: types.FlightAirborne, Priority: true},
			{CallSign: "DL200", Status: types.FlightLanded},
			{CallSign: "BA300", Status: types.FlightBoarding},
		},
		Weather: types.WeatherSnapshot{Condition: types.ConditionRain, Temperature: 12, WindSpeed: 30, Visibility: 4, Alert: true},
	}

	alerts := DeriveAll(s)
	assert.Equal(t, []types.AlertKind{
		types.AlertRunwayOptimal,
		types.AlertRunwayMaintenance,
		types.AlertRunwayLowCapacity,
		types.AlertWeather,
		types.AlertEmergencyPriority,
	}, kinds(alerts))
	assert.Equal(t, "UA100", alerts[4].CallSign)

	sum := Summary(s)
	assert.Equal(t, 2, sum.ActiveFlights)
	assert.Equal(t, 1, sum.ActiveRunways)
	assert.Equal(t, 4, sum.Alerts)
	assert.Equal(t, types.ConditionRain, sum.Condition)
	assert.Equal(t, 30.0, sum.WindSpeed)

	assert.Equal(t, types.DashboardSummary{}, Summary(nil))
}

func TestNewAlerts(t *testing.T) {
	prev := []types.Alert{{Kind: types.AlertRunwayWet, RunwayID: "RW27L"}}
	next := []types.Alert{
		{Kind: types.AlertRunwayWet, RunwayID: "RW27L"},
		{Kind: types.AlertRunwayWet, RunwayID: "RW27R"},
		{Kind: types.AlertWeather},
	}
	fresh := NewAlerts(prev, next)
	require.Len(t, fresh, 2)
	assert.Equal(t, "RW27R", fresh[0].RunwayID)
	assert.Equal(t, types.AlertWeather, fresh[1].Kind)
}
