package sim

import (
	"airtwin/internal/types"
)

// Speed multiplier limits.
const (
	MinSpeed     = 0.5
	MaxSpeed     = 5.0
	DefaultSpeed = 1.0
)

// Range is an inclusive interval.
type Range struct {
	Min, Max float64
}

// Bounds are the synthesis limits that characterize a weather scenario.
type Bounds struct {
	Temperature     Range
	WindSpeed       Range
	Visibility      Range
	Precipitation   Range
	CloudCoverage   Range
	CapacityCeiling int
}

var scenarioBounds = map[types.WeatherScenario]Bounds{
	types.ScenarioNormal: {
		Temperature:     Range{15, 28},
		WindSpeed:       Range{3, 12},
		Visibility:      Range{8, 10},
		Precipitation:   Range{0, 0.5},
		CloudCoverage:   Range{0, 60},
		CapacityCeiling: 100,
	},
	types.ScenarioRain: {
		Temperature:     Range{10, 20},
		WindSpeed:       Range{8, 20},
		Visibility:      Range{3.5, 6.5},
		Precipitation:   Range{2.5, 6},
		CloudCoverage:   Range{80, 100},
		CapacityCeiling: 90,
	},
	types.ScenarioStorm: {
		Temperature:     Range{12, 24},
		WindSpeed:       Range{28, 45},
		Visibility:      Range{1.5, 4},
		Precipitation:   Range{6, 15},
		CloudCoverage:   Range{95, 100},
		CapacityCeiling: 70,
	},
	types.ScenarioFog: {
		Temperature:     Range{4, 14},
		WindSpeed:       Range{0, 6},
		Visibility:      Range{0.2, 1.5},
		Precipitation:   Range{0, 0.3},
		CloudCoverage:   Range{40, 70},
		CapacityCeiling: 75,
	},
}

// BoundsFor returns the synthesis bounds for s, falling back to normal.
func BoundsFor(s types.WeatherScenario) Bounds {
	if b, ok := scenarioBounds[s]; ok {
		return b
	}
	return scenarioBounds[types.ScenarioNormal]
}

// TrafficProfile is the flight population a traffic level aims for.
type TrafficProfile struct {
	Target   int
	MaxSpawn int
}

var trafficProfiles = map[types.TrafficLevel]TrafficProfile{
	types.TrafficLow:    {Target: 8, MaxSpawn: 1},
	types.TrafficMedium: {Target: 20, MaxSpawn: 2},
	types.TrafficHigh:   {Target: 35, MaxSpawn: 3},
	types.TrafficPeak:   {Target: 45, MaxSpawn: 4},
}

// TrafficFor returns the profile for l, falling back to medium.
func TrafficFor(l types.TrafficLevel) TrafficProfile {
	if p, ok := trafficProfiles[l]; ok {
		return p
	}
	return trafficProfiles[types.TrafficMedium]
}

// DefaultState is the scenario configuration after start-up and reset.
func DefaultState() types.SimulationState {
	return types.SimulationState{
		Running: false,
		Speed:   DefaultSpeed,
		Weather: types.ScenarioNormal,
		Traffic: types.TrafficMedium,
	}
}
