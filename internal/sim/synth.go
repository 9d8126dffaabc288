package sim

import (
	"fmt"
	"math"
	"time"

	"airtwin/internal/airport"
	"airtwin/internal/rules"
	"airtwin/internal/types"
)

// ForecastHours is the length of the hourly forecast.
const ForecastHours = 24

// Synthesizer generates plausible entities from an airport layout.
// It is deterministic for a given seed and call sequence and is not safe for
// concurrent use.
type Synthesizer struct {
	layout *airport.Layout
	rng    *Rand
}

// NewSynthesizer creates a generator for layout. Equal seeds give equal output.
func NewSynthesizer(layout *airport.Layout, seed int64) *Synthesizer {
	return &Synthesizer{layout: layout, rng: NewRand(seed)}
}

// Weather draws a snapshot within the scenario's bounds.
func (s *Synthesizer) Weather(sc types.WeatherScenario, at time.Time) types.WeatherSnapshot {
	b := BoundsFor(sc)
	w := types.WeatherSnapshot{
		Time:          at,
		Temperature:   round1(s.rng.Between(b.Temperature.Min, b.Temperature.Max)),
		WindSpeed:     round1(s.rng.Between(b.WindSpeed.Min, b.WindSpeed.Max)),
		WindDirection: float64(s.rng.Intn(360)),
		Visibility:    round1(s.rng.Between(b.Visibility.Min, b.Visibility.Max)),
		Precipitation: round1(s.rng.Between(b.Precipitation.Min, b.Precipitation.Max)),
		CloudCoverage: math.Round(s.rng.Between(b.CloudCoverage.Min, b.CloudCoverage.Max)),
	}
	w.Condition = conditionFor(sc, w.CloudCoverage)
	w.Alert = rules.IsWeatherAlert(w)
	return w
}

func conditionFor(sc types.WeatherScenario, cloud float64) types.WeatherCondition {
	switch sc {
	case types.ScenarioFog:
		return types.ConditionFog
	case types.ScenarioRain, types.ScenarioStorm:
		return types.ConditionRain
	}
	switch {
	case cloud < 20:
		return types.ConditionClear
	case cloud < 50:
		return types.ConditionPartlyCloudy
	default:
		return types.ConditionCloudy
	}
}

// Forecast returns ForecastHours hourly snapshots starting one hour after from.
func (s *Synthesizer) Forecast(sc types.WeatherScenario, from time.Time) []types.WeatherSnapshot {
	start := from.Truncate(time.Hour)
	out := make([]types.WeatherSnapshot, 0, ForecastHours)
	for h := 1; h <= ForecastHours; h++ {
		out = append(out, s.Weather(sc, start.Add(time.Duration(h)*time.Hour)))
	}
	return out
}

// CallSign draws a call sign not present in taken.
func (s *Synthesizer) CallSign(taken map[string]struct{}) string {
	for attempt := 0; ; attempt++ {
		cs := fmt.Sprintf("%s%d", pick(s.rng, s.layout.Airlines), s.rng.IntBetween(100, 9999))
		if attempt >= 100 {
			cs += string(rune('A' + s.rng.Intn(26)))
		}
		if _, dup := taken[cs]; !dup {
			return cs
		}
	}
}

// Flight creates a flight in the given status. Airborne flights are placed
// within roughly one degree of the airport.
func (s *Synthesizer) Flight(callSign string, status types.FlightStatus, runways []types.Runway, at time.Time) types.Flight {
	f := types.Flight{
		CallSign:         callSign,
		AircraftType:     pick(s.rng, s.layout.AircraftTypes),
		Origin:           pick(s.rng, s.layout.Origins),
		Destination:      pick(s.rng, s.layout.Destinations),
		Status:           status,
		Heading:          float64(s.rng.Intn(360)),
		Position:         s.layout.Position(),
		EstimatedArrival: at.Add(time.Duration(s.rng.IntBetween(30, 360)) * time.Minute).Truncate(time.Minute),
		AssignedRunway:   s.Runway(runways, status),
	}
	if status == types.FlightAirborne {
		f.Altitude = float64(s.rng.IntBetween(50, 350) * 100)
		f.Speed = float64(s.rng.IntBetween(300, 550))
		f.Position = types.Position{
			Lat: round6(s.layout.Lat + s.rng.Between(-1, 1)),
			Lon: round6(s.layout.Lon + s.rng.Between(-1, 1)),
		}
	}
	if status == types.FlightLanded {
		landed := at
		f.LandedAt = &landed
	}
	return f
}

// Runway picks a runway suited to the flight's phase, preferring one whose
// operation matches. It returns "" when every runway is under maintenance.
func (s *Synthesizer) Runway(runways []types.Runway, status types.FlightStatus) string {
	want := types.OperationTakeoff
	if status == types.FlightAirborne || status == types.FlightLanded {
		want = types.OperationLanding
	}
	var matching, usable []string
	for _, r := range runways {
		if r.Status != types.RunwayActive {
			continue
		}
		usable = append(usable, r.ID)
		if r.Operation == want {
			matching = append(matching, r.ID)
		}
	}
	switch {
	case len(matching) > 0:
		return pick(s.rng, matching)
	case len(usable) > 0:
		return pick(s.rng, usable)
	default:
		return ""
	}
}

// Snapshot synthesizes a complete airport state for the given scenario.
func (s *Synthesizer) Snapshot(state types.SimulationState, at time.Time) *types.Snapshot {
	runways := s.layout.InitialRunways(at)
	weather := s.Weather(state.Weather, at)
	applyWeatherToRunways(runways, weather, BoundsFor(state.Weather).CapacityCeiling)

	n := TrafficFor(state.Traffic).Target
	taken := make(map[string]struct{}, n)
	flights := make([]types.Flight, 0, n)
	for i := 0; i < n; i++ {
		cs := s.CallSign(taken)
		taken[cs] = struct{}{}
		status := types.FlightStatuses[s.rng.Intn(types.FlightAirborne.Rank()+1)]
		flights = append(flights, s.Flight(cs, status, runways, at))
	}

	return &types.Snapshot{
		Flights:     flights,
		Runways:     runways,
		Weather:     weather,
		Forecast:    s.Forecast(state.Weather, at),
		GeneratedAt: at,
		Source:      types.SourceSimulator,
	}
}

// applyWeatherToRunways aligns surface, visibility and capacity with the weather.
func applyWeatherToRunways(runways []types.Runway, w types.WeatherSnapshot, ceiling int) {
	for i := range runways {
		r := &runways[i]
		r.Visibility = w.Visibility
		r.Surface = surfaceFor(w, r.Surface)
		switch r.Status {
		case types.RunwayMaintenance:
			r.Operation = types.OperationMaintenance
			r.Capacity = 0
		case types.RunwayActive:
			r.Capacity = clamp(r.Capacity, min(minActiveCapacity, ceiling), ceiling)
		}
	}
}

func surfaceFor(w types.WeatherSnapshot, prev types.SurfaceCondition) types.SurfaceCondition {
	freezing := w.Temperature <= 0
	switch {
	case freezing && w.Precipitation > 0:
		return types.SurfaceSnow
	case freezing && (prev == types.SurfaceWet || prev == types.SurfaceIcy):
		return types.SurfaceIcy
	case w.Precipitation > rules.WetRunwayPrecipMM:
		return types.SurfaceWet
	default:
		return types.SurfaceDry
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
