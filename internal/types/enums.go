package types

// FlightStatus is the lifecycle stage of a flight. Stages only move forward.
type FlightStatus string

const (
	FlightScheduled FlightStatus = "scheduled"
	FlightBoarding  FlightStatus = "boarding"
	FlightTaxiing   FlightStatus = "taxiing"
	FlightAirborne  FlightStatus = "airborne"
	FlightLanded    FlightStatus = "landed"
)

// FlightStatuses lists every status in lifecycle order.
var FlightStatuses = []FlightStatus{
	FlightScheduled, FlightBoarding, FlightTaxiing, FlightAirborne, FlightLanded,
}

// Rank returns the position of the status in the lifecycle, or -1 if unknown.
func (s FlightStatus) Rank() int {
	for i, st := range FlightStatuses {
		if st == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known status.
func (s FlightStatus) Valid() bool { return s.Rank() >= 0 }

// Next returns the following lifecycle stage. Landed is terminal.
func (s FlightStatus) Next() (FlightStatus, bool) {
	r := s.Rank()
	if r < 0 || r == len(FlightStatuses)-1 {
		return s, false
	}
	return FlightStatuses[r+1], true
}

// CanAdvanceTo reports whether moving from s to next keeps the lifecycle monotonic.
func (s FlightStatus) CanAdvanceTo(next FlightStatus) bool {
	return next.Valid() && s.Valid() && next.Rank() >= s.Rank()
}

// RunwayStatus is the availability of a runway.
type RunwayStatus string

const (
	RunwayActive      RunwayStatus = "active"
	RunwayInactive    RunwayStatus = "inactive"
	RunwayMaintenance RunwayStatus = "maintenance"
)

func (s RunwayStatus) Valid() bool {
	switch s {
	case RunwayActive, RunwayInactive, RunwayMaintenance:
		return true
	}
	return false
}

// RunwayOperation is the kind of traffic a runway is currently handling.
type RunwayOperation string

const (
	OperationLanding     RunwayOperation = "landing"
	OperationTakeoff     RunwayOperation = "takeoff"
	OperationMaintenance RunwayOperation = "maintenance"
)

func (o RunwayOperation) Valid() bool {
	switch o {
	case OperationLanding, OperationTakeoff, OperationMaintenance:
		return true
	}
	return false
}

// SurfaceCondition describes the runway surface.
type SurfaceCondition string

const (
	SurfaceDry  SurfaceCondition = "dry"
	SurfaceWet  SurfaceCondition = "wet"
	SurfaceSnow SurfaceCondition = "snow"
	SurfaceIcy  SurfaceCondition = "icy"
)

func (s SurfaceCondition) Valid() bool {
	switch s {
	case SurfaceDry, SurfaceWet, SurfaceSnow, SurfaceIcy:
		return true
	}
	return false
}

// WeatherCondition is the categorical sky condition.
type WeatherCondition string

const (
	ConditionClear        WeatherCondition = "clear"
	ConditionPartlyCloudy WeatherCondition = "partly cloudy"
	ConditionCloudy       WeatherCondition = "cloudy"
	ConditionRain         WeatherCondition = "rain"
	ConditionFog          WeatherCondition = "fog"
)

func (c WeatherCondition) Valid() bool {
	switch c {
	case ConditionClear, ConditionPartlyCloudy, ConditionCloudy, ConditionRain, ConditionFog:
		return true
	}
	return false
}

// WeatherScenario is the operator-selected weather regime for the simulation.
type WeatherScenario string

const (
	ScenarioNormal WeatherScenario = "normal"
	ScenarioRain   WeatherScenario = "rain"
	ScenarioStorm  WeatherScenario = "storm"
	ScenarioFog    WeatherScenario = "fog"
)

// Valid reports whether s is a known scenario.
func (s WeatherScenario) Valid() bool {
	switch s {
	case ScenarioNormal, ScenarioRain, ScenarioStorm, ScenarioFog:
		return true
	}
	return false
}

// TrafficLevel is the operator-selected traffic density.
type TrafficLevel string

const (
	TrafficLow    TrafficLevel = "low"
	TrafficMedium TrafficLevel = "medium"
	TrafficHigh   TrafficLevel = "high"
	TrafficPeak   TrafficLevel = "peak"
)

// Valid reports whether l is a known traffic level.
func (l TrafficLevel) Valid() bool {
	switch l {
	case TrafficLow, TrafficMedium, TrafficHigh, TrafficPeak:
		return true
	}
	return false
}

// Severity ranks derived alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertKind identifies the rule that produced an alert.
type AlertKind string

const (
	AlertRunwayMaintenance   AlertKind = "runway_maintenance"
	AlertRunwayWet           AlertKind = "runway_wet"
	AlertRunwayContaminated  AlertKind = "runway_contaminated"
	AlertRunwayLowVisibility AlertKind = "runway_low_visibility"
	AlertRunwayLowCapacity   AlertKind = "runway_low_capacity"
	AlertRunwayOptimal       AlertKind = "runway_optimal"
	AlertWeather             AlertKind = "weather_alert"
	AlertEmergencyPriority   AlertKind = "emergency_priority"
)

// Impact levels reported by the weather impact assessment.
type (
	OperationsImpact string
	VisibilityStatus string
	WindImpact       string
)

const (
	ImpactNormal OperationsImpact = "normal"
	ImpactHigh   OperationsImpact = "high impact"

	VisibilityGood     VisibilityStatus = "good"
	VisibilityModerate VisibilityStatus = "moderate"
	VisibilityPoor     VisibilityStatus = "poor"

	WindLow      WindImpact = "low"
	WindModerate WindImpact = "moderate"
	WindSevere   WindImpact = "severe"
)

// DataSource names where the snapshot comes from.
type DataSource string

const (
	SourceSimulator DataSource = "simulator"
	SourceBroker    DataSource = "broker"
)
