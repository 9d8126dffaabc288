package types

import (
	"fmt"
	"time"
)

// Position is a WGS84 coordinate.
type Position struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// Flight is an aircraft movement tracked by the twin.
type Flight struct {
	CallSign         string       `json:"callSign" validate:"required,callsign"`
	AircraftType     string       `json:"aircraftType" validate:"required,max=64"`
	Origin           string       `json:"origin" validate:"required,airport"`
	Destination      string       `json:"destination" validate:"required,airport"`
	Status           FlightStatus `json:"status" validate:"enum"`
	Altitude         float64      `json:"altitude" validate:"gte=0,lte=60000"`
	Speed            float64      `json:"speed" validate:"gte=0,lte=1000"`
	Heading          float64      `json:"heading" validate:"gte=0,lt=360"`
	Position         Position     `json:"position"`
	EstimatedArrival time.Time    `json:"estimatedArrival"`
	AssignedRunway   string       `json:"assignedRunway,omitempty"`
	Priority         bool         `json:"priority"`
	LandedAt         *time.Time   `json:"landedAt,omitempty"`
}

// Active reports whether the flight still counts toward airport traffic.
func (f Flight) Active() bool { return f.Status != FlightLanded }

// RunwayUsage counts movements handled by a runway.
type RunwayUsage struct {
	Takeoffs int `json:"takeoffs" validate:"gte=0"`
	Landings int `json:"landings" validate:"gte=0"`
	Last24h  int `json:"last24h" validate:"gte=0"`
}

// Runway is the operational state of a single runway.
type Runway struct {
	ID              string           `json:"id" validate:"required,max=16"`
	Name            string           `json:"name" validate:"required,max=64"`
	Length          int              `json:"length" validate:"gt=0"`
	Status          RunwayStatus     `json:"status" validate:"enum"`
	Operation       RunwayOperation  `json:"operation" validate:"enum"`
	Surface         SurfaceCondition `json:"surfaceCondition" validate:"enum"`
	Visibility      float64          `json:"visibility" validate:"gte=0,lte=100"`
	NextMaintenance time.Time        `json:"nextScheduledMaintenance"`
	Capacity        int              `json:"currentCapacity" validate:"gte=0,lte=100"`
	Usage           RunwayUsage      `json:"usage"`
}

// WeatherSnapshot is the airport weather at one instant.
type WeatherSnapshot struct {
	Time          time.Time        `json:"time"`
	Temperature   float64          `json:"temperature" validate:"gte=-80,lte=60"`
	WindSpeed     float64          `json:"windSpeed" validate:"gte=0,lte=250"`
	WindDirection float64          `json:"windDirection" validate:"gte=0,lt=360"`
	Visibility    float64          `json:"visibility" validate:"gte=0,lte=100"`
	Precipitation float64          `json:"precipitation" validate:"gte=0,lte=500"`
	CloudCoverage float64          `json:"cloudCoverage" validate:"gte=0,lte=100"`
	Condition     WeatherCondition `json:"condition" validate:"enum"`
	Alert         bool             `json:"weatherAlert"`
}

// Snapshot is one immutable, mutually consistent view of all airport entities.
// Holders must treat it as read-only; writers build a new Snapshot.
type Snapshot struct {
	Flights     []Flight          `json:"flights"`
	Runways     []Runway          `json:"runways"`
	Weather     WeatherSnapshot   `json:"weather"`
	Forecast    []WeatherSnapshot `json:"forecast"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Source      DataSource        `json:"source"`
}

// Runway returns the runway with the given ID.
func (s *Snapshot) Runway(id string) (Runway, bool) {
	for _, r := range s.Runways {
		if r.ID == id {
			return r, true
		}
	}
	return Runway{}, false
}

// Flight returns the flight with the given call sign.
func (s *Snapshot) Flight(callSign string) (Flight, bool) {
	for _, f := range s.Flights {
		if f.CallSign == callSign {
			return f, true
		}
	}
	return Flight{}, false
}

// Alert is a derived, human-readable advisory.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	RunwayID string    `json:"runwayId,omitempty"`
	CallSign string    `json:"callSign,omitempty"`
}

// Key identifies an alert across snapshots so that newly raised alerts can be detected.
func (a Alert) Key() string {
	switch {
	case a.RunwayID != "":
		return fmt.Sprintf("runway/%s/%s", a.RunwayID, a.Kind)
	case a.CallSign != "":
		return fmt.Sprintf("flight/%s/%s", a.CallSign, a.Kind)
	default:
		return string(a.Kind)
	}
}

// WeatherImpact is the operational assessment of a weather snapshot.
type WeatherImpact struct {
	Operations      OperationsImpact `json:"operations"`
	RunwayCondition SurfaceCondition `json:"runwayCondition"`
	Visibility      VisibilityStatus `json:"visibility"`
	Wind            WindImpact       `json:"wind"`
}

// SimulationState is the operator-visible scenario configuration.
type SimulationState struct {
	Running   bool            `json:"running"`
	Speed     float64         `json:"speed"`
	Weather   WeatherScenario `json:"weatherScenario"`
	Traffic   TrafficLevel    `json:"trafficLevel"`
	Emergency bool            `json:"emergency"`
	SimTime   time.Time       `json:"simTime"`
	Ticks     uint64          `json:"ticks"`
}

// LogEntry is one line of the simulation event log.
type LogEntry struct {
	ID      string    `json:"id"`
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

// String renders the entry the way operators read it in the log panel.
func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.Format("15:04:05"), e.Message)
}

// DashboardSummary aggregates the headline figures shown on the overview screen.
type DashboardSummary struct {
	ActiveFlights int              `json:"activeFlights"`
	ActiveRunways int              `json:"activeRunways"`
	Condition     WeatherCondition `json:"weatherCondition"`
	Temperature   float64          `json:"temperature"`
	WindSpeed     float64          `json:"windSpeed"`
	Alerts        int              `json:"alerts"`
}

// TrendSample is one point of the dashboard trend charts.
type TrendSample struct {
	At            time.Time `json:"at"`
	ActiveFlights int       `json:"activeFlights"`
	Temperature   float64   `json:"temperature"`
	WindSpeed     float64   `json:"windSpeed"`
	Alerts        int       `json:"alerts"`
}

// HistoryQuery selects a time range of attribute values for one entity.
type HistoryQuery struct {
	EntityID   string    `json:"entityId" validate:"required,max=256"`
	EntityType string    `json:"type" validate:"omitempty,max=64"`
	Attrs      []string  `json:"attrs" validate:"required,min=1,dive,required"`
	From       time.Time `json:"fromDate"`
	To         time.Time `json:"toDate"`
	LastN      int       `json:"lastN" validate:"gte=0,lte=10000"`
}

// TimeSeries is the history of several attributes of one entity on a shared time index.
type TimeSeries struct {
	EntityID   string           `json:"entityId"`
	EntityType string           `json:"entityType"`
	Index      []time.Time      `json:"index"`
	Attributes map[string][]any `json:"attributes"`
}
