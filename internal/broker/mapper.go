package broker

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"airtwin/internal/types"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseTime accepts RFC 3339 and zone-less ISO 8601 timestamps. Zone-less
// values are taken as UTC.
func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// attrReader decodes typed attribute values and remembers the first failure.
type attrReader struct {
	e   Entity
	err error
}

func (r *attrReader) fail(name, msg string) {
	if r.err == nil {
		r.err = types.NewValidationError(name, fmt.Sprintf("%s (entity %s)", msg, r.e.ID))
	}
}

func (r *attrReader) raw(name string, required bool) (json.RawMessage, bool) {
	a, ok := r.e.Attrs[name]
	if !ok || len(a.Value) == 0 || string(a.Value) == "null" {
		if required && r.err == nil {
			r.err = types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField,
				fmt.Sprintf("%s: missing attribute (entity %s)", name, r.e.ID), nil,
				map[string]any{"field": name, "entity": r.e.ID})
		}
		return nil, false
	}
	return a.Value, true
}

func (r *attrReader) text(name string, required bool) string {
	v, ok := r.raw(name, required)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		r.fail(name, "expected text value")
	}
	return s
}

func (r *attrReader) number(name string, required bool) float64 {
	v, ok := r.raw(name, required)
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		r.fail(name, "expected numeric value")
	}
	return f
}

func (r *attrReader) integer(name string, required bool) int {
	f := r.number(name, required)
	if f != float64(int(f)) {
		r.fail(name, "expected integer value")
	}
	return int(f)
}

func (r *attrReader) boolean(name string) bool {
	v, ok := r.raw(name, false)
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		r.fail(name, "expected boolean value")
	}
	return b
}

func (r *attrReader) timestamp(name string, required bool) time.Time {
	s := r.text(name, required)
	if s == "" {
		return time.Time{}
	}
	t, err := parseTime(s)
	if err != nil {
		r.fail(name, "expected ISO 8601 timestamp")
	}
	return t
}

// point reads a geo:json Point. Coordinates are stored latitude first.
func (r *attrReader) point(name string) types.Position {
	v, ok := r.raw(name, true)
	if !ok {
		return types.Position{}
	}
	var geo struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(v, &geo); err != nil || geo.Type != "Point" || len(geo.Coordinates) != 2 {
		r.fail(name, "expected geo:json Point")
		return types.Position{}
	}
	return types.Position{Lat: geo.Coordinates[0], Lon: geo.Coordinates[1]}
}

// runwayRef strips an entity-type prefix from a runway reference.
func runwayRef(s string) string {
	return strings.TrimPrefix(s, types.EntityTypeRunway+":")
}

// MapFlight converts a Flight entity into a validated flight.
func MapFlight(e Entity) (types.Flight, error) {
	r := &attrReader{e: e}
	f := types.Flight{
		CallSign:         r.text("callSign", true),
		AircraftType:     r.text("aircraftType", true),
		Origin:           r.text("origin", true),
		Destination:      r.text("destination", true),
		Status:           types.FlightStatus(r.text("status", true)),
		Altitude:         r.number("altitude", true),
		Speed:            r.number("speed", true),
		Heading:          r.number("heading", false),
		Position:         r.point("position"),
		EstimatedArrival: r.timestamp("estimatedArrival", true),
		AssignedRunway:   runwayRef(r.text("assignedRunway", false)),
		Priority:         r.boolean("priority"),
	}
	if landed := r.timestamp("landedAt", false); !landed.IsZero() {
		f.LandedAt = &landed
	}
	if r.err != nil {
		return types.Flight{}, r.err
	}
	return types.NewFlight(f)
}

// MapRunway converts a RunwayStatus entity into a validated runway.
func MapRunway(e Entity) (types.Runway, error) {
	r := &attrReader{e: e}
	rw := types.Runway{
		ID:              r.text("runwayId", false),
		Name:            r.text("name", true),
		Length:          r.integer("length", true),
		Status:          types.RunwayStatus(r.text("status", true)),
		Operation:       types.RunwayOperation(r.text("operation", true)),
		Surface:         types.SurfaceCondition(r.text("surfaceCondition", true)),
		Visibility:      r.number("visibility", true),
		NextMaintenance: r.timestamp("nextScheduledMaintenance", false),
		Capacity:        r.integer("currentCapacity", true),
		Usage: types.RunwayUsage{
			Takeoffs: r.integer("takeoffs", false),
			Landings: r.integer("landings", false),
		},
	}
	if rw.ID == "" {
		rw.ID = e.ShortID()
	}
	rw.Usage.Last24h = rw.Usage.Takeoffs + rw.Usage.Landings
	if r.err != nil {
		return types.Runway{}, r.err
	}
	return types.NewRunway(rw)
}

// MapWeather converts a WeatherCondition entity into a validated observation.
// The observation time is taken from observedAt when present, else now.
func MapWeather(e Entity, now time.Time) (types.WeatherSnapshot, error) {
	r := &attrReader{e: e}
	w := types.WeatherSnapshot{
		Time:          r.timestamp("observedAt", false),
		Temperature:   r.number("temperature", true),
		WindSpeed:     r.number("windSpeed", true),
		WindDirection: r.number("windDirection", false),
		Visibility:    r.number("visibility", true),
		Precipitation: r.number("precipitation", true),
		CloudCoverage: r.number("cloudCoverage", false),
		Condition:     types.WeatherCondition(r.text("condition", true)),
		Alert:         r.boolean("weatherAlert"),
	}
	if w.Time.IsZero() {
		w.Time = now
	}
	if r.err != nil {
		return types.WeatherSnapshot{}, r.err
	}
	return types.NewWeatherSnapshot(w)
}
