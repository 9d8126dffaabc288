// Package airport loads the static airport layout: runways, the traffic pools
// used for flight synthesis, and the airport reference point.
package airport

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"airtwin/internal/types"
)

//go:embed default.yaml
var defaultLayout []byte

// RunwaySpec is the static description of a runway and its initial state.
type RunwaySpec struct {
	ID            string                `yaml:"id" validate:"required,max=16"`
	Name          string                `yaml:"name" validate:"required"`
	Length        int                   `yaml:"length" validate:"gt=0"`
	Heading       float64               `yaml:"heading" validate:"gte=0,lt=360"`
	Status        types.RunwayStatus    `yaml:"status" validate:"required"`
	Operation     types.RunwayOperation `yaml:"operation" validate:"required"`
	Capacity      int                   `yaml:"capacity" validate:"gte=0,lte=100"`
	MaintenanceIn time.Duration         `yaml:"maintenance_in" validate:"gte=0"`
}

// Layout describes one airport. Airline designators and airport codes must be
// upper case, since they become part of synthesized call signs and routes.
type Layout struct {
	Code          string       `yaml:"code" validate:"required,alpha,uppercase,len=3"`
	Name          string       `yaml:"name"`
	Lat           float64      `yaml:"lat" validate:"latitude"`
	Lon           float64      `yaml:"lon" validate:"longitude"`
	Runways       []RunwaySpec `yaml:"runways" validate:"required,min=1,dive"`
	Airlines      []string     `yaml:"airlines" validate:"required,min=1,dive,alphanum,uppercase,len=2"`
	Origins       []string     `yaml:"origins" validate:"required,min=1,dive,alpha,uppercase,len=3"`
	Destinations  []string     `yaml:"destinations" validate:"required,min=1,dive,alpha,uppercase,len=3"`
	AircraftTypes []string     `yaml:"aircraft_types" validate:"required,min=1,dive,required"`
}

// Position returns the airport reference point.
func (l *Layout) Position() types.Position {
	return types.Position{Lat: l.Lat, Lon: l.Lon}
}

// Runway returns the spec for id.
func (l *Layout) Runway(id string) (RunwaySpec, bool) {
	for _, r := range l.Runways {
		if r.ID == id {
			return r, true
		}
	}
	return RunwaySpec{}, false
}

// Default returns the built-in layout.
func Default() *Layout {
	l, err := Parse(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("airport: invalid embedded layout: %v", err))
	}
	return l
}

// Load reads a layout file. An empty path yields the built-in layout.
func Load(path string) (*Layout, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read airport layout %s: %w", path, err)
	}
	l, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("airport layout %s: %w", path, err)
	}
	return l, nil
}

// Parse decodes and validates a YAML layout.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	if err := validator.New().Struct(&l); err != nil {
		return nil, fmt.Errorf("layout validation failed: %w", err)
	}
	seen := make(map[string]struct{}, len(l.Runways))
	for _, r := range l.Runways {
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate runway %s", r.ID)
		}
		seen[r.ID] = struct{}{}
		if _, err := types.NewRunway(r.initial(time.Time{})); err != nil {
			return nil, fmt.Errorf("runway %s: %w", r.ID, err)
		}
	}
	return &l, nil
}

// initial builds the runway's starting state at the given instant.
func (r RunwaySpec) initial(now time.Time) types.Runway {
	rw := types.Runway{
		ID:         r.ID,
		Name:       r.Name,
		Length:     r.Length,
		Status:     r.Status,
		Operation:  r.Operation,
		Surface:    types.SurfaceDry,
		Visibility: 10,
		Capacity:   r.Capacity,
	}
	if r.MaintenanceIn > 0 {
		rw.NextMaintenance = now.Add(r.MaintenanceIn)
	}
	return rw
}

// InitialRunways returns the starting state of every runway in layout order.
func (l *Layout) InitialRunways(now time.Time) []types.Runway {
	out := make([]types.Runway, 0, len(l.Runways))
	for _, r := range l.Runways {
		out = append(out, r.initial(now))
	}
	return out
}
