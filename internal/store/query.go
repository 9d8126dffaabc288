package store

import (
	"fmt"
	"sort"
	"strings"

	"airtwin/internal/types"
)

// FlightPredicate selects flights.
type FlightPredicate func(types.Flight) bool

// SortKey orders flight listings.
type SortKey string

const (
	SortCallSign SortKey = "callSign"
	SortETA      SortKey = "eta"
	SortAltitude SortKey = "altitude"
	SortStatus   SortKey = "status"
)

// Valid reports whether k is a known sort key. The empty key is valid.
func (k SortKey) Valid() bool {
	switch k {
	case "", SortCallSign, SortETA, SortAltitude, SortStatus:
		return true
	}
	return false
}

// StatusFilter matches flights in any of the given statuses. No statuses matches all.
func StatusFilter(statuses ...types.FlightStatus) FlightPredicate {
	if len(statuses) == 0 {
		return All
	}
	return func(f types.Flight) bool {
		for _, s := range statuses {
			if f.Status == s {
				return true
			}
		}
		return false
	}
}

// SearchFilter matches call sign, origin, destination or aircraft type, case-insensitively.
func SearchFilter(text string) FlightPredicate {
	q := strings.ToUpper(strings.TrimSpace(text))
	if q == "" {
		return All
	}
	return func(f types.Flight) bool {
		return strings.Contains(f.CallSign, q) ||
			strings.Contains(f.Origin, q) ||
			strings.Contains(f.Destination, q) ||
			strings.Contains(strings.ToUpper(f.AircraftType), q)
	}
}

// And combines predicates.
func And(preds ...FlightPredicate) FlightPredicate {
	return func(f types.Flight) bool {
		for _, p := range preds {
			if p != nil && !p(f) {
				return false
			}
		}
		return true
	}
}

// All matches every flight.
func All(types.Flight) bool { return true }

// FilterFlights returns the flights of the current snapshot matching pred,
// ordered by key (call sign when empty). Ties keep call-sign order.
func (s *Store) FilterFlights(pred FlightPredicate, key SortKey) []types.Flight {
	return FilterFlights(s.Current(), pred, key)
}

// FilterFlights is the snapshot-level projection behind Store.FilterFlights.
func FilterFlights(snap *types.Snapshot, pred FlightPredicate, key SortKey) []types.Flight {
	out := []types.Flight{}
	if snap == nil {
		return out
	}
	if pred == nil {
		pred = All
	}
	for _, f := range snap.Flights {
		if pred(f) {
			out = append(out, f)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CallSign < out[j].CallSign })
	switch key {
	case SortETA:
		sort.SliceStable(out, func(i, j int) bool { return out[i].EstimatedArrival.Before(out[j].EstimatedArrival) })
	case SortAltitude:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Altitude > out[j].Altitude })
	case SortStatus:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Status.Rank() < out[j].Status.Rank() })
	}
	return out
}

// SelectRunway returns the runway with the given id.
func (s *Store) SelectRunway(id string) (types.Runway, error) {
	snap := s.Current()
	if snap != nil {
		if r, ok := snap.Runway(id); ok {
			return r, nil
		}
	}
	return types.Runway{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundRunway,
		fmt.Sprintf("runway %s not found", id), nil, map[string]any{"id": id})
}

// SelectFlight returns the flight with the given call sign.
func (s *Store) SelectFlight(callSign string) (types.Flight, error) {
	snap := s.Current()
	if snap != nil {
		if f, ok := snap.Flight(callSign); ok {
			return f, nil
		}
	}
	return types.Flight{}, types.NewAppErrorWithDetails(types.ErrCodeNotFoundFlight,
		fmt.Sprintf("flight %s not found", callSign), nil, map[string]any{"callSign": callSign})
}
