package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airtwin/internal/types"
)

func callSigns(flights []types.Flight) []string {
	out := make([]string, len(flights))
	for i, f := range flights {
		out[i] = f.CallSign
	}
	return out
}

func TestFilterFlights(t *testing.T) {
	s := newTestStore(t, &fakeSource{snap: testSnapshot()})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name string
		pred FlightPredicate
		key  SortKey
		want []string
	}{
		{"all by call sign", All, "", []string{"AA100", "DL456", "UA123"}},
		{"nil predicate", nil, SortCallSign, []string{"AA100", "DL456", "UA123"}},
		{"status", StatusFilter(types.FlightAirborne, types.FlightLanded), "", []string{"DL456", "UA123"}},
		{"no statuses", StatusFilter(), "", []string{"AA100", "DL456", "UA123"}},
		{"search call sign lowercase", SearchFilter("ua1"), "", []string{"UA123"}},
		{"search airport", SearchFilter("jfk"), "", []string{"AA100", "DL456", "UA123"}},
		{"search aircraft type", SearchFilter("airbus"), "", []string{"AA100"}},
		{"search no match", SearchFilter("zzz"), "", []string{}},
		{"combined", And(StatusFilter(types.FlightAirborne), SearchFilter("ORD")), "", []string{"UA123"}},
		{"eta", All, SortETA, []string{"DL456", "UA123", "AA100"}},
		{"altitude", All, SortAltitude, []string{"UA123", "AA100", "DL456"}},
		{"status rank", All, SortStatus, []string{"AA100", "UA123", "DL456"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, callSigns(s.FilterFlights(tt.pred, tt.key)))
		})
	}
}

func TestFilterFlightsBeforeFirstSnapshot(t *testing.T) {
	s := newTestStore(t, &fakeSource{})
	got := s.FilterFlights(All, "")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSortKeyValid(t *testing.T) {
	assert.True(t, SortKey("").Valid())
	assert.True(t, SortETA.Valid())
	assert.False(t, SortKey("speed").Valid())
}

func TestSelectRunwayAndFlight(t *testing.T) {
	s := newTestStore(t, &fakeSource{snap: testSnapshot()})

	_, err := s.SelectRunway("RW27L")
	assert.True(t, types.IsNotFound(err))

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)

	r, err := s.SelectRunway("RW27L")
	require.NoError(t, err)
	assert.Equal(t, 90, r.Capacity)

	_, err = s.SelectRunway("RW99")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))

	f, err := s.SelectFlight("UA123")
	require.NoError(t, err)
	assert.Equal(t, "ORD", f.Origin)

	_, err = s.SelectFlight("ZZ999")
	require.Error(t, err)
	assert.True(t, types.IsNotFound(err))
}
