package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"airtwin/internal/types"
)

// EntityLister lists broker entities of one type.
type EntityLister interface {
	ListEntities(ctx context.Context, entityType string) ([]Entity, error)
}

// Source builds snapshots from the context broker.
type Source struct {
	client EntityLister
	clock  types.Clock
	logger *slog.Logger
}

// NewSource creates a Source that builds snapshots from the entities listed by
// client. A nil clock or logger falls back to the real clock and slog.Default.
func NewSource(client EntityLister, clock types.Clock, logger *slog.Logger) *Source {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{client: client, clock: clock, logger: logger}
}

// Fetch lists flights, runways and weather concurrently and maps them into a
// consistent snapshot. Malformed flights and runways are skipped, as are
// duplicates and flights assigned to a runway the broker does not report. A
// fetch with no valid weather entity fails.
func (s *Source) Fetch(ctx context.Context) (*types.Snapshot, error) {
	var flights, runways, weather []Entity

	g, gCtx := errgroup.WithContext(ctx)
	for _, job := range []struct {
		entityType string
		dst        *[]Entity
	}{
		{types.EntityTypeFlight, &flights},
		{types.EntityTypeRunway, &runways},
		{types.EntityTypeWeather, &weather},
	} {
		g.Go(func() error {
			es, err := s.client.ListEntities(gCtx, job.entityType)
			if err != nil {
				return fmt.Errorf("list %s entities: %w", job.entityType, err)
			}
			sortEntities(es)
			*job.dst = es
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	snap := &types.Snapshot{
		Flights:     []types.Flight{},
		Runways:     []types.Runway{},
		Forecast:    []types.WeatherSnapshot{},
		GeneratedAt: now,
		Source:      types.SourceBroker,
	}

	known := make(map[string]struct{}, len(runways))
	for _, e := range runways {
		r, err := MapRunway(e)
		if err != nil {
			s.logger.Warn("skipping malformed runway", "entity", e.ID, "error", err)
			continue
		}
		if _, dup := known[r.ID]; dup {
			s.logger.Warn("skipping duplicate runway", "entity", e.ID, "runway", r.ID)
			continue
		}
		known[r.ID] = struct{}{}
		snap.Runways = append(snap.Runways, r)
	}

	weatherOK := false
	for _, e := range weather {
		w, err := MapWeather(e, now)
		if err != nil {
			s.logger.Warn("skipping malformed weather", "entity", e.ID, "error", err)
			continue
		}
		snap.Weather = w
		weatherOK = true
		break
	}
	if !weatherOK {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidEntity,
			"no valid WeatherCondition entity", nil, map[string]any{"field": "weather"})
	}

	seen := make(map[string]struct{}, len(flights))
	for _, e := range flights {
		f, err := MapFlight(e)
		if err != nil {
			s.logger.Warn("skipping malformed flight", "entity", e.ID, "error", err)
			continue
		}
		if _, dup := seen[f.CallSign]; dup {
			s.logger.Warn("skipping duplicate flight", "entity", e.ID, "callSign", f.CallSign)
			continue
		}
		if f.AssignedRunway != "" {
			if _, ok := known[f.AssignedRunway]; !ok {
				s.logger.Warn("dropping flight assigned to unknown runway", "callSign", f.CallSign, "runway", f.AssignedRunway)
				continue
			}
		}
		seen[f.CallSign] = struct{}{}
		snap.Flights = append(snap.Flights, f)
	}
	sort.Slice(snap.Flights, func(i, j int) bool { return snap.Flights[i].CallSign < snap.Flights[j].CallSign })

	return snap, nil
}
