// Package dashboard is the facade presentation layers use to read the airport
// state and to operate the simulation. It is the only mutation path for
// operators.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"airtwin/internal/rules"
	"airtwin/internal/sim"
	"airtwin/internal/store"
	"airtwin/internal/telemetry"
	"airtwin/internal/types"
)

const (
	publishQueueSize = 64
	publishTimeout   = 5 * time.Second
)

// Engine is the simulation engine as seen by the dashboard.
type Engine interface {
	sim.Ticker
	State() types.SimulationState
	Log() *sim.EventLog
	Toggle() types.SimulationState
	Reset() types.SimulationState
	SetWeatherScenario(s types.WeatherScenario) (types.SimulationState, error)
	SetTrafficLevel(l types.TrafficLevel) (types.SimulationState, error)
	ToggleEmergency() types.SimulationState
	SetSpeed(x float64) (types.SimulationState, error)
	ClearLog()
}

// StateStore is the snapshot store as seen by the dashboard.
type StateStore interface {
	Current() *types.Snapshot
	Refresh(ctx context.Context) (store.RefreshResult, error)
	LastRefresh() (store.RefreshResult, bool)
	Trend() []types.TrendSample
	OnChange(fn store.ChangeFunc)
	FilterFlights(pred store.FlightPredicate, key store.SortKey) []types.Flight
	SelectFlight(callSign string) (types.Flight, error)
	SelectRunway(id string) (types.Runway, error)
}

// Rescheduler retimes the wall-clock driver after a speed change.
type Rescheduler interface {
	Reschedule(speed float64) time.Duration
}

// HistoryFetcher reads attribute history from the time-series store.
type HistoryFetcher interface {
	GetHistory(ctx context.Context, q types.HistoryQuery) (types.TimeSeries, error)
}

// AlertPublisher receives alerts that were not present in the previous snapshot.
type AlertPublisher interface {
	Publish(ctx context.Context, alerts []types.Alert) error
}

// Metrics records tick, refresh and snapshot outcomes.
type Metrics interface {
	RecordTick(ctx context.Context, res sim.TickResult)
	RecordRefresh(ctx context.Context, source types.DataSource, res store.RefreshResult)
	RecordSnapshot(ctx context.Context, summary types.DashboardSummary)
	RecordAlertsPublished(ctx context.Context, n int)
}

// Config holds dependencies for the Service. Engine and Store are required.
type Config struct {
	Engine    Engine
	Store     StateStore
	Clock     Rescheduler    // optional
	History   HistoryFetcher // optional; history is unavailable without it
	Publisher AlertPublisher // optional
	Metrics   Metrics        // optional
	Source    types.DataSource
	Logger    *slog.Logger
}

type change struct {
	alerts  []types.Alert
	summary types.DashboardSummary
}

// Service implements the dashboard read models and operator commands.
type Service struct {
	engine    Engine
	store     StateStore
	clock     Rescheduler
	history   HistoryFetcher
	publisher AlertPublisher
	metrics   Metrics
	source    types.DataSource
	logger    *slog.Logger

	// changes feeds the publisher goroutine; store observers run under the
	// store's write lock and must not block on the network.
	changes chan change
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

// New builds the service and registers its change hook on the store. Close
// must be called to flush pending publications.
func New(cfg Config) (*Service, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("dashboard: Engine is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("dashboard: Store is required")
	}
	if cfg.Publisher == nil {
		cfg.Publisher = nopPublisher{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Noop{}
	}
	if cfg.Source == "" {
		cfg.Source = types.SourceSimulator
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Service{
		engine:    cfg.Engine,
		store:     cfg.Store,
		clock:     cfg.Clock,
		history:   cfg.History,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		source:    cfg.Source,
		logger:    cfg.Logger.With("component", "dashboard"),
		changes:   make(chan change, publishQueueSize),
		done:      make(chan struct{}),
	}
	cfg.Store.OnChange(s.onChange)
	go s.publishLoop()
	return s, nil
}

// Source reports where snapshots come from.
func (s *Service) Source() types.DataSource { return s.source }

// SetClock attaches the wall-clock driver after construction; the clock is
// built from the service itself.
func (s *Service) SetClock(c Rescheduler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = c
}

// Close stops accepting changes and waits until queued alerts are published.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.changes)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) onChange(prev, next *types.Snapshot) {
	c := change{
		alerts:  rules.NewAlerts(rules.DeriveAll(prev), rules.DeriveAll(next)),
		summary: rules.Summary(next),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.changes <- c:
	default:
		s.logger.Warn("publication queue full, dropping change", "alerts", len(c.alerts))
	}
}

func (s *Service) publishLoop() {
	defer close(s.done)
	for c := range s.changes {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		s.metrics.RecordSnapshot(ctx, c.summary)
		if len(c.alerts) > 0 {
			if err := s.publisher.Publish(ctx, c.alerts); err != nil {
				s.logger.Error("alert publication failed", "alerts", len(c.alerts), "error", err)
			} else {
				s.metrics.RecordAlertsPublished(ctx, len(c.alerts))
			}
		}
		cancel()
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, []types.Alert) error { return nil }
