// Package store holds the current airport snapshot and serializes every
// change to it. Readers get immutable snapshot references without locking.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"airtwin/internal/rules"
	"airtwin/internal/types"
)

// Store defaults.
const (
	DefaultRefreshTimeout = 10 * time.Second
	DefaultTrendCapacity  = 288
)

// Source produces a complete snapshot, from an external entity store or a generator.
type Source interface {
	Fetch(ctx context.Context) (*types.Snapshot, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*types.Snapshot, error)

func (f SourceFunc) Fetch(ctx context.Context) (*types.Snapshot, error) { return f(ctx) }

// ChangeFunc observes a successful write. prev is nil for the first snapshot.
type ChangeFunc func(prev, next *types.Snapshot)

// RefreshResult summarizes a refresh attempt. A successful refresh that found
// no flights has OK set and Flights zero.
type RefreshResult struct {
	OK         bool      `json:"ok"`
	At         time.Time `json:"at"`
	DurationMs int64     `json:"durationMs"`
	Flights    int       `json:"flights"`
	Runways    int       `json:"runways"`
	Error      string    `json:"error,omitempty"`
}

// Config holds dependencies for the Store.
type Config struct {
	Source         Source
	RefreshTimeout time.Duration
	TrendCapacity  int
	Clock          types.Clock
	Logger         *slog.Logger
}

// Store owns the current snapshot.
type Store struct {
	source  Source
	timeout time.Duration
	clock   types.Clock
	logger  *slog.Logger

	current atomic.Pointer[types.Snapshot]
	last    atomic.Pointer[RefreshResult]

	// writeMu serializes refreshes and updates.
	writeMu   sync.Mutex
	trend     *trendRing
	observers []ChangeFunc
}

// New creates an empty store reading from cfg.Source. Current returns nil
// until the first successful Refresh or Update. RefreshTimeout bounds every
// fetch and defaults to DefaultRefreshTimeout; TrendCapacity defaults to
// DefaultTrendCapacity samples.
func New(cfg Config) (*Store, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("store: Source is required")
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	if cfg.TrendCapacity <= 0 {
		cfg.TrendCapacity = DefaultTrendCapacity
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		source:  cfg.Source,
		timeout: cfg.RefreshTimeout,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		trend:   newTrendRing(cfg.TrendCapacity),
	}, nil
}

// OnChange registers fn to run after every successful write, while the write
// lock is held. It must be called before the store is shared.
func (s *Store) OnChange(fn ChangeFunc) {
	s.observers = append(s.observers, fn)
}

// Current returns the current snapshot, or nil before the first write.
// The returned snapshot must not be modified.
func (s *Store) Current() *types.Snapshot {
	return s.current.Load()
}

// LastRefresh reports the outcome of the most recent refresh, if any.
func (s *Store) LastRefresh() (RefreshResult, bool) {
	r := s.last.Load()
	if r == nil {
		return RefreshResult{}, false
	}
	return *r, true
}

// Refresh replaces the snapshot with one fetched from the source. On failure
// the current snapshot is left untouched and an upstream or validation error
// is returned.
func (s *Store) Refresh(ctx context.Context) (RefreshResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	start := s.clock.Now()
	res := RefreshResult{At: start}

	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	next, err := s.source.Fetch(fetchCtx)
	if err == nil && next == nil {
		err = types.NewAppError(types.ErrCodeUpstreamBadResponse, "source returned no snapshot", nil)
	}
	if err == nil {
		err = types.ValidateSnapshot(next)
	}
	res.DurationMs = s.clock.Now().Sub(start).Milliseconds()
	if err != nil {
		err = classifyRefreshError(err)
		res.Error = err.Error()
		s.last.Store(&res)
		s.logger.Warn("refresh failed, keeping previous snapshot", "error", err)
		return res, err
	}

	s.commitLocked(next)
	res.OK = true
	res.Flights = len(next.Flights)
	res.Runways = len(next.Runways)
	s.last.Store(&res)
	s.logger.Info("snapshot refreshed", "flights", res.Flights, "runways", res.Runways, "source", next.Source)
	return res, nil
}

func classifyRefreshError(err error) error {
	var appErr *types.AppError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return types.NewAppError(types.ErrCodeUpstreamTimeout, "refresh timed out", err)
	case errors.As(err, &appErr):
		return err
	default:
		return types.NewAppError(types.ErrCodeUpstreamUnavailable, "entity source unavailable", err)
	}
}

// Update applies fn to the current snapshot under the write lock. fn must not
// modify cur; it returns the replacement. Errors leave the snapshot unchanged.
func (s *Store) Update(fn func(cur *types.Snapshot) (*types.Snapshot, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next, err := fn(s.current.Load())
	if err != nil {
		return err
	}
	if next == nil {
		return types.NewAppError(types.ErrCodeInternalNoSnapshot, "update produced no snapshot", nil)
	}
	s.commitLocked(next)
	return nil
}

func (s *Store) commitLocked(next *types.Snapshot) {
	prev := s.current.Swap(next)
	summary := rules.Summary(next)
	s.trend.push(types.TrendSample{
		At:            next.GeneratedAt,
		ActiveFlights: summary.ActiveFlights,
		Temperature:   summary.Temperature,
		WindSpeed:     summary.WindSpeed,
		Alerts:        summary.Alerts,
	})
	for _, fn := range s.observers {
		fn(prev, next)
	}
}

// Trend returns the recorded samples, oldest first.
func (s *Store) Trend() []types.TrendSample {
	return s.trend.samples()
}
