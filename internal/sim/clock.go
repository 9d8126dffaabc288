package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker advances the simulation by one step.
type Ticker interface {
	Tick(ctx context.Context) (bool, error)
}

// TickResult describes one scheduled tick.
type TickResult struct {
	Advanced bool
	Duration time.Duration
	Err      error
}

// ClockConfig holds dependencies for the Clock.
type ClockConfig struct {
	Engine Ticker
	// Base is the wall-clock tick interval at speed 1.0.
	Base time.Duration
	// Refresh, when set, is run every RefreshEvery.
	Refresh      func(ctx context.Context) error
	RefreshEvery time.Duration
	OnTick       func(TickResult)
	Logger       *slog.Logger
}

// Clock drives the engine on a wall-clock schedule scaled by the speed
// multiplier. Runs of the same job never overlap; a tick that is still running
// when the next one is due causes that one to be skipped.
type Clock struct {
	cfg  ClockConfig
	cron *cron.Cron

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	tickEntry cron.EntryID
	interval  time.Duration
	started   bool
}

// NewClock creates a stopped clock for cfg.Engine. Base defaults to
// DefaultStep. No job runs until Start; the refresh job is only scheduled when
// both Refresh and RefreshEvery are set.
func NewClock(cfg ClockConfig) (*Clock, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("sim: clock Engine is required")
	}
	if cfg.Base <= 0 {
		cfg.Base = DefaultStep
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelWarn))
	return &Clock{
		cfg:  cfg,
		cron: cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
	}, nil
}

// TickInterval is the wall-clock period between ticks at the given speed,
// rounded to the scheduler's one-second resolution.
func TickInterval(base time.Duration, speed float64) time.Duration {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	d := time.Duration(float64(base) / speed).Round(time.Second)
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Start schedules the tick and refresh jobs. Jobs stop when ctx is cancelled
// or Stop is called.
func (c *Clock) Start(ctx context.Context, speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.scheduleTickLocked(speed)
	if c.cfg.Refresh != nil && c.cfg.RefreshEvery > 0 {
		c.cron.Schedule(cron.Every(c.cfg.RefreshEvery), cron.FuncJob(c.runRefresh))
	}
	c.cron.Start()
	c.started = true
	c.cfg.Logger.Info("simulation clock started", "interval", c.interval.String())
}

// Reschedule replaces the tick job with one matching the new speed.
func (c *Clock) Reschedule(speed float64) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		c.interval = TickInterval(c.cfg.Base, speed)
		return c.interval
	}
	if TickInterval(c.cfg.Base, speed) == c.interval {
		return c.interval
	}
	c.cron.Remove(c.tickEntry)
	c.scheduleTickLocked(speed)
	c.cfg.Logger.Info("simulation clock rescheduled", "interval", c.interval.String(), "speed", speed)
	return c.interval
}

func (c *Clock) scheduleTickLocked(speed float64) {
	c.interval = TickInterval(c.cfg.Base, speed)
	c.tickEntry = c.cron.Schedule(cron.Every(c.interval), cron.FuncJob(c.runTick))
}

// Interval returns the current tick period.
func (c *Clock) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

// Stop halts scheduling and waits for running jobs to finish.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	<-c.cron.Stop().Done()
	c.cfg.Logger.Info("simulation clock stopped")
}

func (c *Clock) jobContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	c.mu.Lock()
	parent := c.ctx
	c.mu.Unlock()
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, timeout)
}

func (c *Clock) runTick() {
	ctx, cancel := c.jobContext(max(c.Interval(), time.Second))
	defer cancel()

	start := time.Now()
	advanced, err := c.cfg.Engine.Tick(ctx)
	res := TickResult{Advanced: advanced, Duration: time.Since(start), Err: err}
	if err != nil {
		c.cfg.Logger.Error("simulation tick failed", "error", err)
	}
	if c.cfg.OnTick != nil {
		c.cfg.OnTick(res)
	}
}

func (c *Clock) runRefresh() {
	ctx, cancel := c.jobContext(c.cfg.RefreshEvery)
	defer cancel()

	if err := c.cfg.Refresh(ctx); err != nil {
		c.cfg.Logger.Warn("scheduled refresh failed", "error", err)
	}
}
