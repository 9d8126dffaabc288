package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/brunoga/deep"

	"airtwin/internal/airport"
	"airtwin/internal/types"
)

// Engine defaults.
const (
	DefaultStep            = 5 * time.Second
	DefaultLandedRetention = 10 * time.Minute
	minActiveCapacity      = 60
	capacityJitter         = 5
)

// Probability per tick that a flight advances to its next lifecycle stage.
var advanceChance = map[types.FlightStatus]float64{
	types.FlightScheduled: 0.15,
	types.FlightBoarding:  0.20,
	types.FlightTaxiing:   0.25,
	types.FlightAirborne:  0.05,
}

// SnapshotUpdater is the serialized write path into the state store.
type SnapshotUpdater interface {
	Current() *types.Snapshot
	Update(fn func(cur *types.Snapshot) (*types.Snapshot, error)) error
}

// Config holds dependencies for the Engine.
type Config struct {
	Layout          *airport.Layout
	Store           SnapshotUpdater
	Seed            int64
	Step            time.Duration // simulated time per tick
	LandedRetention time.Duration // simulated time a landed flight stays visible
	LogCapacity     int
	Clock           types.Clock
	Logger          *slog.Logger
}

// Engine owns the simulation state machine and scenario parameters and
// advances the airport state one tick at a time.
type Engine struct {
	layout    *airport.Layout
	store     SnapshotUpdater
	step      time.Duration
	retention time.Duration
	clock     types.Clock
	logger    *slog.Logger
	log       *EventLog

	mu    sync.Mutex
	state types.SimulationState

	// tickMu serializes ticks. It is never held by Fetch, which runs under
	// the store's write lock while a tick may be waiting for that same lock.
	tickMu sync.Mutex

	// synthMu guards synth, whose generator is not goroutine safe, and
	// forecastScenario. Lock order: store write lock, then synthMu.
	synthMu          sync.Mutex
	synth            *Synthesizer
	forecastScenario types.WeatherScenario
}

// NewEngine creates a stopped engine with default scenario parameters.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Layout == nil {
		return nil, fmt.Errorf("sim: Layout is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("sim: Store is required")
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.LandedRetention <= 0 {
		cfg.LandedRetention = DefaultLandedRetention
	}
	if cfg.Clock == nil {
		cfg.Clock = types.RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	state := DefaultState()
	state.SimTime = cfg.Clock.Now()
	return &Engine{
		layout:    cfg.Layout,
		store:     cfg.Store,
		step:      cfg.Step,
		retention: cfg.LandedRetention,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		log:       NewEventLog(cfg.LogCapacity, cfg.Clock),
		state:     state,
		synth:     NewSynthesizer(cfg.Layout, cfg.Seed),
	}, nil
}

// State returns a copy of the current scenario parameters.
func (e *Engine) State() types.SimulationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Log returns the event log.
func (e *Engine) Log() *EventLog { return e.log }

// Step is the simulated time covered by one tick.
func (e *Engine) Step() time.Duration { return e.step }

// Toggle flips between running and stopped.
func (e *Engine) Toggle() types.SimulationState {
	e.mu.Lock()
	e.state.Running = !e.state.Running
	st := e.state
	e.mu.Unlock()

	if st.Running {
		e.record("Simulation started")
	} else {
		e.record("Simulation paused")
	}
	return st
}

// Reset stops the simulation and restores the default weather scenario,
// traffic level and emergency flag. The speed multiplier, the log and the
// entity state are left as they are.
func (e *Engine) Reset() types.SimulationState {
	e.mu.Lock()
	def := DefaultState()
	e.state.Running = def.Running
	e.state.Weather = def.Weather
	e.state.Traffic = def.Traffic
	e.state.Emergency = def.Emergency
	st := e.state
	e.mu.Unlock()

	e.record("Simulation reset to default parameters")
	return st
}

// SetWeatherScenario selects the weather preset used from the next tick on.
// Unknown scenarios are rejected with ErrCodeScenarioInvalidWeather and leave
// the state unchanged.
func (e *Engine) SetWeatherScenario(s types.WeatherScenario) (types.SimulationState, error) {
	if !s.Valid() {
		return e.State(), types.NewAppErrorWithDetails(types.ErrCodeScenarioInvalidWeather,
			fmt.Sprintf("unknown weather scenario %q", s), nil, map[string]any{"scenario": string(s)})
	}
	e.mu.Lock()
	e.state.Weather = s
	st := e.state
	e.mu.Unlock()

	e.record(fmt.Sprintf("Weather scenario changed to %s", s))
	return st, nil
}

// SetTrafficLevel selects the traffic profile that governs how many flights
// are spawned per tick. Unknown levels are rejected with
// ErrCodeScenarioInvalidTraffic.
func (e *Engine) SetTrafficLevel(l types.TrafficLevel) (types.SimulationState, error) {
	if !l.Valid() {
		return e.State(), types.NewAppErrorWithDetails(types.ErrCodeScenarioInvalidTraffic,
			fmt.Sprintf("unknown traffic level %q", l), nil, map[string]any{"level": string(l)})
	}
	e.mu.Lock()
	e.state.Traffic = l
	st := e.state
	e.mu.Unlock()

	e.record(fmt.Sprintf("Traffic level changed to %s", l))
	return st, nil
}

// ToggleEmergency flips emergency mode. While it is on, every tick keeps one
// airborne flight flagged as an emergency with landing priority.
func (e *Engine) ToggleEmergency() types.SimulationState {
	e.mu.Lock()
	e.state.Emergency = !e.state.Emergency
	st := e.state
	e.mu.Unlock()

	if st.Emergency {
		e.record("Emergency scenario activated - aircraft requesting emergency landing")
	} else {
		e.record("Emergency scenario deactivated")
	}
	return st
}

// SetSpeed sets the simulation speed multiplier. Values outside
// [MinSpeed, MaxSpeed] are rejected and leave the multiplier unchanged.
func (e *Engine) SetSpeed(x float64) (types.SimulationState, error) {
	if math.IsNaN(x) || x < MinSpeed || x > MaxSpeed {
		return e.State(), types.NewAppErrorWithDetails(types.ErrCodeScenarioInvalidSpeed,
			fmt.Sprintf("speed must be between %.1f and %.1f", MinSpeed, MaxSpeed), nil,
			map[string]any{"speed": x})
	}
	e.mu.Lock()
	e.state.Speed = x
	st := e.state
	e.mu.Unlock()

	e.record(fmt.Sprintf("Simulation speed set to %sx", strconv.FormatFloat(x, 'f', -1, 64)))
	return st, nil
}

// ClearLog empties the event log.
func (e *Engine) ClearLog() {
	e.log.Clear()
}

func (e *Engine) record(msg string) {
	e.log.Append(msg)
	e.logger.Info(msg, "component", "sim")
}

// Tick advances the airport state by one step. It is a no-op that returns
// false when the simulation is stopped or another tick is still in progress.
func (e *Engine) Tick(ctx context.Context) (bool, error) {
	if !e.tickMu.TryLock() {
		return false, nil
	}
	defer e.tickMu.Unlock()

	st := e.State()
	if !st.Running {
		return false, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := st.SimTime.Add(e.step)
	err := e.store.Update(func(cur *types.Snapshot) (*types.Snapshot, error) {
		e.synthMu.Lock()
		defer e.synthMu.Unlock()
		return e.advance(cur, st, now)
	})
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	e.state.SimTime = now
	e.state.Ticks++
	e.mu.Unlock()
	return true, nil
}

// Fetch synthesizes a complete snapshot for the current scenario. It lets the
// engine act as the data source for refreshes when no broker is configured.
// It does not wait for an in-flight tick.
func (e *Engine) Fetch(ctx context.Context) (*types.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.synthMu.Lock()
	defer e.synthMu.Unlock()

	st := e.State()
	snap := e.synth.Snapshot(st, st.SimTime)
	e.forecastScenario = st.Weather
	e.applyEmergency(snap, st.Emergency, st.SimTime)
	return snap, nil
}

// advance builds the next snapshot from cur. cur is never modified.
func (e *Engine) advance(cur *types.Snapshot, st types.SimulationState, now time.Time) (*types.Snapshot, error) {
	if cur == nil {
		snap := e.synth.Snapshot(st, now)
		e.forecastScenario = st.Weather
		e.applyEmergency(snap, st.Emergency, now)
		return snap, nil
	}

	next, err := deep.Copy(*cur)
	if err != nil {
		return nil, fmt.Errorf("copy snapshot: %w", err)
	}

	next.Weather = e.synth.Weather(st.Weather, now)
	if e.forecastStale(&next, st.Weather, now) {
		next.Forecast = e.synth.Forecast(st.Weather, now)
		e.forecastScenario = st.Weather
	}
	applyWeatherToRunways(next.Runways, next.Weather, BoundsFor(st.Weather).CapacityCeiling)
	e.jitterCapacity(next.Runways, BoundsFor(st.Weather).CapacityCeiling)

	evicted := e.advanceFlights(&next, now)
	e.spawnFlights(&next, st.Traffic, now, evicted)
	e.applyEmergency(&next, st.Emergency, now)

	next.GeneratedAt = now
	next.Source = types.SourceSimulator

	if err := types.ValidateSnapshot(&next); err != nil {
		return nil, fmt.Errorf("tick produced invalid state: %w", err)
	}
	return &next, nil
}

func (e *Engine) forecastStale(s *types.Snapshot, sc types.WeatherScenario, now time.Time) bool {
	return len(s.Forecast) != ForecastHours ||
		e.forecastScenario != sc ||
		!now.Before(s.Forecast[0].Time)
}

func (e *Engine) jitterCapacity(runways []types.Runway, ceiling int) {
	for i := range runways {
		r := &runways[i]
		if r.Status != types.RunwayActive {
			continue
		}
		delta := e.synth.rng.IntBetween(-capacityJitter, capacityJitter)
		r.Capacity = clamp(r.Capacity+delta, min(minActiveCapacity, ceiling), ceiling)
	}
}

// advanceFlights moves every flight at most one lifecycle stage forward,
// updates airborne kinematics and evicts flights that landed long enough ago.
// It returns the call signs of evicted flights.
func (e *Engine) advanceFlights(s *types.Snapshot, now time.Time) map[string]struct{} {
	rng := e.synth.rng
	evicted := make(map[string]struct{})
	kept := s.Flights[:0]
	for _, f := range s.Flights {
		if f.Status == types.FlightLanded && f.LandedAt != nil && now.Sub(*f.LandedAt) >= e.retention {
			evicted[f.CallSign] = struct{}{}
			continue
		}

		if f.Status == types.FlightAirborne {
			e.fly(&f)
		}

		chance := advanceChance[f.Status]
		if f.Priority && f.Status == types.FlightAirborne {
			chance *= 3
		}
		if next, ok := f.Status.Next(); ok && rng.Chance(chance) {
			e.transition(s, &f, next, now)
		}
		kept = append(kept, f)
	}
	s.Flights = kept
	return evicted
}

func (e *Engine) transition(s *types.Snapshot, f *types.Flight, next types.FlightStatus, now time.Time) {
	rng := e.synth.rng
	switch next {
	case types.FlightAirborne:
		f.Altitude = float64(rng.IntBetween(15, 30) * 100)
		f.Speed = float64(rng.IntBetween(160, 200))
		if spec, ok := e.layout.Runway(f.AssignedRunway); ok {
			f.Heading = spec.Heading
		}
		if r := runwayRef(s, f.AssignedRunway); r != nil {
			r.Usage.Takeoffs++
			r.Usage.Last24h++
		}
	case types.FlightLanded:
		if runwayRef(s, f.AssignedRunway) == nil || !runwayUsable(s, f.AssignedRunway) {
			f.AssignedRunway = e.synth.Runway(s.Runways, types.FlightLanded)
		}
		f.Altitude = 0
		f.Speed = 0
		f.Position = e.layout.Position()
		f.Priority = false
		landed := now
		f.LandedAt = &landed
		if r := runwayRef(s, f.AssignedRunway); r != nil {
			r.Usage.Landings++
			r.Usage.Last24h++
		}
	}
	f.Status = next
}

// fly applies one step of airborne kinematics.
func (e *Engine) fly(f *types.Flight) {
	rng := e.synth.rng
	f.Altitude = math.Round(clamp(rng.Jitter(f.Altitude, 500), 1000, 41000))
	f.Speed = math.Round(clamp(rng.Jitter(f.Speed, 10), 140, 560))
	f.Heading = math.Mod(math.Round(f.Heading+rng.Between(-5, 5))+360, 360)

	// Distance covered in degrees of arc: knots * hours / 60.
	dist := f.Speed * e.step.Hours() / 60
	rad := f.Heading * math.Pi / 180
	lat := f.Position.Lat + dist*math.Cos(rad)
	lon := f.Position.Lon + dist*math.Sin(rad)/math.Max(math.Cos(lat*math.Pi/180), 0.01)
	f.Position.Lat = round6(clamp(lat, -89.9, 89.9))
	f.Position.Lon = round6(math.Mod(lon+540, 360) - 180)
}

// spawnFlights adds scheduled flights until the traffic target is reached,
// at most MaxSpawn per tick. Call signs in reserved are not reused.
func (e *Engine) spawnFlights(s *types.Snapshot, level types.TrafficLevel, now time.Time, reserved map[string]struct{}) {
	profile := TrafficFor(level)
	taken := make(map[string]struct{}, len(s.Flights)+len(reserved))
	for cs := range reserved {
		taken[cs] = struct{}{}
	}
	active := 0
	for _, f := range s.Flights {
		taken[f.CallSign] = struct{}{}
		if f.Active() {
			active++
		}
	}
	for n := min(profile.MaxSpawn, profile.Target-active); n > 0; n-- {
		cs := e.synth.CallSign(taken)
		taken[cs] = struct{}{}
		s.Flights = append(s.Flights, e.synth.Flight(cs, types.FlightScheduled, s.Runways, now))
	}
}

// applyEmergency keeps exactly one active flight flagged as priority while the
// emergency scenario is on, and clears all flags when it is off.
func (e *Engine) applyEmergency(s *types.Snapshot, on bool, now time.Time) {
	if !on {
		for i := range s.Flights {
			s.Flights[i].Priority = false
		}
		return
	}
	for _, f := range s.Flights {
		if f.Priority && f.Active() {
			return
		}
	}

	idx := -1
	for i, f := range s.Flights {
		if f.Status == types.FlightAirborne {
			idx = i
			break
		}
	}
	if idx < 0 {
		taken := make(map[string]struct{}, len(s.Flights))
		for _, f := range s.Flights {
			taken[f.CallSign] = struct{}{}
		}
		s.Flights = append(s.Flights, e.synth.Flight(e.synth.CallSign(taken), types.FlightAirborne, s.Runways, now))
		idx = len(s.Flights) - 1
	}

	f := &s.Flights[idx]
	f.Priority = true
	f.EstimatedArrival = now.Add(10 * time.Minute).Truncate(time.Minute)
	if !runwayUsable(s, f.AssignedRunway) {
		f.AssignedRunway = e.synth.Runway(s.Runways, types.FlightLanded)
	}
	e.logger.Warn("emergency priority assigned", "call_sign", f.CallSign, "runway", f.AssignedRunway)
}

func runwayRef(s *types.Snapshot, id string) *types.Runway {
	if id == "" {
		return nil
	}
	for i := range s.Runways {
		if s.Runways[i].ID == id {
			return &s.Runways[i]
		}
	}
	return nil
}

func runwayUsable(s *types.Snapshot, id string) bool {
	r := runwayRef(s, id)
	return r != nil && r.Status == types.RunwayActive
}
