package dashboard

import (
	"context"
	"time"

	"airtwin/internal/sim"
	"airtwin/internal/store"
	"airtwin/internal/types"
)

// TickReport is the outcome of an operator-requested step.
type TickReport struct {
	Advanced   bool                  `json:"advanced"`
	DurationMs int64                 `json:"durationMs"`
	Simulation types.SimulationState `json:"simulation"`
}

// ToggleSimulation starts or pauses the simulation.
func (s *Service) ToggleSimulation() types.SimulationState {
	return s.engine.Toggle()
}

// ResetSimulation stops the simulation and restores the default scenario.
// The speed multiplier is kept, so the clock interval does not change.
func (s *Service) ResetSimulation() types.SimulationState {
	return s.engine.Reset()
}

// SetWeatherScenario selects the weather preset used by the following ticks.
func (s *Service) SetWeatherScenario(sc types.WeatherScenario) (types.SimulationState, error) {
	return s.engine.SetWeatherScenario(sc)
}

// SetTrafficLevel selects the traffic profile used by the following ticks.
func (s *Service) SetTrafficLevel(l types.TrafficLevel) (types.SimulationState, error) {
	return s.engine.SetTrafficLevel(l)
}

// ToggleEmergency switches emergency mode on or off.
func (s *Service) ToggleEmergency() types.SimulationState {
	return s.engine.ToggleEmergency()
}

// SetSpeed changes the speed multiplier and retimes the clock to match.
func (s *Service) SetSpeed(x float64) (types.SimulationState, error) {
	st, err := s.engine.SetSpeed(x)
	if err != nil {
		return st, err
	}
	s.reschedule(st.Speed)
	return st, nil
}

// ClearLog empties the simulation event log.
func (s *Service) ClearLog() {
	s.engine.ClearLog()
}

// Refresh reloads the snapshot from the data source.
func (s *Service) Refresh(ctx context.Context) (store.RefreshResult, error) {
	res, err := s.store.Refresh(ctx)
	s.metrics.RecordRefresh(ctx, s.source, res)
	return res, err
}

// Tick advances the simulation by one step. With the context broker as the
// data source the broker is authoritative and ticks never touch the snapshot.
func (s *Service) Tick(ctx context.Context) (bool, error) {
	if s.source == types.SourceBroker {
		return false, nil
	}
	return s.engine.Tick(ctx)
}

// RecordTick forwards a scheduled tick's outcome to the metrics recorder.
func (s *Service) RecordTick(res sim.TickResult) {
	s.metrics.RecordTick(context.Background(), res)
}

// Step runs a single manual tick and reports it.
func (s *Service) Step(ctx context.Context) (TickReport, error) {
	start := time.Now()
	advanced, err := s.Tick(ctx)
	res := sim.TickResult{Advanced: advanced, Duration: time.Since(start), Err: err}
	s.metrics.RecordTick(ctx, res)
	if err != nil {
		return TickReport{}, err
	}
	return TickReport{
		Advanced:   advanced,
		DurationMs: res.Duration.Milliseconds(),
		Simulation: s.engine.State(),
	}, nil
}

func (s *Service) reschedule(speed float64) {
	s.mu.Lock()
	c := s.clock
	s.mu.Unlock()
	if c == nil {
		return
	}
	interval := c.Reschedule(speed)
	s.logger.Debug("tick interval updated", "interval", interval.String())
}
