package simulation

import (
	"context"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/config"
	"github.com/cory-johannsen/mudworld/internal/game/dice"
	"github.com/cory-johannsen/mudworld/internal/game/world"
)

// Task names, in run order.
const (
	TaskAmbient = "ambient"
	TaskTrails  = "trails"
	TaskWeather = "weather"
)

// Observer receives every simulation measurement.
type Observer interface {
	TickObserver
	WeatherObserver
	PruneObserver
	AmbientObserver
}

// Simulation owns the tick loop and the trail registry of a world.
type Simulation struct {
	ticks  *TickManager
	trails *TrailRegistry
	logger *zap.Logger
}

// New wires the weather, trail and ambient tasks for w. A nil hooks disables
// ambient events.
//
// Precondition: cfg must be valid; w, src and logger must be non-nil.
// Postcondition: Returns a Simulation that has not started ticking.
func New(cfg config.SimulationConfig, w *world.World, src dice.Source, hooks HookCaller, obs Observer, logger *zap.Logger) *Simulation {
	var tickObs TickObserver
	if obs != nil {
		tickObs = obs
	}
	s := &Simulation{
		ticks:  NewTickManager(cfg.TickInterval, tickObs, logger),
		trails: NewTrailRegistry(),
		logger: logger,
	}

	var (
		weatherObs WeatherObserver
		pruneObs   PruneObserver
		ambientObs AmbientObserver
	)
	if obs != nil {
		weatherObs, pruneObs, ambientObs = obs, obs, obs
	}
	s.ticks.Register(TaskWeather, WeatherTask(w, weatherObs, logger))
	s.ticks.Register(TaskTrails, PruneTask(s.trails, cfg.TrackExpiry, pruneObs, logger))
	if hooks != nil {
		s.ticks.Register(TaskAmbient, AmbientTask(w, src, hooks, ambientObs, logger))
	}
	return s
}

// Ticks returns the tick manager.
func (s *Simulation) Ticks() *TickManager { return s.ticks }

// Trails returns the trail registry.
func (s *Simulation) Trails() *TrailRegistry { return s.trails }

// Start begins ticking until ctx is cancelled.
func (s *Simulation) Start(ctx context.Context) {
	s.logger.Info("simulation started",
		zap.Duration("interval", s.ticks.interval),
		zap.Strings("tasks", s.ticks.Tasks()),
	)
	s.ticks.Start(ctx)
}
