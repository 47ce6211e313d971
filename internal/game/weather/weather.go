// Package weather simulates per-area weather as a bounded random walk over
// temperature, precipitation and wind.
package weather

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cory-johannsen/mudworld/internal/game/dice"
)

// Level is a position on a component's five-level scale.
type Level int

// Scale limits.
const (
	MinLevel Level = 0
	MaxLevel Level = 4
)

// Frozen is the temperature level at which precipitation accumulates as snow.
const Frozen Level = 0

var (
	// ErrNoWeather is returned when the sentinel None is randomized or restored.
	ErrNoWeather = errors.New("area has no weather")
	// ErrBounds is returned for configuration or samples outside the scale.
	ErrBounds = errors.New("weather level out of bounds")
)

var (
	temperatureTiers   = [...]string{"frozen", "cold", "mild", "warm", "hot"}
	precipitationTiers = [...]string{"clear", "cloudy", "light", "heavy", "storm"}
	windTiers          = [...]string{"calm", "breezy", "windy", "gusty", "gale"}
)

// Bounds is the inclusive range a component may wander within.
type Bounds struct {
	Min Level `yaml:"min" mapstructure:"min"`
	Max Level `yaml:"max" mapstructure:"max"`
}

func (b Bounds) validate(name string) error {
	if b.Min < MinLevel || b.Max > MaxLevel || b.Min > b.Max {
		return fmt.Errorf("%s bounds [%d,%d]: %w", name, b.Min, b.Max, ErrBounds)
	}
	return nil
}

func (b Bounds) clamp(l Level) Level {
	return max(b.Min, min(b.Max, l))
}

func (b Bounds) contains(l Level) bool {
	return l >= b.Min && l <= b.Max
}

// Config bounds each component and the history length.
type Config struct {
	Temperature   Bounds `yaml:"temperature"`
	Precipitation Bounds `yaml:"precipitation"`
	Wind          Bounds `yaml:"wind"`
	// History is the maximum number of retained samples, current included.
	History int `yaml:"history"`
}

// Validate checks that every bound lies on the scale and History >= 1.
func (c Config) Validate() error {
	var errs []string
	for _, e := range []error{
		c.Temperature.validate("temperature"),
		c.Precipitation.validate("precipitation"),
		c.Wind.validate("wind"),
	} {
		if e != nil {
			errs = append(errs, e.Error())
		}
	}
	if c.History < 1 {
		errs = append(errs, fmt.Sprintf("history must be >= 1, got %d", c.History))
	}
	if len(errs) > 0 {
		return fmt.Errorf("weather config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Sample is one observation of all three components.
type Sample struct {
	Temperature   Level
	Precipitation Level
	Wind          Level
}

// Weather is an area's weather state.
//
// Invariant: every retained sample lies within the configured bounds;
// len(history) is in [1, cfg.History]; snow >= 0.
type Weather struct {
	mu      sync.Mutex
	cfg     Config
	src     dice.Source
	history []Sample // most recent first
	snow    int
	none    bool
}

// None is the sentinel used by areas without weather. It is never frozen and
// cannot be randomized.
var None = &Weather{none: true}

// New returns weather starting at the configured minimums.
//
// Precondition: src must be non-nil.
// Postcondition: Returns weather with a single history entry, or a config error.
func New(cfg Config, src dice.Source) (*Weather, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	w := &Weather{
		cfg: cfg,
		src: src,
		history: []Sample{{
			Temperature:   cfg.Temperature.Min,
			Precipitation: cfg.Precipitation.Min,
			Wind:          cfg.Wind.Min,
		}},
	}
	w.snow = snowDepth(w.history)
	return w, nil
}

// IsNone reports whether w is the no-weather sentinel.
func (w *Weather) IsNone() bool { return w.none }

// Config returns the bounds configuration.
func (w *Weather) Config() Config { return w.cfg }

// Randomize advances the walk one step: each component moves by -1, 0 or +1
// within its bounds, the new sample is pushed, history is trimmed and the
// snow depth recomputed.
//
// Postcondition: Returns ErrNoWeather for None.
func (w *Weather) Randomize() error {
	if w.none {
		return ErrNoWeather
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	cur := w.history[0]
	next := Sample{
		Temperature:   w.cfg.Temperature.clamp(cur.Temperature + Level(dice.Step(w.src))),
		Precipitation: w.cfg.Precipitation.clamp(cur.Precipitation + Level(dice.Step(w.src))),
		Wind:          w.cfg.Wind.clamp(cur.Wind + Level(dice.Step(w.src))),
	}
	w.history = append([]Sample{next}, w.history...)
	if len(w.history) > w.cfg.History {
		w.history = w.history[:w.cfg.History]
	}
	w.snow = snowDepth(w.history)
	return nil
}

// snowDepth sums, over the retained history, the precipitation level of
// frozen samples minus the temperature level of thawed ones, floored at zero.
// It is a heuristic, not a melt model.
func snowDepth(history []Sample) int {
	total := 0
	for _, s := range history {
		if s.Temperature == Frozen {
			total += int(s.Precipitation)
		} else {
			total -= int(s.Temperature)
		}
	}
	return max(0, total)
}

// Current returns the latest sample. None reports the zero sample.
func (w *Weather) Current() Sample {
	if w.none {
		return Sample{}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history[0]
}

// History returns a copy of the retained samples, most recent first.
func (w *Weather) History() []Sample {
	if w.none {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Sample, len(w.history))
	copy(out, w.history)
	return out
}

// Snow returns the cumulative snow depth.
func (w *Weather) Snow() int {
	if w.none {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snow
}

// IsFrozen reports whether the latest temperature is at the frozen level.
func (w *Weather) IsFrozen() bool {
	if w.none {
		return false
	}
	return w.Current().Temperature == Frozen
}

// Describe returns the compound description key "weather.<t>.<p>.<w>".
func (w *Weather) Describe() string {
	if w.none {
		return "weather.none"
	}
	s := w.Current()
	return "weather." + temperatureTiers[s.Temperature] + "." +
		precipitationTiers[s.Precipitation] + "." + windTiers[s.Wind]
}

// Restore replaces the history with a previously persisted one.
//
// Precondition: history is most recent first.
// Postcondition: Returns ErrNoWeather for None, or ErrBounds if history is
// empty, too long, or holds a sample outside the bounds; w is unchanged on error.
func (w *Weather) Restore(history []Sample) error {
	if w.none {
		return ErrNoWeather
	}
	if len(history) == 0 || len(history) > w.cfg.History {
		return fmt.Errorf("restoring %d samples with history %d: %w", len(history), w.cfg.History, ErrBounds)
	}
	for i, s := range history {
		if !w.cfg.Temperature.contains(s.Temperature) ||
			!w.cfg.Precipitation.contains(s.Precipitation) ||
			!w.cfg.Wind.contains(s.Wind) {
			return fmt.Errorf("restoring sample %d %+v: %w", i, s, ErrBounds)
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = append([]Sample(nil), history...)
	w.snow = snowDepth(w.history)
	return nil
}
