package simulation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/world"
)

// WeatherObserver receives weather steps.
type WeatherObserver interface {
	WeatherUpdated(area string)
}

// AreaSource lists the areas a task walks each tick.
type AreaSource interface {
	Areas() []*world.Area
}

// WeatherTask returns a task that advances the weather of every area that
// owns weather by one random-walk step.
func WeatherTask(areas AreaSource, observer WeatherObserver, logger *zap.Logger) Task {
	return func(_ context.Context, _ time.Time) {
		for _, a := range areas.Areas() {
			w, ok := a.OwnWeather()
			if !ok {
				continue
			}
			if err := w.Randomize(); err != nil {
				logger.Warn("randomizing weather",
					zap.String("area", a.Name()),
					zap.Error(err),
				)
				continue
			}
			if observer != nil {
				observer.WeatherUpdated(a.Name())
			}
			logger.Debug("weather updated",
				zap.String("area", a.Name()),
				zap.String("weather", w.Describe()),
				zap.Int("snow", w.Snow()),
			)
		}
	}
}
