package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/mudworld/internal/game/world"
	"github.com/cory-johannsen/mudworld/internal/storage/postgres"
)

// stateStore moves world state between a sealed world and the database.
type stateStore struct {
	weather   *postgres.WeatherRepository
	overrides *postgres.OverrideRepository
	logger    *zap.Logger
}

func newStateStore(db *pgxpool.Pool, logger *zap.Logger) *stateStore {
	return &stateStore{
		weather:   postgres.NewWeatherRepository(db),
		overrides: postgres.NewOverrideRepository(db),
		logger:    logger,
	}
}

// restoreOverrides applies persisted overrides of grids the content still
// defines. Overrides of removed grids are skipped.
func (s *stateStore) restoreOverrides(ctx context.Context, w *world.World) error {
	recs, err := s.overrides.LoadAll(ctx)
	if err != nil {
		return err
	}
	var live []world.OverrideRecord
	for _, rec := range recs {
		if _, ok := w.Grid(rec.Grid); !ok {
			s.logger.Warn("skipping override of unknown grid", zap.String("grid", rec.Grid))
			continue
		}
		live = append(live, rec)
	}
	n, err := w.RestoreOverrides(live)
	if err != nil {
		return err
	}
	s.logger.Info("grid overrides restored", zap.Int("added", n), zap.Int("persisted", len(recs)))
	return nil
}

// restoreWeather loads persisted weather into every area that owns weather.
// Missing or incompatible snapshots leave the area's fresh weather in place.
func (s *stateStore) restoreWeather(ctx context.Context, w *world.World) {
	for _, a := range w.Areas() {
		wx, ok := a.OwnWeather()
		if !ok {
			continue
		}
		err := s.weather.Restore(ctx, a.Name(), wx)
		switch {
		case err == nil:
			s.logger.Debug("weather restored", zap.String("area", a.Name()))
		case errors.Is(err, postgres.ErrWeatherNotFound):
			s.logger.Debug("no persisted weather", zap.String("area", a.Name()))
		default:
			s.logger.Warn("discarding persisted weather",
				zap.String("area", a.Name()),
				zap.Error(err),
			)
		}
	}
}

// save persists every area's weather and every grid's overrides.
func (s *stateStore) save(ctx context.Context, w *world.World) error {
	var errs []error
	for _, a := range w.Areas() {
		wx, ok := a.OwnWeather()
		if !ok {
			continue
		}
		if err := s.weather.Save(ctx, a.Name(), wx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, g := range w.Grids() {
		recs, err := w.OverrideRecords(g.Name())
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.overrides.Save(ctx, g.Name(), recs); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("persisting world state: %w", err)
	}
	s.logger.Info("world state persisted")
	return nil
}
