package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/mudworld/internal/game/weather"
)

// ErrWeatherNotFound is returned when an area has no persisted weather.
var ErrWeatherNotFound = errors.New("weather not found")

// ErrBoundsChanged is returned when persisted bounds differ from the
// configured ones, so the history cannot be restored as-is.
var ErrBoundsChanged = errors.New("persisted weather bounds differ from configuration")

// WeatherSnapshot is the persisted state of one area's weather.
type WeatherSnapshot struct {
	Area    string
	Config  weather.Config
	History []weather.Sample // most recent first
}

// WeatherRepository persists area weather bounds and history.
type WeatherRepository struct {
	db *pgxpool.Pool
}

// NewWeatherRepository creates a WeatherRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewWeatherRepository(db *pgxpool.Pool) *WeatherRepository {
	return &WeatherRepository{db: db}
}

// Save replaces the persisted bounds and history of area with w's.
//
// Precondition: w must not be weather.None.
// Postcondition: The snapshot is written atomically.
func (r *WeatherRepository) Save(ctx context.Context, area string, w *weather.Weather) error {
	if w.IsNone() {
		return fmt.Errorf("saving weather for %q: %w", area, weather.ErrNoWeather)
	}
	cfg := w.Config()
	history := w.History()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning weather save for %q: %w", area, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO area_weather
		   (area, temperature_min, temperature_max, precipitation_min, precipitation_max,
		    wind_min, wind_max, history, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		 ON CONFLICT (area) DO UPDATE SET
		   temperature_min = EXCLUDED.temperature_min,
		   temperature_max = EXCLUDED.temperature_max,
		   precipitation_min = EXCLUDED.precipitation_min,
		   precipitation_max = EXCLUDED.precipitation_max,
		   wind_min = EXCLUDED.wind_min,
		   wind_max = EXCLUDED.wind_max,
		   history = EXCLUDED.history,
		   updated_at = NOW()`,
		area,
		int16(cfg.Temperature.Min), int16(cfg.Temperature.Max),
		int16(cfg.Precipitation.Min), int16(cfg.Precipitation.Max),
		int16(cfg.Wind.Min), int16(cfg.Wind.Max),
		cfg.History,
	)
	if err != nil {
		return fmt.Errorf("saving weather bounds for %q: %w", area, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM weather_samples WHERE area = $1`, area); err != nil {
		return fmt.Errorf("clearing weather history for %q: %w", area, err)
	}

	rows := make([][]any, len(history))
	for i, s := range history {
		rows[i] = []any{area, int32(i), int16(s.Temperature), int16(s.Precipitation), int16(s.Wind)}
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"weather_samples"},
		[]string{"area", "seq", "temperature", "precipitation", "wind"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("saving weather history for %q: %w", area, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing weather save for %q: %w", area, err)
	}
	return nil
}

// Load returns the persisted snapshot of area.
//
// Postcondition: Returns ErrWeatherNotFound if nothing is persisted.
func (r *WeatherRepository) Load(ctx context.Context, area string) (WeatherSnapshot, error) {
	snap := WeatherSnapshot{Area: area}
	var tMin, tMax, pMin, pMax, wMin, wMax int16
	err := r.db.QueryRow(ctx,
		`SELECT temperature_min, temperature_max, precipitation_min, precipitation_max,
		        wind_min, wind_max, history
		 FROM area_weather WHERE area = $1`,
		area,
	).Scan(&tMin, &tMax, &pMin, &pMax, &wMin, &wMax, &snap.Config.History)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WeatherSnapshot{}, ErrWeatherNotFound
		}
		return WeatherSnapshot{}, fmt.Errorf("loading weather bounds for %q: %w", area, err)
	}
	snap.Config.Temperature = weather.Bounds{Min: weather.Level(tMin), Max: weather.Level(tMax)}
	snap.Config.Precipitation = weather.Bounds{Min: weather.Level(pMin), Max: weather.Level(pMax)}
	snap.Config.Wind = weather.Bounds{Min: weather.Level(wMin), Max: weather.Level(wMax)}

	rows, err := r.db.Query(ctx,
		`SELECT temperature, precipitation, wind
		 FROM weather_samples WHERE area = $1 ORDER BY seq`,
		area,
	)
	if err != nil {
		return WeatherSnapshot{}, fmt.Errorf("loading weather history for %q: %w", area, err)
	}
	defer rows.Close()

	for rows.Next() {
		var t, p, w int16
		if err := rows.Scan(&t, &p, &w); err != nil {
			return WeatherSnapshot{}, fmt.Errorf("scanning weather sample for %q: %w", area, err)
		}
		snap.History = append(snap.History, weather.Sample{
			Temperature:   weather.Level(t),
			Precipitation: weather.Level(p),
			Wind:          weather.Level(w),
		})
	}
	if err := rows.Err(); err != nil {
		return WeatherSnapshot{}, fmt.Errorf("iterating weather history for %q: %w", area, err)
	}
	return snap, nil
}

// Restore loads the persisted history of area into w.
//
// Postcondition: Returns ErrWeatherNotFound if nothing is persisted,
// ErrBoundsChanged if the persisted bounds differ from w's configuration,
// or weather.ErrBounds if a sample no longer fits; w is unchanged on error.
func (r *WeatherRepository) Restore(ctx context.Context, area string, w *weather.Weather) error {
	snap, err := r.Load(ctx, area)
	if err != nil {
		return err
	}
	if snap.Config != w.Config() {
		return fmt.Errorf("restoring weather for %q: %w", area, ErrBoundsChanged)
	}
	if err := w.Restore(snap.History); err != nil {
		return fmt.Errorf("restoring weather for %q: %w", area, err)
	}
	return nil
}

// Areas returns the names of every area with persisted weather, sorted.
func (r *WeatherRepository) Areas(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT area FROM area_weather ORDER BY area`)
	if err != nil {
		return nil, fmt.Errorf("listing weather areas: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing weather areas: %w", err)
	}
	return names, nil
}
