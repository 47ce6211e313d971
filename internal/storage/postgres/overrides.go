package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/mudworld/internal/game/world"
)

// OverrideRepository persists authored grid overrides.
type OverrideRepository struct {
	db *pgxpool.Pool
}

// NewOverrideRepository creates an OverrideRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewOverrideRepository(db *pgxpool.Pool) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Save replaces every persisted override of grid with recs.
//
// Precondition: every record's Grid must equal grid.
// Postcondition: The replacement is atomic.
func (r *OverrideRepository) Save(ctx context.Context, grid string, recs []world.OverrideRecord) error {
	for _, rec := range recs {
		if rec.Grid != grid {
			return fmt.Errorf("saving overrides for %q: record belongs to %q", grid, rec.Grid)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning override save for %q: %w", grid, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM grid_overrides WHERE grid = $1`, grid); err != nil {
		return fmt.Errorf("clearing overrides for %q: %w", grid, err)
	}

	batch := &pgx.Batch{}
	for _, rec := range recs {
		l := rec.Link
		batch.Queue(
			`INSERT INTO grid_overrides
			   (grid, x, y, direction, blocked,
			    link_kind, link_size, link_route, link_modifier, link_message,
			    link_severity, link_name, link_visibility, link_up, destination)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			rec.Grid, rec.Coord.X, rec.Coord.Y, int16(rec.Direction), rec.Blocked,
			int16(l.Kind), int16(l.Size), int16(l.Route), l.Modifier, l.Message,
			l.Severity, l.Name, l.Visibility, l.Up, rec.Destination,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("saving overrides for %q: %w", grid, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing override save for %q: %w", grid, err)
	}
	return nil
}

// Load returns the persisted overrides of grid ordered by row, column and
// direction.
func (r *OverrideRepository) Load(ctx context.Context, grid string) ([]world.OverrideRecord, error) {
	return r.query(ctx, `WHERE grid = $1`, grid)
}

// LoadAll returns every persisted override ordered by grid, row, column and
// direction.
func (r *OverrideRepository) LoadAll(ctx context.Context) ([]world.OverrideRecord, error) {
	return r.query(ctx, ``)
}

func (r *OverrideRepository) query(ctx context.Context, where string, args ...any) ([]world.OverrideRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT grid, x, y, direction, blocked,
		        link_kind, link_size, link_route, link_modifier, link_message,
		        link_severity, link_name, link_visibility, link_up, destination
		 FROM grid_overrides `+where+`
		 ORDER BY grid, y, x, direction`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("loading grid overrides: %w", err)
	}
	defer rows.Close()

	var out []world.OverrideRecord
	for rows.Next() {
		var (
			rec                    world.OverrideRecord
			dir, kind, size, route int16
		)
		if err := rows.Scan(
			&rec.Grid, &rec.Coord.X, &rec.Coord.Y, &dir, &rec.Blocked,
			&kind, &size, &route, &rec.Link.Modifier, &rec.Link.Message,
			&rec.Link.Severity, &rec.Link.Name, &rec.Link.Visibility, &rec.Link.Up, &rec.Destination,
		); err != nil {
			return nil, fmt.Errorf("scanning grid override: %w", err)
		}
		rec.Direction = world.Direction(dir)
		rec.Link.Kind = world.LinkKind(kind)
		rec.Link.Size = world.Size(size)
		rec.Link.Route = world.Route(route)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating grid overrides: %w", err)
	}
	return out, nil
}
