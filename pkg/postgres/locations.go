package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

var locationColumns = []string{"id", "name", "address", "capacity"}

// GetLocation retrieves one location
func (d *DB) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	query, args, err := psql.Select(locationColumns...).From("location").Where("id = ?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build location query: %w", err)
	}

	var l model.Location
	if err := d.pool.QueryRow(ctx, query, args...).Scan(&l.ID, &l.Name, &l.Address, &l.Capacity); err != nil {
		return nil, notFound(err, "location "+id)
	}
	return &l, nil
}

// ListLocations retrieves all locations ordered by name
func (d *DB) ListLocations(ctx context.Context) ([]model.Location, error) {
	query, args, err := psql.Select(locationColumns...).From("location").OrderBy("name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build locations query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.Capacity); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locations, nil
}

// SaveLocation inserts or updates a location
func (d *DB) SaveLocation(ctx context.Context, location model.Location) error {
	query, args, err := psql.Insert("location").
		Columns(locationColumns...).
		Values(location.ID, location.Name, location.Address, location.Capacity).
		Suffix("ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, address = EXCLUDED.address, capacity = EXCLUDED.capacity").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build location upsert: %w", err)
	}

	if _, err := d.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location; its custom slots cascade
func (d *DB) DeleteLocation(ctx context.Context, id string) error {
	query, args, err := psql.Delete("location").Where("id = ?", id).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build location delete: %w", err)
	}

	tag, err := d.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %s: %w", id, db.ErrNotFound)
	}
	return nil
}
