package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// GetSlots retrieves the custom catalog of a location. ok is false when the
// location uses the defaults.
func (d *DB) GetSlots(ctx context.Context, locationID string) ([]model.TimeSlot, bool, error) {
	var custom bool
	err := d.pool.QueryRow(ctx, `SELECT custom_slots FROM location WHERE id = $1`, locationID).Scan(&custom)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to query location slots flag: %w", err)
	}
	if !custom {
		return nil, false, nil
	}

	query, args, err := psql.
		Select("id", "label", "start_hour", "end_hour", "min_volunteers", "max_volunteers").
		From("slot").
		Where("location_id = ?", locationID).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("failed to build slots query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query slots: %w", err)
	}
	defer rows.Close()

	slots := []model.TimeSlot{}
	for rows.Next() {
		var s model.TimeSlot
		if err := rows.Scan(&s.ID, &s.Label, &s.StartHour, &s.EndHour, &s.MinVolunteers, &s.MaxVolunteers); err != nil {
			return nil, false, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating slots: %w", err)
	}
	return slots, true, nil
}

// SaveSlots replaces the custom catalog of a location
func (d *DB) SaveSlots(ctx context.Context, locationID string, slots []model.TimeSlot) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := setCustomSlots(ctx, tx, locationID, true); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM slot WHERE location_id = $1`, locationID); err != nil {
			return fmt.Errorf("failed to clear slots: %w", err)
		}
		if len(slots) == 0 {
			return nil
		}

		insert := psql.Insert("slot").
			Columns("location_id", "id", "position", "label", "start_hour", "end_hour", "min_volunteers", "max_volunteers")
		for i, s := range slots {
			insert = insert.Values(locationID, s.ID, i, s.Label, s.StartHour, s.EndHour, s.MinVolunteers, s.MaxVolunteers)
		}
		query, args, err := insert.ToSql()
		if err != nil {
			return fmt.Errorf("failed to build slot insert: %w", err)
		}
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert slots: %w", err)
		}
		return nil
	})
}

// DeleteSlots returns a location to the default catalog
func (d *DB) DeleteSlots(ctx context.Context, locationID string) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if err := setCustomSlots(ctx, tx, locationID, false); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM slot WHERE location_id = $1`, locationID); err != nil {
			return fmt.Errorf("failed to delete slots: %w", err)
		}
		return nil
	})
}

func setCustomSlots(ctx context.Context, tx pgx.Tx, locationID string, custom bool) error {
	tag, err := tx.Exec(ctx, `UPDATE location SET custom_slots = $2 WHERE id = $1`, locationID, custom)
	if err != nil {
		return fmt.Errorf("failed to update location slots flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %s: %w", locationID, db.ErrNotFound)
	}
	return nil
}
