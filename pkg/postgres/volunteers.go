package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

var volunteerColumns = []string{"id", "first_name", "last_name", "display_name", "email", "aliases", "status"}

// GetVolunteer retrieves one volunteer
func (d *DB) GetVolunteer(ctx context.Context, id string) (*model.Volunteer, error) {
	query, args, err := psql.Select(volunteerColumns...).From("volunteer").Where("id = ?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build volunteer query: %w", err)
	}

	var v model.Volunteer
	err = d.pool.QueryRow(ctx, query, args...).Scan(&v.ID, &v.FirstName, &v.LastName, &v.DisplayName, &v.Email, &v.Aliases, &v.Status)
	if err != nil {
		return nil, notFound(err, "volunteer "+id)
	}
	return &v, nil
}

// ListVolunteers retrieves all volunteers ordered by name
func (d *DB) ListVolunteers(ctx context.Context) ([]model.Volunteer, error) {
	query, args, err := psql.Select(volunteerColumns...).From("volunteer").OrderBy("first_name", "last_name").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build volunteers query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteers: %w", err)
	}
	defer rows.Close()

	var volunteers []model.Volunteer
	for rows.Next() {
		var v model.Volunteer
		if err := rows.Scan(&v.ID, &v.FirstName, &v.LastName, &v.DisplayName, &v.Email, &v.Aliases, &v.Status); err != nil {
			return nil, fmt.Errorf("failed to scan volunteer: %w", err)
		}
		volunteers = append(volunteers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating volunteers: %w", err)
	}
	return volunteers, nil
}

// SaveVolunteer inserts or updates a volunteer
func (d *DB) SaveVolunteer(ctx context.Context, v model.Volunteer) error {
	aliases := v.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	query, args, err := psql.Insert("volunteer").
		Columns(volunteerColumns...).
		Values(v.ID, v.FirstName, v.LastName, v.DisplayName, v.Email, aliases, v.Status).
		Suffix(`ON CONFLICT (id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
			display_name = EXCLUDED.display_name, email = EXCLUDED.email, aliases = EXCLUDED.aliases, status = EXCLUDED.status`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build volunteer upsert: %w", err)
	}

	if _, err := d.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save volunteer: %w", err)
	}
	return nil
}
