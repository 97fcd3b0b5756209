package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

var bookingColumns = []string{
	"id", "volunteer_id", "location_id", "slot_id", "slot_label", "booking_date",
	"start_hour", "end_hour", "status", "forced", "created_at", "checked_in_at",
}

// bookingQuery builds the select for a filter, in persisted order
func bookingQuery(filter db.BookingFilter) squirrel.SelectBuilder {
	q := psql.Select(bookingColumns...).From("booking")

	if filter.VolunteerID != "" {
		q = q.Where(squirrel.Eq{"volunteer_id": filter.VolunteerID})
	}
	if filter.LocationID != "" {
		q = q.Where(squirrel.Eq{"location_id": filter.LocationID})
	}
	if filter.SlotID != "" {
		q = q.Where(squirrel.Eq{"slot_id": filter.SlotID})
	}
	if filter.Date != "" {
		q = q.Where(squirrel.Eq{"booking_date": filter.Date})
	}
	if filter.FromDate != "" {
		q = q.Where(squirrel.GtOrEq{"booking_date": filter.FromDate})
	}
	if filter.ToDate != "" {
		q = q.Where(squirrel.LtOrEq{"booking_date": filter.ToDate})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"status": []string{string(model.StatusAssigned), string(model.StatusCheckedIn)}})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.Eq{"status": statuses})
	}

	return q.OrderBy("seq")
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	var checkedInAt *time.Time
	err := row.Scan(&b.ID, &b.VolunteerID, &b.LocationID, &b.SlotID, &b.SlotLabel, &b.Date,
		&b.StartHour, &b.EndHour, &status, &b.Forced, &b.CreatedAt, &checkedInAt)
	if err != nil {
		return b, err
	}
	b.Status = model.Status(status)
	b.CreatedAt = b.CreatedAt.UTC()
	if checkedInAt != nil {
		t := checkedInAt.UTC()
		b.CheckedInAt = &t
	}
	return b, nil
}

func bookingValues(b model.Booking) []interface{} {
	return []interface{}{
		b.ID, b.VolunteerID, b.LocationID, b.SlotID, b.SlotLabel, b.Date,
		b.StartHour, b.EndHour, string(b.Status), b.Forced, b.CreatedAt, b.CheckedInAt,
	}
}

// FindBookings retrieves bookings matching the filter in persisted order
func (d *DB) FindBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error) {
	query, args, err := bookingQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build bookings query: %w", err)
	}

	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}

// LoadAll retrieves every booking in persisted order
func (d *DB) LoadAll(ctx context.Context) ([]model.Booking, error) {
	return d.FindBookings(ctx, db.BookingFilter{})
}

// GetBooking retrieves one booking
func (d *DB) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).From("booking").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build booking query: %w", err)
	}

	b, err := scanBooking(d.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, notFound(err, "booking "+id)
	}
	return &b, nil
}

// InsertBooking appends a booking
func (d *DB) InsertBooking(ctx context.Context, b model.Booking) error {
	query, args, err := psql.Insert("booking").Columns(bookingColumns...).Values(bookingValues(b)...).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build booking insert: %w", err)
	}
	if _, err := d.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// UpdateBooking rewrites a booking in place, keeping its position
func (d *DB) UpdateBooking(ctx context.Context, b model.Booking) error {
	query, args, err := psql.Update("booking").
		Set("volunteer_id", b.VolunteerID).
		Set("location_id", b.LocationID).
		Set("slot_id", b.SlotID).
		Set("slot_label", b.SlotLabel).
		Set("booking_date", b.Date).
		Set("start_hour", b.StartHour).
		Set("end_hour", b.EndHour).
		Set("status", string(b.Status)).
		Set("forced", b.Forced).
		Set("checked_in_at", b.CheckedInAt).
		Where(squirrel.Eq{"id": b.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build booking update: %w", err)
	}

	tag, err := d.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", b.ID, db.ErrNotFound)
	}
	return nil
}

// DeleteBooking removes a booking
func (d *DB) DeleteBooking(ctx context.Context, id string) error {
	tag, err := d.pool.Exec(ctx, `DELETE FROM booking WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// ReplaceAll swaps the full booking set in one transaction, preserving the given order
func (d *DB) ReplaceAll(ctx context.Context, bookings []model.Booking) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM booking`); err != nil {
			return fmt.Errorf("failed to clear bookings: %w", err)
		}

		batch := &pgx.Batch{}
		for _, b := range bookings {
			query, args, err := psql.Insert("booking").Columns(bookingColumns...).Values(bookingValues(b)...).ToSql()
			if err != nil {
				return fmt.Errorf("failed to build booking insert: %w", err)
			}
			batch.Queue(query, args...)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert bookings: %w", err)
		}
		return nil
	})
}
