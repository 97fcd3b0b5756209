package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func applyFilter(q *gorm.DB, filter db.BookingFilter) *gorm.DB {
	if filter.VolunteerID != "" {
		q = q.Where("volunteer_id = ?", filter.VolunteerID)
	}
	if filter.LocationID != "" {
		q = q.Where("location_id = ?", filter.LocationID)
	}
	if filter.SlotID != "" {
		q = q.Where("slot_id = ?", filter.SlotID)
	}
	if filter.Date != "" {
		q = q.Where("date = ?", filter.Date)
	}
	if filter.FromDate != "" {
		q = q.Where("date >= ?", filter.FromDate)
	}
	if filter.ToDate != "" {
		q = q.Where("date <= ?", filter.ToDate)
	}
	if filter.ActiveOnly {
		q = q.Where("status IN ?", []string{string(model.StatusAssigned), string(model.StatusCheckedIn)})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where("status IN ?", statuses)
	}
	return q.Order("seq")
}

// FindBookings retrieves bookings matching the filter in persisted order
func (s *Store) FindBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error) {
	var records []bookingRecord
	if err := applyFilter(s.db.WithContext(ctx), filter).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	bookings := make([]model.Booking, len(records))
	for i, r := range records {
		bookings[i] = r.toModel()
	}
	return bookings, nil
}

// LoadAll retrieves every booking in persisted order
func (s *Store) LoadAll(ctx context.Context) ([]model.Booking, error) {
	return s.FindBookings(ctx, db.BookingFilter{})
}

// GetBooking retrieves a booking by ID
func (s *Store) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	var r bookingRecord
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "booking "+id)
	}
	b := r.toModel()
	return &b, nil
}

// InsertBooking appends a booking
func (s *Store) InsertBooking(ctx context.Context, booking model.Booking) error {
	r := toBookingRecord(booking)
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// UpdateBooking rewrites a booking in place, keeping its position
func (s *Store) UpdateBooking(ctx context.Context, booking model.Booking) error {
	r := toBookingRecord(booking)
	res := s.db.WithContext(ctx).Model(&bookingRecord{}).Where("id = ?", booking.ID).Updates(map[string]any{
		"volunteer_id":  r.VolunteerID,
		"location_id":   r.LocationID,
		"slot_id":       r.SlotID,
		"slot_label":    r.SlotLabel,
		"date":          r.Date,
		"start_hour":    r.StartHour,
		"end_hour":      r.EndHour,
		"status":        r.Status,
		"forced":        r.Forced,
		"checked_in_at": r.CheckedInAt,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("booking %s: %w", booking.ID, db.ErrNotFound)
	}
	return nil
}

// DeleteBooking removes a booking
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&bookingRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("booking %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// ReplaceAll swaps the full booking set in one transaction, preserving the given order
func (s *Store) ReplaceAll(ctx context.Context, bookings []model.Booking) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&bookingRecord{}).Error; err != nil {
			return err
		}
		for _, b := range bookings {
			r := toBookingRecord(b)
			if err := tx.Create(&r).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace bookings: %w", err)
	}
	return nil
}
