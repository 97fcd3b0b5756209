package booking

import (
	"context"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// ConflictDetector finds a volunteer's active bookings that overlap a candidate slot
type ConflictDetector struct {
	bookings db.BookingStore
}

func NewConflictDetector(bookings db.BookingStore) *ConflictDetector {
	return &ConflictDetector{bookings: bookings}
}

// FindConflict returns the first active booking of the volunteer on date
// whose hours overlap candidate, or nil. excludeBookingID may be empty.
func (d *ConflictDetector) FindConflict(ctx context.Context, volunteerID, date string, candidate model.TimeSlot, excludeBookingID string) (*model.Booking, error) {
	existing, err := d.bookings.FindBookings(ctx, db.BookingFilter{
		VolunteerID: volunteerID,
		Date:        date,
		ActiveOnly:  true,
	})
	if err != nil {
		return nil, apperror.Persistence("load volunteer bookings", err)
	}
	return FirstOverlap(existing, candidate.StartHour, candidate.EndHour, excludeBookingID), nil
}

// FirstOverlap scans bookings in order and returns the first active one whose
// [StartHour, EndHour) intersects [start, end)
func FirstOverlap(bookings []model.Booking, start, end int, excludeBookingID string) *model.Booking {
	for _, b := range bookings {
		if !b.IsActive() || (excludeBookingID != "" && b.ID == excludeBookingID) {
			continue
		}
		if model.Overlaps(start, end, b.StartHour, b.EndHour) {
			found := b
			return &found
		}
	}
	return nil
}
