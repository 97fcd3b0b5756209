package booking

import (
	"context"
	"time"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// BookingsForSlot lists every booking in a location/date/slot, any status, in persisted order
func (e *Engine) BookingsForSlot(ctx context.Context, locationID, date, slotID string) ([]model.Booking, error) {
	bookings, err := e.bookings.FindBookings(ctx, db.BookingFilter{
		LocationID: locationID,
		Date:       date,
		SlotID:     slotID,
	})
	if err != nil {
		return nil, apperror.Persistence("load slot bookings", err)
	}
	return bookings, nil
}

// BookingsForVolunteer lists a volunteer's bookings. An empty date lists all dates.
func (e *Engine) BookingsForVolunteer(ctx context.Context, volunteerID, date string) ([]model.Booking, error) {
	bookings, err := e.bookings.FindBookings(ctx, db.BookingFilter{
		VolunteerID: volunteerID,
		Date:        date,
	})
	if err != nil {
		return nil, apperror.Persistence("load volunteer bookings", err)
	}
	return bookings, nil
}

// Find runs an arbitrary filter against the booking store
func (e *Engine) Find(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error) {
	bookings, err := e.bookings.FindBookings(ctx, filter)
	if err != nil {
		return nil, apperror.Persistence("find bookings", err)
	}
	return bookings, nil
}

// GetBooking loads one booking by id
func (e *Engine) GetBooking(ctx context.Context, bookingID string) (*model.Booking, error) {
	b, err := e.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, notFoundOr(err, "booking", bookingID, "load booking")
	}
	return b, nil
}

// Occupancy reports active bookings against the limit for a slot
func (e *Engine) Occupancy(ctx context.Context, locationID, date, slotID string) (*Occupancy, error) {
	return e.capacity.Occupancy(ctx, locationID, date, slotID)
}

// SlotDuration is the number of service hours a booking represents
func SlotDuration(b model.Booking) int {
	return b.Hours()
}

// Timezone returns the zone naive booking dates are interpreted in
func (e *Engine) Timezone() *time.Location {
	return e.opts.Timezone
}
