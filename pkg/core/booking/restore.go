package booking

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// RestoreBooking stores a booking carried over from another system, keeping its
// ID, status and hours. It holds the same locks as BookSlot and re-checks the
// slot rules for active bookings: a second active booking of the volunteer in
// the slot and a full slot are rejected, and an overlap with another active
// booking of the volunteer marks the booking Forced. No change notification
// is emitted.
func (e *Engine) RestoreBooking(ctx context.Context, b model.Booking, actor model.Actor) (result *model.Booking, err error) {
	defer func() { e.record("restore", err) }()

	if !actor.IsAdmin() {
		return nil, &apperror.NotPermittedError{Actor: actor, Operation: "restore bookings"}
	}
	if err := validateRestored(b); err != nil {
		return nil, err
	}

	logger := e.logger.With(
		zap.String("booking_id", b.ID),
		zap.String("volunteer_id", b.VolunteerID),
		zap.String("location_id", b.LocationID),
		zap.String("date", b.Date),
		zap.String("slot_id", b.SlotID))

	location, err := e.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		return nil, notFoundOr(err, "location", b.LocationID, "load location")
	}

	unlock, err := e.locker.Lock(ctx,
		BucketKey(b.LocationID, b.Date, b.SlotID),
		VolunteerDayKey(b.VolunteerID, b.Date))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	defer unlock()

	if _, err := e.bookings.GetBooking(ctx, b.ID); err == nil {
		return nil, apperror.NewValidation("id", "booking %s is already stored", b.ID)
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, apperror.Persistence("load booking", err)
	}

	b.Forced = false
	if b.IsActive() {
		sameSlot, err := e.bookings.FindBookings(ctx, db.BookingFilter{
			VolunteerID: b.VolunteerID,
			LocationID:  b.LocationID,
			SlotID:      b.SlotID,
			Date:        b.Date,
			ActiveOnly:  true,
		})
		if err != nil {
			return nil, apperror.Persistence("load volunteer bookings", err)
		}
		if len(sameSlot) > 0 {
			logger.Info("Volunteer already booked into slot", zap.String("existing_booking_id", sameSlot[0].ID))
			return nil, &apperror.AlreadyBookedError{Existing: sameSlot[0]}
		}

		slot, err := e.bookedSlot(ctx, b)
		if err != nil {
			return nil, err
		}
		conflict, err := e.conflicts.FindConflict(ctx, b.VolunteerID, b.Date, *slot, b.ID)
		if err != nil {
			return nil, err
		}
		if err := e.capacity.check(ctx, *location, *slot, b.Date); err != nil {
			logger.Info("Slot is full", zap.Error(err))
			return nil, err
		}
		b.Forced = conflict != nil
	}

	if err := e.bookings.InsertBooking(ctx, b); err != nil {
		return nil, apperror.Persistence("insert booking", err)
	}
	logger.Debug("Booking restored", zap.String("status", string(b.Status)), zap.Bool("forced", b.Forced))
	return &b, nil
}

// SlotLimit returns the occupancy limit that applies to b's slot
func (e *Engine) SlotLimit(ctx context.Context, b model.Booking) (limit int, unlimited bool, err error) {
	location, err := e.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		return 0, false, notFoundOr(err, "location", b.LocationID, "load location")
	}
	slot, err := e.bookedSlot(ctx, b)
	if err != nil {
		return 0, false, err
	}
	limit, unlimited = e.capacity.Limit(*location, *slot)
	return limit, unlimited, nil
}

// bookedSlot resolves b's slot from the catalog, falling back to the booked
// hours when the slot is not (or no longer) in the catalog
func (e *Engine) bookedSlot(ctx context.Context, b model.Booking) (*model.TimeSlot, error) {
	slot, err := e.catalog.FindSlot(ctx, b.LocationID, b.SlotID)
	if err != nil {
		if !errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		return &model.TimeSlot{ID: b.SlotID, Label: b.SlotLabel, StartHour: b.StartHour, EndHour: b.EndHour}, nil
	}
	return slot, nil
}

func validateRestored(b model.Booking) error {
	switch {
	case b.ID == "":
		return apperror.NewValidation("id", "is required")
	case b.VolunteerID == "":
		return apperror.NewValidation("volunteerID", "is required")
	case b.LocationID == "":
		return apperror.NewValidation("locationID", "is required")
	case !b.Status.IsValid():
		return apperror.NewValidation("status", "unknown status %q", b.Status)
	}
	if _, err := model.ParseDate(b.Date); err != nil {
		return apperror.NewValidation("date", "%v", err)
	}
	slot := model.TimeSlot{ID: b.SlotID, StartHour: b.StartHour, EndHour: b.EndHour}
	if err := slot.Validate(); err != nil {
		return apperror.NewValidation("slotID", "%v", err)
	}
	return nil
}
