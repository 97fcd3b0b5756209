// Package export renders bookings for consumption outside the booking engine
package export

import (
	"context"
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

const productID = "-//volunteer-booking//bookings//EN"

// CalendarStore defines the lookups a volunteer calendar needs
type CalendarStore interface {
	GetVolunteer(ctx context.Context, id string) (*model.Volunteer, error)
	FindBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
}

// VolunteerCalendar builds an iCalendar feed of a volunteer's active bookings.
// from and to bound the booking dates and may be empty.
func VolunteerCalendar(
	ctx context.Context,
	store CalendarStore,
	logger *zap.Logger,
	volunteerID, from, to string,
	loc *time.Location,
	now time.Time,
) (string, error) {
	volunteer, err := store.GetVolunteer(ctx, volunteerID)
	if err != nil {
		return "", fmt.Errorf("failed to get volunteer %s: %w", volunteerID, err)
	}

	bookings, err := store.FindBookings(ctx, db.BookingFilter{
		VolunteerID: volunteerID,
		FromDate:    from,
		ToDate:      to,
		ActiveOnly:  true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch bookings: %w", err)
	}

	locations, err := store.ListLocations(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch locations: %w", err)
	}
	byID := make(map[string]model.Location, len(locations))
	for _, l := range locations {
		byID[l.ID] = l
	}

	cal, err := BuildCalendar(bookings, byID, loc, now)
	if err != nil {
		return "", err
	}
	cal.SetXWRCalName(fmt.Sprintf("Volunteering: %s", volunteer.FullName()))

	logger.Debug("Built volunteer calendar",
		zap.String("volunteer_id", volunteerID),
		zap.Int("events", len(bookings)))

	return cal.Serialize(), nil
}

// BuildCalendar turns bookings into VEVENTs, one per booking, keyed by booking id
func BuildCalendar(bookings []model.Booking, locations map[string]model.Location, loc *time.Location, now time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, b := range bookings {
		start, err := b.StartsAt(loc)
		if err != nil {
			return nil, fmt.Errorf("failed to compute start of booking %s: %w", b.ID, err)
		}
		end := start.Add(time.Duration(b.Hours()) * time.Hour)

		location, ok := locations[b.LocationID]
		if !ok {
			location = model.Location{ID: b.LocationID, Name: b.LocationID}
		}

		event := cal.AddEvent(b.ID + "@volunteer-booking")
		event.SetDtStampTime(now)
		if !b.CreatedAt.IsZero() {
			event.SetCreatedTime(b.CreatedAt)
		}
		event.SetStartAt(start)
		event.SetEndAt(end)
		event.SetSummary(summary(b, location))
		if location.Address != "" {
			event.SetLocation(location.Address)
		} else {
			event.SetLocation(location.Name)
		}
		event.SetDescription(fmt.Sprintf("Booking %s (%s)", b.ID, b.Status))
		event.SetStatus(ical.ObjectStatusConfirmed)
	}

	return cal, nil
}

func summary(b model.Booking, location model.Location) string {
	if b.SlotLabel != "" {
		return fmt.Sprintf("Volunteering at %s: %s", location.Name, b.SlotLabel)
	}
	return fmt.Sprintf("Volunteering at %s", location.Name)
}
