package services

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// BookingFinder is the read path reports need
type BookingFinder interface {
	FindBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error)
}

// ServiceHoursReport summarises a volunteer's bookings over a date range.
// Only checked-in bookings count toward Hours.
type ServiceHoursReport struct {
	VolunteerID string
	From        string
	To          string
	Hours       int
	CheckedIn   int
	NoShows     int
	Cancelled   int
	Upcoming    int
	ByLocation  map[string]int
}

// ServiceHours reports one volunteer's service hours between from and to inclusive.
// Empty bounds leave the range open.
func ServiceHours(ctx context.Context, store BookingFinder, logger *zap.Logger, volunteerID, from, to string) (*ServiceHoursReport, error) {
	if volunteerID == "" {
		return nil, fmt.Errorf("volunteer id is required")
	}
	reports, err := serviceHours(ctx, store, logger, db.BookingFilter{VolunteerID: volunteerID, FromDate: from, ToDate: to})
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return newServiceHoursReport(volunteerID, from, to), nil
	}
	return &reports[0], nil
}

// ServiceHoursByVolunteer reports every volunteer with bookings in the range,
// most hours first
func ServiceHoursByVolunteer(ctx context.Context, store BookingFinder, logger *zap.Logger, from, to string) ([]ServiceHoursReport, error) {
	return serviceHours(ctx, store, logger, db.BookingFilter{FromDate: from, ToDate: to})
}

func serviceHours(ctx context.Context, store BookingFinder, logger *zap.Logger, filter db.BookingFilter) ([]ServiceHoursReport, error) {
	logger.Debug("Calculating service hours",
		zap.String("volunteer_id", filter.VolunteerID),
		zap.String("from", filter.FromDate),
		zap.String("to", filter.ToDate))

	bookings, err := store.FindBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}

	byVolunteer := make(map[string]*ServiceHoursReport)
	for _, b := range bookings {
		report, ok := byVolunteer[b.VolunteerID]
		if !ok {
			report = newServiceHoursReport(b.VolunteerID, filter.FromDate, filter.ToDate)
			byVolunteer[b.VolunteerID] = report
		}
		switch b.Status {
		case model.StatusCheckedIn:
			hours := booking.SlotDuration(b)
			report.CheckedIn++
			report.Hours += hours
			report.ByLocation[b.LocationID] += hours
		case model.StatusNoShow:
			report.NoShows++
		case model.StatusCancelled:
			report.Cancelled++
		case model.StatusAssigned:
			report.Upcoming++
		}
	}

	reports := make([]ServiceHoursReport, 0, len(byVolunteer))
	for _, r := range byVolunteer {
		reports = append(reports, *r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].Hours != reports[j].Hours {
			return reports[i].Hours > reports[j].Hours
		}
		return reports[i].VolunteerID < reports[j].VolunteerID
	})

	logger.Debug("Service hours calculated", zap.Int("volunteers", len(reports)), zap.Int("bookings", len(bookings)))
	return reports, nil
}

func newServiceHoursReport(volunteerID, from, to string) *ServiceHoursReport {
	return &ServiceHoursReport{
		VolunteerID: volunteerID,
		From:        from,
		To:          to,
		ByLocation:  make(map[string]int),
	}
}
