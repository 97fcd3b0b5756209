package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// ReminderSent represents a volunteer who was successfully sent a reminder
type ReminderSent struct {
	VolunteerID   string
	VolunteerName string
	Email         string
	Bookings      int
}

// FailedEmail represents a reminder that could not be sent
type FailedEmail struct {
	VolunteerID   string
	VolunteerName string
	Email         string
	Error         string
}

// GmailClient defines the email operation reminders need
type GmailClient interface {
	SendEmail(to, subject, body string) error
}

// RemindersStore defines the database operations needed for sending reminders
type RemindersStore interface {
	FindBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error)
	ListVolunteers(ctx context.Context) ([]model.Volunteer, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
}

// SendBookingReminders emails every active volunteer with assigned bookings on
// date, one email per volunteer listing their slots
func SendBookingReminders(
	ctx context.Context,
	store RemindersStore,
	gmailClient GmailClient,
	logger *zap.Logger,
	date string,
) ([]ReminderSent, []FailedEmail, error) {
	logger.Debug("Starting sendBookingReminders", zap.String("date", date))

	bookings, err := store.FindBookings(ctx, db.BookingFilter{Date: date, Statuses: []model.Status{model.StatusAssigned}})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch bookings: %w", err)
	}
	if len(bookings) == 0 {
		logger.Info("No bookings need reminders", zap.String("date", date))
		return []ReminderSent{}, []FailedEmail{}, nil
	}

	allVolunteers, err := store.ListVolunteers(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch volunteers: %w", err)
	}
	activeVolunteers := filterActiveVolunteers(allVolunteers)
	logger.Debug("Active volunteers", zap.Strings("volunteer_ids", getVolunteerIDs(activeVolunteers)))
	volunteersByID := make(map[string]model.Volunteer)
	for _, vol := range activeVolunteers {
		volunteersByID[vol.ID] = vol
	}

	locations, err := store.ListLocations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch locations: %w", err)
	}
	locationNames := make(map[string]string)
	for _, l := range locations {
		locationNames[l.ID] = l.Name
	}

	byVolunteer := make(map[string][]model.Booking)
	for _, b := range bookings {
		if _, ok := volunteersByID[b.VolunteerID]; !ok {
			logger.Debug("Skipping booking of inactive or unknown volunteer",
				zap.String("booking_id", b.ID),
				zap.String("volunteer_id", b.VolunteerID))
			metrics.RecordReminder("skipped")
			continue
		}
		byVolunteer[b.VolunteerID] = append(byVolunteer[b.VolunteerID], b)
	}

	volunteerIDs := make([]string, 0, len(byVolunteer))
	for id := range byVolunteer {
		volunteerIDs = append(volunteerIDs, id)
	}
	sort.Strings(volunteerIDs)

	remindersSent := []ReminderSent{}
	failedEmails := []FailedEmail{}

	for _, id := range volunteerIDs {
		volunteer := volunteersByID[id]
		volunteerName := volunteer.FullName()
		subject, body := reminderEmail(volunteer, date, byVolunteer[id], locationNames)

		if volunteer.Email == "" {
			logger.Warn("Volunteer has no email address", zap.String("volunteer_id", id))
			failedEmails = append(failedEmails, FailedEmail{VolunteerID: id, VolunteerName: volunteerName, Error: "no email address"})
			metrics.RecordReminder("failed")
			continue
		}

		logger.Info("Sending reminder email",
			zap.String("volunteer_id", id),
			zap.String("email", volunteer.Email))

		if err := gmailClient.SendEmail(volunteer.Email, subject, body); err != nil {
			logger.Warn("Failed to send reminder email",
				zap.String("volunteer_id", id),
				zap.String("email", volunteer.Email),
				zap.Error(err))
			failedEmails = append(failedEmails, FailedEmail{
				VolunteerID:   id,
				VolunteerName: volunteerName,
				Email:         volunteer.Email,
				Error:         err.Error(),
			})
			metrics.RecordReminder("failed")
			continue
		}

		metrics.RecordReminder("sent")
		remindersSent = append(remindersSent, ReminderSent{
			VolunteerID:   id,
			VolunteerName: volunteerName,
			Email:         volunteer.Email,
			Bookings:      len(byVolunteer[id]),
		})
	}

	if len(volunteerIDs) > 0 && len(failedEmails) == len(volunteerIDs) {
		return nil, failedEmails, fmt.Errorf("all %d reminder email send attempts failed", len(failedEmails))
	}

	logger.Debug("Send booking reminders completed",
		zap.Int("reminders_sent", len(remindersSent)),
		zap.Int("reminders_failed", len(failedEmails)))

	return remindersSent, failedEmails, nil
}

func reminderEmail(volunteer model.Volunteer, date string, bookings []model.Booking, locationNames map[string]string) (string, string) {
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].StartHour < bookings[j].StartHour })

	var lines strings.Builder
	for _, b := range bookings {
		name := locationNames[b.LocationID]
		if name == "" {
			name = b.LocationID
		}
		fmt.Fprintf(&lines, "  - %02d:00-%02d:00 at %s\n", b.StartHour, b.EndHour, name)
	}

	subject := fmt.Sprintf("Reminder: your volunteering on %s", date)
	body := fmt.Sprintf("Hey %s\n\nThis is a reminder that you are booked to volunteer on %s:\n%s\nIf you can no longer make it, please cancel as early as you can.\n\nThanks\nThe volunteer team\n",
		volunteer.FirstName, date, lines.String())
	return subject, body
}
