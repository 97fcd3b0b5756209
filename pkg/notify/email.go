package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// EmailSender sends one plain text email
type EmailSender interface {
	SendEmail(to, subject, body string) error
}

// EmailNotifier emails the volunteer when a booking is made or cancelled
type EmailNotifier struct {
	sender     EmailSender
	volunteers db.VolunteerDirectory
	locations  db.LocationDirectory
	logger     *zap.Logger
}

var _ booking.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(sender EmailSender, volunteers db.VolunteerDirectory, locations db.LocationDirectory, logger *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		sender:     sender,
		volunteers: volunteers,
		locations:  locations,
		logger:     logger,
	}
}

// Notify sends a confirmation or cancellation email. Other kinds are ignored,
// as are volunteers without an email address.
func (n *EmailNotifier) Notify(ctx context.Context, event booking.ChangeEvent) error {
	var verb string
	switch event.Kind {
	case booking.ChangeBooked:
		verb = "confirmed"
	case booking.ChangeCancelled:
		verb = "cancelled"
	default:
		return nil
	}

	volunteer, err := n.volunteers.GetVolunteer(ctx, event.VolunteerID)
	if err != nil {
		return fmt.Errorf("failed to load volunteer %s: %w", event.VolunteerID, err)
	}
	if strings.TrimSpace(volunteer.Email) == "" {
		n.logger.Debug("Volunteer has no email, skipping notification", zap.String("volunteer_id", volunteer.ID))
		return nil
	}

	locationName := event.LocationID
	if loc, err := n.locations.GetLocation(ctx, event.LocationID); err == nil {
		locationName = loc.Name
	}

	name := volunteer.DisplayName
	if name == "" {
		name = volunteer.FirstName
	}

	subject := fmt.Sprintf("Booking %s: %s on %s", verb, locationName, event.Date)
	body := fmt.Sprintf("Hi %s,\n\nYour booking at %s on %s (%s) has been %s.\n\nThanks,\nThe volunteer team\n",
		name, locationName, event.Date, slotText(event), verb)

	if err := n.sender.SendEmail(volunteer.Email, subject, body); err != nil {
		return fmt.Errorf("failed to email %s: %w", volunteer.ID, err)
	}

	n.logger.Debug("Sent booking email",
		zap.String("kind", string(event.Kind)),
		zap.String("booking_id", event.BookingID),
		zap.String("volunteer_id", volunteer.ID))
	return nil
}

func slotText(event booking.ChangeEvent) string {
	if event.SlotLabel != "" {
		return event.SlotLabel
	}
	return event.SlotID
}
