package booking

import (
	"context"
	"time"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// ChangeKind names the mutation behind a ChangeEvent
type ChangeKind string

const (
	ChangeBooked    ChangeKind = "booked"
	ChangeCancelled ChangeKind = "cancelled"
	ChangeCheckedIn ChangeKind = "checked-in"
	ChangeNoShow    ChangeKind = "no-show"
	ChangeRemoved   ChangeKind = "removed"
)

// ChangeEvent is emitted after every successful mutation. LocationID, Date and
// SlotID let report and calendar consumers refresh only the affected view.
type ChangeEvent struct {
	Kind        ChangeKind   `json:"kind"`
	BookingID   string       `json:"bookingId"`
	VolunteerID string       `json:"volunteerId"`
	LocationID  string       `json:"locationId"`
	Date        string       `json:"date"`
	SlotID      string       `json:"slotId"`
	SlotLabel   string       `json:"slotLabel,omitempty"`
	Status      model.Status `json:"status,omitempty"`
	Actor       string       `json:"actor"`
	At          time.Time    `json:"at"`
}

// Notifier receives change events. Errors are logged by the engine and never
// undo the mutation that produced the event.
type Notifier interface {
	Notify(ctx context.Context, event ChangeEvent) error
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(ctx context.Context, event ChangeEvent) error

func (f NotifierFunc) Notify(ctx context.Context, event ChangeEvent) error {
	return f(ctx, event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, ChangeEvent) error { return nil }

func newChangeEvent(kind ChangeKind, b model.Booking, actor model.Actor, at time.Time) ChangeEvent {
	return ChangeEvent{
		Kind:        kind,
		BookingID:   b.ID,
		VolunteerID: b.VolunteerID,
		LocationID:  b.LocationID,
		Date:        b.Date,
		SlotID:      b.SlotID,
		SlotLabel:   b.SlotLabel,
		Status:      b.Status,
		Actor:       actor.String(),
		At:          at,
	}
}
