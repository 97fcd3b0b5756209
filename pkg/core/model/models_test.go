package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlotValidate(t *testing.T) {
	tests := []struct {
		name    string
		slot    TimeSlot
		wantErr string
	}{
		{name: "valid", slot: TimeSlot{ID: "s1", StartHour: 6, EndHour: 8}},
		{name: "full day", slot: TimeSlot{ID: "s1", StartHour: 0, EndHour: 24}},
		{name: "valid bounds", slot: TimeSlot{ID: "s1", StartHour: 6, EndHour: 8, MinVolunteers: 1, MaxVolunteers: 3}},
		{name: "max unset ignores min", slot: TimeSlot{ID: "s1", StartHour: 6, EndHour: 8, MinVolunteers: 4}},
		{name: "missing id", slot: TimeSlot{StartHour: 6, EndHour: 8}, wantErr: "id is required"},
		{name: "empty range", slot: TimeSlot{ID: "s1", StartHour: 8, EndHour: 8}, wantErr: "must be before"},
		{name: "reversed", slot: TimeSlot{ID: "s1", StartHour: 9, EndHour: 8}, wantErr: "must be before"},
		{name: "past midnight", slot: TimeSlot{ID: "s1", StartHour: 22, EndHour: 25}, wantErr: "within [0,24]"},
		{name: "negative", slot: TimeSlot{ID: "s1", StartHour: -1, EndHour: 2}, wantErr: "within [0,24]"},
		{name: "min above max", slot: TimeSlot{ID: "s1", StartHour: 6, EndHour: 8, MinVolunteers: 5, MaxVolunteers: 2}, wantErr: "exceeds max"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.slot.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	assert.True(t, Overlaps(6, 8, 7, 9))
	assert.True(t, Overlaps(7, 9, 6, 8))
	assert.True(t, Overlaps(6, 10, 7, 8))
	assert.False(t, Overlaps(6, 8, 8, 10), "adjacent slots share only a boundary")
	assert.False(t, Overlaps(8, 10, 6, 8))
	assert.False(t, Overlaps(6, 8, 12, 14))
}

func TestSlotStart(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	start, err := SlotStart("2025-07-01", 14, london)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 7, 1, 14, 0, 0, 0, london), start)

	_, err = SlotStart("01/07/2025", 14, london)
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, TerminalTransitions.Allows(StatusAssigned, StatusCheckedIn))
	assert.True(t, TerminalTransitions.Allows(StatusAssigned, StatusCancelled))
	assert.False(t, TerminalTransitions.Allows(StatusCheckedIn, StatusNoShow))
	assert.False(t, TerminalTransitions.Allows(StatusNoShow, StatusCheckedIn))
	assert.False(t, TerminalTransitions.Allows(StatusCancelled, StatusAssigned))

	assert.True(t, RevisableTransitions.Allows(StatusNoShow, StatusCheckedIn))
	assert.True(t, RevisableTransitions.Allows(StatusCheckedIn, StatusCheckedIn))
	assert.False(t, RevisableTransitions.Allows(StatusCancelled, StatusCheckedIn))
}

func TestStatusIsActive(t *testing.T) {
	assert.True(t, StatusAssigned.IsActive())
	assert.True(t, StatusCheckedIn.IsActive())
	assert.False(t, StatusNoShow.IsActive())
	assert.False(t, StatusCancelled.IsActive())
	assert.False(t, Status("booked").IsValid())
}

func TestActorOwns(t *testing.T) {
	b := Booking{VolunteerID: "v1"}
	assert.True(t, VolunteerActor("v1").Owns(b))
	assert.False(t, VolunteerActor("v2").Owns(b))
	assert.False(t, Admin().Owns(b))
	assert.False(t, VolunteerActor("").Owns(Booking{}))
}
