package export

import (
	"context"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func seed(t *testing.T) *db.MemoryDB {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryDB()
	store.AddVolunteers(model.Volunteer{ID: "v1", FirstName: "Ana", LastName: "Lopez"})
	require.NoError(t, store.SaveLocation(ctx, model.Location{ID: "hall-a", Name: "Hall A", Address: "1 High St", Capacity: 2}))

	for _, b := range []model.Booking{
		{ID: "b1", VolunteerID: "v1", LocationID: "hall-a", SlotID: "slot-06-08", SlotLabel: "Early", Date: "2024-06-03", StartHour: 6, EndHour: 8, Status: model.StatusAssigned},
		{ID: "b2", VolunteerID: "v1", LocationID: "hall-a", SlotID: "slot-08-10", Date: "2024-06-04", StartHour: 8, EndHour: 10, Status: model.StatusCancelled},
		{ID: "b3", VolunteerID: "v2", LocationID: "hall-a", SlotID: "slot-06-08", Date: "2024-06-03", StartHour: 6, EndHour: 8, Status: model.StatusAssigned},
	} {
		require.NoError(t, store.InsertBooking(ctx, b))
	}
	return store
}

func TestVolunteerCalendar(t *testing.T) {
	store := seed(t)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	out, err := VolunteerCalendar(context.Background(), store, zap.NewNop(), "v1", "", "", time.UTC, now)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)
	event := events[0]
	assert.Equal(t, "b1@volunteer-booking", event.Id())
	assert.Equal(t, "Volunteering at Hall A: Early", event.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "1 High St", event.GetProperty(ical.ComponentPropertyLocation).Value)

	start, err := event.GetStartAt()
	require.NoError(t, err)
	end, err := event.GetEndAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2*time.Hour, end.Sub(start))
}

func TestVolunteerCalendar_UnknownVolunteer(t *testing.T) {
	store := seed(t)

	_, err := VolunteerCalendar(context.Background(), store, zap.NewNop(), "ghost", "", "", time.UTC, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestBuildCalendar_UsesZone(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	bookings := []model.Booking{
		{ID: "b1", VolunteerID: "v1", LocationID: "elsewhere", Date: "2024-06-03", StartHour: 9, EndHour: 12, Status: model.StatusAssigned},
	}

	cal, err := BuildCalendar(bookings, nil, london, time.Now())
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 1)
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	// 09:00 BST is 08:00 UTC
	assert.True(t, start.Equal(time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Volunteering at elsewhere", events[0].GetProperty(ical.ComponentPropertySummary).Value)
}
