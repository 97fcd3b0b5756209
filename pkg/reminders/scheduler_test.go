package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

type sentEmail struct {
	to      string
	subject string
}

type fakeGmail struct {
	sent []sentEmail
}

func (f *fakeGmail) SendEmail(to, subject, body string) error {
	f.sent = append(f.sent, sentEmail{to: to, subject: subject})
	return nil
}

func seedStore(t *testing.T) *db.MemoryDB {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemoryDB()
	store.AddVolunteers(model.Volunteer{ID: "v1", FirstName: "Ana", LastName: "Lopez", Email: "ana@example.com"})
	require.NoError(t, store.SaveLocation(ctx, model.Location{ID: "hall-a", Name: "Hall A", Capacity: 2}))
	require.NoError(t, store.InsertBooking(ctx, model.Booking{
		ID: "b1", VolunteerID: "v1", LocationID: "hall-a", SlotID: "slot-06-08",
		Date: "2024-06-04", StartHour: 6, EndHour: 8, Status: model.StatusAssigned,
	}))
	return store
}

func TestScheduler_RunOnceRemindsForTomorrow(t *testing.T) {
	store := seedStore(t)
	gmail := &fakeGmail{}
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	s := NewScheduler(store, gmail, london, zap.NewNop())
	// 23:30 UTC on the 2nd is already the 3rd in London during summer time
	s.now = func() time.Time { return time.Date(2024, 6, 2, 23, 30, 0, 0, time.UTC) }

	date, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-06-04", date)
	require.Len(t, gmail.sent, 1)
	assert.Equal(t, "ana@example.com", gmail.sent[0].to)
	assert.Contains(t, gmail.sent[0].subject, "2024-06-04")
}

func TestScheduler_RunOnceNothingBooked(t *testing.T) {
	store := seedStore(t)
	gmail := &fakeGmail{}

	s := NewScheduler(store, gmail, time.UTC, zap.NewNop())
	s.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }

	date, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-06-11", date)
	assert.Empty(t, gmail.sent)
}

func TestScheduler_Schedule(t *testing.T) {
	s := NewScheduler(db.NewMemoryDB(), &fakeGmail{}, time.UTC, zap.NewNop())

	require.NoError(t, s.Schedule(context.Background(), "0 18 * * *"))
	assert.Len(t, s.cron.Entries(), 1)

	err := s.Schedule(context.Background(), "not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule reminders")

	s.Start()
	s.Stop()
}
