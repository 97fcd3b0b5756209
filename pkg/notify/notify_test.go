package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func testEvent(kind booking.ChangeKind) booking.ChangeEvent {
	return booking.ChangeEvent{
		Kind:        kind,
		BookingID:   "b1",
		VolunteerID: "v1",
		LocationID:  "hall-a",
		Date:        "2024-06-03",
		SlotID:      "slot-06-08",
		SlotLabel:   "06:00 - 08:00",
		Status:      model.StatusAssigned,
		Actor:       "admin",
		At:          time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisPublisher_Notify(t *testing.T) {
	client, mock := redismock.NewClientMock()
	event := testEvent(booking.ChangeBooked)

	payload, err := json.Marshal(event)
	require.NoError(t, err)
	mock.ExpectPublish("booking-changes", payload).SetVal(1)

	publisher := NewRedisPublisher(client, "booking-changes")
	require.NoError(t, publisher.Notify(context.Background(), event))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisPublisher_Error(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectPublish("booking-changes", `.*`).SetErr(assert.AnError)

	publisher := NewRedisPublisher(client, "booking-changes")
	err := publisher.Notify(context.Background(), testEvent(booking.ChangeCancelled))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to publish change event")
	assert.NoError(t, mock.ExpectationsWereMet())
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []booking.ChangeEvent
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, event booking.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMulti_CallsEveryNotifier(t *testing.T) {
	first := &recordingNotifier{err: errors.New("redis down")}
	second := &recordingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), testEvent(booking.ChangeBooked))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())

	assert.NoError(t, Multi{}.Notify(context.Background(), testEvent(booking.ChangeBooked)))
}

func TestAsync_DeliversQueuedEvents(t *testing.T) {
	inner := &recordingNotifier{}
	async := NewAsync(inner, 10, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	async.Start(ctx)

	for i := 0; i < 3; i++ {
		require.NoError(t, async.Notify(context.Background(), testEvent(booking.ChangeBooked)))
	}

	assert.Eventually(t, func() bool { return inner.count() == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	async.Wait()
}

func TestAsync_DrainsOnShutdown(t *testing.T) {
	inner := &recordingNotifier{}
	async := NewAsync(inner, 10, zap.NewNop())

	require.NoError(t, async.Notify(context.Background(), testEvent(booking.ChangeBooked)))
	require.NoError(t, async.Notify(context.Background(), testEvent(booking.ChangeCancelled)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	async.Run(ctx)

	assert.Equal(t, 2, inner.count())
}

func TestAsync_QueueFull(t *testing.T) {
	async := NewAsync(&recordingNotifier{}, 1, zap.NewNop())

	require.NoError(t, async.Notify(context.Background(), testEvent(booking.ChangeBooked)))
	assert.ErrorIs(t, async.Notify(context.Background(), testEvent(booking.ChangeBooked)), ErrQueueFull)
}

type sentEmail struct {
	to, subject, body string
}

type fakeSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeSender) SendEmail(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{to, subject, body})
	return nil
}

func newEmailFixture(t *testing.T) (*EmailNotifier, *fakeSender) {
	t.Helper()
	store := db.NewMemoryDB()
	store.AddVolunteers(
		model.Volunteer{ID: "v1", FirstName: "Ada", DisplayName: "Ada", Email: "ada@example.com"},
		model.Volunteer{ID: "v2", FirstName: "Bo"},
	)
	require.NoError(t, store.SaveLocation(context.Background(), model.Location{ID: "hall-a", Name: "Hall A", Capacity: 2}))

	sender := &fakeSender{}
	return NewEmailNotifier(sender, store, store, zap.NewNop()), sender
}

func TestEmailNotifier_Booked(t *testing.T) {
	notifier, sender := newEmailFixture(t)

	require.NoError(t, notifier.Notify(context.Background(), testEvent(booking.ChangeBooked)))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].to)
	assert.Equal(t, "Booking confirmed: Hall A on 2024-06-03", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "Hi Ada")
	assert.Contains(t, sender.sent[0].body, "06:00 - 08:00")
}

func TestEmailNotifier_SkipsOtherKindsAndMissingEmail(t *testing.T) {
	notifier, sender := newEmailFixture(t)

	require.NoError(t, notifier.Notify(context.Background(), testEvent(booking.ChangeCheckedIn)))

	event := testEvent(booking.ChangeCancelled)
	event.VolunteerID = "v2"
	require.NoError(t, notifier.Notify(context.Background(), event))

	assert.Empty(t, sender.sent)
}

func TestEmailNotifier_Errors(t *testing.T) {
	notifier, sender := newEmailFixture(t)

	event := testEvent(booking.ChangeBooked)
	event.VolunteerID = "ghost"
	assert.ErrorIs(t, notifier.Notify(context.Background(), event), db.ErrNotFound)

	sender.err = errors.New("quota exceeded")
	err := notifier.Notify(context.Background(), testEvent(booking.ChangeCancelled))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
