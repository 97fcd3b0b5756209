package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/internal/config"
	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/core/schedule"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func newTestApp(t *testing.T) (*AppContext, *db.MemoryDB) {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	store := db.NewMemoryDB()
	require.NoError(t, store.SaveLocation(ctx, model.Location{ID: "hall-a", Name: "Hall A", Capacity: 2}))
	require.NoError(t, store.SaveLocation(ctx, model.Location{ID: "hall-b", Name: "Hall B", Capacity: 2}))
	store.AddVolunteers(
		model.Volunteer{ID: "v1", FirstName: "Ana", LastName: "Lopez"},
		model.Volunteer{ID: "v2", FirstName: "Ben", LastName: "Okafor"},
	)

	catalog := schedule.NewCatalog(store, store, logger)
	require.NoError(t, catalog.SetSlots(ctx, "hall-b", []model.TimeSlot{
		{ID: "slot-07-09", Label: "07:00 - 09:00", StartHour: 7, EndHour: 9},
	}))

	app := &AppContext{
		Cfg:      &config.Config{Timezone: "UTC"},
		Logger:   logger,
		Ctx:      ctx,
		Database: store,
		Catalog:  catalog,
		Engine: booking.NewEngine(booking.Dependencies{
			Locations:  store,
			Volunteers: store,
			Bookings:   store,
			Catalog:    catalog,
			Logger:     logger,
		}, booking.DefaultOptions()),
	}
	return app, store
}

func run(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func TestBookCmd(t *testing.T) {
	app, store := newTestApp(t)

	out, err := run(t, BookCmd(app), "", "v1", "hall-a", "2030-06-03", "slot-06-08")
	require.NoError(t, err)
	assert.Contains(t, out, "Booked!")

	bookings, err := store.FindBookings(context.Background(), db.BookingFilter{VolunteerID: "v1"})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, 6, bookings[0].StartHour)
}

func TestBookCmd_DoubleBookingPrompt(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		expected int
		output   string
	}{
		{"declined", "n\n", 1, "Booking not made."},
		{"no answer", "", 1, "Booking not made."},
		{"accepted", "y\n", 2, "Booked!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, store := newTestApp(t)
			_, err := run(t, BookCmd(app), "", "v1", "hall-a", "2030-06-03", "slot-06-08")
			require.NoError(t, err)

			out, err := run(t, BookCmd(app), tt.answer, "v1", "hall-b", "2030-06-03", "slot-07-09")
			require.NoError(t, err)
			assert.Contains(t, out, "already booked")
			assert.Contains(t, out, tt.output)

			bookings, err := store.FindBookings(context.Background(), db.BookingFilter{VolunteerID: "v1"})
			require.NoError(t, err)
			assert.Len(t, bookings, tt.expected)
		})
	}
}

func TestBookCmd_ForceSkipsPrompt(t *testing.T) {
	app, store := newTestApp(t)
	_, err := run(t, BookCmd(app), "", "v1", "hall-a", "2030-06-03", "slot-06-08")
	require.NoError(t, err)

	out, err := run(t, BookCmd(app), "", "--force", "v1", "hall-b", "2030-06-03", "slot-07-09")
	require.NoError(t, err)
	assert.NotContains(t, out, "Book anyway?")
	assert.Contains(t, out, "double booked")

	bookings, err := store.FindBookings(context.Background(), db.BookingFilter{VolunteerID: "v1", ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
}

func TestBookCmd_ActAsOtherVolunteer(t *testing.T) {
	app, _ := newTestApp(t)
	app.ActAs = "v2"

	_, err := run(t, BookCmd(app), "", "v1", "hall-a", "2030-06-03", "slot-06-08")
	assert.ErrorIs(t, err, apperror.ErrNotPermitted)
}

func TestCancelAndBookingsCmd(t *testing.T) {
	app, store := newTestApp(t)
	_, err := run(t, BookCmd(app), "", "v1", "hall-a", "2030-06-03", "slot-06-08")
	require.NoError(t, err)

	bookings, err := store.FindBookings(context.Background(), db.BookingFilter{VolunteerID: "v1"})
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	out, err := run(t, CancelCmd(app), "", bookings[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Booking cancelled")

	out, err = run(t, BookingsCmd(app), "", "--volunteer", "v1", "--status", "cancelled")
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 bookings")

	_, err = run(t, BookingsCmd(app), "", "--status", "gone")
	require.Error(t, err)
}

func TestSlotsCmd(t *testing.T) {
	app, _ := newTestApp(t)

	_, err := run(t, SlotsCmd(app), "", "set", "hall-a", "early:6-9:Early shift:3", "late:17-20")
	require.NoError(t, err)

	out, err := run(t, SlotsCmd(app), "", "list", "hall-a")
	require.NoError(t, err)
	assert.Contains(t, out, "2 slots (custom catalog)")
	assert.Contains(t, out, "Early shift  max 3")
	assert.Contains(t, out, "17:00 - 20:00")

	_, err = run(t, SlotsCmd(app), "", "reset", "hall-a")
	require.NoError(t, err)

	out, err = run(t, SlotsCmd(app), "", "list", "hall-a")
	require.NoError(t, err)
	assert.Contains(t, out, "(default catalog)")
}

func TestRosterCmd(t *testing.T) {
	app, _ := newTestApp(t)
	_, err := run(t, BookCmd(app), "", "v1", "hall-b", "2030-06-03", "slot-07-09")
	require.NoError(t, err)

	out, err := run(t, RosterCmd(app), "", "hall-b", "2030-06-03")
	require.NoError(t, err)
	assert.Contains(t, out, "slot-07-09")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "Ana Lopez")
}

func TestParseSlotSpec(t *testing.T) {
	tests := []struct {
		spec     string
		expected model.TimeSlot
		wantErr  bool
	}{
		{"early:6-8", model.TimeSlot{ID: "early", Label: "06:00 - 08:00", StartHour: 6, EndHour: 8}, false},
		{"early:6-8:Early", model.TimeSlot{ID: "early", Label: "Early", StartHour: 6, EndHour: 8}, false},
		{"early:6-8::4", model.TimeSlot{ID: "early", Label: "06:00 - 08:00", StartHour: 6, EndHour: 8, MaxVolunteers: 4}, false},
		{"late:20-24:Late", model.TimeSlot{ID: "late", Label: "Late", StartHour: 20, EndHour: 24}, false},
		{"early", model.TimeSlot{}, true},
		{":6-8", model.TimeSlot{}, true},
		{"early:6", model.TimeSlot{}, true},
		{"early:a-8", model.TimeSlot{}, true},
		{"early:8-6", model.TimeSlot{}, true},
		{"early:6-8:Early:-1", model.TimeSlot{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			slot, err := parseSlotSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, slot)
		})
	}
}

func TestOccupancyColor(t *testing.T) {
	green, yellow, red := "GREEN", "YELLOW", "RED"

	tests := []struct {
		name     string
		active   int
		limit    int
		expected string
	}{
		{"empty", 0, 4, green},
		{"two left", 2, 4, green},
		{"one left", 3, 4, yellow},
		{"full", 4, 4, red},
		{"over full", 5, 4, red},
		{"zero capacity", 0, 0, red},
		{"single place free", 0, 1, yellow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, occupancyColor(tt.active, tt.limit, green, yellow, red))
		})
	}
}

func TestConfirm(t *testing.T) {
	var out bytes.Buffer
	assert.True(t, confirm(strings.NewReader("y\n"), &out, "Sure?"))
	assert.True(t, confirm(strings.NewReader("YES"), &out, "Sure?"))
	assert.False(t, confirm(strings.NewReader("no\n"), &out, "Sure?"))
	assert.False(t, confirm(strings.NewReader(""), &out, "Sure?"))
	assert.Contains(t, out.String(), "Sure? [y/N]: ")
}
