package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func TestFirstOverlap(t *testing.T) {
	bookings := []model.Booking{
		{ID: "cancelled", StartHour: 6, EndHour: 10, Status: model.StatusCancelled},
		{ID: "early", StartHour: 6, EndHour: 8, Status: model.StatusAssigned},
		{ID: "late", StartHour: 8, EndHour: 12, Status: model.StatusCheckedIn},
	}

	tests := []struct {
		name    string
		start   int
		end     int
		exclude string
		want    string
	}{
		{"overlaps first active", 7, 9, "", "early"},
		{"adjacent is not overlap", 12, 14, "", ""},
		{"ignores inactive", 5, 6, "", ""},
		{"exclusion skips booking", 7, 8, "early", ""},
		{"contained range", 9, 10, "", "late"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FirstOverlap(bookings, tt.start, tt.end, tt.exclude)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestConflictDetector_ScopesToVolunteerAndDate(t *testing.T) {
	store := db.NewMemoryDB()
	ctx := context.Background()
	require.NoError(t, store.InsertBooking(ctx, model.Booking{ID: "b1", VolunteerID: "v1", Date: "2024-06-03", StartHour: 6, EndHour: 8, Status: model.StatusAssigned}))
	require.NoError(t, store.InsertBooking(ctx, model.Booking{ID: "b2", VolunteerID: "v2", Date: "2024-06-03", StartHour: 6, EndHour: 8, Status: model.StatusAssigned}))
	require.NoError(t, store.InsertBooking(ctx, model.Booking{ID: "b3", VolunteerID: "v1", Date: "2024-06-04", StartHour: 6, EndHour: 8, Status: model.StatusAssigned}))

	detector := NewConflictDetector(store)
	candidate := model.TimeSlot{ID: "slot-07-09", StartHour: 7, EndHour: 9}

	found, err := detector.FindConflict(ctx, "v1", "2024-06-03", candidate, "")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "b1", found.ID)

	found, err = detector.FindConflict(ctx, "v3", "2024-06-03", candidate, "")
	require.NoError(t, err)
	assert.Nil(t, found)
}
