package postgres

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func TestBookingQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   db.BookingFilter
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name:    "no filter",
			filter:  db.BookingFilter{},
			wantSQL: "SELECT id, volunteer_id, location_id, slot_id, slot_label, booking_date, start_hour, end_hour, status, forced, created_at, checked_in_at FROM booking ORDER BY seq",
		},
		{
			name:     "bucket active only",
			filter:   db.BookingFilter{LocationID: "hall-a", Date: "2024-06-03", SlotID: "slot-06-08", ActiveOnly: true},
			wantSQL:  "SELECT id, volunteer_id, location_id, slot_id, slot_label, booking_date, start_hour, end_hour, status, forced, created_at, checked_in_at FROM booking WHERE location_id = $1 AND slot_id = $2 AND booking_date = $3 AND status IN ($4,$5) ORDER BY seq",
			wantArgs: []interface{}{"hall-a", "slot-06-08", "2024-06-03", "assigned", "checked-in"},
		},
		{
			name:     "volunteer range with statuses",
			filter:   db.BookingFilter{VolunteerID: "vol-1", FromDate: "2024-01-01", ToDate: "2024-01-31", Statuses: []model.Status{model.StatusCheckedIn}},
			wantSQL:  "SELECT id, volunteer_id, location_id, slot_id, slot_label, booking_date, start_hour, end_hour, status, forced, created_at, checked_in_at FROM booking WHERE volunteer_id = $1 AND booking_date >= $2 AND booking_date <= $3 AND status IN ($4) ORDER BY seq",
			wantArgs: []interface{}{"vol-1", "2024-01-01", "2024-01-31", "checked-in"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := bookingQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"migrations/002_add_index.sql":  {Data: []byte("CREATE INDEX ...")},
		"migrations/001_create.sql":     {Data: []byte("CREATE TABLE ...")},
		"migrations/README.md":          {Data: []byte("notes")},
		"migrations/003_add_column.sql": {Data: []byte("ALTER TABLE ...")},
	}

	pending, err := pendingMigrations(fsys, map[string]bool{"001_create.sql": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"002_add_index.sql", "003_add_column.sql"}, pending)
}

func TestEmbeddedMigrations(t *testing.T) {
	pending, err := pendingMigrations(migrationsFS, map[string]bool{})
	require.NoError(t, err)
	assert.Equal(t, []string{"001_create_booking_tables.sql"}, pending)
}
