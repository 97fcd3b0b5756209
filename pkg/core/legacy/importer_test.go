package legacy

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

var testVolunteers = []model.Volunteer{
	{ID: "vol-1", FirstName: "Alex", LastName: "Smith", DisplayName: "Alex S", Email: "alex@example.com", Aliases: []string{"Lexi"}},
	{ID: "vol-2", FirstName: "Sam", LastName: "Jones", Email: "sam@example.com", Aliases: []string{"SJ"}},
	{ID: "vol-3", FirstName: "Sam", LastName: "Jones", Email: "sam.j@example.com"},
}

func TestIdentityIndex_Resolve(t *testing.T) {
	idx := NewIdentityIndex(testVolunteers)

	tests := []struct {
		ref     string
		want    string
		wantErr error
	}{
		{"vol-1", "vol-1", nil},
		{"ALEX@example.com", "vol-1", nil},
		{"alex s", "vol-1", nil},
		{"Alex  Smith", "vol-1", nil},
		{"lexi", "vol-1", nil},
		{"sj", "vol-2", nil},
		{"Sam Jones", "", ErrAmbiguousVolunteer},
		{"nobody@example.com", "", ErrUnknownVolunteer},
		{"   ", "", ErrUnknownVolunteer},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := idx.Resolve(tt.ref)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for input, want := range map[string]model.Status{
		"":           model.StatusAssigned,
		"Booked":     model.StatusAssigned,
		"checked_in": model.StatusCheckedIn,
		"Checked In": model.StatusCheckedIn,
		"no-show":    model.StatusNoShow,
		"canceled":   model.StatusCancelled,
	} {
		got, err := ParseStatus(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseStatus("pending")
	assert.Error(t, err)
}

func TestImporter_Import(t *testing.T) {
	input := `[
		{"id": "b1", "volunteer": "alex@example.com", "locationId": "hall-a", "date": "2024-03-02", "slotId": "slot-06-08", "status": "booked", "createdAt": "2024-02-20T10:00:00Z"},
		{"id": "b2", "volunteer": "Lexi", "locationId": "hall-b", "date": "2024-03-02T00:00:00Z", "slotLabel": "7am-9am", "status": "attended"},
		{"id": "b3", "volunteer": "Sam Jones", "locationId": "hall-a", "date": "2024-03-02", "slotId": "slot-06-08"},
		{"id": "b4", "volunteer": "sj", "locationId": "attic", "date": "2024-03-02", "slotId": "slot-06-08"},
		{"id": "b5", "volunteer": "sj", "locationId": "hall-a", "date": "02/03/2024", "slotId": "slot-06-08"},
		{"id": "b6", "volunteer": "sj", "locationId": "hall-a", "date": "2024-03-02", "slotLabel": "Morning"},
		{"id": "b1", "volunteer": "sj", "locationId": "hall-a", "date": "2024-03-03", "slotId": "slot-06-08"},
		{"volunteer": "vol-2", "locationId": "hall-a", "date": "2024-03-03", "startHour": 10, "endHour": 12, "status": "cancelled"}
	]`

	records, err := ReadRecords(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 8)

	lookup := func(locationID, slotID string) (*model.TimeSlot, bool) {
		if slotID == "slot-06-08" {
			return &model.TimeSlot{ID: slotID, StartHour: 6, EndHour: 8}, true
		}
		return nil, false
	}
	importer := NewImporter(testVolunteers, []model.Location{{ID: "hall-a", Capacity: 5}, {ID: "hall-b", Capacity: 5}}, lookup)
	importer.newID = func() string { return "generated" }
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	importer.now = func() time.Time { return fixed }

	result := importer.Import(records, nil)

	require.Len(t, result.Bookings, 3)
	require.Len(t, result.Issues, 5)

	first := result.Bookings[0]
	assert.Equal(t, "vol-1", first.VolunteerID)
	assert.Equal(t, 6, first.StartHour)
	assert.Equal(t, model.StatusAssigned, first.Status)
	assert.Equal(t, time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC), first.CreatedAt)
	assert.False(t, first.Forced)

	second := result.Bookings[1]
	assert.Equal(t, "vol-1", second.VolunteerID)
	assert.Equal(t, "2024-03-02", second.Date)
	assert.Equal(t, 7, second.StartHour)
	assert.Equal(t, 9, second.EndHour)
	assert.Equal(t, "slot-07-09", second.SlotID)
	assert.Equal(t, model.StatusCheckedIn, second.Status)
	require.NotNil(t, second.CheckedInAt)
	assert.True(t, second.Forced, "overlaps b1 for the same volunteer and date")
	assert.Equal(t, 1, result.Overlaps)

	third := result.Bookings[2]
	assert.Equal(t, "generated", third.ID)
	assert.Equal(t, "vol-2", third.VolunteerID)
	assert.Equal(t, "10:00 - 12:00", third.SlotLabel)
	assert.Equal(t, model.StatusCancelled, third.Status)
	assert.Equal(t, fixed, third.CreatedAt)

	assert.Equal(t, map[Source]int{SourceCatalog: 1, SourceLabel: 1, SourceExplicit: 1}, result.Sources)

	reasons := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		reasons = append(reasons, issue.Reason)
	}
	assert.Contains(t, reasons[0], "ambiguous")
	assert.Contains(t, reasons[1], "unknown location")
	assert.Contains(t, reasons[2], "invalid date")
	assert.Contains(t, reasons[3], "cannot resolve hours")
	assert.Contains(t, reasons[4], "duplicate booking id")
	assert.Equal(t, 0, result.IndexOf("b1"))
	assert.Equal(t, 1, result.IndexOf("b2"))
	assert.Equal(t, -1, result.IndexOf("b3"))
}

func slotLookup(locationID, slotID string) (*model.TimeSlot, bool) {
	if slotID == "slot-06-08" {
		return &model.TimeSlot{ID: slotID, StartHour: 6, EndHour: 8}, true
	}
	return nil, false
}

func TestImporter_Import_SlotRules(t *testing.T) {
	records := []Record{
		{ID: "r1", Volunteer: "vol-1", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r2", Volunteer: "vol-2", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r3", Volunteer: "vol-3", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r4", Volunteer: "vol-1", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r5", Volunteer: "vol-3", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08", Status: "cancelled"},
	}
	importer := NewImporter(testVolunteers, []model.Location{{ID: "hall-a", Capacity: 2}}, slotLookup)

	result := importer.Import(records, nil)

	require.Len(t, result.Bookings, 3)
	assert.Equal(t, "r1", result.Bookings[0].ID)
	assert.Equal(t, "r2", result.Bookings[1].ID)
	assert.Equal(t, "r5", result.Bookings[2].ID, "inactive bookings do not take a place")

	require.Len(t, result.Issues, 2)
	assert.Equal(t, 2, result.Issues[0].Index)
	assert.Contains(t, result.Issues[0].Reason, "is full (capacity 2)")
	assert.Equal(t, 3, result.Issues[1].Index)
	assert.Contains(t, result.Issues[1].Reason, "vol-1 already booked")
	assert.Zero(t, result.Overlaps)
}

func TestImporter_Import_CountsStoredBookings(t *testing.T) {
	existing := []model.Booking{
		{ID: "stored-1", VolunteerID: "vol-1", LocationID: "hall-b", SlotID: "slot-06-08", Date: "2024-04-01", StartHour: 6, EndHour: 8, Status: model.StatusAssigned},
		{ID: "stored-2", VolunteerID: "vol-2", LocationID: "hall-a", SlotID: "slot-06-08", Date: "2024-04-01", StartHour: 6, EndHour: 8, Status: model.StatusCheckedIn},
		{ID: "stored-3", VolunteerID: "vol-3", LocationID: "hall-a", SlotID: "slot-06-08", Date: "2024-04-01", StartHour: 6, EndHour: 8, Status: model.StatusCancelled},
	}
	records := []Record{
		{ID: "r1", Volunteer: "vol-1", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r2", Volunteer: "vol-2", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r3", Volunteer: "vol-3", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "stored-1", Volunteer: "vol-1", LocationID: "hall-a", Date: "2024-04-02", SlotID: "slot-06-08"},
	}
	locations := []model.Location{{ID: "hall-a", Capacity: 2}, {ID: "hall-b", Capacity: 2}}

	result := NewImporter(testVolunteers, locations, slotLookup).Import(records, existing)

	require.Len(t, result.Bookings, 1)
	imported := result.Bookings[0]
	assert.Equal(t, "r1", imported.ID)
	assert.True(t, imported.Forced, "overlaps the stored hall-b booking")
	assert.Equal(t, 1, result.Overlaps)

	require.Len(t, result.Issues, 3)
	assert.Contains(t, result.Issues[0].Reason, "vol-2 already booked")
	assert.Contains(t, result.Issues[1].Reason, "is full")
	assert.Equal(t, "booking id already stored", result.Issues[2].Reason)
}

func TestImporter_WithLimit(t *testing.T) {
	records := []Record{
		{ID: "r1", Volunteer: "vol-1", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r2", Volunteer: "vol-2", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
	}
	importer := NewImporter(testVolunteers, []model.Location{{ID: "hall-a"}}, slotLookup).
		WithLimit(func(model.Booking) (int, bool) { return 0, true })

	result := importer.Import(records, nil)

	assert.Len(t, result.Bookings, 2)
	assert.Empty(t, result.Issues)
}

func TestResult_Reject(t *testing.T) {
	records := []Record{
		{ID: "r1", Volunteer: "vol-1", LocationID: "hall-a", Date: "2024-04-01", SlotID: "slot-06-08"},
		{ID: "r2", Volunteer: "vol-2", LocationID: "hall-a", Date: "2024-04-01", StartHour: intPtr(9), EndHour: intPtr(11)},
	}
	result := NewImporter(testVolunteers, []model.Location{{ID: "hall-a", Capacity: 5}}, slotLookup).Import(records, nil)
	require.Len(t, result.Bookings, 2)

	result.Reject(result.Bookings[1], "slot is full")

	require.Len(t, result.Issues, 1)
	assert.Equal(t, Issue{Index: 1, RecordID: "r2", Reason: "slot is full"}, result.Issues[0])
	assert.Equal(t, map[Source]int{SourceCatalog: 1}, result.Sources)
}

func intPtr(v int) *int { return &v }
