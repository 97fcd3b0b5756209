// Package legacy converts booking records from the previous system into
// bookings with a stable volunteer ID and denormalised hours. It runs once per
// migration; nothing on the booking path depends on it.
package legacy

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// Record is one booking as exported by the previous system. Volunteer may hold
// an ID, an email, a display name or an alias.
type Record struct {
	ID         string `json:"id"`
	Volunteer  string `json:"volunteer"`
	LocationID string `json:"locationId"`
	Date       string `json:"date"`
	SlotID     string `json:"slotId"`
	SlotLabel  string `json:"slotLabel"`
	StartHour  *int   `json:"startHour,omitempty"`
	EndHour    *int   `json:"endHour,omitempty"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
}

// ReadRecords decodes a JSON array of records
func ReadRecords(r io.Reader) ([]Record, error) {
	var records []Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode legacy records: %w", err)
	}
	return records, nil
}

// Issue explains why a record was not imported
type Issue struct {
	Index    int
	RecordID string
	Reason   string
}

// Result is the outcome of an import run
type Result struct {
	Bookings []model.Booking
	Issues   []Issue
	// Sources counts how each imported booking's hours were resolved
	Sources map[Source]int
	// Overlaps counts active bookings imported as forced because another
	// active booking of the same volunteer overlapped them
	Overlaps int

	index   map[string]int
	sources map[string]Source
}

// IndexOf returns the record index a booking was converted from, or -1
func (r *Result) IndexOf(bookingID string) int {
	if i, ok := r.index[bookingID]; ok {
		return i
	}
	return -1
}

// Reject turns an imported booking into an issue after a later check refused it.
// The caller removes it from Bookings.
func (r *Result) Reject(b model.Booking, reason string) {
	r.Issues = append(r.Issues, Issue{Index: r.IndexOf(b.ID), RecordID: b.ID, Reason: reason})
	if source, ok := r.sources[b.ID]; ok {
		r.Sources[source]--
		if r.Sources[source] == 0 {
			delete(r.Sources, source)
		}
		delete(r.sources, b.ID)
	}
}

// LimitFunc returns the occupancy limit of a booking's slot
type LimitFunc func(b model.Booking) (limit int, unlimited bool)

// Importer resolves records against the current volunteers, locations and slot catalogs
type Importer struct {
	identities *IdentityIndex
	locations  map[string]model.Location
	lookup     SlotLookup
	limit      LimitFunc
	newID      func() string
	now        func() time.Time
}

// NewImporter limits each slot by its location's capacity unless WithLimit says otherwise
func NewImporter(volunteers []model.Volunteer, locations []model.Location, lookup SlotLookup) *Importer {
	known := make(map[string]model.Location, len(locations))
	for _, l := range locations {
		known[l.ID] = l
	}
	im := &Importer{
		identities: NewIdentityIndex(volunteers),
		locations:  known,
		lookup:     lookup,
		newID:      func() string { return uuid.New().String() },
		now:        time.Now,
	}
	im.limit = func(b model.Booking) (int, bool) {
		return im.locations[b.LocationID].Capacity, false
	}
	return im
}

func (im *Importer) WithLimit(limit LimitFunc) *Importer {
	im.limit = limit
	return im
}

// importState tracks the slot rules across stored and imported bookings
type importState struct {
	ids map[string]bool
	// location|date|slot -> active bookings
	buckets map[string]int
	// volunteer|location|date|slot with an active booking
	booked map[string]bool
	// volunteer|date -> active bookings
	days map[string][]model.Booking
}

func newImportState() *importState {
	return &importState{
		ids:     make(map[string]bool),
		buckets: make(map[string]int),
		booked:  make(map[string]bool),
		days:    make(map[string][]model.Booking),
	}
}

func (s *importState) add(b model.Booking) {
	s.ids[b.ID] = true
	if !b.IsActive() {
		return
	}
	s.buckets[booking.BucketKey(b.LocationID, b.Date, b.SlotID)]++
	s.booked[b.VolunteerID+"|"+booking.BucketKey(b.LocationID, b.Date, b.SlotID)] = true
	dayKey := booking.VolunteerDayKey(b.VolunteerID, b.Date)
	s.days[dayKey] = append(s.days[dayKey], b)
}

// Import converts records in order on top of the bookings already stored.
// Unresolvable records, records whose ID is taken, a second active booking of
// a volunteer in one slot and active bookings beyond a slot's limit are
// reported in Result.Issues and never imported.
func (im *Importer) Import(records []Record, existing []model.Booking) *Result {
	result := &Result{Sources: make(map[Source]int), index: make(map[string]int), sources: make(map[string]Source)}
	state := newImportState()
	stored := make(map[string]bool, len(existing))
	for _, b := range existing {
		stored[b.ID] = true
		state.add(b)
	}

	skip := func(i int, r Record, reason string) {
		result.Issues = append(result.Issues, Issue{Index: i, RecordID: r.ID, Reason: reason})
	}

	for i, r := range records {
		b, source, err := im.convert(r)
		if err != nil {
			skip(i, r, err.Error())
			continue
		}
		if stored[b.ID] {
			skip(i, r, "booking id already stored")
			continue
		}
		if state.ids[b.ID] {
			skip(i, r, "duplicate booking id "+b.ID)
			continue
		}

		if b.IsActive() {
			bucket := booking.BucketKey(b.LocationID, b.Date, b.SlotID)
			if state.booked[b.VolunteerID+"|"+bucket] {
				skip(i, r, fmt.Sprintf("volunteer %s already booked into %s on %s at %s", b.VolunteerID, b.SlotID, b.Date, b.LocationID))
				continue
			}
			if limit, unlimited := im.limit(b); !unlimited && state.buckets[bucket] >= limit {
				skip(i, r, fmt.Sprintf("slot %s on %s at %s is full (capacity %d)", b.SlotID, b.Date, b.LocationID, limit))
				continue
			}
			if booking.FirstOverlap(state.days[booking.VolunteerDayKey(b.VolunteerID, b.Date)], b.StartHour, b.EndHour, "") != nil {
				b.Forced = true
				result.Overlaps++
			}
		}

		state.add(b)
		result.index[b.ID] = i
		result.sources[b.ID] = source
		result.Sources[source]++
		result.Bookings = append(result.Bookings, b)
	}
	return result
}

func (im *Importer) convert(r Record) (model.Booking, Source, error) {
	volunteerID, err := im.identities.Resolve(r.Volunteer)
	if err != nil {
		return model.Booking{}, "", err
	}
	if _, ok := im.locations[r.LocationID]; !ok {
		return model.Booking{}, "", fmt.Errorf("unknown location %q", r.LocationID)
	}
	date, err := normaliseDate(r.Date)
	if err != nil {
		return model.Booking{}, "", err
	}
	status, err := ParseStatus(r.Status)
	if err != nil {
		return model.Booking{}, "", err
	}
	start, end, source, err := ResolveHours(r, im.lookup)
	if err != nil {
		return model.Booking{}, "", err
	}

	b := model.Booking{
		ID:          r.ID,
		VolunteerID: volunteerID,
		LocationID:  r.LocationID,
		SlotID:      r.SlotID,
		SlotLabel:   r.SlotLabel,
		Date:        date,
		StartHour:   start,
		EndHour:     end,
		Status:      status,
		CreatedAt:   im.now().UTC(),
	}
	if b.ID == "" {
		b.ID = im.newID()
	}
	if b.SlotID == "" {
		b.SlotID = fmt.Sprintf("slot-%02d-%02d", start, end)
	}
	if b.SlotLabel == "" {
		b.SlotLabel = fmt.Sprintf("%02d:00 - %02d:00", start, end)
	}
	if r.CreatedAt != "" {
		if created, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			b.CreatedAt = created.UTC()
		}
	}
	if status == model.StatusCheckedIn {
		checkedIn := b.CreatedAt
		b.CheckedInAt = &checkedIn
	}
	return b, source, nil
}

// ParseStatus maps the spellings used by old records onto a Status. An empty
// status is read as assigned.
func ParseStatus(s string) (model.Status, error) {
	switch strings.ToLower(strings.TrimSpace(strings.NewReplacer("_", "-", " ", "-").Replace(s))) {
	case "", "assigned", "booked", "confirmed":
		return model.StatusAssigned, nil
	case "checked-in", "checkedin", "attended":
		return model.StatusCheckedIn, nil
	case "no-show", "noshow", "absent":
		return model.StatusNoShow, nil
	case "cancelled", "canceled":
		return model.StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// normaliseDate accepts DateLayout or an RFC 3339 timestamp and returns DateLayout
func normaliseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := model.ParseDate(s); err == nil {
		return s, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format(model.DateLayout), nil
	}
	return "", fmt.Errorf("invalid date %q", s)
}
