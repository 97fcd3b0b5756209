package db

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/sheetssql"
)

// Location is the "location" tab
type Location struct {
	ID          string `ssql_header:"id" ssql_type:"text"`
	Name        string `ssql_header:"name" ssql_type:"text"`
	Address     string `ssql_header:"address" ssql_type:"text"`
	Capacity    int    `ssql_header:"capacity" ssql_type:"int"`
	CustomSlots bool   `ssql_header:"custom_slots" ssql_type:"bool"`
}

// Slot is the "slot" tab, one row per slot of a custom catalog
type Slot struct {
	LocationID    string `ssql_header:"location_id" ssql_type:"text"`
	ID            string `ssql_header:"id" ssql_type:"text"`
	Position      int    `ssql_header:"position" ssql_type:"int"`
	Label         string `ssql_header:"label" ssql_type:"text"`
	StartHour     int    `ssql_header:"start_hour" ssql_type:"int"`
	EndHour       int    `ssql_header:"end_hour" ssql_type:"int"`
	MinVolunteers int    `ssql_header:"min_volunteers" ssql_type:"int"`
	MaxVolunteers int    `ssql_header:"max_volunteers" ssql_type:"int"`
}

// Booking is the "booking" tab. Row order is persisted order.
type Booking struct {
	ID          string `ssql_header:"id" ssql_type:"text"`
	VolunteerID string `ssql_header:"volunteer_id" ssql_type:"text"`
	LocationID  string `ssql_header:"location_id" ssql_type:"text"`
	SlotID      string `ssql_header:"slot_id" ssql_type:"text"`
	SlotLabel   string `ssql_header:"slot_label" ssql_type:"text"`
	BookingDate string `ssql_header:"booking_date" ssql_type:"date"`
	StartHour   int    `ssql_header:"start_hour" ssql_type:"int"`
	EndHour     int    `ssql_header:"end_hour" ssql_type:"int"`
	Status      string `ssql_header:"status" ssql_type:"text"`
	Forced      bool   `ssql_header:"forced" ssql_type:"bool"`
	CreatedAt   string `ssql_header:"created_at" ssql_type:"datetime"`
	CheckedInAt string `ssql_header:"checked_in_at" ssql_type:"datetime"`
}

// SheetsSchema is the table layout of the database spreadsheet
func SheetsSchema() (*sheetssql.Schema, error) {
	return sheetssql.SchemaFromModels(Location{}, Slot{}, Booking{})
}

// VolunteerSource lists volunteers from the volunteer spreadsheet
type VolunteerSource interface {
	ListVolunteers(spreadsheetID, tab string) ([]model.Volunteer, error)
}

// SheetsDB implements Database on a Google spreadsheet. Sheets cannot update
// rows in place, so mutations rewrite the affected tab under the spreadsheet lock.
type SheetsDB struct {
	ssql             *sheetssql.DB
	volunteers       VolunteerSource
	volunteerSheetID string
	volunteersTab    string
}

var _ Database = (*SheetsDB)(nil)

// NewSheetsDB opens the database spreadsheet, creating missing tabs
func NewSheetsDB(client sheetssql.SheetsClient, volunteers VolunteerSource, databaseSheetID, volunteerSheetID, volunteersTab string) (*SheetsDB, error) {
	schema, err := SheetsSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}

	ssql, err := sheetssql.NewDB(client, databaseSheetID, schema)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheets database: %w", err)
	}

	return &SheetsDB{
		ssql:             ssql,
		volunteers:       volunteers,
		volunteerSheetID: volunteerSheetID,
		volunteersTab:    volunteersTab,
	}, nil
}

func (l Location) toModel() model.Location {
	return model.Location{ID: l.ID, Name: l.Name, Address: l.Address, Capacity: l.Capacity}
}

func (s Slot) toModel() model.TimeSlot {
	return model.TimeSlot{
		ID:            s.ID,
		Label:         s.Label,
		StartHour:     s.StartHour,
		EndHour:       s.EndHour,
		MinVolunteers: s.MinVolunteers,
		MaxVolunteers: s.MaxVolunteers,
	}
}

func bookingRow(b model.Booking) Booking {
	row := Booking{
		ID:          b.ID,
		VolunteerID: b.VolunteerID,
		LocationID:  b.LocationID,
		SlotID:      b.SlotID,
		SlotLabel:   b.SlotLabel,
		BookingDate: b.Date,
		StartHour:   b.StartHour,
		EndHour:     b.EndHour,
		Status:      string(b.Status),
		Forced:      b.Forced,
		CreatedAt:   b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CheckedInAt != nil {
		row.CheckedInAt = b.CheckedInAt.UTC().Format(time.RFC3339)
	}
	return row
}

func (r Booking) toModel() (model.Booking, error) {
	b := model.Booking{
		ID:          r.ID,
		VolunteerID: r.VolunteerID,
		LocationID:  r.LocationID,
		SlotID:      r.SlotID,
		SlotLabel:   r.SlotLabel,
		Date:        r.BookingDate,
		StartHour:   r.StartHour,
		EndHour:     r.EndHour,
		Status:      model.Status(r.Status),
		Forced:      r.Forced,
	}

	createdAt, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return b, fmt.Errorf("booking %s: invalid created_at %q: %w", r.ID, r.CreatedAt, err)
	}
	b.CreatedAt = createdAt.UTC()

	if r.CheckedInAt != "" {
		checkedInAt, err := time.Parse(time.RFC3339, r.CheckedInAt)
		if err != nil {
			return b, fmt.Errorf("booking %s: invalid checked_in_at %q: %w", r.ID, r.CheckedInAt, err)
		}
		checkedInAt = checkedInAt.UTC()
		b.CheckedInAt = &checkedInAt
	}

	return b, nil
}

func (s *SheetsDB) locationRows() ([]Location, error) {
	rows, err := sheetssql.GetModels[Location](s.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get locations: %w", err)
	}
	return rows, nil
}

func (s *SheetsDB) slotRows() ([]Slot, error) {
	rows, err := sheetssql.GetModels[Slot](s.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get slots: %w", err)
	}
	return rows, nil
}

func (s *SheetsDB) bookingRows() ([]Booking, error) {
	rows, err := sheetssql.GetModels[Booking](s.ssql)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}
	return rows, nil
}

// GetLocation retrieves a location by ID
func (s *SheetsDB) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	rows, err := s.locationRows()
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.ID == id {
			loc := row.toModel()
			return &loc, nil
		}
	}
	return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
}

// ListLocations retrieves all locations ordered by name
func (s *SheetsDB) ListLocations(ctx context.Context) ([]model.Location, error) {
	rows, err := s.locationRows()
	if err != nil {
		return nil, err
	}
	locations := make([]model.Location, len(rows))
	for i, row := range rows {
		locations[i] = row.toModel()
	}
	sort.SliceStable(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
	return locations, nil
}

// SaveLocation creates or replaces a location, keeping its slot catalog flag
func (s *SheetsDB) SaveLocation(ctx context.Context, location model.Location) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()

	rows, err := s.locationRows()
	if err != nil {
		return err
	}

	updated := Location{ID: location.ID, Name: location.Name, Address: location.Address, Capacity: location.Capacity}
	for i, row := range rows {
		if row.ID == location.ID {
			updated.CustomSlots = row.CustomSlots
			rows[i] = updated
			return s.replaceLocations(rows)
		}
	}

	if err := sheetssql.InsertModel(s.ssql, updated); err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location and its custom slots
func (s *SheetsDB) DeleteLocation(ctx context.Context, id string) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()

	rows, err := s.locationRows()
	if err != nil {
		return err
	}

	kept := make([]Location, 0, len(rows))
	for _, row := range rows {
		if row.ID != id {
			kept = append(kept, row)
		}
	}
	if len(kept) == len(rows) {
		return fmt.Errorf("location %s: %w", id, ErrNotFound)
	}

	if err := s.replaceSlots(id, nil); err != nil {
		return err
	}
	return s.replaceLocations(kept)
}

func (s *SheetsDB) replaceLocations(rows []Location) error {
	if err := sheetssql.ReplaceModels(s.ssql, rows); err != nil {
		return fmt.Errorf("failed to write locations: %w", err)
	}
	return nil
}

// GetVolunteer retrieves a volunteer from the volunteer spreadsheet
func (s *SheetsDB) GetVolunteer(ctx context.Context, id string) (*model.Volunteer, error) {
	volunteers, err := s.ListVolunteers(ctx)
	if err != nil {
		return nil, err
	}
	for _, v := range volunteers {
		if v.ID == id {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("volunteer %s: %w", id, ErrNotFound)
}

// ListVolunteers retrieves all volunteers from the volunteer spreadsheet
func (s *SheetsDB) ListVolunteers(ctx context.Context) ([]model.Volunteer, error) {
	volunteers, err := s.volunteers.ListVolunteers(s.volunteerSheetID, s.volunteersTab)
	if err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}
	return volunteers, nil
}

// GetSlots retrieves a location's custom slots in catalog order
func (s *SheetsDB) GetSlots(ctx context.Context, locationID string) ([]model.TimeSlot, bool, error) {
	locations, err := s.locationRows()
	if err != nil {
		return nil, false, err
	}
	custom := false
	for _, row := range locations {
		if row.ID == locationID {
			custom = row.CustomSlots
		}
	}
	if !custom {
		return nil, false, nil
	}

	rows, err := s.slotRows()
	if err != nil {
		return nil, false, err
	}
	var mine []Slot
	for _, row := range rows {
		if row.LocationID == locationID {
			mine = append(mine, row)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool { return mine[i].Position < mine[j].Position })

	slots := make([]model.TimeSlot, len(mine))
	for i, row := range mine {
		slots[i] = row.toModel()
	}
	return slots, true, nil
}

// SaveSlots replaces a location's custom slots
func (s *SheetsDB) SaveSlots(ctx context.Context, locationID string, slots []model.TimeSlot) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()

	if err := s.replaceSlots(locationID, slots); err != nil {
		return err
	}
	return s.setCustomSlots(locationID, true)
}

// DeleteSlots drops a location's custom slots so it falls back to the defaults
func (s *SheetsDB) DeleteSlots(ctx context.Context, locationID string) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()

	if err := s.replaceSlots(locationID, nil); err != nil {
		return err
	}
	return s.setCustomSlots(locationID, false)
}

// replaceSlots rewrites the slot tab with locationID's rows swapped for slots
func (s *SheetsDB) replaceSlots(locationID string, slots []model.TimeSlot) error {
	rows, err := s.slotRows()
	if err != nil {
		return err
	}

	kept := make([]Slot, 0, len(rows)+len(slots))
	for _, row := range rows {
		if row.LocationID != locationID {
			kept = append(kept, row)
		}
	}
	for i, slot := range slots {
		kept = append(kept, Slot{
			LocationID:    locationID,
			ID:            slot.ID,
			Position:      i,
			Label:         slot.Label,
			StartHour:     slot.StartHour,
			EndHour:       slot.EndHour,
			MinVolunteers: slot.MinVolunteers,
			MaxVolunteers: slot.MaxVolunteers,
		})
	}

	if err := sheetssql.ReplaceModels(s.ssql, kept); err != nil {
		return fmt.Errorf("failed to write slots: %w", err)
	}
	return nil
}

func (s *SheetsDB) setCustomSlots(locationID string, custom bool) error {
	rows, err := s.locationRows()
	if err != nil {
		return err
	}
	for i := range rows {
		if rows[i].ID == locationID {
			if rows[i].CustomSlots == custom {
				return nil
			}
			rows[i].CustomSlots = custom
			return s.replaceLocations(rows)
		}
	}
	return nil
}

// LoadAll retrieves every booking in row order
func (s *SheetsDB) LoadAll(ctx context.Context) ([]model.Booking, error) {
	rows, err := s.bookingRows()
	if err != nil {
		return nil, err
	}
	bookings := make([]model.Booking, len(rows))
	for i, row := range rows {
		b, err := row.toModel()
		if err != nil {
			return nil, err
		}
		bookings[i] = b
	}
	return bookings, nil
}

// ReplaceAll rewrites the booking tab
func (s *SheetsDB) ReplaceAll(ctx context.Context, bookings []model.Booking) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()
	return s.replaceBookings(bookings)
}

func (s *SheetsDB) replaceBookings(bookings []model.Booking) error {
	rows := make([]Booking, len(bookings))
	for i, b := range bookings {
		rows[i] = bookingRow(b)
	}
	if err := sheetssql.ReplaceModels(s.ssql, rows); err != nil {
		return fmt.Errorf("failed to write bookings: %w", err)
	}
	return nil
}

// FindBookings retrieves bookings matching the filter in row order
func (s *SheetsDB) FindBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	bookings, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	return FilterBookings(bookings, filter), nil
}

// GetBooking retrieves a booking by ID
func (s *SheetsDB) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	bookings, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, b := range bookings {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
}

// InsertBooking appends a booking row
func (s *SheetsDB) InsertBooking(ctx context.Context, booking model.Booking) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()

	if err := sheetssql.InsertModel(s.ssql, bookingRow(booking)); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// UpdateBooking rewrites a booking in place, keeping its position
func (s *SheetsDB) UpdateBooking(ctx context.Context, booking model.Booking) error {
	return s.rewriteBookings(ctx, booking.ID, func(bookings []model.Booking, i int) []model.Booking {
		bookings[i] = booking
		return bookings
	})
}

// DeleteBooking removes a booking row
func (s *SheetsDB) DeleteBooking(ctx context.Context, id string) error {
	return s.rewriteBookings(ctx, id, func(bookings []model.Booking, i int) []model.Booking {
		return append(bookings[:i], bookings[i+1:]...)
	})
}

func (s *SheetsDB) rewriteBookings(ctx context.Context, id string, edit func(bookings []model.Booking, i int) []model.Booking) error {
	s.ssql.Lock()
	defer s.ssql.Unlock()

	bookings, err := s.LoadAll(ctx)
	if err != nil {
		return err
	}
	for i, b := range bookings {
		if b.ID == id {
			return s.replaceBookings(edit(bookings, i))
		}
	}
	return fmt.Errorf("booking %s: %w", id, ErrNotFound)
}
