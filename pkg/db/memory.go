package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// MemoryDB is an in-process Database. It backs the "memory" storage backend
// and the tests of everything built on the store interfaces.
type MemoryDB struct {
	mu         sync.RWMutex
	locations  map[string]model.Location
	volunteers map[string]model.Volunteer
	slots      map[string][]model.TimeSlot
	bookings   []model.Booking
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		locations:  make(map[string]model.Location),
		volunteers: make(map[string]model.Volunteer),
		slots:      make(map[string][]model.TimeSlot),
	}
}

// AddVolunteers seeds the volunteer directory
func (m *MemoryDB) AddVolunteers(volunteers ...model.Volunteer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range volunteers {
		m.volunteers[v.ID] = copyVolunteer(v)
	}
}

// GetLocation returns the location with the given ID
func (m *MemoryDB) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	return &loc, nil
}

// ListLocations returns all locations ordered by name
func (m *MemoryDB) ListLocations(ctx context.Context) ([]model.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	locations := make([]model.Location, 0, len(m.locations))
	for _, loc := range m.locations {
		locations = append(locations, loc)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i].Name < locations[j].Name })
	return locations, nil
}

// SaveLocation creates or replaces a location
func (m *MemoryDB) SaveLocation(ctx context.Context, location model.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[location.ID] = location
	return nil
}

// DeleteLocation removes a location and its custom slots
func (m *MemoryDB) DeleteLocation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locations[id]; !ok {
		return fmt.Errorf("location %s: %w", id, ErrNotFound)
	}
	delete(m.locations, id)
	delete(m.slots, id)
	return nil
}

// GetVolunteer returns the volunteer with the given ID
func (m *MemoryDB) GetVolunteer(ctx context.Context, id string) (*model.Volunteer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.volunteers[id]
	if !ok {
		return nil, fmt.Errorf("volunteer %s: %w", id, ErrNotFound)
	}
	v = copyVolunteer(v)
	return &v, nil
}

// ListVolunteers returns all volunteers ordered by ID
func (m *MemoryDB) ListVolunteers(ctx context.Context) ([]model.Volunteer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	volunteers := make([]model.Volunteer, 0, len(m.volunteers))
	for _, v := range m.volunteers {
		volunteers = append(volunteers, copyVolunteer(v))
	}
	sort.Slice(volunteers, func(i, j int) bool { return volunteers[i].ID < volunteers[j].ID })
	return volunteers, nil
}

// GetSlots returns a copy of the custom slots for a location
func (m *MemoryDB) GetSlots(ctx context.Context, locationID string) ([]model.TimeSlot, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots, ok := m.slots[locationID]
	if !ok {
		return nil, false, nil
	}
	return append([]model.TimeSlot(nil), slots...), true, nil
}

// SaveSlots replaces the custom slots for a location
func (m *MemoryDB) SaveSlots(ctx context.Context, locationID string, slots []model.TimeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[locationID] = append([]model.TimeSlot(nil), slots...)
	return nil
}

// DeleteSlots drops the custom slots for a location
func (m *MemoryDB) DeleteSlots(ctx context.Context, locationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.slots, locationID)
	return nil
}

// LoadAll returns every booking in insertion order
func (m *MemoryDB) LoadAll(ctx context.Context) ([]model.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyBookings(m.bookings), nil
}

// ReplaceAll swaps the full booking set
func (m *MemoryDB) ReplaceAll(ctx context.Context, bookings []model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookings = copyBookings(bookings)
	return nil
}

// FindBookings returns bookings matching the filter in insertion order
func (m *MemoryDB) FindBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyBookings(FilterBookings(m.bookings, filter)), nil
}

// GetBooking returns the booking with the given ID
func (m *MemoryDB) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.bookings {
		if b.ID == id {
			b = copyBooking(b)
			return &b, nil
		}
	}
	return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
}

// InsertBooking appends a booking
func (m *MemoryDB) InsertBooking(ctx context.Context, booking model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ID == booking.ID {
			return fmt.Errorf("booking %s already exists", booking.ID)
		}
	}
	m.bookings = append(m.bookings, copyBooking(booking))
	return nil
}

// UpdateBooking replaces a booking in place, keeping its position
func (m *MemoryDB) UpdateBooking(ctx context.Context, booking model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bookings {
		if b.ID == booking.ID {
			m.bookings[i] = copyBooking(booking)
			return nil
		}
	}
	return fmt.Errorf("booking %s: %w", booking.ID, ErrNotFound)
}

// DeleteBooking removes a booking
func (m *MemoryDB) DeleteBooking(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bookings {
		if b.ID == id {
			m.bookings = append(m.bookings[:i], m.bookings[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("booking %s: %w", id, ErrNotFound)
}

func copyBooking(b model.Booking) model.Booking {
	if b.CheckedInAt != nil {
		t := *b.CheckedInAt
		b.CheckedInAt = &t
	}
	return b
}

func copyBookings(bookings []model.Booking) []model.Booking {
	result := make([]model.Booking, len(bookings))
	for i, b := range bookings {
		result[i] = copyBooking(b)
	}
	return result
}

func copyVolunteer(v model.Volunteer) model.Volunteer {
	v.Aliases = append([]string(nil), v.Aliases...)
	return v
}
