package db

import (
	"context"
	"errors"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// ErrNotFound is returned by stores when a record with the requested ID does not exist
var ErrNotFound = errors.New("record not found")

// LocationDirectory defines read access to the location catalog
type LocationDirectory interface {
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
}

// LocationStore adds the administrative mutations on locations
type LocationStore interface {
	LocationDirectory
	SaveLocation(ctx context.Context, location model.Location) error
	DeleteLocation(ctx context.Context, id string) error
}

// VolunteerDirectory defines read access to volunteers
type VolunteerDirectory interface {
	GetVolunteer(ctx context.Context, id string) (*model.Volunteer, error)
	ListVolunteers(ctx context.Context) ([]model.Volunteer, error)
}

// SlotStore persists location-specific slot catalogs.
// GetSlots reports ok=false when the location has no custom catalog.
type SlotStore interface {
	GetSlots(ctx context.Context, locationID string) (slots []model.TimeSlot, ok bool, err error)
	SaveSlots(ctx context.Context, locationID string, slots []model.TimeSlot) error
	DeleteSlots(ctx context.Context, locationID string) error
}

// BookingStore persists bookings. FindBookings and LoadAll return bookings in
// persisted (insertion) order.
type BookingStore interface {
	LoadAll(ctx context.Context) ([]model.Booking, error)
	ReplaceAll(ctx context.Context, bookings []model.Booking) error
	FindBookings(ctx context.Context, filter BookingFilter) ([]model.Booking, error)
	GetBooking(ctx context.Context, id string) (*model.Booking, error)
	InsertBooking(ctx context.Context, booking model.Booking) error
	UpdateBooking(ctx context.Context, booking model.Booking) error
	DeleteBooking(ctx context.Context, id string) error
}

// Database is implemented by every storage backend
type Database interface {
	LocationStore
	VolunteerDirectory
	SlotStore
	BookingStore
}

// BookingFilter narrows FindBookings. Empty fields match everything.
type BookingFilter struct {
	VolunteerID string
	LocationID  string
	SlotID      string
	Date        string
	FromDate    string // inclusive
	ToDate      string // inclusive
	Statuses    []model.Status
	ActiveOnly  bool
}

// Matches reports whether b satisfies the filter
func (f BookingFilter) Matches(b model.Booking) bool {
	if f.VolunteerID != "" && b.VolunteerID != f.VolunteerID {
		return false
	}
	if f.LocationID != "" && b.LocationID != f.LocationID {
		return false
	}
	if f.SlotID != "" && b.SlotID != f.SlotID {
		return false
	}
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	// DateLayout sorts lexically
	if f.FromDate != "" && b.Date < f.FromDate {
		return false
	}
	if f.ToDate != "" && b.Date > f.ToDate {
		return false
	}
	if f.ActiveOnly && !b.IsActive() {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if b.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// FilterBookings applies f to bookings preserving order
func FilterBookings(bookings []model.Booking, f BookingFilter) []model.Booking {
	result := make([]model.Booking, 0)
	for _, b := range bookings {
		if f.Matches(b) {
			result = append(result, b)
		}
	}
	return result
}
