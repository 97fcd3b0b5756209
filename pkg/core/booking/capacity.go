package booking

import (
	"context"
	"fmt"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// CapacitySource selects which field bounds a slot's occupancy
type CapacitySource string

const (
	// CapacityFromLocation uses Location.Capacity for every slot
	CapacityFromLocation CapacitySource = "location"
	// CapacityFromSlot uses TimeSlot.MaxVolunteers; a zero maximum is unlimited
	CapacityFromSlot CapacitySource = "slot"
)

func (s CapacitySource) IsValid() bool {
	return s == CapacityFromLocation || s == CapacityFromSlot
}

// Occupancy describes how full a slot is on a date
type Occupancy struct {
	LocationID string
	Date       string
	SlotID     string
	Active     int
	Limit      int
	Unlimited  bool
}

// HasRoom reports whether one more active booking fits
func (o Occupancy) HasRoom() bool {
	return o.Unlimited || o.Active < o.Limit
}

// CapacityGuard enforces the hard per-slot occupancy limit
type CapacityGuard struct {
	locations db.LocationDirectory
	catalog   SlotResolver
	bookings  db.BookingStore
	source    CapacitySource
}

// SlotResolver resolves a slot within a location's catalog
type SlotResolver interface {
	FindSlot(ctx context.Context, locationID, slotID string) (*model.TimeSlot, error)
}

func NewCapacityGuard(locations db.LocationDirectory, catalog SlotResolver, bookings db.BookingStore, source CapacitySource) *CapacityGuard {
	if source == "" {
		source = CapacityFromLocation
	}
	return &CapacityGuard{
		locations: locations,
		catalog:   catalog,
		bookings:  bookings,
		source:    source,
	}
}

// Limit returns the occupancy limit for slot at location
func (g *CapacityGuard) Limit(location model.Location, slot model.TimeSlot) (limit int, unlimited bool) {
	if g.source == CapacityFromSlot {
		if slot.MaxVolunteers <= 0 {
			return 0, true
		}
		return slot.MaxVolunteers, false
	}
	return location.Capacity, false
}

// Occupancy counts active bookings for the location/date/slot triple
func (g *CapacityGuard) Occupancy(ctx context.Context, locationID, date, slotID string) (*Occupancy, error) {
	location, err := g.locations.GetLocation(ctx, locationID)
	if err != nil {
		return nil, notFoundOr(err, "location", locationID, "load location")
	}
	slot, err := g.catalog.FindSlot(ctx, locationID, slotID)
	if err != nil {
		return nil, err
	}
	return g.occupancy(ctx, *location, *slot, date)
}

// HasRoom reports whether the triple can take one more active booking
func (g *CapacityGuard) HasRoom(ctx context.Context, locationID, date, slotID string) (bool, error) {
	occ, err := g.Occupancy(ctx, locationID, date, slotID)
	if err != nil {
		return false, err
	}
	return occ.HasRoom(), nil
}

// check returns a CapacityExceededError when the slot is full
func (g *CapacityGuard) check(ctx context.Context, location model.Location, slot model.TimeSlot, date string) error {
	occ, err := g.occupancy(ctx, location, slot, date)
	if err != nil {
		return err
	}
	if !occ.HasRoom() {
		return &apperror.CapacityExceededError{
			LocationID: location.ID,
			Date:       date,
			SlotID:     slot.ID,
			Capacity:   occ.Limit,
			Active:     occ.Active,
		}
	}
	return nil
}

func (g *CapacityGuard) occupancy(ctx context.Context, location model.Location, slot model.TimeSlot, date string) (*Occupancy, error) {
	active, err := g.bookings.FindBookings(ctx, db.BookingFilter{
		LocationID: location.ID,
		Date:       date,
		SlotID:     slot.ID,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, apperror.Persistence(fmt.Sprintf("count bookings for slot %s", slot.ID), err)
	}
	limit, unlimited := g.Limit(location, slot)
	return &Occupancy{
		LocationID: location.ID,
		Date:       date,
		SlotID:     slot.ID,
		Active:     len(active),
		Limit:      limit,
		Unlimited:  unlimited,
	}, nil
}
