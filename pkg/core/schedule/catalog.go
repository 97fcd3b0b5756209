package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// defaultSlots are seven two-hour blocks spanning 06:00-20:00
var defaultSlots = []model.TimeSlot{
	{ID: "slot-06-08", Label: "06:00 - 08:00", StartHour: 6, EndHour: 8},
	{ID: "slot-08-10", Label: "08:00 - 10:00", StartHour: 8, EndHour: 10},
	{ID: "slot-10-12", Label: "10:00 - 12:00", StartHour: 10, EndHour: 12},
	{ID: "slot-12-14", Label: "12:00 - 14:00", StartHour: 12, EndHour: 14},
	{ID: "slot-14-16", Label: "14:00 - 16:00", StartHour: 14, EndHour: 16},
	{ID: "slot-16-18", Label: "16:00 - 18:00", StartHour: 16, EndHour: 18},
	{ID: "slot-18-20", Label: "18:00 - 20:00", StartHour: 18, EndHour: 20},
}

// DefaultSlots returns a fresh copy of the global default slot set
func DefaultSlots() []model.TimeSlot {
	return append([]model.TimeSlot(nil), defaultSlots...)
}

// Catalog resolves the slot definitions of each location. Locations without a
// custom catalog inherit the default set. Changing a catalog never touches
// existing bookings because bookings carry their own copy of the hours.
type Catalog struct {
	store     db.SlotStore
	locations db.LocationDirectory
	logger    *zap.Logger
}

// NewCatalog creates a catalog over the given slot store. locations may be nil,
// in which case mutations do not check that the location exists.
func NewCatalog(store db.SlotStore, locations db.LocationDirectory, logger *zap.Logger) *Catalog {
	return &Catalog{
		store:     store,
		locations: locations,
		logger:    logger,
	}
}

// GetSlots returns the ordered slots of a location
func (c *Catalog) GetSlots(ctx context.Context, locationID string) ([]model.TimeSlot, error) {
	slots, ok, err := c.store.GetSlots(ctx, locationID)
	if err != nil {
		return nil, apperror.Persistence("load slots", err)
	}
	if !ok {
		return DefaultSlots(), nil
	}
	return slots, nil
}

// IsCustom reports whether the location has its own slot catalog
func (c *Catalog) IsCustom(ctx context.Context, locationID string) (bool, error) {
	_, ok, err := c.store.GetSlots(ctx, locationID)
	if err != nil {
		return false, apperror.Persistence("load slots", err)
	}
	return ok, nil
}

// FindSlot returns the slot with slotID from the location's catalog. A slot
// outside the catalog is malformed input and yields a ValidationError.
func (c *Catalog) FindSlot(ctx context.Context, locationID, slotID string) (*model.TimeSlot, error) {
	slots, err := c.GetSlots(ctx, locationID)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		if s.ID == slotID {
			slot := s
			return &slot, nil
		}
	}
	return nil, apperror.NewValidation("slotID", "slot %s is not in the catalog of location %s", slotID, locationID)
}

// SetSlots replaces the location's catalog
func (c *Catalog) SetSlots(ctx context.Context, locationID string, slots []model.TimeSlot) error {
	if err := c.checkLocation(ctx, locationID); err != nil {
		return err
	}
	if err := ValidateSlots(slots); err != nil {
		return err
	}

	ordered := append([]model.TimeSlot(nil), slots...)
	sortSlots(ordered)

	if err := c.store.SaveSlots(ctx, locationID, ordered); err != nil {
		return apperror.Persistence("save slots", err)
	}

	c.logger.Info("Slot catalog replaced",
		zap.String("location_id", locationID),
		zap.Int("slot_count", len(ordered)))
	return nil
}

// AddSlot adds one slot to the location's catalog, starting from the
// defaults when the location has no custom catalog yet
func (c *Catalog) AddSlot(ctx context.Context, locationID string, slot model.TimeSlot) error {
	current, err := c.GetSlots(ctx, locationID)
	if err != nil {
		return err
	}
	return c.SetSlots(ctx, locationID, append(current, slot))
}

// RemoveSlot removes one slot from the location's catalog
func (c *Catalog) RemoveSlot(ctx context.Context, locationID, slotID string) error {
	current, err := c.GetSlots(ctx, locationID)
	if err != nil {
		return err
	}

	remaining := make([]model.TimeSlot, 0, len(current))
	for _, s := range current {
		if s.ID != slotID {
			remaining = append(remaining, s)
		}
	}
	if len(remaining) == len(current) {
		return &apperror.NotFoundError{Kind: "slot", ID: slotID}
	}

	return c.SetSlots(ctx, locationID, remaining)
}

// ResetToDefault drops the location's custom catalog
func (c *Catalog) ResetToDefault(ctx context.Context, locationID string) error {
	if err := c.checkLocation(ctx, locationID); err != nil {
		return err
	}
	if err := c.store.DeleteSlots(ctx, locationID); err != nil {
		return apperror.Persistence("reset slots", err)
	}
	c.logger.Info("Slot catalog reset to default", zap.String("location_id", locationID))
	return nil
}

// ValidateSlots checks every slot and that IDs are unique
func ValidateSlots(slots []model.TimeSlot) error {
	seen := make(map[string]bool, len(slots))
	for i, s := range slots {
		if err := s.Validate(); err != nil {
			return apperror.NewValidation(fmt.Sprintf("slots[%d]", i), "%v", err)
		}
		if seen[s.ID] {
			return apperror.NewValidation(fmt.Sprintf("slots[%d]", i), "duplicate slot id %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}

func (c *Catalog) checkLocation(ctx context.Context, locationID string) error {
	if locationID == "" {
		return apperror.NewValidation("locationID", "is required")
	}
	if c.locations == nil {
		return nil
	}
	if _, err := c.locations.GetLocation(ctx, locationID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &apperror.NotFoundError{Kind: "location", ID: locationID}
		}
		return apperror.Persistence("load location", err)
	}
	return nil
}

func sortSlots(slots []model.TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].StartHour != slots[j].StartHour {
			return slots[i].StartHour < slots[j].StartHour
		}
		return slots[i].EndHour < slots[j].EndHour
	})
}
