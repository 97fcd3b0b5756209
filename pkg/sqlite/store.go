// Package sqlite stores the booking data in a local SQLite file through gorm
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// Store implements db.Database on SQLite
type Store struct {
	db *gorm.DB
}

var _ db.Database = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates the schema.
// Use ":memory:" for a throwaway database.
func Open(path string) (*Store, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps :memory: databases shared
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(gdb); err != nil {
		return nil, err
	}

	return &Store{db: gdb}, nil
}

// AutoMigrate creates or updates every table the store uses
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&locationRecord{}, &volunteerRecord{}, &slotRecord{}, &bookingRecord{}); err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return nil
}

// Close releases the underlying connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, db.ErrNotFound)
	}
	return err
}

// GetLocation retrieves a location by ID
func (s *Store) GetLocation(ctx context.Context, id string) (*model.Location, error) {
	var r locationRecord
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "location "+id)
	}
	loc := r.toModel()
	return &loc, nil
}

// ListLocations retrieves all locations ordered by name
func (s *Store) ListLocations(ctx context.Context) ([]model.Location, error) {
	var records []locationRecord
	if err := s.db.WithContext(ctx).Order("name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	locations := make([]model.Location, len(records))
	for i, r := range records {
		locations[i] = r.toModel()
	}
	return locations, nil
}

// SaveLocation creates or replaces a location, keeping its slot catalog flag
func (s *Store) SaveLocation(ctx context.Context, location model.Location) error {
	r := toLocationRecord(location)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing locationRecord
		err := tx.First(&existing, "id = ?", location.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&r).Error
		case err != nil:
			return err
		}
		return tx.Model(&locationRecord{}).Where("id = ?", location.ID).Updates(map[string]any{
			"name":     r.Name,
			"address":  r.Address,
			"capacity": r.Capacity,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location and its custom slots
func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", id).Delete(&slotRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&locationRecord{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("location %s: %w", id, db.ErrNotFound)
	}
	return nil
}

// GetVolunteer retrieves a volunteer by ID
func (s *Store) GetVolunteer(ctx context.Context, id string) (*model.Volunteer, error) {
	var r volunteerRecord
	if err := s.db.WithContext(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "volunteer "+id)
	}
	v := r.toModel()
	return &v, nil
}

// ListVolunteers retrieves all volunteers ordered by ID
func (s *Store) ListVolunteers(ctx context.Context) ([]model.Volunteer, error) {
	var records []volunteerRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list volunteers: %w", err)
	}
	volunteers := make([]model.Volunteer, len(records))
	for i, r := range records {
		volunteers[i] = r.toModel()
	}
	return volunteers, nil
}

// SaveVolunteer creates or replaces a volunteer
func (s *Store) SaveVolunteer(ctx context.Context, volunteer model.Volunteer) error {
	r := toVolunteerRecord(volunteer)
	if err := s.db.WithContext(ctx).Save(&r).Error; err != nil {
		return fmt.Errorf("failed to save volunteer: %w", err)
	}
	return nil
}

// GetSlots retrieves a location's custom slots in catalog order
func (s *Store) GetSlots(ctx context.Context, locationID string) ([]model.TimeSlot, bool, error) {
	var loc locationRecord
	err := s.db.WithContext(ctx).First(&loc, "id = ?", locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !loc.CustomSlots) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query location slots flag: %w", err)
	}

	var records []slotRecord
	if err := s.db.WithContext(ctx).Where("location_id = ?", locationID).Order("position").Find(&records).Error; err != nil {
		return nil, false, fmt.Errorf("failed to query slots: %w", err)
	}
	slots := make([]model.TimeSlot, len(records))
	for i, r := range records {
		slots[i] = r.toModel()
	}
	return slots, true, nil
}

// SaveSlots replaces a location's custom slots
func (s *Store) SaveSlots(ctx context.Context, locationID string, slots []model.TimeSlot) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", locationID).Delete(&slotRecord{}).Error; err != nil {
			return err
		}
		if len(slots) > 0 {
			records := make([]slotRecord, len(slots))
			for i, slot := range slots {
				records[i] = toSlotRecord(locationID, i, slot)
			}
			if err := tx.Create(&records).Error; err != nil {
				return err
			}
		}
		return tx.Model(&locationRecord{}).Where("id = ?", locationID).Update("custom_slots", true).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save slots: %w", err)
	}
	return nil
}

// DeleteSlots drops a location's custom slots so it falls back to the defaults
func (s *Store) DeleteSlots(ctx context.Context, locationID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("location_id = ?", locationID).Delete(&slotRecord{}).Error; err != nil {
			return err
		}
		return tx.Model(&locationRecord{}).Where("id = ?", locationID).Update("custom_slots", false).Error
	})
	if err != nil {
		return fmt.Errorf("failed to delete slots: %w", err)
	}
	return nil
}
