package sqlite

import (
	"time"

	"gorm.io/datatypes"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// locations
type locationRecord struct {
	ID          string `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	Address     string
	Capacity    int  `gorm:"not null"`
	CustomSlots bool `gorm:"not null;default:false"`
}

func (locationRecord) TableName() string { return "locations" }

// volunteers
type volunteerRecord struct {
	ID          string `gorm:"primaryKey"`
	FirstName   string
	LastName    string
	DisplayName string
	Email       string `gorm:"index"`
	Aliases     datatypes.JSONSlice[string]
	Status      string
}

func (volunteerRecord) TableName() string { return "volunteers" }

// slots of locations with a custom catalog
type slotRecord struct {
	LocationID    string `gorm:"primaryKey"`
	ID            string `gorm:"primaryKey"`
	Position      int    `gorm:"not null"`
	Label         string
	StartHour     int `gorm:"not null"`
	EndHour       int `gorm:"not null"`
	MinVolunteers int
	MaxVolunteers int
}

func (slotRecord) TableName() string { return "slots" }

// bookings. Seq keeps insertion order.
type bookingRecord struct {
	Seq         uint   `gorm:"primaryKey;autoIncrement"`
	ID          string `gorm:"uniqueIndex;not null"`
	VolunteerID string `gorm:"not null;index:idx_booking_volunteer_day"`
	LocationID  string `gorm:"not null;index:idx_booking_bucket"`
	SlotID      string `gorm:"not null;index:idx_booking_bucket"`
	SlotLabel   string
	Date        string `gorm:"not null;index:idx_booking_bucket;index:idx_booking_volunteer_day"`
	StartHour   int    `gorm:"not null"`
	EndHour     int    `gorm:"not null"`
	Status      string `gorm:"type:varchar(32);not null;index"`
	Forced      bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
	CheckedInAt *time.Time
}

func (bookingRecord) TableName() string { return "bookings" }

func toLocationRecord(l model.Location) locationRecord {
	return locationRecord{ID: l.ID, Name: l.Name, Address: l.Address, Capacity: l.Capacity}
}

func (r locationRecord) toModel() model.Location {
	return model.Location{ID: r.ID, Name: r.Name, Address: r.Address, Capacity: r.Capacity}
}

func toVolunteerRecord(v model.Volunteer) volunteerRecord {
	aliases := v.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return volunteerRecord{
		ID:          v.ID,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		DisplayName: v.DisplayName,
		Email:       v.Email,
		Aliases:     datatypes.NewJSONSlice(aliases),
		Status:      v.Status,
	}
}

func (r volunteerRecord) toModel() model.Volunteer {
	var aliases []string
	if len(r.Aliases) > 0 {
		aliases = append(aliases, r.Aliases...)
	}
	return model.Volunteer{
		ID:          r.ID,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DisplayName: r.DisplayName,
		Email:       r.Email,
		Aliases:     aliases,
		Status:      r.Status,
	}
}

func toSlotRecord(locationID string, position int, s model.TimeSlot) slotRecord {
	return slotRecord{
		LocationID:    locationID,
		ID:            s.ID,
		Position:      position,
		Label:         s.Label,
		StartHour:     s.StartHour,
		EndHour:       s.EndHour,
		MinVolunteers: s.MinVolunteers,
		MaxVolunteers: s.MaxVolunteers,
	}
}

func (r slotRecord) toModel() model.TimeSlot {
	return model.TimeSlot{
		ID:            r.ID,
		Label:         r.Label,
		StartHour:     r.StartHour,
		EndHour:       r.EndHour,
		MinVolunteers: r.MinVolunteers,
		MaxVolunteers: r.MaxVolunteers,
	}
}

func toBookingRecord(b model.Booking) bookingRecord {
	return bookingRecord{
		ID:          b.ID,
		VolunteerID: b.VolunteerID,
		LocationID:  b.LocationID,
		SlotID:      b.SlotID,
		SlotLabel:   b.SlotLabel,
		Date:        b.Date,
		StartHour:   b.StartHour,
		EndHour:     b.EndHour,
		Status:      string(b.Status),
		Forced:      b.Forced,
		CreatedAt:   b.CreatedAt,
		CheckedInAt: b.CheckedInAt,
	}
}

func (r bookingRecord) toModel() model.Booking {
	b := model.Booking{
		ID:          r.ID,
		VolunteerID: r.VolunteerID,
		LocationID:  r.LocationID,
		SlotID:      r.SlotID,
		SlotLabel:   r.SlotLabel,
		Date:        r.Date,
		StartHour:   r.StartHour,
		EndHour:     r.EndHour,
		Status:      model.Status(r.Status),
		Forced:      r.Forced,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.CheckedInAt != nil {
		t := r.CheckedInAt.UTC()
		b.CheckedInAt = &t
	}
	return b
}
