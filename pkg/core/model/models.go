package model

import (
	"fmt"
	"time"
)

// DateLayout is the layout of every calendar date handled by the booking core.
// Dates are naive: they carry no time zone and are interpreted in the
// deployment's configured location only when a wall-clock instant is needed.
const DateLayout = "2006-01-02"

// Location is a site volunteers can be booked into
type Location struct {
	ID       string
	Name     string
	Address  string
	Capacity int // maximum simultaneous active bookings per slot
}

// TimeSlot is a named half-open interval [StartHour, EndHour) on a 24-hour clock
type TimeSlot struct {
	ID            string
	Label         string
	StartHour     int
	EndHour       int
	MinVolunteers int
	MaxVolunteers int // 0 means unset
}

// Validate checks the slot invariants
func (s TimeSlot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("slot id is required")
	}
	if s.StartHour < 0 || s.StartHour > 24 || s.EndHour < 0 || s.EndHour > 24 {
		return fmt.Errorf("slot %s: hours must be within [0,24], got %d-%d", s.ID, s.StartHour, s.EndHour)
	}
	if s.StartHour >= s.EndHour {
		return fmt.Errorf("slot %s: start hour %d must be before end hour %d", s.ID, s.StartHour, s.EndHour)
	}
	if s.MinVolunteers < 0 || s.MaxVolunteers < 0 {
		return fmt.Errorf("slot %s: volunteer bounds must not be negative", s.ID)
	}
	if s.MaxVolunteers > 0 && s.MinVolunteers > s.MaxVolunteers {
		return fmt.Errorf("slot %s: min volunteers %d exceeds max volunteers %d", s.ID, s.MinVolunteers, s.MaxVolunteers)
	}
	return nil
}

// Hours returns the slot length in hours
func (s TimeSlot) Hours() int {
	return s.EndHour - s.StartHour
}

// Overlaps reports whether two half-open hour ranges intersect
func Overlaps(startA, endA, startB, endB int) bool {
	return startA < endB && startB < endA
}

// Volunteer is a person who can hold bookings. ID is the only key bookings
// reference; Email and Aliases exist for matching legacy records.
type Volunteer struct {
	ID          string
	FirstName   string
	LastName    string
	DisplayName string
	Email       string
	Aliases     []string
	Status      string
}

// FullName returns "FirstName LastName" without a trailing space for single names
func (v Volunteer) FullName() string {
	if v.LastName == "" {
		return v.FirstName
	}
	return v.FirstName + " " + v.LastName
}

// Booking places one volunteer into one location/date/slot. The slot's hours
// and label are copied onto the booking when it is created so later catalog
// edits never move an existing commitment.
type Booking struct {
	ID          string
	VolunteerID string
	LocationID  string
	SlotID      string
	SlotLabel   string
	Date        string // DateLayout
	StartHour   int
	EndHour     int
	Status      Status
	Forced      bool // accepted over a double-booking warning
	CreatedAt   time.Time
	CheckedInAt *time.Time
}

// Hours returns the booked duration used for service-hour reporting
func (b Booking) Hours() int {
	return b.EndHour - b.StartHour
}

// IsActive reports whether the booking counts toward capacity and conflicts
func (b Booking) IsActive() bool {
	return b.Status.IsActive()
}

// StartsAt returns the wall-clock start of the booking in loc
func (b Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return SlotStart(b.Date, b.StartHour, loc)
}

// SlotStart combines a naive date and an hour into an instant in loc
func SlotStart(date string, hour int, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, loc), nil
}

// ParseDate parses a DateLayout date
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return d, nil
}

// ActorRole distinguishes self-service volunteers from administrators
type ActorRole string

const (
	ActorVolunteer ActorRole = "volunteer"
	ActorAdmin     ActorRole = "admin"
)

// Actor is whoever invokes a booking operation
type Actor struct {
	Role        ActorRole
	VolunteerID string // set when Role is ActorVolunteer
}

// Admin returns an administrator actor
func Admin() Actor {
	return Actor{Role: ActorAdmin}
}

// VolunteerActor returns a self-service actor for the given volunteer
func VolunteerActor(volunteerID string) Actor {
	return Actor{Role: ActorVolunteer, VolunteerID: volunteerID}
}

func (a Actor) IsAdmin() bool {
	return a.Role == ActorAdmin
}

// Owns reports whether the actor is the volunteer holding the booking
func (a Actor) Owns(b Booking) bool {
	return a.Role == ActorVolunteer && a.VolunteerID != "" && a.VolunteerID == b.VolunteerID
}

func (a Actor) String() string {
	if a.Role == ActorVolunteer {
		return fmt.Sprintf("volunteer:%s", a.VolunteerID)
	}
	return string(a.Role)
}
