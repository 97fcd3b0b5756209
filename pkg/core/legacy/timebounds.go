package legacy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// Source records which rule produced a record's hours
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceCatalog  Source = "catalog"
	SourceLabel    Source = "label"
	SourceID       Source = "id"
)

// SlotLookup finds a slot in a location's current catalog
type SlotLookup func(locationID, slotID string) (*model.TimeSlot, bool)

var (
	labelPattern = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?\s*(?:-|–|to)\s*(\d{1,2})(?::(\d{2}))?\s*([ap]\.?m\.?)?\s*$`)
	idPattern    = regexp.MustCompile(`(?i)^(?:slot[-_]?)?(\d{1,2})(?::?(\d{2}))?[-_](\d{1,2})(?::?(\d{2}))?$`)
)

// ResolveHours derives [start, end) for a record. Rules are tried in order:
// explicit hours, the slot in the location catalog, the free-text label, then
// the slot ID pattern. The first rule that yields a valid range wins.
func ResolveHours(r Record, lookup SlotLookup) (start, end int, source Source, err error) {
	if r.StartHour != nil && r.EndHour != nil {
		if validRange(*r.StartHour, *r.EndHour) {
			return *r.StartHour, *r.EndHour, SourceExplicit, nil
		}
	}
	if lookup != nil && r.SlotID != "" {
		if slot, ok := lookup(r.LocationID, r.SlotID); ok {
			return slot.StartHour, slot.EndHour, SourceCatalog, nil
		}
	}
	if start, end, ok := ParseLabel(r.SlotLabel); ok {
		return start, end, SourceLabel, nil
	}
	if start, end, ok := ParseSlotID(r.SlotID); ok {
		return start, end, SourceID, nil
	}
	return 0, 0, "", fmt.Errorf("cannot resolve hours from slot %q label %q", r.SlotID, r.SlotLabel)
}

// ParseLabel reads labels such as "6:00 AM - 8:00 AM", "06:00-08:00" or "6am-8am".
// A missing meridiem on the start inherits the end's when that keeps the range ordered.
func ParseLabel(label string) (start, end int, ok bool) {
	m := labelPattern.FindStringSubmatch(label)
	if m == nil {
		return 0, 0, false
	}

	endHour, ok := toHour(m[4], m[5], m[6])
	if !ok {
		return 0, 0, false
	}
	startSuffix := m[3]
	if startSuffix == "" && m[6] != "" {
		if h, ok := toHour(m[1], m[2], m[6]); ok && validRange(h, fixMidnight(h, endHour)) {
			startSuffix = m[6]
		}
	}
	startHour, ok := toHour(m[1], m[2], startSuffix)
	if !ok {
		return 0, 0, false
	}
	endHour = fixMidnight(startHour, endHour)

	if !validRange(startHour, endHour) {
		return 0, 0, false
	}
	return startHour, endHour, true
}

// ParseSlotID reads IDs such as "slot-6-8", "06-08" or "slot_0600_0800"
func ParseSlotID(id string) (start, end int, ok bool) {
	m := idPattern.FindStringSubmatch(strings.TrimSpace(id))
	if m == nil {
		return 0, 0, false
	}
	startHour, ok := toHour(m[1], m[2], "")
	if !ok {
		return 0, 0, false
	}
	endHour, ok := toHour(m[3], m[4], "")
	if !ok || !validRange(startHour, endHour) {
		return 0, 0, false
	}
	return startHour, endHour, true
}

// toHour converts an hour, optional minutes and optional am/pm suffix to a
// 24-hour clock hour. Bookings are whole hours so non-zero minutes fail.
func toHour(hour, minutes, suffix string) (int, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return 0, false
	}
	if minutes != "" && minutes != "00" {
		return 0, false
	}

	suffix = strings.ToLower(strings.ReplaceAll(suffix, ".", ""))
	switch suffix {
	case "":
		if h > 24 {
			return 0, false
		}
		return h, true
	case "am":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 0, true
		}
		return h, true
	case "pm":
		if h < 1 || h > 12 {
			return 0, false
		}
		if h == 12 {
			return 12, true
		}
		return h + 12, true
	}
	return 0, false
}

// fixMidnight reads an end of 0 after a later start as the end of the day
func fixMidnight(start, end int) int {
	if end == 0 && start > 0 {
		return 24
	}
	return end
}

func validRange(start, end int) bool {
	return start >= 0 && end <= 24 && start < end
}
