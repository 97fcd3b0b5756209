package booking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

func TestCapacityGuard_Limit(t *testing.T) {
	location := model.Location{ID: "hall-a", Capacity: 2}

	byLocation := NewCapacityGuard(nil, nil, nil, "")
	limit, unlimited := byLocation.Limit(location, model.TimeSlot{MaxVolunteers: 9})
	assert.Equal(t, 2, limit)
	assert.False(t, unlimited)

	bySlot := NewCapacityGuard(nil, nil, nil, CapacityFromSlot)
	limit, unlimited = bySlot.Limit(location, model.TimeSlot{MaxVolunteers: 9})
	assert.Equal(t, 9, limit)
	assert.False(t, unlimited)

	_, unlimited = bySlot.Limit(location, model.TimeSlot{})
	assert.True(t, unlimited)
}

func TestOccupancy_HasRoom(t *testing.T) {
	assert.True(t, Occupancy{Active: 1, Limit: 2}.HasRoom())
	assert.False(t, Occupancy{Active: 2, Limit: 2}.HasRoom())
	assert.False(t, Occupancy{Active: 0, Limit: 0}.HasRoom(), "zero capacity admits nobody")
	assert.True(t, Occupancy{Active: 50, Unlimited: true}.HasRoom())
	assert.True(t, CapacityFromSlot.IsValid())
	assert.False(t, CapacitySource("room").IsValid())
}
