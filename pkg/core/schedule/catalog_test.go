package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

func newTestCatalog(t *testing.T) (*Catalog, *db.MemoryDB) {
	t.Helper()
	store := db.NewMemoryDB()
	require.NoError(t, store.SaveLocation(context.Background(), model.Location{ID: "hall-a", Name: "Hall A", Capacity: 2}))
	return NewCatalog(store, store, zap.NewNop()), store
}

func TestGetSlots_DefaultsWhenNoCustomCatalog(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	slots, err := catalog.GetSlots(context.Background(), "hall-a")
	require.NoError(t, err)
	require.Len(t, slots, 7)
	assert.Equal(t, 6, slots[0].StartHour)
	assert.Equal(t, 20, slots[6].EndHour)
	for i := 1; i < len(slots); i++ {
		assert.Equal(t, slots[i-1].EndHour, slots[i].StartHour, "default blocks are contiguous")
		assert.Equal(t, 2, slots[i].Hours())
	}
}

func TestGetSlots_ReturnsClone(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	slots, err := catalog.GetSlots(ctx, "hall-a")
	require.NoError(t, err)
	slots[0].StartHour = 5

	again, err := catalog.GetSlots(ctx, "hall-a")
	require.NoError(t, err)
	assert.Equal(t, 6, again[0].StartHour, "mutating a returned catalog must not leak into the defaults")
}

func TestSetSlots_OrdersAndPersists(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	err := catalog.SetSlots(ctx, "hall-a", []model.TimeSlot{
		{ID: "evening", Label: "Evening", StartHour: 17, EndHour: 21},
		{ID: "morning", Label: "Morning", StartHour: 9, EndHour: 12},
	})
	require.NoError(t, err)

	slots, err := catalog.GetSlots(ctx, "hall-a")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "morning", slots[0].ID)
	assert.Equal(t, "evening", slots[1].ID)

	custom, err := catalog.IsCustom(ctx, "hall-a")
	require.NoError(t, err)
	assert.True(t, custom)
}

func TestSetSlots_RejectsInvalidSlot(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	err := catalog.SetSlots(context.Background(), "hall-a", []model.TimeSlot{
		{ID: "bad", StartHour: 10, EndHour: 9},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestSetSlots_RejectsDuplicateIDs(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	err := catalog.SetSlots(context.Background(), "hall-a", []model.TimeSlot{
		{ID: "a", StartHour: 6, EndHour: 8},
		{ID: "a", StartHour: 8, EndHour: 10},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))
	assert.Contains(t, err.Error(), "duplicate")
}

func TestSetSlots_UnknownLocation(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	err := catalog.SetSlots(context.Background(), "nowhere", []model.TimeSlot{{ID: "a", StartHour: 6, EndHour: 8}})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestAddSlot_StartsFromDefaults(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	err := catalog.AddSlot(ctx, "hall-a", model.TimeSlot{ID: "night", Label: "Night", StartHour: 20, EndHour: 23})
	require.NoError(t, err)

	slots, err := catalog.GetSlots(ctx, "hall-a")
	require.NoError(t, err)
	require.Len(t, slots, 8)
	assert.Equal(t, "night", slots[7].ID)
}

func TestAddSlot_DuplicateOfDefault(t *testing.T) {
	catalog, _ := newTestCatalog(t)

	err := catalog.AddSlot(context.Background(), "hall-a", model.TimeSlot{ID: "slot-06-08", StartHour: 6, EndHour: 7})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestRemoveSlot(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.RemoveSlot(ctx, "hall-a", "slot-12-14"))

	slots, err := catalog.GetSlots(ctx, "hall-a")
	require.NoError(t, err)
	assert.Len(t, slots, 6)
	for _, s := range slots {
		assert.NotEqual(t, "slot-12-14", s.ID)
	}

	err = catalog.RemoveSlot(ctx, "hall-a", "slot-12-14")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestResetToDefault_ReplacesCustomSlots(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.SetSlots(ctx, "hall-a", []model.TimeSlot{{ID: "only", StartHour: 9, EndHour: 17}}))
	require.NoError(t, catalog.ResetToDefault(ctx, "hall-a"))

	slots, err := catalog.GetSlots(ctx, "hall-a")
	require.NoError(t, err)
	assert.Equal(t, DefaultSlots(), slots)

	custom, err := catalog.IsCustom(ctx, "hall-a")
	require.NoError(t, err)
	assert.False(t, custom)
}

func TestFindSlot(t *testing.T) {
	catalog, _ := newTestCatalog(t)
	ctx := context.Background()

	slot, err := catalog.FindSlot(ctx, "hall-a", "slot-14-16")
	require.NoError(t, err)
	assert.Equal(t, 14, slot.StartHour)

	_, err = catalog.FindSlot(ctx, "hall-a", "slot-20-22")
	var invalid *apperror.ValidationError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "slotID", invalid.Field)
}
