package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/db"
)

// DeleteLocationStore defines the database operations needed to delete a location
type DeleteLocationStore interface {
	GetLocation(ctx context.Context, id string) (*model.Location, error)
	DeleteLocation(ctx context.Context, id string) error
	FindBookings(ctx context.Context, filter db.BookingFilter) ([]model.Booking, error)
}

// DeleteLocation removes a location and its custom slots. It refuses while any
// booking of any status references the location; remove those first.
func DeleteLocation(ctx context.Context, store DeleteLocationStore, logger *zap.Logger, locationID string) error {
	logger.Debug("Deleting location", zap.String("location_id", locationID))

	if _, err := store.GetLocation(ctx, locationID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return &apperror.NotFoundError{Kind: "location", ID: locationID}
		}
		return apperror.Persistence("load location", err)
	}

	bookings, err := store.FindBookings(ctx, db.BookingFilter{LocationID: locationID})
	if err != nil {
		return apperror.Persistence("load location bookings", err)
	}
	if len(bookings) > 0 {
		logger.Info("Location still has bookings", zap.String("location_id", locationID), zap.Int("bookings", len(bookings)))
		return &apperror.LocationInUseError{LocationID: locationID, Bookings: len(bookings)}
	}

	if err := store.DeleteLocation(ctx, locationID); err != nil {
		return apperror.Persistence(fmt.Sprintf("delete location %s", locationID), err)
	}

	logger.Info("Location deleted", zap.String("location_id", locationID))
	return nil
}
