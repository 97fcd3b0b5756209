package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/legacy"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

// ImportLegacyStore defines the database operations needed to import legacy bookings
type ImportLegacyStore interface {
	ListVolunteers(ctx context.Context) ([]model.Volunteer, error)
	ListLocations(ctx context.Context) ([]model.Location, error)
	LoadAll(ctx context.Context) ([]model.Booking, error)
	ReplaceAll(ctx context.Context, bookings []model.Booking) error
}

// BookingRestorer stores carried-over bookings under the booking locks
type BookingRestorer interface {
	RestoreBooking(ctx context.Context, b model.Booking, actor model.Actor) (*model.Booking, error)
	SlotLimit(ctx context.Context, b model.Booking) (limit int, unlimited bool, err error)
}

// ImportOptions control how resolved bookings are written
type ImportOptions struct {
	// DryRun resolves records without writing anything
	DryRun bool
	// Replace discards existing bookings instead of appending to them. It
	// rewrites the whole store and must not run while bookings are being taken.
	Replace bool
}

// ImportLegacy resolves legacy records into bookings and stores them. Records
// that cannot be resolved, whose ID is already stored, or that would break a
// slot's capacity or book a volunteer twice into one slot are reported as
// issues and skipped. Appended bookings are restored one at a time through
// restorer, which re-checks those rules under the booking locks.
func ImportLegacy(
	ctx context.Context,
	store ImportLegacyStore,
	catalog booking.SlotResolver,
	restorer BookingRestorer,
	logger *zap.Logger,
	records []legacy.Record,
	opts ImportOptions,
) (*legacy.Result, error) {
	logger.Debug("Starting legacy import",
		zap.Int("records", len(records)),
		zap.Bool("dry_run", opts.DryRun),
		zap.Bool("replace", opts.Replace))

	volunteers, err := store.ListVolunteers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch volunteers: %w", err)
	}
	locations, err := store.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch locations: %w", err)
	}

	lookup := func(locationID, slotID string) (*model.TimeSlot, bool) {
		slot, err := catalog.FindSlot(ctx, locationID, slotID)
		if err != nil {
			return nil, false
		}
		return slot, true
	}
	limit := func(b model.Booking) (int, bool) {
		limit, unlimited, err := restorer.SlotLimit(ctx, b)
		if err != nil {
			// RestoreBooking checks again and reports the failure
			logger.Debug("Could not resolve slot limit", zap.String("booking_id", b.ID), zap.Error(err))
			return 0, true
		}
		return limit, unlimited
	}

	var existing []model.Booking
	if !opts.Replace {
		existing, err = store.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch existing bookings: %w", err)
		}
	}

	result := legacy.NewImporter(volunteers, locations, lookup).WithLimit(limit).Import(records, existing)

	if opts.DryRun {
		logIssues(logger, result.Issues)
		logger.Info("Legacy import dry run completed",
			zap.Int("resolved", len(result.Bookings)),
			zap.Int("skipped", len(result.Issues)))
		return result, nil
	}

	if opts.Replace {
		if err := store.ReplaceAll(ctx, result.Bookings); err != nil {
			return nil, fmt.Errorf("failed to store imported bookings: %w", err)
		}
	} else if err := restoreAll(ctx, restorer, logger, result); err != nil {
		return result, err
	}

	logIssues(logger, result.Issues)
	logger.Info("Legacy import completed",
		zap.Int("imported", len(result.Bookings)),
		zap.Int("skipped", len(result.Issues)),
		zap.Int("forced_overlaps", result.Overlaps))
	return result, nil
}

// restoreAll inserts each resolved booking through the restorer. Business
// rejections become issues; any other failure stops the import and leaves
// result holding what was stored so far.
func restoreAll(ctx context.Context, restorer BookingRestorer, logger *zap.Logger, result *legacy.Result) error {
	pending := result.Bookings
	result.Bookings = make([]model.Booking, 0, len(pending))
	result.Overlaps = 0

	for _, b := range pending {
		restored, err := restorer.RestoreBooking(ctx, b, model.Admin())
		if err != nil {
			if !apperror.IsBusinessOutcome(err) {
				return fmt.Errorf("failed to store imported booking %s: %w", b.ID, err)
			}
			result.Reject(b, err.Error())
			continue
		}
		if restored.Forced {
			result.Overlaps++
		}
		result.Bookings = append(result.Bookings, *restored)
		logger.Debug("Imported booking", zap.String("booking_id", restored.ID))
	}
	return nil
}

func logIssues(logger *zap.Logger, issues []legacy.Issue) {
	for _, issue := range issues {
		logger.Warn("Legacy record skipped",
			zap.Int("index", issue.Index),
			zap.String("record_id", issue.RecordID),
			zap.String("reason", issue.Reason))
	}
}
