package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
	"github.com/jakechorley/volunteer-booking/pkg/core/schedule"
	"github.com/jakechorley/volunteer-booking/pkg/db"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options tune the engine's business rules
type Options struct {
	CancellationWindow time.Duration
	// Timezone interprets naive booking dates when comparing against now
	Timezone       *time.Location
	CapacitySource CapacitySource
	Transitions    model.TransitionTable
}

// DefaultOptions returns a 30 minute window, UTC, location capacity and terminal statuses
func DefaultOptions() Options {
	return Options{
		CancellationWindow: DefaultCancellationWindow,
		Timezone:           time.UTC,
		CapacitySource:     CapacityFromLocation,
		Transitions:        model.TerminalTransitions,
	}
}

// Dependencies are the ports the engine orchestrates. Locker, Notifier and
// Clock are optional.
type Dependencies struct {
	Locations  db.LocationDirectory
	Volunteers db.VolunteerDirectory
	Bookings   db.BookingStore
	Catalog    *schedule.Catalog
	Locker     Locker
	Notifier   Notifier
	Clock      Clock
	Logger     *zap.Logger
}

// Engine decides and records bookings
type Engine struct {
	locations  db.LocationDirectory
	volunteers db.VolunteerDirectory
	bookings   db.BookingStore
	catalog    *schedule.Catalog
	locker     Locker
	notifier   Notifier
	clock      Clock
	logger     *zap.Logger

	conflicts *ConflictDetector
	capacity  *CapacityGuard
	policy    CancellationPolicy
	opts      Options
	newID     func() string
}

// NewEngine wires the engine. Zero-valued options fall back to DefaultOptions.
func NewEngine(deps Dependencies, opts Options) *Engine {
	defaults := DefaultOptions()
	if opts.CancellationWindow == 0 {
		opts.CancellationWindow = defaults.CancellationWindow
	}
	if opts.Timezone == nil {
		opts.Timezone = defaults.Timezone
	}
	if opts.CapacitySource == "" {
		opts.CapacitySource = defaults.CapacitySource
	}
	if opts.Transitions == nil {
		opts.Transitions = defaults.Transitions
	}

	e := &Engine{
		locations:  deps.Locations,
		volunteers: deps.Volunteers,
		bookings:   deps.Bookings,
		catalog:    deps.Catalog,
		locker:     deps.Locker,
		notifier:   deps.Notifier,
		clock:      deps.Clock,
		logger:     deps.Logger,
		policy:     CancellationPolicy{Window: opts.CancellationWindow},
		opts:       opts,
		newID:      func() string { return uuid.New().String() },
	}
	if e.locker == nil {
		e.locker = NewLocalLocker()
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.clock == nil {
		e.clock = realClock{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.conflicts = NewConflictDetector(deps.Bookings)
	e.capacity = NewCapacityGuard(deps.Locations, deps.Catalog, deps.Bookings, opts.CapacitySource)
	return e
}

// BookRequest asks for a volunteer to be placed into a location/date/slot
type BookRequest struct {
	VolunteerID string `validate:"required"`
	LocationID  string `validate:"required"`
	SlotID      string `validate:"required"`
	Date        string `validate:"required,datetime=2006-01-02"`
	// Force accepts the booking despite an overlapping commitment
	Force bool
}

// DoubleBookingWarning pauses a booking that overlaps one of the volunteer's
// active bookings. Re-issue the request with Force to accept it.
type DoubleBookingWarning struct {
	Conflicting model.Booking
	Candidate   model.TimeSlot
	Date        string
}

func (w DoubleBookingWarning) Message() string {
	return fmt.Sprintf("volunteer %s is already booked %02d:00-%02d:00 at %s on %s, which overlaps %02d:00-%02d:00",
		w.Conflicting.VolunteerID,
		w.Conflicting.StartHour, w.Conflicting.EndHour, w.Conflicting.LocationID, w.Date,
		w.Candidate.StartHour, w.Candidate.EndHour)
}

// BookResult carries either the new booking or a warning awaiting confirmation
type BookResult struct {
	Booking *model.Booking
	Warning *DoubleBookingWarning
}

// BookSlot places a volunteer into a slot.
// A double-booking warning is returned as a result, not an error, and nothing is persisted.
func (e *Engine) BookSlot(ctx context.Context, req BookRequest, actor model.Actor) (result *BookResult, err error) {
	defer func() { e.record("book", err) }()

	logger := e.logger.With(
		zap.String("volunteer_id", req.VolunteerID),
		zap.String("location_id", req.LocationID),
		zap.String("date", req.Date),
		zap.String("slot_id", req.SlotID),
		zap.String("actor", actor.String()))
	logger.Debug("Booking slot", zap.Bool("force", req.Force))

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && actor.VolunteerID != req.VolunteerID {
		return nil, &apperror.NotPermittedError{Actor: actor, Operation: "book another volunteer"}
	}

	if _, err := e.volunteers.GetVolunteer(ctx, req.VolunteerID); err != nil {
		return nil, notFoundOr(err, "volunteer", req.VolunteerID, "load volunteer")
	}
	location, err := e.locations.GetLocation(ctx, req.LocationID)
	if err != nil {
		return nil, notFoundOr(err, "location", req.LocationID, "load location")
	}
	slot, err := e.catalog.FindSlot(ctx, req.LocationID, req.SlotID)
	if err != nil {
		return nil, err
	}

	unlock, err := e.locker.Lock(ctx,
		BucketKey(req.LocationID, req.Date, req.SlotID),
		VolunteerDayKey(req.VolunteerID, req.Date))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	defer unlock()

	sameSlot, err := e.bookings.FindBookings(ctx, db.BookingFilter{
		VolunteerID: req.VolunteerID,
		LocationID:  req.LocationID,
		SlotID:      req.SlotID,
		Date:        req.Date,
		ActiveOnly:  true,
	})
	if err != nil {
		return nil, apperror.Persistence("load volunteer bookings", err)
	}
	if len(sameSlot) > 0 {
		logger.Info("Volunteer already booked into slot", zap.String("booking_id", sameSlot[0].ID))
		return nil, &apperror.AlreadyBookedError{Existing: sameSlot[0]}
	}

	conflict, err := e.conflicts.FindConflict(ctx, req.VolunteerID, req.Date, *slot, "")
	if err != nil {
		return nil, err
	}
	if conflict != nil && !req.Force {
		logger.Info("Double booking detected, confirmation required",
			zap.String("conflicting_booking_id", conflict.ID))
		metrics.RecordDoubleBookingWarning()
		return &BookResult{Warning: &DoubleBookingWarning{
			Conflicting: *conflict,
			Candidate:   *slot,
			Date:        req.Date,
		}}, nil
	}

	if err := e.capacity.check(ctx, *location, *slot, req.Date); err != nil {
		logger.Info("Slot is full", zap.Error(err))
		return nil, err
	}

	now := e.clock.Now()
	booking := model.Booking{
		ID:          e.newID(),
		VolunteerID: req.VolunteerID,
		LocationID:  req.LocationID,
		SlotID:      slot.ID,
		SlotLabel:   slot.Label,
		Date:        req.Date,
		StartHour:   slot.StartHour,
		EndHour:     slot.EndHour,
		Status:      model.StatusAssigned,
		Forced:      conflict != nil,
		CreatedAt:   now.UTC(),
	}
	if err := e.bookings.InsertBooking(ctx, booking); err != nil {
		return nil, apperror.Persistence("insert booking", err)
	}

	if booking.Forced {
		metrics.RecordForcedBooking()
	}
	logger.Info("Booking created", zap.String("booking_id", booking.ID), zap.Bool("forced", booking.Forced))
	e.emit(ctx, newChangeEvent(ChangeBooked, booking, actor, now))

	return &BookResult{Booking: &booking}, nil
}

// Cancel marks a booking cancelled. Volunteers may cancel only their own
// bookings and only outside the cancellation window; administrators have no
// time restriction. Cancellation keeps the record for reporting.
func (e *Engine) Cancel(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error) {
	return e.transition(ctx, "cancel", bookingID, actor, func(b *model.Booking, now time.Time) (ChangeKind, error) {
		if !actor.IsAdmin() && !actor.Owns(*b) {
			return "", &apperror.NotPermittedError{Actor: actor, Operation: "cancel another volunteer's booking"}
		}
		if err := e.checkTransition(*b, model.StatusCancelled); err != nil {
			return "", err
		}
		if !actor.IsAdmin() {
			start, err := b.StartsAt(e.opts.Timezone)
			if err != nil {
				return "", apperror.NewValidation("date", "%v", err)
			}
			if !e.policy.CanCancel(now, start) {
				return "", &apperror.TooLateToCancelError{
					BookingID: b.ID,
					SlotStart: start,
					Now:       now,
					Window:    e.policy.Window,
				}
			}
		}
		b.Status = model.StatusCancelled
		return ChangeCancelled, nil
	})
}

// CheckIn records that the volunteer attended
func (e *Engine) CheckIn(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error) {
	return e.transition(ctx, "check_in", bookingID, actor, func(b *model.Booking, now time.Time) (ChangeKind, error) {
		if !actor.IsAdmin() {
			return "", &apperror.NotPermittedError{Actor: actor, Operation: "check in bookings"}
		}
		if err := e.checkTransition(*b, model.StatusCheckedIn); err != nil {
			return "", err
		}
		if !b.IsActive() {
			if err := e.checkReactivation(ctx, *b); err != nil {
				return "", err
			}
		}
		checkedInAt := now.UTC()
		b.Status = model.StatusCheckedIn
		b.CheckedInAt = &checkedInAt
		return ChangeCheckedIn, nil
	})
}

// MarkNoShow records that the volunteer did not attend
func (e *Engine) MarkNoShow(ctx context.Context, bookingID string, actor model.Actor) (*model.Booking, error) {
	return e.transition(ctx, "no_show", bookingID, actor, func(b *model.Booking, now time.Time) (ChangeKind, error) {
		if !actor.IsAdmin() {
			return "", &apperror.NotPermittedError{Actor: actor, Operation: "mark no-shows"}
		}
		if err := e.checkTransition(*b, model.StatusNoShow); err != nil {
			return "", err
		}
		b.Status = model.StatusNoShow
		b.CheckedInAt = nil
		return ChangeNoShow, nil
	})
}

// Remove hard-deletes a booking. It is an administrative correction and
// ignores both the status and the cancellation window.
func (e *Engine) Remove(ctx context.Context, bookingID string, actor model.Actor) (err error) {
	defer func() { e.record("remove", err) }()

	if !actor.IsAdmin() {
		return &apperror.NotPermittedError{Actor: actor, Operation: "remove bookings"}
	}

	b, unlock, err := e.loadLocked(ctx, bookingID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := e.bookings.DeleteBooking(ctx, b.ID); err != nil {
		return notFoundOr(err, "booking", bookingID, "delete booking")
	}

	e.logger.Info("Booking removed",
		zap.String("booking_id", b.ID),
		zap.String("volunteer_id", b.VolunteerID),
		zap.String("previous_status", string(b.Status)))
	e.emit(ctx, newChangeEvent(ChangeRemoved, *b, actor, e.clock.Now()))
	return nil
}

// CancelSlot cancels every active booking in one location/date/slot, for
// example when a site closes for the day. It returns the cancelled bookings.
func (e *Engine) CancelSlot(ctx context.Context, locationID, date, slotID string, actor model.Actor) (cancelled []model.Booking, err error) {
	defer func() { e.record("cancel_slot", err) }()

	if !actor.IsAdmin() {
		return nil, &apperror.NotPermittedError{Actor: actor, Operation: "cancel a whole slot"}
	}
	if _, err := model.ParseDate(date); err != nil {
		return nil, apperror.NewValidation("date", "%v", err)
	}

	unlock, err := e.locker.Lock(ctx, BucketKey(locationID, date, slotID))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}
	defer unlock()

	active, err := e.bookings.FindBookings(ctx, db.BookingFilter{
		LocationID: locationID,
		Date:       date,
		SlotID:     slotID,
		ActiveOnly: true,
	})
	if err != nil {
		return nil, apperror.Persistence("load slot bookings", err)
	}

	now := e.clock.Now()
	cancelled = make([]model.Booking, 0, len(active))
	for _, b := range active {
		if !e.opts.Transitions.Allows(b.Status, model.StatusCancelled) {
			e.logger.Debug("Skipping booking that cannot be cancelled",
				zap.String("booking_id", b.ID), zap.String("status", string(b.Status)))
			continue
		}
		b.Status = model.StatusCancelled
		if err := e.bookings.UpdateBooking(ctx, b); err != nil {
			return cancelled, apperror.Persistence("cancel booking "+b.ID, err)
		}
		cancelled = append(cancelled, b)
		e.emit(ctx, newChangeEvent(ChangeCancelled, b, actor, now))
	}

	e.logger.Info("Slot cancelled",
		zap.String("location_id", locationID),
		zap.String("date", date),
		zap.String("slot_id", slotID),
		zap.Int("cancelled", len(cancelled)))
	return cancelled, nil
}

// transition loads a booking under its locks, applies fn and persists the result
func (e *Engine) transition(ctx context.Context, op, bookingID string, actor model.Actor, fn func(b *model.Booking, now time.Time) (ChangeKind, error)) (result *model.Booking, err error) {
	defer func() { e.record(op, err) }()

	b, unlock, err := e.loadLocked(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := e.clock.Now()
	kind, err := fn(b, now)
	if err != nil {
		e.logger.Info("Booking update rejected",
			zap.String("operation", op),
			zap.String("booking_id", bookingID),
			zap.String("actor", actor.String()),
			zap.Error(err))
		return nil, err
	}

	if err := e.bookings.UpdateBooking(ctx, *b); err != nil {
		return nil, notFoundOr(err, "booking", bookingID, "update booking")
	}

	e.logger.Info("Booking updated",
		zap.String("operation", op),
		zap.String("booking_id", b.ID),
		zap.String("status", string(b.Status)),
		zap.String("actor", actor.String()))
	e.emit(ctx, newChangeEvent(kind, *b, actor, now))
	return b, nil
}

// loadLocked fetches a booking, locks its bucket and volunteer day, then
// re-reads it so the caller acts on the latest state
func (e *Engine) loadLocked(ctx context.Context, bookingID string) (*model.Booking, func(), error) {
	if bookingID == "" {
		return nil, nil, apperror.NewValidation("bookingID", "is required")
	}

	b, err := e.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, notFoundOr(err, "booking", bookingID, "load booking")
	}

	unlock, err := e.locker.Lock(ctx,
		BucketKey(b.LocationID, b.Date, b.SlotID),
		VolunteerDayKey(b.VolunteerID, b.Date))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire booking lock: %w", err)
	}

	b, err = e.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		unlock()
		return nil, nil, notFoundOr(err, "booking", bookingID, "load booking")
	}
	return b, unlock, nil
}

func (e *Engine) checkTransition(b model.Booking, to model.Status) error {
	if !e.opts.Transitions.Allows(b.Status, to) {
		return &apperror.InvalidTransitionError{BookingID: b.ID, From: b.Status, To: to}
	}
	return nil
}

// checkReactivation enforces capacity when a revisable status change makes an
// inactive booking count toward its slot again
func (e *Engine) checkReactivation(ctx context.Context, b model.Booking) error {
	location, err := e.locations.GetLocation(ctx, b.LocationID)
	if err != nil {
		return notFoundOr(err, "location", b.LocationID, "load location")
	}
	slot, err := e.bookedSlot(ctx, b)
	if err != nil {
		return err
	}
	return e.capacity.check(ctx, *location, *slot, b.Date)
}

func (e *Engine) emit(ctx context.Context, event ChangeEvent) {
	if err := e.notifier.Notify(ctx, event); err != nil {
		e.logger.Warn("Failed to deliver change notification",
			zap.String("kind", string(event.Kind)),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
		metrics.RecordNotificationFailure(string(event.Kind))
	}
}

func (e *Engine) record(op string, err error) {
	metrics.RecordOperation(op, Outcome(err))
}

// Outcome classifies err for metrics and API responses
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperror.ErrValidation):
		return "validation"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	case errors.Is(err, apperror.ErrAlreadyBooked):
		return "already_booked"
	case errors.Is(err, apperror.ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, apperror.ErrTooLateToCancel):
		return "too_late_to_cancel"
	case errors.Is(err, apperror.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperror.ErrNotPermitted):
		return "not_permitted"
	case errors.Is(err, apperror.ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}

// notFoundOr maps db.ErrNotFound to a typed NotFoundError and anything else to a PersistenceError
func notFoundOr(err error, kind, id, op string) error {
	if errors.Is(err, db.ErrNotFound) {
		return &apperror.NotFoundError{Kind: kind, ID: id}
	}
	return apperror.Persistence(op, err)
}

func validateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperror.NewValidation(fe.Field(), "failed %q check", fe.Tag())
		}
		return apperror.NewValidation("", "%v", err)
	}
	return nil
}
