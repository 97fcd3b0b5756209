package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/teambition/rrule-go"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/apperror"
	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/core/model"
)

const (
	maxSeriesOccurrences  = 366
	maxConcurrentBookings = 4
)

// SlotBooker is the engine operation a series is made of
type SlotBooker interface {
	BookSlot(ctx context.Context, req booking.BookRequest, actor model.Actor) (*booking.BookResult, error)
}

// SeriesRequest books one volunteer into the same slot on every date of a recurrence rule
type SeriesRequest struct {
	VolunteerID string
	LocationID  string
	SlotID      string
	StartDate   string // first candidate date, DTSTART of the rule
	RRule       string // e.g. FREQ=WEEKLY;BYDAY=SA;COUNT=6
	Force       bool
}

// SeriesOutcome is the result of booking one date of a series
type SeriesOutcome struct {
	Date    string
	Booking *model.Booking
	Warning *booking.DoubleBookingWarning
	Err     error
}

// SeriesResult lists outcomes in date order
type SeriesResult struct {
	Outcomes []SeriesOutcome
}

func (r *SeriesResult) count(match func(SeriesOutcome) bool) int {
	n := 0
	for _, o := range r.Outcomes {
		if match(o) {
			n++
		}
	}
	return n
}

func (r *SeriesResult) Booked() int {
	return r.count(func(o SeriesOutcome) bool { return o.Booking != nil })
}

func (r *SeriesResult) Warnings() int {
	return r.count(func(o SeriesOutcome) bool { return o.Warning != nil })
}

func (r *SeriesResult) Failed() int {
	return r.count(func(o SeriesOutcome) bool { return o.Err != nil })
}

// BookSeries expands the rule and books each date independently. A date that
// fails or needs confirmation does not stop the others.
func BookSeries(ctx context.Context, booker SlotBooker, logger *zap.Logger, req SeriesRequest, actor model.Actor) (*SeriesResult, error) {
	logger.Debug("Booking series",
		zap.String("volunteer_id", req.VolunteerID),
		zap.String("location_id", req.LocationID),
		zap.String("slot_id", req.SlotID),
		zap.String("start_date", req.StartDate),
		zap.String("rrule", req.RRule))

	dates, err := ExpandSeries(req.StartDate, req.RRule)
	if err != nil {
		return nil, err
	}
	logger.Debug("Expanded series", zap.Int("dates", len(dates)))

	outcomes := make([]SeriesOutcome, len(dates))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, maxConcurrentBookings)

	for i, date := range dates {
		wg.Add(1)
		go func(i int, date string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			outcome := SeriesOutcome{Date: date}
			result, err := booker.BookSlot(ctx, booking.BookRequest{
				VolunteerID: req.VolunteerID,
				LocationID:  req.LocationID,
				SlotID:      req.SlotID,
				Date:        date,
				Force:       req.Force,
			}, actor)
			if err != nil {
				outcome.Err = err
				logger.Warn("Series date not booked", zap.String("date", date), zap.Error(err))
			} else {
				outcome.Booking = result.Booking
				outcome.Warning = result.Warning
			}
			outcomes[i] = outcome
		}(i, date)
	}
	wg.Wait()

	result := &SeriesResult{Outcomes: outcomes}
	logger.Info("Series booking completed",
		zap.String("volunteer_id", req.VolunteerID),
		zap.Int("booked", result.Booked()),
		zap.Int("warnings", result.Warnings()),
		zap.Int("failed", result.Failed()))
	return result, nil
}

// ExpandSeries returns the dates a bounded recurrence rule produces from startDate.
// Rules without COUNT or UNTIL are rejected.
func ExpandSeries(startDate, rule string) ([]string, error) {
	start, err := model.ParseDate(startDate)
	if err != nil {
		return nil, apperror.NewValidation("startDate", "%v", err)
	}

	opt, err := rrule.StrToROption(strings.TrimPrefix(strings.TrimSpace(rule), "RRULE:"))
	if err != nil {
		return nil, apperror.NewValidation("rrule", "%v", err)
	}
	if opt.Count == 0 && opt.Until.IsZero() {
		return nil, apperror.NewValidation("rrule", "must be bounded by COUNT or UNTIL")
	}
	if opt.Freq > rrule.DAILY {
		return nil, apperror.NewValidation("rrule", "FREQ=%s repeats within a day; use DAILY or longer", opt.Freq)
	}
	if opt.Count > maxSeriesOccurrences {
		return nil, apperror.NewValidation("rrule", "COUNT %d exceeds the limit of %d", opt.Count, maxSeriesOccurrences)
	}
	opt.Dtstart = start

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, apperror.NewValidation("rrule", "%v", err)
	}

	var dates []string
	next := r.Iterator()
	for occ, ok := next(); ok; occ, ok = next() {
		if len(dates) == maxSeriesOccurrences {
			return nil, apperror.NewValidation("rrule", "produces more than the limit of %d dates", maxSeriesOccurrences)
		}
		dates = append(dates, occ.Format(model.DateLayout))
	}
	return dates, nil
}

func describeSeriesOutcome(o SeriesOutcome) string {
	switch {
	case o.Booking != nil:
		return fmt.Sprintf("%s booked (%s)", o.Date, o.Booking.ID)
	case o.Warning != nil:
		return fmt.Sprintf("%s needs confirmation: %s", o.Date, o.Warning.Message())
	default:
		return fmt.Sprintf("%s failed: %v", o.Date, o.Err)
	}
}

// Describe renders one line per date
func (r *SeriesResult) Describe() []string {
	lines := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		lines[i] = describeSeriesOutcome(o)
	}
	return lines
}
