// Package reminders sends next-day booking reminders on a cron schedule
package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/services"
)

// Scheduler runs services.SendBookingReminders for the following day
type Scheduler struct {
	cron     *cron.Cron
	store    services.RemindersStore
	gmail    services.GmailClient
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

func NewScheduler(store services.RemindersStore, gmail services.GmailClient, location *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		store:    store,
		gmail:    gmail,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
}

// Schedule registers the reminder job against a standard five-field cron spec
func (s *Scheduler) Schedule(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Reminder run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reminders %q: %w", spec, err)
	}
	s.logger.Info("Reminders scheduled", zap.String("schedule", spec))
	return nil
}

// Start runs scheduled jobs in the background until Stop
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce sends reminders for tomorrow's bookings and returns the date it covered
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	date := s.now().In(s.location).AddDate(0, 0, 1).Format("2006-01-02")

	sent, failed, err := services.SendBookingReminders(ctx, s.store, s.gmail, s.logger, date)
	if err != nil {
		return date, fmt.Errorf("failed to send reminders for %s: %w", date, err)
	}

	s.logger.Info("Reminders sent",
		zap.String("date", date),
		zap.Int("sent", len(sent)),
		zap.Int("failed", len(failed)))
	return date, nil
}
