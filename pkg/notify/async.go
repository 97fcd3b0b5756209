package notify

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
	"github.com/jakechorley/volunteer-booking/pkg/metrics"
)

// ErrQueueFull is returned when an Async notifier cannot accept more events
var ErrQueueFull = errors.New("notification queue is full")

// Async queues events for a slow notifier (email) so the engine never waits on it
// while holding bucket locks. Run drains the queue.
type Async struct {
	inner  booking.Notifier
	queue  chan booking.ChangeEvent
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewAsync(inner booking.Notifier, buffer int, logger *zap.Logger) *Async {
	return &Async{
		inner:  inner,
		queue:  make(chan booking.ChangeEvent, buffer),
		logger: logger,
	}
}

// Notify enqueues the event without blocking
func (a *Async) Notify(ctx context.Context, event booking.ChangeEvent) error {
	select {
	case a.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start runs Run in the background; Wait blocks until it returns
func (a *Async) Start(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.Run(ctx)
	}()
}

// Run delivers queued events until ctx is done, then delivers what is already queued
func (a *Async) Run(ctx context.Context) {
	for {
		select {
		case event := <-a.queue:
			a.deliver(context.WithoutCancel(ctx), event)
		case <-ctx.Done():
			for {
				select {
				case event := <-a.queue:
					a.deliver(context.WithoutCancel(ctx), event)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until the goroutine from Start has returned
func (a *Async) Wait() {
	a.wg.Wait()
}

func (a *Async) deliver(ctx context.Context, event booking.ChangeEvent) {
	if err := a.inner.Notify(ctx, event); err != nil {
		a.logger.Warn("Failed to deliver queued notification",
			zap.String("kind", string(event.Kind)),
			zap.String("booking_id", event.BookingID),
			zap.Error(err))
		metrics.RecordNotificationFailure(string(event.Kind))
	}
}
