package notify

import (
	"context"
	"errors"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
)

// Multi fans an event out to every notifier. All are tried; failures are joined.
type Multi []booking.Notifier

func (m Multi) Notify(ctx context.Context, event booking.ChangeEvent) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
