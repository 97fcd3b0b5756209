package booking

import "time"

// DefaultCancellationWindow is how long before a slot starts volunteers stop
// being able to cancel their own bookings
const DefaultCancellationWindow = 30 * time.Minute

// CancellationPolicy is the self-service cancellation cutoff. It knows nothing
// about who is cancelling; administrators bypass it in the engine.
type CancellationPolicy struct {
	Window time.Duration
}

// CanCancel reports whether slotStart is at least Window after now
func (p CancellationPolicy) CanCancel(now, slotStart time.Time) bool {
	return slotStart.Sub(now) >= p.Window
}
