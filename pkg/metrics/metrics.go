package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BookingOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_booking_operations_total",
			Help: "Booking engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	DoubleBookingWarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteer_booking_double_booking_warnings_total",
			Help: "Booking requests paused for double-booking confirmation",
		},
	)

	ForcedBookingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volunteer_booking_forced_bookings_total",
			Help: "Bookings accepted over a double-booking warning",
		},
	)

	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_booking_notification_failures_total",
			Help: "Change notifications that could not be delivered",
		},
		[]string{"kind"},
	)

	RemindersSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_booking_reminders_sent_total",
			Help: "Reminder emails by status",
		},
		[]string{"status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volunteer_booking_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "volunteer_booking_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordOperation counts one engine operation; outcome is "ok" or an error class
func RecordOperation(operation, outcome string) {
	BookingOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordDoubleBookingWarning() {
	DoubleBookingWarningsTotal.Inc()
}

func RecordForcedBooking() {
	ForcedBookingsTotal.Inc()
}

func RecordNotificationFailure(kind string) {
	NotificationFailuresTotal.WithLabelValues(kind).Inc()
}

func RecordReminder(status string) {
	RemindersSentTotal.WithLabelValues(status).Inc()
}

func RecordHTTPRequest(method, route, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}
