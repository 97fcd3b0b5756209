package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordOperation(t *testing.T) {
	BookingOperationsTotal.Reset()

	RecordOperation("book", "ok")
	RecordOperation("book", "ok")
	RecordOperation("book", "capacity_exceeded")

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingOperationsTotal.WithLabelValues("book", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingOperationsTotal.WithLabelValues("book", "capacity_exceeded")))
}

func TestRecordDoubleBookingWarning(t *testing.T) {
	before := testutil.ToFloat64(DoubleBookingWarningsTotal)
	RecordDoubleBookingWarning()
	assert.Equal(t, before+1, testutil.ToFloat64(DoubleBookingWarningsTotal))
}

func TestRecordNotificationFailure(t *testing.T) {
	NotificationFailuresTotal.Reset()

	RecordNotificationFailure("booked")

	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationFailuresTotal.WithLabelValues("booked")))
}

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/v1/bookings", "201", 0.05)
	RecordHTTPRequest("POST", "/api/v1/bookings", "409", 0.02)

	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/bookings", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/v1/bookings", "409")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}
