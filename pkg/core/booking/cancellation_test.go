package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCancellationPolicy_CanCancel(t *testing.T) {
	policy := CancellationPolicy{Window: DefaultCancellationWindow}
	start := time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"a day before", start.Add(-24 * time.Hour), true},
		{"35 minutes before", start.Add(-35 * time.Minute), true},
		{"exactly 30 minutes before", start.Add(-30 * time.Minute), true},
		{"29 minutes 59 seconds before", start.Add(-30*time.Minute + time.Second), false},
		{"25 minutes before", start.Add(-25 * time.Minute), false},
		{"after start", start.Add(time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.CanCancel(tt.now, start))
		})
	}
}
