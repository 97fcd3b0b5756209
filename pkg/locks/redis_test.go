package locks

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/volunteer-booking/pkg/core/booking"
)

func newTestLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, 10*time.Second, zap.NewNop())
	locker.newToken = func() string { return "token-1" }
	locker.retryInterval = time.Millisecond
	return locker, mock
}

func TestRedisLocker_LocksInSortedOrderAndReleases(t *testing.T) {
	locker, mock := newTestLocker(t)

	bucket := booking.BucketKey("hall-a", "2024-06-03", "slot-06-08")
	day := booking.VolunteerDayKey("v1", "2024-06-03")

	mock.ExpectSetNX("lock:"+bucket, "token-1", 10*time.Second).SetVal(true)
	mock.ExpectSetNX("lock:"+day, "token-1", 10*time.Second).SetVal(true)

	unlock, err := locker.Lock(context.Background(), day, bucket)
	require.NoError(t, err)

	mock.ExpectEval(releaseScript, []string{"lock:" + day}, "token-1").SetVal(int64(1))
	mock.ExpectEval(releaseScript, []string{"lock:" + bucket}, "token-1").SetVal(int64(1))

	unlock()
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_RetriesWhileHeld(t *testing.T) {
	locker, mock := newTestLocker(t)

	mock.ExpectSetNX("lock:k", "token-1", 10*time.Second).SetVal(false)
	mock.ExpectSetNX("lock:k", "token-1", 10*time.Second).SetVal(true)

	unlock, err := locker.Lock(context.Background(), "k")
	require.NoError(t, err)

	mock.ExpectEval(releaseScript, []string{"lock:k"}, "token-1").SetVal(int64(1))
	unlock()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_GivesUpWhenContextDone(t *testing.T) {
	locker, mock := newTestLocker(t)

	mock.ExpectSetNX("lock:a", "token-1", 10*time.Second).SetVal(true)
	mock.ExpectSetNX("lock:b", "token-1", 10*time.Second).SetVal(false)
	mock.ExpectEval(releaseScript, []string{"lock:a"}, "token-1").SetVal(int64(1))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := locker.Lock(ctx, "b", "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_SetError(t *testing.T) {
	locker, mock := newTestLocker(t)

	mock.ExpectSetNX("lock:a", "token-1", 10*time.Second).SetErr(assert.AnError)

	_, err := locker.Lock(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
