package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Locker serialises mutations that touch the same keys. Lock acquires every
// key or none and returns a function releasing them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// BucketKey identifies the location/date/slot bucket whose occupancy a mutation changes
func BucketKey(locationID, date, slotID string) string {
	return fmt.Sprintf("bucket:%s:%s:%s", locationID, date, slotID)
}

// VolunteerDayKey identifies a volunteer's commitments on one date
func VolunteerDayKey(volunteerID, date string) string {
	return fmt.Sprintf("volunteer:%s:%s", volunteerID, date)
}

// SortedKeys returns keys deduplicated in acquisition order. Every locker
// acquires in this order so two mutations never wait on each other in a cycle.
func SortedKeys(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	result := make([]string, 0, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			result = append(result, k)
		}
	}
	sort.Strings(result)
	return result
}

// LocalLocker is an in-process Locker keyed by string
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	held chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

// Lock waits for every key in sorted order, giving up when ctx is done
func (l *LocalLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := SortedKeys(keys)
	acquired := make([]string, 0, len(ordered))

	for _, key := range ordered {
		if err := l.acquire(ctx, key); err != nil {
			for i := len(acquired) - 1; i >= 0; i-- {
				l.release(acquired[i])
			}
			return nil, fmt.Errorf("failed to lock %s: %w", key, err)
		}
		acquired = append(acquired, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(acquired) - 1; i >= 0; i-- {
				l.release(acquired[i])
			}
		})
	}, nil
}

func (l *LocalLocker) acquire(ctx context.Context, key string) error {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{held: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.held <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		l.dropRef(key, kl)
		l.mu.Unlock()
		return ctx.Err()
	}
}

func (l *LocalLocker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[key]
	if !ok {
		return
	}
	<-kl.held
	l.dropRef(key, kl)
}

// dropRef must be called with l.mu held
func (l *LocalLocker) dropRef(key string, kl *keyLock) {
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}
