// Package lock serializes work per user, so one participant's commands
// are applied in the order they arrive.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// entry is a one-slot semaphore shared by everyone holding or waiting
// for the same user.
type entry struct {
	sem  chan struct{}
	refs int
}

// UserLock is a keyed mutex. Entries are dropped once nobody holds or
// waits on them.
type UserLock struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{entries: make(map[int64]*entry)}
}

func (ul *UserLock) ref(userID int64) *entry {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e, ok := ul.entries[userID]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		ul.entries[userID] = e
	}
	e.refs++
	return e
}

func (ul *UserLock) unref(userID int64, e *entry) {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(ul.entries, userID)
	}
}

// Lock blocks until the user's lock is held or ctx is done.
func (ul *UserLock) Lock(ctx context.Context, userID int64) error {
	e := ul.ref(userID)
	select {
	case e.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.unref(userID, e)
		return fmt.Errorf("%w: %w", ErrLockTimeout, ctx.Err())
	}
}

// TryLock acquires the user's lock only if it is free.
func (ul *UserLock) TryLock(userID int64) bool {
	e := ul.ref(userID)
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		ul.unref(userID, e)
		return false
	}
}

// Unlock releases the user's lock. Unlocking a lock that is not held panics.
func (ul *UserLock) Unlock(userID int64) {
	ul.mu.Lock()
	e, ok := ul.entries[userID]
	ul.mu.Unlock()
	if !ok {
		panic(fmt.Sprintf("lock: unlock of unlocked user %d", userID))
	}

	<-e.sem
	ul.unref(userID, e)
}

// WithLock runs fn while holding the user's lock, waiting at most timeout
// to acquire it.
func (ul *UserLock) WithLock(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := ul.Lock(lockCtx, userID); err != nil {
		return err
	}
	defer ul.Unlock(userID)

	return fn()
}

// IsLocked reports whether someone currently holds the user's lock.
func (ul *UserLock) IsLocked(userID int64) bool {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	e, ok := ul.entries[userID]
	return ok && len(e.sem) == 1
}

// Len returns how many users have a holder or a waiter.
func (ul *UserLock) Len() int {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	return len(ul.entries)
}
