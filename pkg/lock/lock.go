// Package lock provides advisory, auto-expiring locks on workflow resources.
//
// Locks only narrow the window for duplicate work. Callers pair them with an
// IsLocked predicate that re-checks the store once the lock is held.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL bounds how long a lock survives a crashed holder.
const DefaultTTL = 30 * time.Second

// ErrLocked indicates the resource is held by someone else, or its IsLocked
// predicate reported the work as already done. Callers may retry after a backoff.
var ErrLocked = errors.New("resource is locked")

// IsLockedFunc reports whether the guarded work already happened. It runs
// after the lock is acquired.
type IsLockedFunc func(ctx context.Context) (bool, error)

// Options tune a lock acquisition.
type Options struct {
	Prefix   string
	TTL      time.Duration
	IsLocked IsLockedFunc
}

// Lock is a held lock.
type Lock interface {
	Unlock(ctx context.Context) error
}

// Locker acquires locks.
type Locker interface {
	Lock(ctx context.Context, resource string, opts Options) (Lock, error)
}

// LockError wraps a failed acquisition with the resource.
type LockError struct {
	Resource string
	Err      error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("lock %s: %v", e.Resource, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// IsLocked checks if an error indicates contention.
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

// Key returns the backend key of resource under prefix.
func Key(prefix, resource string) string {
	if prefix == "" {
		return "lock:" + resource
	}

	return prefix + ":" + resource
}

// Expiry returns the TTL, or DefaultTTL when unset.
func (o Options) Expiry() time.Duration {
	if o.TTL <= 0 {
		return DefaultTTL
	}

	return o.TTL
}

// CheckHeld runs the IsLocked predicate of a freshly acquired lock and
// releases the lock when the predicate reports the work as done or fails.
// Backends call it before handing out a lock.
func CheckHeld(ctx context.Context, resource string, held Lock, opts Options) (Lock, error) {
	if opts.IsLocked == nil {
		return held, nil
	}

	locked, err := opts.IsLocked(ctx)
	if err == nil && !locked {
		return held, nil
	}

	if unlockErr := held.Unlock(ctx); unlockErr != nil {
		err = errors.Join(err, unlockErr)
	}

	if err != nil {
		return nil, &LockError{Resource: resource, Err: err}
	}

	return nil, &LockError{Resource: resource, Err: ErrLocked}
}

// With runs fn while holding the lock on resource.
func With(ctx context.Context, locker Locker, resource string, opts Options, fn func(ctx context.Context) error) (err error) {
	held, err := locker.Lock(ctx, resource, opts)
	if err != nil {
		return err
	}

	defer func() {
		if unlockErr := held.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			err = errors.Join(err, unlockErr)
		}
	}()

	return fn(ctx)
}
