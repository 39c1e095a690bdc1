// Package locktest holds the behaviour suite every lock.Locker backend runs.
package locktest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/science-periodicals/librarian-sub000/pkg/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocker runs the suite against lockers built by newLocker.
func TestLocker(t *testing.T, newLocker func(t *testing.T) lock.Locker) {
	t.Helper()

	t.Run("exclusive", func(t *testing.T) {
		locker := newLocker(t)
		ctx := t.Context()

		held, err := locker.Lock(ctx, "graph:paper", lock.Options{Prefix: "stage"})
		require.NoError(t, err)

		_, err = locker.Lock(ctx, "graph:paper", lock.Options{Prefix: "stage"})
		require.ErrorIs(t, err, lock.ErrLocked)

		other, err := locker.Lock(ctx, "graph:paper", lock.Options{Prefix: "release"})
		require.NoError(t, err, "prefixes are independent")
		require.NoError(t, other.Unlock(ctx))

		require.NoError(t, held.Unlock(ctx))

		again, err := locker.Lock(ctx, "graph:paper", lock.Options{Prefix: "stage"})
		require.NoError(t, err)
		require.NoError(t, again.Unlock(ctx))
	})

	t.Run("expires", func(t *testing.T) {
		locker := newLocker(t)
		ctx := t.Context()

		_, err := locker.Lock(ctx, "graph:paper", lock.Options{TTL: 50 * time.Millisecond})
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			held, err := locker.Lock(ctx, "graph:paper", lock.Options{TTL: time.Second})
			if err != nil {
				return false
			}

			return held.Unlock(ctx) == nil
		}, 2*time.Second, 20*time.Millisecond)
	})

	t.Run("stale holder does not release a new lock", func(t *testing.T) {
		locker := newLocker(t)
		ctx := t.Context()

		stale, err := locker.Lock(ctx, "graph:paper", lock.Options{TTL: 50 * time.Millisecond})
		require.NoError(t, err)

		var current lock.Lock

		require.Eventually(t, func() bool {
			current, err = locker.Lock(ctx, "graph:paper", lock.Options{TTL: time.Minute})

			return err == nil
		}, 2*time.Second, 20*time.Millisecond)

		require.NoError(t, stale.Unlock(ctx))

		_, err = locker.Lock(ctx, "graph:paper", lock.Options{})
		require.ErrorIs(t, err, lock.ErrLocked)
		require.NoError(t, current.Unlock(ctx))
	})

	t.Run("is locked predicate", func(t *testing.T) {
		locker := newLocker(t)
		ctx := t.Context()

		done := func(context.Context) (bool, error) { return true, nil }
		_, err := locker.Lock(ctx, "graph:paper", lock.Options{IsLocked: done})
		require.ErrorIs(t, err, lock.ErrLocked)

		boom := errors.New("store down")
		failing := func(context.Context) (bool, error) { return false, boom }
		_, err = locker.Lock(ctx, "graph:paper", lock.Options{IsLocked: failing})
		require.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, lock.ErrLocked)

		pending := func(context.Context) (bool, error) { return false, nil }
		held, err := locker.Lock(ctx, "graph:paper", lock.Options{IsLocked: pending})
		require.NoError(t, err, "rejected acquisitions release the lock")
		require.NoError(t, held.Unlock(ctx))
	})

	t.Run("at most one concurrent holder", func(t *testing.T) {
		locker := newLocker(t)
		ctx := t.Context()

		var (
			wg   sync.WaitGroup
			runs atomic.Int32
			done atomic.Bool
		)

		isDone := func(context.Context) (bool, error) { return done.Load(), nil }

		for range 16 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_ = lock.With(ctx, locker, "graph:paper", lock.Options{IsLocked: isDone}, func(context.Context) error {
					runs.Add(1)
					done.Store(true)

					return nil
				})
			}()
		}

		wg.Wait()
		assert.Equal(t, int32(1), runs.Load())
	})
}
