// Package memory provides process-local locks backed by go-cache expiring entries.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	c "github.com/patrickmn/go-cache"
	"github.com/science-periodicals/librarian-sub000/pkg/lock"
)

// Locker hands out locks that expire after their TTL.
type Locker struct {
	// mu makes the owner check and delete of Unlock atomic.
	mu    sync.Mutex
	cache *c.Cache
}

// NewLocker creates a Locker.
func NewLocker() *Locker {
	return &Locker{cache: c.New(lock.DefaultTTL, time.Minute)}
}

func (l *Locker) Lock(ctx context.Context, resource string, opts lock.Options) (lock.Lock, error) {
	key := lock.Key(opts.Prefix, resource)
	token := uuid.NewString()

	l.mu.Lock()
	err := l.cache.Add(key, token, opts.Expiry())
	l.mu.Unlock()

	if err != nil {
		return nil, &lock.LockError{Resource: resource, Err: lock.ErrLocked}
	}

	return lock.CheckHeld(ctx, resource, &held{locker: l, key: key, token: token}, opts)
}

type held struct {
	locker *Locker
	key    string
	token  string
}

// Unlock releases the lock if it still belongs to this holder.
func (h *held) Unlock(_ context.Context) error {
	h.locker.mu.Lock()
	defer h.locker.mu.Unlock()

	if owner, ok := h.locker.cache.Get(h.key); ok && owner == h.token {
		h.locker.cache.Delete(h.key)
	}

	return nil
}
