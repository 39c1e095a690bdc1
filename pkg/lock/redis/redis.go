// Package redis provides distributed locks on a single Redis node: SET NX PX to
// acquire, compare-and-delete to release.
package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/science-periodicals/librarian-sub000/pkg/lock"
)

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Locker acquires locks in Redis.
type Locker struct {
	client redis.UniversalClient
}

// NewLocker wraps an existing client.
func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{client: client}
}

// NewLockerFromURL connects to the redis:// URL and checks the connection.
func NewLockerFromURL(ctx context.Context, url string) (*Locker, error) {
	if !strings.HasPrefix(url, "redis://") && !strings.HasPrefix(url, "rediss://") {
		url = "redis://" + url
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewLocker(client), nil
}

func (l *Locker) Lock(ctx context.Context, resource string, opts lock.Options) (lock.Lock, error) {
	key := lock.Key(opts.Prefix, resource)
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, key, token, opts.Expiry()).Result()
	if err != nil {
		return nil, &lock.LockError{Resource: resource, Err: err}
	}

	if !acquired {
		return nil, &lock.LockError{Resource: resource, Err: lock.ErrLocked}
	}

	return lock.CheckHeld(ctx, resource, &held{client: l.client, key: key, token: token}, opts)
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}

type held struct {
	client redis.UniversalClient
	key    string
	token  string
}

// Unlock deletes the key if it still holds this lock's token. An expired lock
// taken over by another holder is left alone.
func (h *held) Unlock(ctx context.Context) error {
	err := unlockScript.Run(ctx, h.client, []string{h.key}, h.token).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", h.key, err)
	}

	return nil
}
