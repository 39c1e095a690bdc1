package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/science-periodicals/librarian-sub000/pkg/lock"
	"github.com/science-periodicals/librarian-sub000/pkg/lock/memory"
	"github.com/science-periodicals/librarian-sub000/pkg/lock/redis"
)

// NewLocker returns the lock service named by lockURL: "memory://" (or empty)
// for process local locks, "redis://" or "rediss://" for Redis.
func NewLocker(ctx context.Context, lockURL string) (lock.Locker, error) {
	switch {
	case lockURL == "", strings.HasPrefix(lockURL, "memory://"):
		return memory.NewLocker(), nil
	case strings.HasPrefix(lockURL, "redis://"), strings.HasPrefix(lockURL, "rediss://"):
		locker, err := redis.NewLockerFromURL(ctx, lockURL)
		if err != nil {
			return nil, err
		}

		return locker, nil
	default:
		return nil, fmt.Errorf("unsupported lock url: %s", lockURL)
	}
}
