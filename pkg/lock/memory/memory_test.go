package memory

import (
	"testing"

	"github.com/science-periodicals/librarian-sub000/pkg/lock"
	"github.com/science-periodicals/librarian-sub000/pkg/lock/locktest"
)

func TestLocker(t *testing.T) {
	locktest.TestLocker(t, func(*testing.T) lock.Locker { return NewLocker() })
}
