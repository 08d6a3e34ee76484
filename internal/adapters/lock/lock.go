// Package lock serialises work per key, such as deck generation per location.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker grants mutual exclusion per key. Close releases any connection the
// locker owns; locks must not be taken afterwards.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
	Close() error
}
