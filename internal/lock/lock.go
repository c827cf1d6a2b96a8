// Package lock keeps batch runs from overlapping, across processes when Redis is available.
package lock

import (
	"context"
	"errors"
)

// ErrHeld is returned when another run owns the lock.
var ErrHeld = errors.New("lock held by another run")

// Release gives the lock back. It is safe to call once.
type Release func(ctx context.Context) error

// Locker is a non-blocking mutual exclusion primitive.
type Locker interface {
	TryAcquire(ctx context.Context) (Release, error)
}
