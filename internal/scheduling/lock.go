package scheduling

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Locker guards the check-then-commit critical section of every mutating
// operation, scoped per physician so unrelated physicians book in parallel.
type Locker interface {
	WithPhysicianLock(ctx context.Context, physicianID uuid.UUID, fn func(ctx context.Context) error) error
}

type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewMutexLocker creates an in-process locker keyed by physician id. The
// engine is single-process shared state, so a plain mutex per physician is
// the whole story; there is no cross-process coordination to do.
func NewMutexLocker() Locker {
	return &mutexLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mutexLocker) lockFor(physicianID uuid.UUID) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[physicianID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[physicianID] = m
	}
	return m
}

func (l *mutexLocker) WithPhysicianLock(ctx context.Context, physicianID uuid.UUID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := l.lockFor(physicianID)
	m.Lock()
	defer m.Unlock()

	return fn(ctx)
}
