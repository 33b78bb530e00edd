package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/agentstep/domain/session"
)

type lockEntry struct {
	ch   chan struct{}
	refs int
}

// Locker serializes work per session inside one process. Entries are
// reference counted and dropped once no caller holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// NewLocker creates a session locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

func (l *Locker) acquire(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{ch: make(chan struct{}, 1)}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *Locker) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, id)
	}
}

// Lock blocks until the session is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, sessionID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Join(session.ErrLockTimeout, err)
	}

	entry := l.acquire(sessionID)

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(sessionID)
		return nil, errors.Join(session.ErrLockTimeout, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			l.release(sessionID)
		})
	}, nil
}

// active returns the number of tracked sessions.
func (l *Locker) active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

var _ session.Locker = (*Locker)(nil)
