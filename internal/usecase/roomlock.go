package usecase

import (
	"context"
	"sync"
)

// roomLocks serialises message handling per room within one process.
// Entries are reference counted and dropped once no caller holds or waits on
// them. Writers in other processes are fenced by the store's conditional
// append.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	sem  chan struct{}
	refs int
}

// acquire blocks until roomID is free or ctx is done. The returned func
// releases the lock and must be called exactly once.
func (l *roomLocks) acquire(ctx context.Context, roomID string) (func(), error) {
	l.mu.Lock()
	if l.rooms == nil {
		l.rooms = make(map[string]*roomLock)
	}
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{sem: make(chan struct{}, 1)}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	select {
	case rl.sem <- struct{}{}:
		return func() {
			<-rl.sem
			l.release(roomID, rl)
		}, nil
	case <-ctx.Done():
		l.release(roomID, rl)
		return nil, ctx.Err()
	}
}

func (l *roomLocks) release(roomID string, rl *roomLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rl.refs--
	if rl.refs == 0 {
		delete(l.rooms, roomID)
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}
