package services

import "sync"

// ownerLocks serializes writes per owner so the overlap check and the write
// that follows it cannot interleave with another write for the same owner.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*ownerLock
}

type ownerLock struct {
	mu   sync.Mutex
	refs int
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*ownerLock)}
}

// lock blocks until ownerID is free and returns the matching unlock.
func (l *ownerLocks) lock(ownerID string) func() {
	l.mu.Lock()
	ol := l.locks[ownerID]
	if ol == nil {
		ol = &ownerLock{}
		l.locks[ownerID] = ol
	}
	ol.refs++
	l.mu.Unlock()

	ol.mu.Lock()
	return func() {
		ol.mu.Unlock()
		l.mu.Lock()
		ol.refs--
		if ol.refs == 0 {
			delete(l.locks, ownerID)
		}
		l.mu.Unlock()
	}
}

func (l *ownerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
