package engine

import "sync"

// entityLocks serializes dispatches touching the same entity so two events on
// one opportunity never race each other's side effects. Locks are created on
// demand and reference-counted so the map does not grow with the entity space.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[string]*entityLock)}
}

func (l *entityLocks) lock(key string) {
	l.mu.Lock()

	lock, ok := l.locks[key]
	if !ok {
		lock = &entityLock{}
		l.locks[key] = lock
	}

	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()
}

func (l *entityLocks) unlock(key string) {
	l.mu.Lock()

	lock := l.locks[key]

	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, key)
	}

	l.mu.Unlock()

	lock.mu.Unlock()
}
