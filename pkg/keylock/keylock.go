package keylock

import "sync"

type refMutex struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per key. Entries are dropped once no goroutine
// holds or waits on them, so the map only grows with concurrently used keys.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func New() *Locker {
	return &Locker{locks: make(map[string]*refMutex)}
}

// Lock blocks until the key is free and returns the matching unlock func.
func (l *Locker) Lock(key string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &refMutex{}
		l.locks[key] = m
	}
	m.refs++
	l.mu.Unlock()

	m.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Unlock()

			l.mu.Lock()
			m.refs--
			if m.refs == 0 {
				delete(l.locks, key)
			}
			l.mu.Unlock()
		})
	}
}

// size reports how many keys are currently tracked.
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
