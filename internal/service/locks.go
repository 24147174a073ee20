package service

import "sync"

// inningLocks serializes writers per inning. The transition function is
// order-dependent, so concurrent recordBall calls against the same inning
// must not interleave; different innings proceed in parallel.
type inningLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newInningLocks() *inningLocks {
	return &inningLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for an inning and returns its unlock function.
func (l *inningLocks) Lock(inningID string) func() {
	l.mu.Lock()
	m, ok := l.locks[inningID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[inningID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
