package session

import "sync"

// Locks hands out one mutex per (user, kind). Every session transition runs
// under that mutex, so concurrent actions from multiple connections of the
// same user serialize instead of double-applying.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Acquire returns the mutex for (user, kind), creating it on first use.
// Locks are never removed; the per-user footprint is one mutex per kind.
func (l *Locks) Acquire(userID string, kind Kind) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := key(userID, kind)
	m, ok := l.locks[k]
	if !ok {
		m = &sync.Mutex{}
		l.locks[k] = m
	}
	return m
}
