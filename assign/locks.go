package assign

import "sync"

// contractorLocks serializes offers per contractor so a contractor is never
// weighing two offers at once, even when dispatch runs are concurrent.
type contractorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newContractorLocks() *contractorLocks {
	return &contractorLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the contractor's mutex and returns its release function.
func (l *contractorLocks) acquire(contractorID string) func() {
	l.mu.Lock()
	m, ok := l.locks[contractorID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[contractorID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
