package attendance

import "sync"

// userLocks serializes attendance mutations per user. The full
// read-modify-write-then-remote-call sequence is not atomic, so two
// concurrent mutations for the same user could double-charge or desync
// the remote ledger.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

// forUser returns the mutex guarding one user's attendance sequence.
func (l *userLocks) forUser(telegramID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if m, exists := l.locks[telegramID]; exists {
		return m
	}
	m := &sync.Mutex{}
	l.locks[telegramID] = m
	return m
}
