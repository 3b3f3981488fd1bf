package services

import "sync"

// accountLocks hands out one mutex per account. Entries are reference
// counted and dropped once nobody holds or waits for them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[int64]*accountLock)}
}

// Lock blocks until the caller holds the lock of accountID and returns the
// matching unlock function.
func (l *accountLocks) Lock(accountID int64) func() {
	l.mu.Lock()
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &accountLock{}
		l.locks[accountID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, accountID)
		}
		l.mu.Unlock()
	}
}

func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
