package app

import "sync"

// gameLocks hands out one mutex per game id and forgets it once nobody holds it.
type gameLocks struct {
	mu    sync.Mutex
	locks map[int64]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[int64]*gameLock)}
}

func (l *gameLocks) lock(gameID int64) func() {
	l.mu.Lock()
	entry, ok := l.locks[gameID]
	if !ok {
		entry = &gameLock{}
		l.locks[gameID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, gameID)
		}
		l.mu.Unlock()
	}
}

func (l *gameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
