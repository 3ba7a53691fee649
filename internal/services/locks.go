package services

import (
	"sync"

	"github.com/google/uuid"
)

// ConversationLocks serializes all mutating operations on a single
// conversation (claim, status change, message append) so the
// single-assignee and ordering invariants hold under concurrent access.
// Entries are refcounted and removed once nobody holds or waits on them.
type ConversationLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func NewConversationLocks() *ConversationLocks {
	return &ConversationLocks{locks: make(map[uuid.UUID]*lockEntry)}
}

// Lock acquires the per-conversation lock and returns its release func.
func (l *ConversationLocks) Lock(id uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &lockEntry{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
