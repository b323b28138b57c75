package keylock

import (
	"fmt"
	"sync"
)

// KeyedMutex serializes work per key. Every governance mutation runs inside the
// critical section of the aggregate it touches, so two concurrent calls on the
// same community or loan can never interleave their read-check-write sequence.
// Mutations on different aggregates proceed in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty KeyedMutex registry.
func New() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*entry),
	}
}

// Lock acquires the mutex for key, blocking until it is available.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for key. The entry is removed once no goroutine
// holds or waits on it, so the registry does not grow with the keyspace.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		panic(fmt.Sprintf("keylock: unlock of unheld key %q", key))
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}

// WithLock runs fn while holding the mutex for key.
func (k *KeyedMutex) WithLock(key string, fn func() error) error {
	k.Lock(key)
	defer k.Unlock(key)
	return fn()
}

// CommunityKey builds the lock key for a community aggregate.
func CommunityKey(communityID int64) string {
	return fmt.Sprintf("community/%d", communityID)
}

// LoanKey builds the lock key for a loan aggregate.
func LoanKey(loanID string) string {
	return "loan/" + loanID
}
