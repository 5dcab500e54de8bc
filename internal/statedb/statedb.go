// Package statedb provides read-only access to raw contract storage
// words behind a single point-in-time Reader interface.
package statedb

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Reader exposes a point-in-time-consistent view of contract storage.
// The bool result distinguishes an absent slot from a stored zero
// word; callers treat absent as the zero value, never as an error.
type Reader interface {
	StorageAt(ctx context.Context, account common.Address, slot common.Hash) (common.Hash, bool, error)
}

type storageKey struct {
	account common.Address
	slot    common.Hash
}

// MemoryStore is an in-memory Reader, used in tests and as a staging
// area when assembling synthetic state.
type MemoryStore struct {
	mu    sync.RWMutex
	words map[storageKey]common.Hash
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{words: make(map[storageKey]common.Hash)}
}

// Put stores a word for an account slot.
func (m *MemoryStore) Put(account common.Address, slot common.Hash, word common.Hash) {
	m.mu.Lock()
	m.words[storageKey{account, slot}] = word
	m.mu.Unlock()
}

// StorageAt implements Reader.
func (m *MemoryStore) StorageAt(_ context.Context, account common.Address, slot common.Hash) (common.Hash, bool, error) {
	m.mu.RLock()
	word, ok := m.words[storageKey{account, slot}]
	m.mu.RUnlock()
	return word, ok, nil
}
