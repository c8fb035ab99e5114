package store

import (
	"sync"

	"github.com/loomnetwork/go-loom/plugin"
)

type MemStore struct {
	mutex sync.RWMutex
	store map[string][]byte
}

var _ KVStore = &MemStore{}

func NewMemStore() *MemStore {
	return &MemStore{
		store: make(map[string][]byte),
	}
}

// Range returns the entries under the prefix, sorted by key.
func (m *MemStore) Range(prefix []byte) plugin.RangeData {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	entries := map[string][]byte{}
	for key, value := range m.store {
		k, ok := stripPrefix([]byte(key), prefix)
		if !ok {
			continue
		}
		entries[string(k)] = value
	}
	return sortedRangeData(entries)
}

// Get returns nil iff key doesn't exist. Panics on nil key.
func (m *MemStore) Get(key []byte) []byte {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.store[string(key)]
}

// Has checks if a key exists.
func (m *MemStore) Has(key []byte) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.store[string(key)]
	return ok
}

// Set sets the key. Panics on nil key.
func (m *MemStore) Set(key, value []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.store[string(key)] = value
}

// Delete deletes the key. Panics on nil key.
func (m *MemStore) Delete(key []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.store, string(key))
}
