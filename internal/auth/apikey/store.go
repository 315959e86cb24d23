package apikey

import (
	"context"
	"sync"
)

// Store looks up API key records by key ID.
type Store interface {
	// Get retrieves an API key by its public ID.
	Get(ctx context.Context, id string) (*APIKey, error)

	// List returns all API keys.
	List(ctx context.Context) ([]*APIKey, error)
}

// MemoryStore is an in-memory implementation of the Store interface,
// loaded from configuration at startup.
type MemoryStore struct {
	keys map[string]*APIKey
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory API key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*APIKey),
	}
}

// Get retrieves an API key by its public ID.
func (s *MemoryStore) Get(ctx context.Context, id string) (*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[id]
	if !ok {
		return nil, ErrKeyNotFound
	}

	return key, nil
}

// List returns all API keys.
func (s *MemoryStore) List(ctx context.Context) ([]*APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*APIKey, 0, len(s.keys))
	for _, key := range s.keys {
		keys = append(keys, key)
	}

	return keys, nil
}

// Put inserts or replaces an API key record.
func (s *MemoryStore) Put(key *APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.ID] = key
}

// Delete removes an API key record by ID.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, id)
}

// Count returns the number of API keys in the store.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// LoadKeys replaces the store contents with the given records.
func (s *MemoryStore) LoadKeys(keys []*APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = make(map[string]*APIKey, len(keys))
	for _, key := range keys {
		s.keys[key.ID] = key
	}
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
