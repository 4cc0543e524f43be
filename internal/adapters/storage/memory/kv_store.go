package memory

import (
	"context"
	"sync"

	"tribu-ledger/internal/ports/kvstore"
)

// KVStore es el kvstore en memoria para dev y tests. Insert y Update
// fallan según exista o no la llave, de modo que la semántica upsert de
// los dueños de estado (update y, si falla, insert) sea real.
type KVStore struct {
	mu   sync.RWMutex
	byKey map[string]kvstore.Record
}

func NewKVStore() *KVStore {
	return &KVStore{
		byKey: make(map[string]kvstore.Record),
	}
}

func (s *KVStore) Find(ctx context.Context, key string) (kvstore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byKey[key]
	if !ok {
		return kvstore.Record{}, kvstore.ErrNotFound
	}
	return rec, nil
}

func (s *KVStore) Insert(ctx context.Context, rec kvstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[rec.Key]; exists {
		return kvstore.ErrAlreadyExists
	}
	s.byKey[rec.Key] = rec
	return nil
}

func (s *KVStore) Update(ctx context.Context, key string, rec kvstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[key]; !exists {
		return kvstore.ErrNotFound
	}
	s.byKey[key] = rec
	return nil
}

func (s *KVStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byKey[key]; !exists {
		return kvstore.ErrNotFound
	}
	delete(s.byKey, key)
	return nil
}
