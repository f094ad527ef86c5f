package storage

import "sync"

// MemoryStore is an in-process Storage. A positive quota caps the total
// number of bytes (keys plus values) it will hold.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]string
	quota  int
	writes int
}

// NewMemoryStore returns an empty store. quota <= 0 means unlimited.
func NewMemoryStore(quota int) *MemoryStore {
	return &MemoryStore{data: make(map[string]string), quota: quota}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.quota > 0 {
		size := len(key) + len(value)
		for k, v := range s.data {
			if k != key {
				size += len(k) + len(v)
			}
		}
		if size > s.quota {
			return ErrQuotaExceeded
		}
	}

	s.data[key] = value
	s.writes++
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Writes reports how many successful Set calls the store has seen.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

func (s *MemoryStore) Close() error { return nil }
