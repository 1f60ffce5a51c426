package storage

import "sync"

// MemoryStorage keeps the identity for the life of the process only.
// It is the fallback engine when no durable storage is available.
type MemoryStorage struct {
	mu     sync.RWMutex
	userID string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) LoadUserID() (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.userID != "", nil
}

func (s *MemoryStorage) SaveUserID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = id
	return nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
