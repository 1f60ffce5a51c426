package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

type fileState struct {
	UserID string `json:"user_id"`
}

type JSONStorage struct {
	filePath string
	mu       sync.RWMutex
	state    fileState
}

func NewJSONStorage(filePath string) (*JSONStorage, error) {
	s := &JSONStorage{filePath: filePath}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *JSONStorage) LoadUserID() (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserID, s.state.UserID != "", nil
}

func (s *JSONStorage) SaveUserID(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.UserID = id
	return s.persistLocked()
}

func (s *JSONStorage) Close() error {
	return nil
}

func (s *JSONStorage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var state fileState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	s.state = state
	return nil
}

func (s *JSONStorage) persistLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.filePath)
}
