package storage

import (
	"errors"
	"strings"
)

const (
	EngineJSON   = "json"
	EngineSQLite = "sqlite"
	EngineMemory = "memory"
)

// NewByEngine selects a storage engine by name. The JSON file engine is
// the default; the memory engine is the fallback for environments with
// no writable disk and loses state on exit.
func NewByEngine(engine string, path string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", EngineJSON:
		return NewJSONStorage(path)
	case EngineSQLite:
		return NewSQLiteStorage(path)
	case EngineMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, errors.New("unsupported storage engine: " + engine)
	}
}
