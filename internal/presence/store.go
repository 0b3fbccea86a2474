package presence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"homeplan/internal/config"
)

// Store persists the latest presence table.
type Store interface {
	Load() (*Table, error)
	Save(*Table) error
}

// FileStore keeps the table as one JSON document. Writes replace the file
// atomically, so a reader never sees a half-written snapshot.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns ErrNoSnapshot when nothing has been saved yet.
func (s *FileStore) Load() (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read presence snapshot: %w", err)
	}
	var t Table
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("decode presence snapshot: %w", err)
	}
	if t.Days == nil {
		t.Days = make(map[string]*Day)
	}
	return &t, nil
}

func (s *FileStore) Save(t *Table) error {
	if t == nil {
		return errors.New("nil presence table")
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return config.WriteFileAtomic(s.path, b, "presence-*.json")
}

// MemoryStore is a Store for tests and for running without a data dir.
type MemoryStore struct {
	mu    sync.RWMutex
	table *Table
}

func (s *MemoryStore) Load() (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.table == nil {
		return nil, ErrNoSnapshot
	}
	return s.table, nil
}

func (s *MemoryStore) Save(t *Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
	return nil
}
