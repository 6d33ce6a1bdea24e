package pebble

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/LeJamon/goMarble/internal/storage/database"
)

// Manager opens named pebble stores below one directory and closes them
// together on shutdown.
type Manager struct {
	dbs  map[string]*DB
	path string
	mu   sync.Mutex
}

// NewManager returns a manager rooted at path. Nothing is opened yet.
func NewManager(path string) *Manager {
	return &Manager{
		dbs:  make(map[string]*DB),
		path: path,
	}
}

// OpenDB opens <path>/<name>.db, or returns the store already open under
// name.
func (m *Manager) OpenDB(name string) (database.DB, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if db, exists := m.dbs[name]; exists {
		return db, nil // Already opened
	}

	db, err := Open(filepath.Join(m.path, name+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", name, err)
	}

	m.dbs[name] = db

	return db, nil
}

// Close closes every store opened through m.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for name, db := range m.dbs {
		if err := db.Close(); err != nil {
			lastErr = fmt.Errorf("failed to close database %s: %w", name, err)
		}
		delete(m.dbs, name)
	}
	return lastErr
}
