// Package database is the link registry: a sqlite file in the working
// directory recording every link cinesync created, the candidates it had to
// skip, and a history of runs.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Registry is the handle for the cinesync link registry
type Registry struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// OpenPath opens or creates the registry at a specific path
func OpenPath(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL lets a one-shot run read while a watcher writes.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &Registry{
		db:   db,
		path: path,
	}

	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return r, nil
}

// OpenInMemory opens a throwaway registry, used by tests and dry runs.
func OpenInMemory() (*Registry, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	r := &Registry{
		db:   db,
		path: ":memory:",
	}

	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return r, nil
}

func (r *Registry) migrate() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return applyMigrations(r.db)
}

// Close closes the database connection
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

// Path returns the database file path
func (r *Registry) Path() string {
	return r.path
}

// SchemaVersion returns the highest applied migration.
func (r *Registry) SchemaVersion() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var version int
	err := r.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&version)
	return version, err
}
