// Package views persists named filter criteria and a log of exports in a
// small SQLite database kept apart from the issue spreadsheet.
package views

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hurttlocker/issuelens/internal/filter"
	_ "modernc.org/sqlite"
)

// DefaultDBPath is the default database location.
const DefaultDBPath = "~/.issuelens/views.db"

// DefaultRecentLimit bounds RecentExports when no limit is given.
const DefaultRecentLimit = 20

// SavedView is a named set of filter criteria.
type SavedView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Criteria  filter.Criteria `json:"criteria"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ExportEntry records one download of a filtered table.
type ExportEntry struct {
	ID         int64     `json:"id"`
	DataPath   string    `json:"data_path"`
	Criteria   string    `json:"criteria"`
	Format     string    `json:"format"`
	Rows       int       `json:"rows"`
	Checksum   string    `json:"checksum,omitempty"`
	Surface    string    `json:"surface"`
	ExportedAt time.Time `json:"exported_at"`
}

// StoreConfig holds configuration for NewStore.
type StoreConfig struct {
	DBPath string
}

// Store defines saved-view and export-log persistence.
type Store interface {
	// Saved views
	Save(ctx context.Context, name string, c filter.Criteria) (*SavedView, error)
	Get(ctx context.Context, name string) (*SavedView, error)
	List(ctx context.Context) ([]*SavedView, error)
	Delete(ctx context.Context, name string) error

	// Export log
	LogExport(ctx context.Context, e *ExportEntry) (int64, error)
	RecentExports(ctx context.Context, limit int) ([]*ExportEntry, error)

	Close() error
}

// SQLiteStore implements Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the views database.
// Pass ":memory:" for in-memory databases (testing).
func NewStore(cfg StoreConfig) (Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = expandPath(DefaultDBPath)
	}

	if cfg.DBPath != ":memory:" {
		dir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Each new connection to ":memory:" would see an empty database.
	if cfg.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, dbPath: cfg.DBPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
