package views

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// migrations run in order; migration i brings the schema to version i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS saved_views (
			id         TEXT PRIMARY KEY,
			name       TEXT UNIQUE NOT NULL,
			criteria   TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	},
	{
		`CREATE TABLE IF NOT EXISTS export_log (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			data_path   TEXT NOT NULL,
			criteria    TEXT NOT NULL DEFAULT '',
			format      TEXT NOT NULL,
			rows        INTEGER NOT NULL,
			checksum    TEXT NOT NULL DEFAULT '',
			surface     TEXT NOT NULL DEFAULT '',
			exported_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_export_log_exported_at ON export_log(exported_at)`,
	},
}

// migrate creates the meta table and applies pending migrations.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}

	current, err := s.currentVersion()
	if err != nil {
		return err
	}

	for v := current; v < len(migrations); v++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", v+1, err)
		}
		for _, stmt := range migrations[v] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("migration %d: %w", v+1, err)
			}
		}
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)",
			strconv.Itoa(v+1),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", v+1, err)
		}
	}
	return nil
}

func (s *SQLiteStore) currentVersion() (int, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading schema_version: %w", err)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing schema_version %q: %w", raw, err)
	}
	if v > len(migrations) {
		return 0, fmt.Errorf("database schema version %d is newer than supported %d", v, len(migrations))
	}
	return v, nil
}
