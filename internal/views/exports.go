package views

import (
	"context"
	"fmt"
	"time"
)

// LogExport appends e to the export log and returns its id. A zero
// ExportedAt is stamped with the current time.
func (s *SQLiteStore) LogExport(ctx context.Context, e *ExportEntry) (int64, error) {
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO export_log (data_path, criteria, format, rows, checksum, surface, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.DataPath, e.Criteria, e.Format, e.Rows, e.Checksum, e.Surface, e.ExportedAt)
	if err != nil {
		return 0, fmt.Errorf("logging export: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading export id: %w", err)
	}
	e.ID = id
	return id, nil
}

// RecentExports returns up to limit entries, newest first.
func (s *SQLiteStore) RecentExports(ctx context.Context, limit int) ([]*ExportEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data_path, criteria, format, rows, checksum, surface, exported_at
		FROM export_log
		ORDER BY exported_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}
	defer rows.Close()

	var out []*ExportEntry
	for rows.Next() {
		var e ExportEntry
		if err := rows.Scan(&e.ID, &e.DataPath, &e.Criteria, &e.Format, &e.Rows, &e.Checksum, &e.Surface, &e.ExportedAt); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
