package views

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hurttlocker/issuelens/internal/filter"
)

// ErrNotFound is returned when no saved view has the requested name.
var ErrNotFound = errors.New("saved view not found")

// Save stores c under name, replacing any view of the same name. The view
// keeps its id and creation time across updates.
func (s *SQLiteStore) Save(ctx context.Context, name string, c filter.Criteria) (*SavedView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("saved view name is required")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding criteria: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO saved_views (id, name, criteria, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			criteria = excluded.criteria,
			updated_at = excluded.updated_at
	`, uuid.NewString(), name, string(raw), now, now)
	if err != nil {
		return nil, fmt.Errorf("saving view %q: %w", name, err)
	}
	return s.Get(ctx, name)
}

// Get returns the view called name, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*SavedView, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, criteria, created_at, updated_at FROM saved_views WHERE name = ?`,
		strings.TrimSpace(name),
	)
	v, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting view %q: %w", name, err)
	}
	return v, nil
}

// List returns every saved view ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]*SavedView, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, criteria, created_at, updated_at FROM saved_views ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing views: %w", err)
	}
	defer rows.Close()

	var out []*SavedView
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning view row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Delete removes the view called name, or returns ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_views WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return fmt.Errorf("deleting view %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanView(sc scanner) (*SavedView, error) {
	var (
		v   SavedView
		raw string
	)
	if err := sc.Scan(&v.ID, &v.Name, &raw, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &v.Criteria); err != nil {
		return nil, fmt.Errorf("decoding criteria of %q: %w", v.Name, err)
	}
	return &v, nil
}
