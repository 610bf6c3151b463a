// Package savedstore persists canonical filter trees as saved filter
// configurations. The filterId/filterLabel metadata the builder carries
// through exists precisely so these round-trip.
//
// Storage is SQLite. Filters are content-addressed: saving a filter whose
// canonical fingerprint already exists returns the existing row instead of
// inserting a duplicate.
package savedstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sift/internal/filter"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no saved filter matches the lookup.
var ErrNotFound = errors.New("saved filter not found")

// SavedFilter is one persisted filter configuration.
type SavedFilter struct {
	ID          string
	Label       string
	Fingerprint string
	Filter      *filter.Group
	CreatedAt   string
}

// Store provides durable storage for saved filters.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path and applies
// pragmas and schema. Idempotent; safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a canonical filter tree. The filter's own FilterID is used
// as the row id when set; otherwise a fresh uuid is assigned. If a filter
// with the same canonical fingerprint already exists, the existing row is
// returned unchanged.
func (s *Store) Save(ctx context.Context, label string, g *filter.Group) (SavedFilter, error) {
	fingerprint, err := filter.Fingerprint(g)
	if err != nil {
		return SavedFilter{}, fmt.Errorf("fingerprint filter: %w", err)
	}

	if existing, err := s.getBy(ctx, "fingerprint", fingerprint); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return SavedFilter{}, err
	}

	id := g.FilterID
	if id == "" {
		id = uuid.NewString()
	}
	if label == "" {
		label = g.FilterLabel
	}

	body, err := filter.MarshalCanonical(g)
	if err != nil {
		return SavedFilter{}, fmt.Errorf("encode filter: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO saved_filters (id, label, fingerprint, body) VALUES (?, ?, ?, ?)`,
		id, label, fingerprint, string(body))
	if err != nil {
		return SavedFilter{}, fmt.Errorf("insert saved filter: %w", err)
	}

	return s.getBy(ctx, "id", id)
}

// Get returns the saved filter with the given id.
func (s *Store) Get(ctx context.Context, id string) (SavedFilter, error) {
	return s.getBy(ctx, "id", id)
}

// GetByFingerprint returns the saved filter with the given content address.
func (s *Store) GetByFingerprint(ctx context.Context, fingerprint string) (SavedFilter, error) {
	return s.getBy(ctx, "fingerprint", fingerprint)
}

func (s *Store) getBy(ctx context.Context, column, value string) (SavedFilter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, label, fingerprint, body, created_at FROM saved_filters WHERE `+column+` = ?`,
		value)

	var sf SavedFilter
	var body string
	err := row.Scan(&sf.ID, &sf.Label, &sf.Fingerprint, &body, &sf.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedFilter{}, ErrNotFound
	}
	if err != nil {
		return SavedFilter{}, fmt.Errorf("read saved filter: %w", err)
	}

	sf.Filter, err = decodeBody(body)
	if err != nil {
		return SavedFilter{}, err
	}
	return sf, nil
}

// List returns all saved filters, newest first.
func (s *Store) List(ctx context.Context) ([]SavedFilter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, fingerprint, body, created_at FROM saved_filters ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list saved filters: %w", err)
	}
	defer rows.Close()

	var out []SavedFilter
	for rows.Next() {
		var sf SavedFilter
		var body string
		if err := rows.Scan(&sf.ID, &sf.Label, &sf.Fingerprint, &body, &sf.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan saved filter: %w", err)
		}
		sf.Filter, err = decodeBody(body)
		if err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}

// Delete removes a saved filter by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM saved_filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saved filter: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// decodeBody rebuilds the canonical tree from its stored JSON form via the
// same Build path client input takes.
func decodeBody(body string) (*filter.Group, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("decode saved filter body: %w", err)
	}
	g, err := filter.Build(raw)
	if err != nil {
		return nil, fmt.Errorf("rebuild saved filter: %w", err)
	}
	return g, nil
}
