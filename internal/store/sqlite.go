package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/checksum"
	"github.com/starford/onepage/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
	id           TEXT PRIMARY KEY,
	slug         TEXT NOT NULL UNIQUE,
	project_name TEXT NOT NULL,
	owner_id     TEXT NOT NULL DEFAULT '',
	data         TEXT NOT NULL,
	checksum     TEXT NOT NULL DEFAULT '',
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_projects_owner ON projects(owner_id);
CREATE INDEX IF NOT EXISTS idx_projects_updated ON projects(updated_at);
`

// SQLite stores each document as one row with its JSON encoding.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Save upserts doc. A slug held by another document yields
// apperr.ErrConflict.
func (s *SQLite) Save(ctx context.Context, doc models.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", doc.ID, err)
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var holder string
	err = tx.QueryRowContext(ctx, `SELECT id FROM projects WHERE slug = ? AND id <> ?`, doc.Slug, doc.ID).Scan(&holder)
	switch {
	case err == nil:
		return fmt.Errorf("store: slug %q: %w", doc.Slug, apperr.ErrConflict)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("store: check slug: %w", err)
	}

	now := time.Now().UTC()
	created, updated := now, now
	if doc.CreatedAt != nil {
		created = *doc.CreatedAt
	}
	if doc.UpdatedAt != nil {
		updated = *doc.UpdatedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, slug, project_name, owner_id, data, checksum, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug         = excluded.slug,
			project_name = excluded.project_name,
			owner_id     = excluded.owner_id,
			data         = excluded.data,
			checksum     = excluded.checksum,
			updated_at   = excluded.updated_at
	`, doc.ID, doc.Slug, doc.ProjectName, doc.OwnerID, string(data), checksum.Document(doc), created, updated)
	if err != nil {
		return fmt.Errorf("store: upsert %s: %w", doc.ID, err)
	}
	return tx.Commit()
}

// Load returns the document with the given id.
func (s *SQLite) Load(ctx context.Context, id string) (models.Document, error) {
	return s.loadWhere(ctx, `id = ?`, id)
}

// LoadBySlug returns the document published under slug.
func (s *SQLite) LoadBySlug(ctx context.Context, slug string) (models.Document, error) {
	return s.loadWhere(ctx, `slug = ?`, slug)
}

func (s *SQLite) loadWhere(ctx context.Context, where string, arg string) (models.Document, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, `SELECT data FROM projects WHERE `+where, arg).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Document{}, fmt.Errorf("store: %s: %w", arg, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("store: load %s: %w", arg, err)
	}
	var doc models.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return models.Document{}, fmt.Errorf("store: decode %s: %w", arg, err)
	}
	return doc, nil
}

// SlugAvailable reports whether no document other than exceptID uses slug.
func (s *SQLite) SlugAvailable(ctx context.Context, slug, exceptID string) (bool, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects WHERE slug = ? AND id <> ?`, slug, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("store: check slug: %w", err)
	}
	return n == 0, nil
}

// ListByOwner returns summaries of the owner's documents, newest first.
func (s *SQLite) ListByOwner(ctx context.Context, ownerID string) ([]models.Summary, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, slug, project_name, updated_at FROM projects
		WHERE owner_id = ? ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []models.Summary
	for rows.Next() {
		var sm models.Summary
		if err := rows.Scan(&sm.ID, &sm.Slug, &sm.ProjectName, &sm.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Recent returns up to limit documents, most recently updated first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]models.Document, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT data FROM projects ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		var doc models.Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("store: decode: %w", err)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Delete removes the document with the given id.
func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("store: %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
