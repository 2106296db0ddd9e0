// Package store persists documents. Two backends are available: a SQLite
// database and a directory of JSON files.
package store

import (
	"context"
	"fmt"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/models"
)

// Store is the persistence collaborator of the editor. Save is an
// idempotent upsert of the whole document keyed by id.
type Store interface {
	Save(ctx context.Context, doc models.Document) error
	Load(ctx context.Context, id string) (models.Document, error)
	LoadBySlug(ctx context.Context, slug string) (models.Document, error)
	// SlugAvailable reports whether slug is unused by any document other
	// than exceptID.
	SlugAvailable(ctx context.Context, slug, exceptID string) (bool, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Summary, error)
	// Recent returns up to limit documents, most recently updated first.
	Recent(ctx context.Context, limit int) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*FS)(nil)
)

// Backend identifies a Store implementation.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendFS     Backend = "fs"
)

// Options selects and configures a backend.
type Options struct {
	Backend    Backend
	SQLitePath string
	FSPath     string
}

// Open returns the Store selected by opts.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendSQLite, "":
		return OpenSQLite(opts.SQLitePath)
	case BackendFS:
		return OpenFS(opts.FSPath)
	default:
		return nil, fmt.Errorf("store: unsupported backend %q", opts.Backend)
	}
}

// checkDocument rejects documents that must never be written: a missing id,
// project name or slug, or a tree with empty or repeated block ids.
func checkDocument(doc models.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("store: %w: missing id", apperr.ErrInvalidDocument)
	}
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("store: %w: %v", apperr.ErrInvalidDocument, err)
	}
	if err := blocktree.Validate(doc.Blocks); err != nil {
		return fmt.Errorf("store: %w: %v", apperr.ErrInvalidDocument, err)
	}
	return nil
}

func summaryOf(doc models.Document) models.Summary {
	s := models.Summary{ID: doc.ID, Slug: doc.Slug, ProjectName: doc.ProjectName}
	if doc.UpdatedAt != nil {
		s.UpdatedAt = *doc.UpdatedAt
	}
	return s
}
