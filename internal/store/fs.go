package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/models"
)

const docExt = ".json"

// FS stores each document as <id>.json under a root directory. Writes are
// atomic (temp file, fsync, rename) so external readers and the watcher
// never observe a partial document.
type FS struct {
	root string // absolute

	mu sync.Mutex // serializes slug check and write
}

// OpenFS returns a file store rooted at dir, creating it if needed.
func OpenFS(dir string) (*FS, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("store: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("store: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("store: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute directory holding the documents.
func (f *FS) Root() string { return f.root }

// IDFromPath returns the document id stored at path, which may be absolute
// or relative to the root. It reports false for anything that is not a
// document file directly under the root.
func (f *FS) IDFromPath(path string) (string, bool) {
	if filepath.IsAbs(path) {
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return "", false
		}
		path = rel
	}
	if filepath.Dir(path) != "." || !strings.HasSuffix(path, docExt) || strings.HasPrefix(path, ".") {
		return "", false
	}
	return strings.TrimSuffix(path, docExt), true
}

// pathFor maps a document id to its file, rejecting ids that would escape
// the root or name a nested path.
func (f *FS) pathFor(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("store: invalid document id %q", id)
	}
	abs := filepath.Join(f.root, id+docExt)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("store: path escapes root: %s", id)
	}
	return abs, nil
}

// Close is a no-op.
func (f *FS) Close() error { return nil }

// Save atomically writes doc. A slug held by another document yields
// apperr.ErrConflict.
func (f *FS) Save(_ context.Context, doc models.Document) error {
	if err := checkDocument(doc); err != nil {
		return err
	}
	abs, err := f.pathFor(doc.ID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	all, err := f.readAll()
	if err != nil {
		return err
	}
	for _, other := range all {
		if other.Slug == doc.Slug && other.ID != doc.ID {
			return fmt.Errorf("store: slug %q: %w", doc.Slug, apperr.ErrConflict)
		}
	}

	if doc.CreatedAt == nil || doc.UpdatedAt == nil {
		now := time.Now().UTC()
		if doc.CreatedAt == nil {
			doc.CreatedAt = &now
		}
		if doc.UpdatedAt == nil {
			doc.UpdatedAt = &now
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", doc.ID, err)
	}
	return writeAtomic(abs, data)
}

func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, ".onepage-tmp-*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("store: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("store: rename: %w", err)
	}
	success = true
	return nil
}

// Load returns the document with the given id.
func (f *FS) Load(_ context.Context, id string) (models.Document, error) {
	abs, err := f.pathFor(id)
	if err != nil {
		return models.Document{}, fmt.Errorf("store: %s: %w", id, apperr.ErrNotFound)
	}
	return readDoc(abs)
}

func readDoc(abs string) (models.Document, error) {
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Document{}, fmt.Errorf("store: %s: %w", filepath.Base(abs), apperr.ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("store: read %s: %w", filepath.Base(abs), err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.Document{}, fmt.Errorf("store: decode %s: %w", filepath.Base(abs), err)
	}
	return doc, nil
}

// readAll decodes every document under the root. Files that fail to decode
// are skipped; an editor may be halfway through writing one by hand.
func (f *FS) readAll() ([]models.Document, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	var out []models.Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := f.IDFromPath(e.Name()); !ok {
			continue
		}
		doc, err := readDoc(filepath.Join(f.root, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, doc)
	}
	return out, nil
}

// LoadBySlug returns the document published under slug.
func (f *FS) LoadBySlug(_ context.Context, slug string) (models.Document, error) {
	all, err := f.readAll()
	if err != nil {
		return models.Document{}, err
	}
	for _, doc := range all {
		if doc.Slug == slug {
			return doc, nil
		}
	}
	return models.Document{}, fmt.Errorf("store: %s: %w", slug, apperr.ErrNotFound)
}

// SlugAvailable reports whether no document other than exceptID uses slug.
func (f *FS) SlugAvailable(_ context.Context, slug, exceptID string) (bool, error) {
	all, err := f.readAll()
	if err != nil {
		return false, err
	}
	for _, doc := range all {
		if doc.Slug == slug && doc.ID != exceptID {
			return false, nil
		}
	}
	return true, nil
}

// ListByOwner returns summaries of the owner's documents, newest first.
func (f *FS) ListByOwner(_ context.Context, ownerID string) ([]models.Summary, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	var out []models.Summary
	for _, doc := range byRecency(all) {
		if doc.OwnerID == ownerID {
			out = append(out, summaryOf(doc))
		}
	}
	return out, nil
}

// Recent returns up to limit documents, most recently updated first.
func (f *FS) Recent(_ context.Context, limit int) ([]models.Document, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	all = byRecency(all)
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func byRecency(docs []models.Document) []models.Document {
	updated := func(d models.Document) time.Time {
		if d.UpdatedAt == nil {
			return time.Time{}
		}
		return *d.UpdatedAt
	}
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := updated(docs[i]), updated(docs[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return docs[i].ID < docs[j].ID
	})
	return docs
}

// Delete removes the document with the given id.
func (f *FS) Delete(_ context.Context, id string) error {
	abs, err := f.pathFor(id)
	if err != nil {
		return fmt.Errorf("store: %s: %w", id, apperr.ErrNotFound)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(abs); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("store: %s: %w", id, apperr.ErrNotFound)
		}
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	return nil
}
