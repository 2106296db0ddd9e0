package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/starford/onepage/internal/autosave"
	"github.com/starford/onepage/internal/models"
)

// Repository loads documents for editing and persists them on autosave.
type Repository interface {
	Load(ctx context.Context, id string) (models.Document, error)
	autosave.Saver
}

// Hub keeps one live editor per document. Owners share the live editor;
// anyone else gets a read-only projection of its current state.
type Hub struct {
	repo   Repository
	opts   []Option
	logger *slog.Logger

	mu      sync.Mutex
	editors map[string]*Editor
}

// NewHub returns a hub that opens editors with opts.
func NewHub(repo Repository, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		repo:    repo,
		opts:    append([]Option{WithLogger(logger)}, opts...),
		logger:  logger,
		editors: make(map[string]*Editor),
	}
}

// Open returns the editor of document id for viewerID. The first owner
// access loads the document and keeps its editor live until Close.
func (h *Hub) Open(ctx context.Context, id, viewerID string) (*Editor, error) {
	h.mu.Lock()
	live, ok := h.editors[id]
	h.mu.Unlock()
	if ok {
		doc := live.Document()
		if doc.IsOwner(viewerID) {
			return live, nil
		}
		return h.readOnly(doc), nil
	}

	doc, err := h.repo.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("editor: open %s: %w", id, err)
	}
	if !doc.IsOwner(viewerID) {
		return h.readOnly(doc), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if live, ok := h.editors[id]; ok {
		return live, nil
	}
	ed := New(doc, h.repo, h.opts...)
	h.editors[id] = ed
	h.logger.Info("editor: opened", slog.String("id", id))
	return ed, nil
}

func (h *Hub) readOnly(doc models.Document) *Editor {
	opts := append(append([]Option(nil), h.opts...), ReadOnly())
	return New(doc, nil, opts...)
}

// Get returns the live editor of document id, if any.
func (h *Hub) Get(id string) (*Editor, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ed, ok := h.editors[id]
	return ed, ok
}

// Live returns the ids of documents with a live editor, sorted.
func (h *Hub) Live() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.editors))
	for id := range h.editors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close flushes and releases the live editor of document id.
func (h *Hub) Close(ctx context.Context, id string) error {
	h.mu.Lock()
	ed, ok := h.editors[id]
	delete(h.editors, id)
	h.mu.Unlock()
	if !ok {
		return nil
	}
	h.logger.Info("editor: closed", slog.String("id", id))
	return ed.Close(ctx)
}

// Discard releases the live editor of document id without saving. It is
// used when the document itself goes away.
func (h *Hub) Discard(id string) {
	h.mu.Lock()
	ed, ok := h.editors[id]
	delete(h.editors, id)
	h.mu.Unlock()
	if ok {
		ed.Discard()
	}
}

// Shutdown flushes and releases every live editor.
func (h *Hub) Shutdown(ctx context.Context) error {
	var errs []error
	for _, id := range h.Live() {
		if err := h.Close(ctx, id); err != nil {
			h.logger.Error("editor: flush on shutdown failed", slog.String("id", id), slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
