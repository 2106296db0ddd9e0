// Package watcher follows changes made to a file-backed document store from
// outside the service.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/models"
)

// Event kinds passed to an EventCallback.
const (
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// DefaultSettle is how long a document must stay quiet before its change is
// reported.
const DefaultSettle = 100 * time.Millisecond

// Source is the file store being watched.
type Source interface {
	Root() string
	IDFromPath(path string) (string, bool)
	Load(ctx context.Context, id string) (models.Document, error)
}

// EventCallback is called once per settled document change. slug is the
// slug the document was last known under; after an update that moved the
// document to a new slug, prevSlug holds the old one.
type EventCallback func(kind, id, slug, prevSlug string)

// Watch starts an fsnotify watcher on the store root and reports document
// changes until ctx is cancelled. Bursts of events for one document (an
// atomic write is a create, a rename and possibly a chmod) are coalesced
// into a single callback once the document has settled.
func Watch(ctx context.Context, src Source, settle time.Duration, logger *slog.Logger, cb EventCallback) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(src.Root()); err != nil {
		return err
	}

	slugs := knownSlugs(ctx, src, logger)
	logger.Info("watcher: started", slog.String("root", src.Root()), slog.Int("documents", len(slugs)))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(id string) {
		pending[id] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settle)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settle)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			for id := range pending {
				delete(pending, id)
				report(ctx, src, slugs, id, logger, cb)
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := src.IDFromPath(ev.Name)
			if !ok {
				continue
			}
			schedule(id)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// report loads the settled document and calls cb with what happened to it.
func report(ctx context.Context, src Source, slugs map[string]string, id string, logger *slog.Logger, cb EventCallback) {
	prev, known := slugs[id]
	doc, err := src.Load(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if !known {
			return
		}
		delete(slugs, id)
		logger.Debug("watcher: deleted", slog.String("id", id))
		if cb != nil {
			cb(KindDeleted, id, prev, "")
		}
	case err != nil:
		// A hand edit may be half written; the next write reports it.
		logger.Warn("watcher: load failed", slog.String("id", id), slog.String("error", err.Error()))
	default:
		slugs[id] = doc.Slug
		moved := ""
		if known && prev != doc.Slug {
			moved = prev
		}
		logger.Debug("watcher: updated", slog.String("id", id), slog.String("slug", doc.Slug))
		if cb != nil {
			cb(KindUpdated, id, doc.Slug, moved)
		}
	}
}

// knownSlugs records the slug of every document already on disk so that a
// later deletion can still name it.
func knownSlugs(ctx context.Context, src Source, logger *slog.Logger) map[string]string {
	slugs := make(map[string]string)
	entries, err := os.ReadDir(src.Root())
	if err != nil {
		logger.Warn("watcher: initial scan failed", slog.String("error", err.Error()))
		return slugs
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, ok := src.IDFromPath(e.Name())
		if !ok {
			continue
		}
		if doc, err := src.Load(ctx, id); err == nil {
			slugs[id] = doc.Slug
		}
	}
	return slugs
}
