// Package editor is the interaction surface of the block editor. An Editor
// owns one document together with its edit session, undo history and
// autosave controller, and turns user gestures into tree operations.
//
// An Editor is the single writer of its document. Gestures are serialized
// with a mutex, and every committed change goes through the same path:
// new document, session reconciled, snapshot recorded, autosave notified.
package editor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/onepage/internal/autosave"
	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/checksum"
	"github.com/starford/onepage/internal/history"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/session"
)

// ErrReadOnly is returned by every gesture on an editor opened by someone
// other than the document owner.
var ErrReadOnly = errors.New("editor: document is read-only")

// Config tunes editor behaviour.
type Config struct {
	AutosaveQuiet time.Duration
	// SaveTimeout bounds each autosave write.
	SaveTimeout  time.Duration
	HistoryLimit int
	Thresholds   session.Thresholds
}

// DefaultConfig is used for zero fields of a Config.
var DefaultConfig = Config{
	AutosaveQuiet: autosave.DefaultQuiet,
	SaveTimeout:   autosave.DefaultSaveTimeout,
	HistoryLimit:  0,
	Thresholds:    session.DefaultThresholds,
}

// Option configures an Editor.
type Option func(*Editor)

// WithConfig sets tuning parameters.
func WithConfig(cfg Config) Option {
	return func(e *Editor) {
		if cfg.AutosaveQuiet > 0 {
			e.cfg.AutosaveQuiet = cfg.AutosaveQuiet
		}
		if cfg.SaveTimeout > 0 {
			e.cfg.SaveTimeout = cfg.SaveTimeout
		}
		if cfg.HistoryLimit != 0 {
			e.cfg.HistoryLimit = cfg.HistoryLimit
		}
		if cfg.Thresholds.Validate() == nil {
			e.cfg.Thresholds = cfg.Thresholds
		}
	}
}

// WithEmitter sets the receiver of editor events.
func WithEmitter(em Emitter) Option {
	return func(e *Editor) {
		if em != nil {
			e.emitter = em
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDFunc replaces the block id generator.
func WithIDFunc(fn blocktree.IDFunc) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithButtonIDFunc replaces the CTA button id generator.
func WithButtonIDFunc(fn blocktree.IDFunc) Option {
	return func(e *Editor) {
		if fn != nil {
			e.newButtonID = fn
		}
	}
}

// ReadOnly opens the document as a projection: gestures fail with
// ErrReadOnly and nothing is ever saved.
func ReadOnly() Option {
	return func(e *Editor) {
		e.editable = false
	}
}

// State is a snapshot of everything a client needs to render the editor.
type State struct {
	Document models.Document     `json:"document"`
	Session  session.EditSession `json:"session"`
	Editable bool                `json:"editable"`
	CanUndo  bool                `json:"canUndo"`
	CanRedo  bool                `json:"canRedo"`
	Dirty    bool                `json:"dirty"`
	Revision uint64              `json:"revision"`
}

// Editor holds the live editing state of one document.
type Editor struct {
	id          string
	cfg         Config
	emitter     Emitter
	logger      *slog.Logger
	newID       blocktree.IDFunc
	newButtonID blocktree.IDFunc
	editable    bool

	mu       sync.Mutex
	doc      models.Document
	sess     session.EditSession
	hist     *history.Stack
	saver    *autosave.Controller
	revision uint64
}

// New opens doc for editing. saver persists the document after each quiet
// period; it is unused for read-only editors.
func New(doc models.Document, saver autosave.Saver, opts ...Option) *Editor {
	e := &Editor{
		id:          doc.ID,
		cfg:         DefaultConfig,
		emitter:     noopEmitter{},
		logger:      slog.Default(),
		newID:       blocktree.NewID,
		newButtonID: blocktree.NewButtonID,
		editable:    true,
		doc:         doc.Clone(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.hist = history.New(e.doc, e.cfg.HistoryLimit)
	if e.editable && saver != nil {
		e.saver = autosave.New(saver, e.doc,
			autosave.WithQuiet(e.cfg.AutosaveQuiet),
			autosave.WithSaveTimeout(e.cfg.SaveTimeout),
			autosave.WithListener(saveListener{e: e}),
			autosave.WithLogger(e.logger),
		)
	}
	return e
}

// ID returns the document id.
func (e *Editor) ID() string { return e.id }

// Editable reports whether gestures may change the document.
func (e *Editor) Editable() bool { return e.editable }

// State returns a consistent snapshot of the editor.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// Document returns a copy of the working document.
func (e *Editor) Document() models.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doc.Clone()
}

func (e *Editor) stateLocked() State {
	st := State{
		Document: e.doc.Clone(),
		Session:  e.sess,
		Editable: e.editable,
		CanUndo:  e.editable && e.hist.CanUndo(),
		CanRedo:  e.editable && e.hist.CanRedo(),
		Revision: e.revision,
	}
	if e.saver != nil {
		st.Dirty = e.saver.Dirty()
	}
	return st
}

// Undo restores the previous snapshot. It reports false when there is
// nothing to undo.
func (e *Editor) Undo() (bool, error) {
	return e.replay((*history.Stack).Undo)
}

// Redo re-applies the next undone snapshot. It reports false when there is
// nothing to redo.
func (e *Editor) Redo() (bool, error) {
	return e.replay((*history.Stack).Redo)
}

func (e *Editor) replay(step func(*history.Stack) (models.Document, bool)) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editable {
		return false, ErrReadOnly
	}
	doc, ok := step(e.hist)
	if !ok {
		return false, nil
	}
	e.hist.Replay(func() {
		e.applyLocked(doc)
	})
	return true, nil
}

// Flush saves the working document now. Persistence errors are returned
// and also reported to the emitter.
func (e *Editor) Flush(ctx context.Context) error {
	if !e.editable {
		return ErrReadOnly
	}
	if e.saver == nil {
		return nil
	}
	return e.saver.Flush(ctx)
}

// Close flushes pending changes and stops autosave.
func (e *Editor) Close(ctx context.Context) error {
	if e.saver == nil {
		return nil
	}
	return e.saver.Close(ctx)
}

// Discard stops autosave without saving.
func (e *Editor) Discard() {
	if e.saver != nil {
		e.saver.Cancel()
	}
}

// commitLocked installs blocks as the new tree. A tree operation that
// returned its input unchanged is not a change and records nothing.
func (e *Editor) commitLocked(blocks []models.Block) bool {
	if sameTree(e.doc.Blocks, blocks) {
		return false
	}
	next := e.doc
	next.Blocks = blocks
	e.applyLocked(next)
	return true
}

func (e *Editor) applyLocked(doc models.Document) {
	e.doc = doc
	e.sess = e.sess.Reconcile(func(id string) bool {
		return blocktree.Contains(e.doc.Blocks, id)
	})
	e.hist.Record(e.doc)
	if e.saver != nil {
		e.saver.Observe(e.doc)
	}
	e.revision++
	e.emitter.Emit(e.id, EventChanged, ChangeInfo{
		Revision: e.revision,
		CanUndo:  e.hist.CanUndo(),
		CanRedo:  e.hist.CanRedo(),
	})
}

func (e *Editor) notice(level Level, code, msg string) {
	e.emitter.Emit(e.id, EventNotice, Notice{Level: level, Code: code, Message: msg})
}

// sameTree reports whether b holds the same blocks as a. Tree operations
// return their input when nothing matched; a rebuilt tree with equal
// content, such as moving the last root block to the root, is compared by
// checksum.
func sameTree(a, b []models.Block) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if len(a) == len(b) && &a[0] == &b[0] {
		return true
	}
	return checksum.Document(models.Document{Blocks: a}) == checksum.Document(models.Document{Blocks: b})
}

type saveListener struct{ e *Editor }

func (l saveListener) Saved(doc models.Document) {
	l.e.emitter.Emit(l.e.id, EventSaved, map[string]any{"slug": doc.Slug})
}

func (l saveListener) Failed(doc models.Document, err error) {
	l.e.logger.Warn("editor: autosave failed", slog.String("id", doc.ID), slog.String("error", err.Error()))
	l.e.emitter.Emit(l.e.id, EventAutosaveFailed, map[string]any{"error": err.Error()})
	l.e.notice(LevelError, "autosave_failed", "Could not save your changes. They will be retried on the next edit.")
}

func (l saveListener) Skipped(_ models.Document, reason autosave.SkipReason) {
	if reason == autosave.SkipInvalid {
		l.e.notice(LevelWarning, "invalid_document", "Project name and slug are required before the page can be saved.")
	}
}
