// Package autosave persists a working document after a quiet period.
//
// A Controller keeps the last document it managed to persist next to the
// live working copy. Every change restarts a single debounce timer, so a
// burst of edits produces one save of the trailing value. Saves never run
// concurrently: a timer that fires while a save is in flight waits for it
// and then writes whatever is current, so an older payload can never land
// after a newer one.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/checksum"
	"github.com/starford/onepage/internal/models"
)

// DefaultQuiet is the debounce period used when none is configured.
const DefaultQuiet = 1500 * time.Millisecond

// DefaultSaveTimeout bounds a timer-driven save when none is configured.
const DefaultSaveTimeout = 30 * time.Second

// ErrClosed is returned by Flush after Cancel or Close.
var ErrClosed = errors.New("autosave: controller closed")

// Saver is the persistence collaborator: an idempotent upsert of the whole
// document keyed by its id.
type Saver interface {
	Save(ctx context.Context, doc models.Document) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, doc models.Document) error

// Save calls f.
func (f SaverFunc) Save(ctx context.Context, doc models.Document) error { return f(ctx, doc) }

// SkipReason explains why a timer firing did not call the Saver.
type SkipReason string

const (
	SkipUnchanged SkipReason = "unchanged"
	SkipInvalid   SkipReason = "invalid"
)

// Listener receives save outcomes. Calls happen outside the controller's
// lock, on the goroutine that ran the save.
type Listener interface {
	Saved(doc models.Document)
	Failed(doc models.Document, err error)
	Skipped(doc models.Document, reason SkipReason)
}

type nopListener struct{}

func (nopListener) Saved(models.Document)               {}
func (nopListener) Failed(models.Document, error)       {}
func (nopListener) Skipped(models.Document, SkipReason) {}

// Option configures a Controller.
type Option func(*Controller)

// WithQuiet sets the debounce period.
func WithQuiet(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.quiet = d
		}
	}
}

// WithListener sets the receiver of save outcomes.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		if l != nil {
			c.listener = l
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSaveTimeout bounds each timer-driven save. Zero keeps the default.
func WithSaveTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Controller debounces and serializes saves of one document.
type Controller struct {
	saver    Saver
	quiet    time.Duration
	timeout  time.Duration
	listener Listener
	logger   *slog.Logger

	mu            sync.Mutex
	idle          *sync.Cond
	working       models.Document
	lastPersisted models.Document
	lastSum       string
	timer         *time.Timer
	gen           uint64
	saving        bool
	closed        bool
}

// New returns a controller for a document that is already persisted as
// persisted. Observing an identical document later issues no save.
func New(saver Saver, persisted models.Document, opts ...Option) *Controller {
	c := &Controller{
		saver:         saver,
		quiet:         DefaultQuiet,
		timeout:       DefaultSaveTimeout,
		listener:      nopListener{},
		logger:        slog.Default(),
		working:       persisted.Clone(),
		lastPersisted: persisted.Clone(),
		lastSum:       checksum.Document(persisted),
	}
	c.idle = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe records doc as the working document and restarts the quiet
// period. It never blocks on persistence.
func (c *Controller) Observe(doc models.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.working = doc.Clone()
	c.gen++
	gen := c.gen
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.quiet, func() { c.fire(gen) })
}

// Pending reports whether a debounce timer is armed.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil
}

// Dirty reports whether the working document differs from the last
// persisted one.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return checksum.Document(c.working) != c.lastSum
}

// LastPersisted returns the last document the Saver accepted.
func (c *Controller) LastPersisted() models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPersisted.Clone()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.mu.Unlock()

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	err := c.save(ctx)
	switch {
	case errors.Is(err, ErrClosed):
	case errors.Is(err, apperr.ErrInvalidDocument):
		c.logger.Debug("autosave: skipped invalid document", slog.String("error", err.Error()))
	case err != nil:
		c.logger.Warn("autosave: save failed", slog.String("error", err.Error()))
	}
}

// Flush saves the working document now, waiting for any save in flight.
// The same checks as a timer firing apply: an unchanged document is not
// sent, and a document without project name or slug is rejected with
// apperr.ErrInvalidDocument.
func (c *Controller) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopLocked()
	c.mu.Unlock()
	return c.save(ctx)
}

// Cancel stops the pending timer without a final save and waits for a
// save already in flight. Once it returns the Saver is never called again;
// later Observe and Flush calls are ignored.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopLocked()
	for c.saving {
		c.idle.Wait()
	}
}

// Close flushes the working document and then cancels the controller.
func (c *Controller) Close(ctx context.Context) error {
	err := c.Flush(ctx)
	c.Cancel()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

func (c *Controller) stopLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) save(ctx context.Context) error {
	c.mu.Lock()
	for c.saving {
		c.idle.Wait()
	}
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	doc := c.working.Clone()
	sum := checksum.Document(doc)
	if sum == c.lastSum {
		c.mu.Unlock()
		c.listener.Skipped(doc, SkipUnchanged)
		return nil
	}
	if err := doc.Validate(); err != nil {
		c.mu.Unlock()
		c.listener.Skipped(doc, SkipInvalid)
		return fmt.Errorf("autosave: %w: %v", apperr.ErrInvalidDocument, err)
	}
	c.saving = true
	c.mu.Unlock()

	err := c.saver.Save(ctx, doc)

	c.mu.Lock()
	c.saving = false
	if err == nil {
		c.lastPersisted = doc
		c.lastSum = sum
	}
	c.idle.Broadcast()
	c.mu.Unlock()

	if err != nil {
		c.listener.Failed(doc, err)
		return fmt.Errorf("autosave: save %s: %w", doc.ID, err)
	}
	c.logger.Debug("autosave: saved", slog.String("id", doc.ID), slog.String("slug", doc.Slug))
	c.listener.Saved(doc)
	return nil
}
