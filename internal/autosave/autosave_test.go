package autosave

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/testutil"
)

const quiet = 30 * time.Millisecond

type fakeSaver struct {
	mu       sync.Mutex
	saved    []models.Document
	err      error
	inFlight atomic.Int32
	overlap  atomic.Bool
	delay    time.Duration
}

func (f *fakeSaver) Save(_ context.Context, doc models.Document) error {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, doc)
	return nil
}

func (f *fakeSaver) calls() []models.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Document(nil), f.saved...)
}

func (f *fakeSaver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type recorder struct {
	mu      sync.Mutex
	saved   int
	failed  []error
	skipped []SkipReason
}

func (r *recorder) Saved(models.Document) {
	r.mu.Lock()
	r.saved++
	r.mu.Unlock()
}

func (r *recorder) Failed(_ models.Document, err error) {
	r.mu.Lock()
	r.failed = append(r.failed, err)
	r.mu.Unlock()
}

func (r *recorder) Skipped(_ models.Document, reason SkipReason) {
	r.mu.Lock()
	r.skipped = append(r.skipped, reason)
	r.mu.Unlock()
}

func (r *recorder) counts() (saved, failed, skipped int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved, len(r.failed), len(r.skipped)
}

func newController(t *testing.T, saver Saver, l Listener) (*Controller, models.Document) {
	t.Helper()
	doc := testutil.Document("d1", "page", "u1")
	c := New(saver, doc, WithQuiet(quiet), WithListener(l), WithLogger(testutil.Logger()))
	t.Cleanup(c.Cancel)
	return c, doc
}

func withTitle(doc models.Document, title string) models.Document {
	doc = doc.Clone()
	doc.Blocks[0].Title = title
	return doc
}

func TestBurstSavesTrailingValueOnce(t *testing.T) {
	saver := &fakeSaver{}
	c, doc := newController(t, saver, nil)

	for _, title := range []string{"a", "ab", "abc", "abcd"} {
		c.Observe(withTitle(doc, title))
		time.Sleep(quiet / 4)
	}

	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return len(saver.calls()) == 1
	}, "expected exactly one save")
	time.Sleep(2 * quiet)

	calls := saver.calls()
	if len(calls) != 1 {
		t.Fatalf("saves = %d, want 1", len(calls))
	}
	if calls[0].Blocks[0].Title != "abcd" {
		t.Errorf("saved title = %q, want trailing value", calls[0].Blocks[0].Title)
	}
	if c.Dirty() {
		t.Error("controller still dirty after save")
	}
}

func TestUnchangedDocumentIssuesNoSave(t *testing.T) {
	saver := &fakeSaver{}
	rec := &recorder{}
	c, doc := newController(t, saver, rec)

	c.Observe(doc.Clone())
	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		_, _, skipped := rec.counts()
		return skipped == 1
	}, "expected an unchanged skip")
	if n := len(saver.calls()); n != 0 {
		t.Errorf("saves = %d, want 0", n)
	}
}

func TestInvalidDocumentIsNeverPersisted(t *testing.T) {
	saver := &fakeSaver{}
	rec := &recorder{}
	c, doc := newController(t, saver, rec)

	bad := withTitle(doc, "x")
	bad.ProjectName = ""
	c.Observe(bad)
	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		_, _, skipped := rec.counts()
		return skipped == 1
	}, "expected an invalid skip")
	if n := len(saver.calls()); n != 0 {
		t.Errorf("saves = %d, want 0", n)
	}

	bad.ProjectName = "Back"
	bad.Slug = ""
	c.Observe(bad)
	if err := c.Flush(context.Background()); !errors.Is(err, apperr.ErrInvalidDocument) {
		t.Errorf("Flush err = %v, want ErrInvalidDocument", err)
	}
}

func TestFailureKeepsLastPersistedAndRetries(t *testing.T) {
	saver := &fakeSaver{err: errors.New("network down")}
	rec := &recorder{}
	c, doc := newController(t, saver, rec)

	c.Observe(withTitle(doc, "v1"))
	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		_, failed, _ := rec.counts()
		return failed == 1
	}, "expected a failure notification")
	if got := c.LastPersisted().Blocks[0].Title; got != "Hello" {
		t.Errorf("lastPersisted title = %q after failure", got)
	}
	if !c.Dirty() {
		t.Error("controller should stay dirty after a failed save")
	}

	saver.setErr(nil)
	c.Observe(withTitle(doc, "v2"))
	testutil.Eventually(t, time.Second, 5*time.Millisecond, func() bool {
		return len(saver.calls()) == 1
	}, "expected retry to persist")
	if got := c.LastPersisted().Blocks[0].Title; got != "v2" {
		t.Errorf("lastPersisted title = %q, want v2", got)
	}
}

func TestFlushSavesImmediately(t *testing.T) {
	saver := &fakeSaver{}
	c, doc := newController(t, saver, nil)
	c.Observe(withTitle(doc, "now"))
	if err := c.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(saver.calls()); n != 1 {
		t.Fatalf("saves = %d, want 1", n)
	}
	if c.Pending() {
		t.Error("flush left the timer armed")
	}
	time.Sleep(2 * quiet)
	if n := len(saver.calls()); n != 1 {
		t.Errorf("timer fired after flush: saves = %d", n)
	}
}

func TestCancelDropsPendingSave(t *testing.T) {
	saver := &fakeSaver{}
	c, doc := newController(t, saver, nil)
	c.Observe(withTitle(doc, "lost"))
	c.Cancel()
	time.Sleep(3 * quiet)
	if n := len(saver.calls()); n != 0 {
		t.Errorf("saves = %d after cancel, want 0", n)
	}
	c.Observe(withTitle(doc, "ignored"))
	if c.Pending() {
		t.Error("observe after cancel armed the timer")
	}
	if err := c.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush err = %v, want ErrClosed", err)
	}
}

func TestCloseFlushesPendingChange(t *testing.T) {
	saver := &fakeSaver{}
	c, doc := newController(t, saver, nil)
	c.Observe(withTitle(doc, "final"))
	if err := c.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	calls := saver.calls()
	if len(calls) != 1 || calls[0].Blocks[0].Title != "final" {
		t.Errorf("saves = %+v", calls)
	}
	if err := c.Close(context.Background()); err != nil {
		t.Errorf("second Close err = %v", err)
	}
}

func TestSavesNeverOverlap(t *testing.T) {
	saver := &fakeSaver{delay: 4 * quiet}
	c, doc := newController(t, saver, nil)

	c.Observe(withTitle(doc, "first"))
	time.Sleep(2 * quiet)
	c.Observe(withTitle(doc, "second"))

	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return len(saver.calls()) == 2
	}, "expected two serialized saves")
	if saver.overlap.Load() {
		t.Error("saves ran concurrently")
	}
	calls := saver.calls()
	if calls[len(calls)-1].Blocks[0].Title != "second" {
		t.Errorf("newest value not saved last: %q", calls[len(calls)-1].Blocks[0].Title)
	}
}

type gatedSaver struct {
	started chan struct{}
	release chan struct{}
	mu      sync.Mutex
	saved   []models.Document
}

func (g *gatedSaver) Save(_ context.Context, doc models.Document) error {
	g.started <- struct{}{}
	<-g.release
	g.mu.Lock()
	g.saved = append(g.saved, doc)
	g.mu.Unlock()
	return nil
}

func (g *gatedSaver) calls() []models.Document {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]models.Document(nil), g.saved...)
}

func TestCancelWaitsForInFlightSaveAndDropsQueued(t *testing.T) {
	saver := &gatedSaver{started: make(chan struct{}, 4), release: make(chan struct{})}
	c, doc := newController(t, saver, nil)

	c.Observe(withTitle(doc, "first"))
	select {
	case <-saver.started:
	case <-time.After(time.Second):
		t.Fatal("first save never started")
	}

	// The second timer fires while the first save is blocked and queues
	// behind it.
	c.Observe(withTitle(doc, "second"))
	time.Sleep(3 * quiet)

	done := make(chan struct{})
	go func() {
		c.Cancel()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("Cancel returned while a save was in flight")
	case <-time.After(2 * quiet):
	}

	close(saver.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Cancel did not return after the save finished")
	}

	time.Sleep(3 * quiet)
	calls := saver.calls()
	if len(calls) != 1 || calls[0].Blocks[0].Title != "first" {
		t.Fatalf("saves after cancel = %d, want only the in-flight one", len(calls))
	}
	if err := c.Flush(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush err = %v, want ErrClosed", err)
	}
}
