package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/onepage/internal/store"
	"github.com/starford/onepage/internal/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(kind, id, slug, prev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := kind + ":" + id + ":" + slug
	if prev != "" {
		e += "<" + prev
	}
	r.events = append(r.events, e)
}

func (r *recorder) has(want string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == want {
			return true
		}
	}
	return false
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// watcherTestEnv opens a file store and starts a watcher on it.
func watcherTestEnv(t *testing.T, seed ...string) (*store.FS, *recorder) {
	t.Helper()
	fs, err := store.OpenFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range seed {
		if err := fs.Save(context.Background(), testutil.Document(id, "slug-"+id, "u1")); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &recorder{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, fs, 30*time.Millisecond, testutil.Logger(), rec.record)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
	return fs, rec
}

func TestWatcher_AtomicSaveReportedOnce(t *testing.T) {
	fs, rec := watcherTestEnv(t)

	if err := fs.Save(context.Background(), testutil.Document("p1", "landing", "u1")); err != nil {
		t.Fatal(err)
	}

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("updated:p1:landing")
	}, "expected updated:p1:landing callback")

	time.Sleep(150 * time.Millisecond)
	if n := rec.count(); n != 1 {
		t.Errorf("callbacks = %d, want 1 for one save", n)
	}
}

func TestWatcher_SlugChangeReportsPrevious(t *testing.T) {
	fs, rec := watcherTestEnv(t, "p1")

	doc := testutil.Document("p1", "moved", "u1")
	if err := fs.Save(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("updated:p1:moved<slug-p1")
	}, "slug change not reported with previous slug")
}

func TestWatcher_DeleteReportsKnownSlug(t *testing.T) {
	fs, rec := watcherTestEnv(t, "p1")

	if err := os.Remove(filepath.Join(fs.Root(), "p1.json")); err != nil {
		t.Fatal(err)
	}

	testutil.Eventually(t, 5*time.Second, 20*time.Millisecond, func() bool {
		return rec.has("deleted:p1:slug-p1")
	}, "deletion not reported")
}

func TestWatcher_IgnoresForeignFiles(t *testing.T) {
	fs, rec := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(fs.Root(), "notes.txt"), []byte("hi"), 0o644)
	_ = os.WriteFile(filepath.Join(fs.Root(), ".hidden.json"), []byte("{}"), 0o644)
	// A half-written document is not reported until it decodes.
	_ = os.WriteFile(filepath.Join(fs.Root(), "broken.json"), []byte("{"), 0o644)

	time.Sleep(200 * time.Millisecond)
	if n := rec.count(); n != 0 {
		t.Errorf("callbacks = %d, want 0", n)
	}
}
