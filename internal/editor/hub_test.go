package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/testutil"
)

func newHub(t *testing.T) (*Hub, *memRepo) {
	t.Helper()
	repo := newMemRepo(
		testutil.Document("p1", "landing", "owner"),
		testutil.Document("p2", "other", "someone"),
	)
	h := NewHub(repo, testutil.Logger(), WithConfig(Config{AutosaveQuiet: quiet}))
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h, repo
}

func TestHubSharesLiveEditorWithOwner(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()
	a, err := h.Open(ctx, "p1", "owner")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := h.Open(ctx, "p1", "owner")
	if a != b {
		t.Error("owner got two different editors")
	}
	if !a.Editable() {
		t.Error("owner editor is read-only")
	}
	if got := h.Live(); len(got) != 1 || got[0] != "p1" {
		t.Errorf("live = %v", got)
	}
}

func TestHubNonOwnerGetsProjection(t *testing.T) {
	h, _ := newHub(t)
	ctx := context.Background()
	owner, _ := h.Open(ctx, "p1", "owner")
	_ = owner.DeleteBlock("cta")

	view, err := h.Open(ctx, "p1", "visitor")
	if err != nil {
		t.Fatal(err)
	}
	if view.Editable() {
		t.Fatal("visitor editor is editable")
	}
	if len(view.Document().Blocks) != 2 {
		t.Error("projection does not reflect live edits")
	}
	if err := view.DeleteBlock("hero"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}

	if _, err := h.Open(ctx, "p2", "owner"); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.Get("p2"); ok {
		t.Error("non-owner open made the editor live")
	}
}

func TestHubOpenMissing(t *testing.T) {
	h, _ := newHub(t)
	if _, err := h.Open(context.Background(), "nope", "owner"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestHubCloseFlushes(t *testing.T) {
	h, repo := newHub(t)
	ctx := context.Background()
	ed, _ := h.Open(ctx, "p1", "owner")
	_ = ed.DeleteBlock("hero")
	if err := h.Close(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	doc, saves := repo.stored("p1")
	if saves != 1 || len(doc.Blocks) != 2 {
		t.Errorf("saves = %d, blocks = %d", saves, len(doc.Blocks))
	}
	if _, ok := h.Get("p1"); ok {
		t.Error("editor still live after close")
	}
}

func TestHubDiscardDropsPendingChanges(t *testing.T) {
	h, repo := newHub(t)
	ctx := context.Background()
	ed, _ := h.Open(ctx, "p1", "owner")
	_ = ed.DeleteBlock("hero")
	h.Discard("p1")
	if err := h.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if _, saves := repo.stored("p1"); saves != 0 {
		t.Errorf("saves = %d after discard", saves)
	}
}

func TestHubShutdownFlushesAll(t *testing.T) {
	h, repo := newHub(t)
	ctx := context.Background()
	ed, _ := h.Open(ctx, "p1", "owner")
	_ = ed.Rename("Renamed")
	if err := h.Shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	doc, _ := repo.stored("p1")
	if doc.ProjectName != "Renamed" {
		t.Errorf("projectName = %q", doc.ProjectName)
	}
	if len(h.Live()) != 0 {
		t.Error("editors left after shutdown")
	}
}
