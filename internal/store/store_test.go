package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/onepage/internal/apperr"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/testutil"
)

type backend struct {
	name string
	open func(t *testing.T) Store
}

func backends() []backend {
	return []backend{
		{"sqlite", func(t *testing.T) Store {
			t.Helper()
			s, err := OpenSQLite(filepath.Join(t.TempDir(), "onepage.db"))
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		}},
		{"fs", func(t *testing.T) Store {
			t.Helper()
			s, err := OpenFS(filepath.Join(t.TempDir(), "pages"))
			if err != nil {
				t.Fatal(err)
			}
			return s
		}},
	}
}

func stamped(doc models.Document, at time.Time) models.Document {
	at = at.UTC()
	doc.CreatedAt = &at
	doc.UpdatedAt = &at
	return doc
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		doc := stamped(testutil.Document("p1", "landing", "u1"), time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
		if err := s.Save(ctx, doc); err != nil {
			t.Fatal(err)
		}
		got, err := s.Load(ctx, "p1")
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(doc, got); diff != "" {
			t.Errorf("Load (-want +got):\n%s", diff)
		}
		bySlug, err := s.LoadBySlug(ctx, "landing")
		if err != nil {
			t.Fatal(err)
		}
		if bySlug.ID != "p1" {
			t.Errorf("LoadBySlug id = %q", bySlug.ID)
		}
	})
}

func TestSaveIsIdempotentUpsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		doc := stamped(testutil.Document("p1", "landing", "u1"), time.Now())
		for i := 0; i < 3; i++ {
			if err := s.Save(ctx, doc); err != nil {
				t.Fatal(err)
			}
		}
		doc.ProjectName = "Changed"
		doc.Blocks = doc.Blocks[:1]
		if err := s.Save(ctx, doc); err != nil {
			t.Fatal(err)
		}
		got, _ := s.Load(ctx, "p1")
		if got.ProjectName != "Changed" || len(got.Blocks) != 1 {
			t.Errorf("got %+v", got)
		}
		list, _ := s.ListByOwner(ctx, "u1")
		if len(list) != 1 {
			t.Errorf("list = %d entries, want 1", len(list))
		}
	})
}

func TestSaveRejectsInvalid(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := testutil.Document("p1", "landing", "u1")
		cases := map[string]func(d *models.Document){
			"no name":  func(d *models.Document) { d.ProjectName = "" },
			"no slug":  func(d *models.Document) { d.Slug = "" },
			"no id":    func(d *models.Document) { d.ID = "" },
			"dup ids":  func(d *models.Document) { d.Blocks[1].Children[1].ID = "hero" },
			"empty id": func(d *models.Document) { d.Blocks[0].ID = "" },
		}
		for name, mutate := range cases {
			doc := base.Clone()
			mutate(&doc)
			if err := s.Save(ctx, doc); !errors.Is(err, apperr.ErrInvalidDocument) {
				t.Errorf("%s: err = %v, want ErrInvalidDocument", name, err)
			}
		}
		if _, err := s.Load(ctx, "p1"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("invalid document was persisted: %v", err)
		}
	})
}

func TestSlugUniqueness(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Save(ctx, testutil.Document("p1", "taken", "u1")); err != nil {
			t.Fatal(err)
		}
		if err := s.Save(ctx, testutil.Document("p2", "taken", "u2")); !errors.Is(err, apperr.ErrConflict) {
			t.Errorf("err = %v, want ErrConflict", err)
		}
		ok, err := s.SlugAvailable(ctx, "taken", "")
		if err != nil || ok {
			t.Errorf("SlugAvailable(taken) = %v, %v", ok, err)
		}
		if ok, _ := s.SlugAvailable(ctx, "taken", "p1"); !ok {
			t.Error("slug should be available to its own document")
		}
		if ok, _ := s.SlugAvailable(ctx, "free", ""); !ok {
			t.Error("unused slug reported taken")
		}
	})
}

func TestListRecentDelete(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"a", "b", "c"} {
			owner := "u1"
			if id == "c" {
				owner = "u2"
			}
			doc := stamped(testutil.Document(id, "slug-"+id, owner), base.Add(time.Duration(i)*time.Hour))
			if err := s.Save(ctx, doc); err != nil {
				t.Fatal(err)
			}
		}

		list, err := s.ListByOwner(ctx, "u1")
		if err != nil {
			t.Fatal(err)
		}
		var ids []string
		for _, sm := range list {
			ids = append(ids, sm.ID)
		}
		if diff := cmp.Diff([]string{"b", "a"}, ids); diff != "" {
			t.Errorf("ListByOwner (-want +got):\n%s", diff)
		}

		recent, err := s.Recent(ctx, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(recent) != 2 || recent[0].ID != "c" || recent[1].ID != "b" {
			t.Errorf("Recent = %v", recent)
		}

		if err := s.Delete(ctx, "a"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(ctx, "a"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("second delete err = %v", err)
		}
		if _, err := s.LoadBySlug(ctx, "slug-a"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("LoadBySlug after delete err = %v", err)
		}
	})
}

func TestFSRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFS(filepath.Join(dir, "pages"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	doc := testutil.Document("../escape", "x", "u1")
	if err := s.Save(ctx, doc); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); !os.IsNotExist(err) {
		t.Error("file written outside root")
	}
	if _, err := s.Load(ctx, "../../etc/passwd"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Load traversal err = %v", err)
	}
}

func TestFSIDFromPath(t *testing.T) {
	s, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		path string
		id   string
		ok   bool
	}{
		{filepath.Join(s.Root(), "p1.json"), "p1", true},
		{"p2.json", "p2", true},
		{".onepage-tmp-123", "", false},
		{"notes.md", "", false},
		{filepath.Join("sub", "p3.json"), "", false},
	}
	for _, tc := range cases {
		id, ok := s.IDFromPath(tc.path)
		if id != tc.id || ok != tc.ok {
			t.Errorf("IDFromPath(%q) = %q, %v", tc.path, id, ok)
		}
	}
}

func TestFSAtomicWriteLeavesNoTemp(t *testing.T) {
	s, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), testutil.Document("p1", "a", "u")); err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(s.Root())
	if len(entries) != 1 || entries[0].Name() != "p1.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("root contents = %v", names)
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open(Options{Backend: "mongo"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
