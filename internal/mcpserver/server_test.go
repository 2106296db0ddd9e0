package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/cache"
	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/projects"
	"github.com/starford/onepage/internal/store"
	"github.com/starford/onepage/internal/testutil"
)

const user = "agent"

func testServer(t *testing.T) (*Server, store.Store) {
	t.Helper()

	st, err := store.OpenSQLite(filepath.Join(t.TempDir(), "onepage.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	if err := st.Save(ctx, testutil.Document("p1", "landing", user)); err != nil {
		t.Fatal(err)
	}
	if err := st.Save(ctx, testutil.Document("p2", "foreign", "someone-else")); err != nil {
		t.Fatal(err)
	}

	logger := testutil.Logger()
	svc := projects.NewService(st, cache.NewMemory(time.Hour, 0), logger)
	hub := editor.NewHub(svc, logger, editor.WithConfig(editor.Config{AutosaveQuiet: time.Minute}))
	t.Cleanup(func() { _ = hub.Shutdown(context.Background()) })

	return New(svc, hub, user), st
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_projects":
		result, err = srv.listProjects(ctx, req)
	case "get_page":
		result, err = srv.getPage(ctx, req)
	case "check_slug":
		result, err = srv.checkSlug(ctx, req)
	case "outline":
		result, err = srv.outline(ctx, req)
	case "move_block":
		result, err = srv.moveBlock(ctx, req)
	case "duplicate_block":
		result, err = srv.duplicateBlock(ctx, req)
	case "delete_block":
		result, err = srv.deleteBlock(ctx, req)
	case "set_block_text":
		result, err = srv.setBlockText(ctx, req)
	case "undo":
		result, err = srv.undo(ctx, req)
	case "redo":
		result, err = srv.redo(ctx, req)
	case "save":
		result, err = srv.save(ctx, req)
	case "get_block_schema":
		result, err = srv.getBlockSchema(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListProjects(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "list_projects", map[string]interface{}{}))
	if !strings.Contains(text, "p1\tlanding") {
		t.Errorf("list = %q, want p1", text)
	}
	if strings.Contains(text, "p2") {
		t.Errorf("list = %q, shows a foreign project", text)
	}
}

func TestGetPageAndCheckSlug(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_page", map[string]interface{}{"slug": "landing"})
	if r.IsError {
		t.Fatalf("get_page error: %s", resultText(r))
	}
	var page projects.Page
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Document.Slug != "landing" || !page.Editable {
		t.Errorf("page = %s editable=%v", page.Document.Slug, page.Editable)
	}

	r = callTool(t, srv, "get_page", map[string]interface{}{"slug": "nope"})
	if !r.IsError {
		t.Error("expected error for a missing page")
	}

	if got := resultText(callTool(t, srv, "check_slug", map[string]interface{}{"slug": "landing"})); got != "taken: landing" {
		t.Errorf("check_slug = %q", got)
	}
	if got := resultText(callTool(t, srv, "check_slug", map[string]interface{}{"slug": "fresh"})); got != "available: fresh" {
		t.Errorf("check_slug = %q", got)
	}
}

func TestOutline(t *testing.T) {
	srv, _ := testServer(t)

	text := resultText(callTool(t, srv, "outline", map[string]interface{}{"project_id": "p1"}))
	for _, want := range []string{
		"Project landing (/landing)",
		`- [hero] block/hero "Hello"`,
		"- [features] block/feature-group",
		`  - [f1] inline "Fast"`,
		"- [cta] block/cta (1 buttons)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("outline missing %q:\n%s", want, text)
		}
	}
}

func TestMoveBlockAndUndoRedo(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "move_block", map[string]interface{}{
		"project_id": "p1", "block_id": "cta", "target_id": "f1", "position": "before",
	})
	if r.IsError {
		t.Fatalf("move error: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "  - [cta]") {
		t.Errorf("cta not nested after move:\n%s", resultText(r))
	}

	r = callTool(t, srv, "undo", map[string]interface{}{"project_id": "p1"})
	if !strings.Contains(resultText(r), "\n- [cta]") {
		t.Errorf("cta not back at root after undo:\n%s", resultText(r))
	}

	r = callTool(t, srv, "redo", map[string]interface{}{"project_id": "p1"})
	if !strings.Contains(resultText(r), "  - [cta]") {
		t.Errorf("cta not nested after redo:\n%s", resultText(r))
	}

	if got := resultText(callTool(t, srv, "redo", map[string]interface{}{"project_id": "p1"})); got != "nothing to redo" {
		t.Errorf("redo at tip = %q", got)
	}
}

func TestMoveBlockRejected(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"into own child", map[string]interface{}{"project_id": "p1", "block_id": "features", "target_id": "f1", "position": "inside"}},
		{"bad position", map[string]interface{}{"project_id": "p1", "block_id": "cta", "target_id": "hero", "position": "under"}},
		{"unknown block", map[string]interface{}{"project_id": "p1", "block_id": "ghost", "target_id": "hero", "position": "after"}},
		{"foreign project", map[string]interface{}{"project_id": "p2", "block_id": "cta", "target_id": "hero", "position": "after"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := callTool(t, srv, "move_block", tt.args); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}

	if got := resultText(callTool(t, srv, "undo", map[string]interface{}{"project_id": "p1"})); got != "nothing to undo" {
		t.Errorf("rejected moves recorded history: %q", got)
	}
}

func TestEditAndSave(t *testing.T) {
	srv, st := testServer(t)
	ctx := context.Background()

	r := callTool(t, srv, "set_block_text", map[string]interface{}{
		"project_id": "p1", "block_id": "hero", "title": "Welcome",
	})
	if r.IsError {
		t.Fatalf("set_block_text error: %s", resultText(r))
	}
	if r := callTool(t, srv, "set_block_text", map[string]interface{}{"project_id": "p1", "block_id": "hero"}); !r.IsError {
		t.Error("expected error without title or content")
	}
	if r := callTool(t, srv, "duplicate_block", map[string]interface{}{"project_id": "p1", "block_id": "features"}); r.IsError {
		t.Fatalf("duplicate error: %s", resultText(r))
	}
	if r := callTool(t, srv, "delete_block", map[string]interface{}{"project_id": "p1", "block_id": "cta"}); r.IsError {
		t.Fatalf("delete error: %s", resultText(r))
	}

	if got := resultText(callTool(t, srv, "save", map[string]interface{}{"project_id": "p1"})); got != "saved: p1" {
		t.Fatalf("save = %q", got)
	}

	doc, err := st.Load(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	hero, _ := blocktree.Find(doc.Blocks, "hero")
	if hero.Title != "Welcome" {
		t.Errorf("hero title = %q, want Welcome", hero.Title)
	}
	if blocktree.Contains(doc.Blocks, "cta") {
		t.Error("cta still stored after delete")
	}
	// hero, features, features copy
	if len(doc.Blocks) != 3 {
		t.Errorf("root blocks = %d, want 3", len(doc.Blocks))
	}
}

func TestGetBlockSchema(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_block_schema", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "onepage Block Schema") {
		t.Error("schema missing title")
	}
	if !strings.Contains(text, "inside") {
		t.Error("schema missing move positions")
	}
}

func TestReadBlockSchemaResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readBlockSchemaResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(contents) != 1 {
		t.Fatalf("contents = %d, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != schemaURI {
		t.Errorf("resource = %#v", contents[0])
	}
}
