// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes onepage tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/projects"
)

const schemaURI = "onepage://block-schema"

// Server wraps the MCP server with onepage tools. Every call acts as user.
type Server struct {
	mcp  *server.MCPServer
	svc  *projects.Service
	hub  *editor.Hub
	user string
}

// New creates a new MCP server with all onepage tools registered.
func New(svc *projects.Service, hub *editor.Hub, user string) *Server {
	s := &Server{svc: svc, hub: hub, user: user}

	s.mcp = server.NewMCPServer(
		"onepage",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	projectID := mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id"))
	blockID := mcp.WithString("block_id", mcp.Required(), mcp.Description("Block id as shown by the outline tool"))

	s.mcp.AddTool(mcp.NewTool("list_projects",
		mcp.WithDescription("List your projects, newest first."),
	), s.listProjects)

	s.mcp.AddTool(mcp.NewTool("get_page",
		mcp.WithDescription("Read the published page under a slug as JSON."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Public page slug")),
	), s.getPage)

	s.mcp.AddTool(mcp.NewTool("check_slug",
		mcp.WithDescription("Check whether a slug is free to use."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Slug to check")),
	), s.checkSlug)

	s.mcp.AddTool(mcp.NewTool("outline",
		mcp.WithDescription("Show the block tree of a project, one block per line with its id."),
		projectID,
	), s.outline)

	s.mcp.AddTool(mcp.NewTool("move_block",
		mcp.WithDescription("Move a block before, after or inside another block. "+
			"Read the block schema first via the get_block_schema tool or the "+schemaURI+" resource."),
		projectID, blockID,
		mcp.WithString("target_id", mcp.Required(), mcp.Description("Block to move relative to")),
		mcp.WithString("position", mcp.Required(), mcp.Enum("before", "after", "inside"), mcp.Description("Where to place the block")),
	), s.moveBlock)

	s.mcp.AddTool(mcp.NewTool("duplicate_block",
		mcp.WithDescription("Copy a block and its children right after it."),
		projectID, blockID,
	), s.duplicateBlock)

	s.mcp.AddTool(mcp.NewTool("delete_block",
		mcp.WithDescription("Delete a block and everything inside it."),
		projectID, blockID,
	), s.deleteBlock)

	s.mcp.AddTool(mcp.NewTool("set_block_text",
		mcp.WithDescription("Change the title and/or content of a block."),
		projectID, blockID,
		mcp.WithString("title", mcp.Description("New title; omit to keep")),
		mcp.WithString("content", mcp.Description("New content; omit to keep")),
	), s.setBlockText)

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to a project."),
		projectID,
	), s.undo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change to a project."),
		projectID,
	), s.redo)

	s.mcp.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Save pending changes of a project now."),
		projectID,
	), s.save)

	s.mcp.AddTool(mcp.NewTool("get_block_schema",
		mcp.WithDescription("Returns the onepage block schema. "+
			"Call this before changing pages to ensure correct structure."),
	), s.getBlockSchema)

	// Resource: block schema contract.
	s.mcp.AddResource(
		mcp.NewResource(schemaURI, "Block Schema",
			mcp.WithResourceDescription("The page document and block tree that tools operate on."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readBlockSchemaResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listProjects(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx, s.user)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no projects"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("%s\t%s\t%s", it.ID, it.Slug, it.ProjectName)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) getPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := s.svc.Public(ctx, slug, s.user)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	return jsonResult(page), nil
}

func (s *Server) checkSlug(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ok, err := s.svc.SlugAvailable(ctx, slug, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ok {
		return mcp.NewToolResultText("available: " + slug), nil
	}
	return mcp.NewToolResultText("taken: " + slug), nil
}

// open returns the caller's live editor of the requested project.
func (s *Server) open(ctx context.Context, req mcp.CallToolRequest) (*editor.Editor, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return nil, err
	}
	return s.hub.Open(ctx, id, s.user)
}

func (s *Server) outline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ed, err := s.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(Outline(ed.Document())), nil
}

// Outline renders the block tree one block per line, indented by depth.
func Outline(doc models.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (/%s)\n", doc.ProjectName, doc.Slug)
	if len(doc.Blocks) == 0 {
		b.WriteString("(empty)\n")
	}
	blocktree.Walk(doc.Blocks, func(blk models.Block, depth int) bool {
		b.WriteString(strings.Repeat("  ", depth))
		fmt.Fprintf(&b, "- [%s] %s", blk.ID, blk.Kind)
		if blk.Category != models.CategoryNone {
			fmt.Fprintf(&b, "/%s", blk.Category)
		}
		if blk.Title != "" {
			fmt.Fprintf(&b, " %q", blk.Title)
		}
		if n := len(blk.CTAButtons); n > 0 {
			fmt.Fprintf(&b, " (%d buttons)", n)
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// change runs a gesture on the caller's editor and answers with the new
// outline.
func (s *Server) change(ctx context.Context, req mcp.CallToolRequest, fn func(ed *editor.Editor, blockID string) error) (*mcp.CallToolResult, error) {
	ed, err := s.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	blockID, err := req.RequireString("block_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, ok := blocktree.Find(ed.Document().Blocks, blockID); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no block %s", blockID)), nil
	}
	if err := fn(ed, blockID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(Outline(ed.Document())), nil
}

func (s *Server) moveBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.change(ctx, req, func(ed *editor.Editor, blockID string) error {
		target, err := req.RequireString("target_id")
		if err != nil {
			return err
		}
		pos := models.Position(req.GetString("position", ""))
		if !pos.Valid() {
			return fmt.Errorf("position must be before, after or inside")
		}
		err = ed.Move(blockID, target, pos)
		if errors.Is(err, blocktree.ErrCycle) {
			return fmt.Errorf("cannot move %s inside itself or its own children", blockID)
		}
		return err
	})
}

func (s *Server) duplicateBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.change(ctx, req, func(ed *editor.Editor, blockID string) error {
		_, err := ed.DuplicateBlock(blockID)
		return err
	})
}

func (s *Server) deleteBlock(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.change(ctx, req, func(ed *editor.Editor, blockID string) error {
		return ed.DeleteBlock(blockID)
	})
}

func (s *Server) setBlockText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.change(ctx, req, func(ed *editor.Editor, blockID string) error {
		var patch editor.BlockPatch
		args := req.GetArguments()
		if v, ok := args["title"].(string); ok {
			patch.Title = &v
		}
		if v, ok := args["content"].(string); ok {
			patch.Content = &v
		}
		if patch.Title == nil && patch.Content == nil {
			return fmt.Errorf("title or content is required")
		}
		return ed.UpdateBlock(blockID, patch)
	})
}

func (s *Server) undo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.step(ctx, req, (*editor.Editor).Undo, "nothing to undo")
}

func (s *Server) redo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.step(ctx, req, (*editor.Editor).Redo, "nothing to redo")
}

func (s *Server) step(ctx context.Context, req mcp.CallToolRequest, fn func(*editor.Editor) (bool, error), none string) (*mcp.CallToolResult, error) {
	ed, err := s.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	changed, err := fn(ed)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !changed {
		return mcp.NewToolResultText(none), nil
	}
	return mcp.NewToolResultText(Outline(ed.Document())), nil
}

func (s *Server) save(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ed, err := s.open(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ed.Flush(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("saved: " + ed.ID()), nil
}

func (s *Server) getBlockSchema(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(BlockSchemaContract), nil
}

func (s *Server) readBlockSchemaResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      schemaURI,
			MIMEType: "text/markdown",
			Text:     BlockSchemaContract,
		},
	}, nil
}
