package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/onepage/internal/editor"
	"github.com/starford/onepage/internal/models"
)

// editorRoutes mounts the editor surface of one project. Every route
// answers with the editor state after the gesture.
func (h *Handler) editorRoutes(r chi.Router) {
	r.Get("/", h.EditorState)
	r.Post("/close", h.CloseEditor)
	r.Post("/save", h.edit("save", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
		return ed.Flush(r.Context())
	}))
	r.Post("/undo", h.edit("undo", func(ed *editor.Editor, _ *http.Request, resp *EditorResponse) error {
		changed, err := ed.Undo()
		resp.Changed = &changed
		return err
	}))
	r.Post("/redo", h.edit("redo", func(ed *editor.Editor, _ *http.Request, resp *EditorResponse) error {
		changed, err := ed.Redo()
		resp.Changed = &changed
		return err
	}))
	r.Put("/name", h.edit("rename project", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
		var req RenameProjectRequest
		if err := decodeInto(r, &req); err != nil {
			return err
		}
		return ed.Rename(req.ProjectName)
	}))
	r.Post("/gestures", h.edit("gesture", applyGesture))

	r.Post("/blocks", h.edit("add block", func(ed *editor.Editor, r *http.Request, resp *EditorResponse) error {
		var req editor.AddRequest
		if err := decodeInto(r, &req); err != nil {
			return err
		}
		id, err := ed.AddBlock(req)
		resp.ID = id
		return err
	}))
	r.Route("/blocks/{blockID}", func(r chi.Router) {
		r.Patch("/", h.edit("update block", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			var patch editor.BlockPatch
			if err := decodeInto(r, &patch); err != nil {
				return err
			}
			return ed.UpdateBlock(chi.URLParam(r, "blockID"), patch)
		}))
		r.Delete("/", h.edit("delete block", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			return ed.DeleteBlock(chi.URLParam(r, "blockID"))
		}))
		r.Post("/duplicate", h.edit("duplicate block", func(ed *editor.Editor, r *http.Request, resp *EditorResponse) error {
			id, err := ed.DuplicateBlock(chi.URLParam(r, "blockID"))
			resp.ID = id
			return err
		}))
		r.Post("/move", h.edit("move block", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			var req MoveRequest
			if err := decodeInto(r, &req); err != nil {
				return err
			}
			if !req.Position.Valid() {
				return fmt.Errorf("%w: position %q", editor.ErrInvalidInput, req.Position)
			}
			return ed.Move(chi.URLParam(r, "blockID"), req.TargetID, req.Position)
		}))
		r.Put("/style", h.edit("set style", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			var patch models.Style
			if err := decodeInto(r, &patch); err != nil {
				return err
			}
			return ed.SetStyle(chi.URLParam(r, "blockID"), patch)
		}))
		r.Post("/resize", h.edit("resize block", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			var req ResizeRequest
			if err := decodeInto(r, &req); err != nil {
				return err
			}
			return ed.Resize(chi.URLParam(r, "blockID"), req.Size)
		}))
		r.Post("/background", h.edit("set background", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			var req BackgroundRequest
			if err := decodeInto(r, &req); err != nil {
				return err
			}
			return ed.SetBackground(chi.URLParam(r, "blockID"), req.Color)
		}))
		r.Post("/toggle-kind", h.edit("toggle kind", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			return ed.ToggleKind(chi.URLParam(r, "blockID"))
		}))
		r.Post("/buttons", h.edit("add button", func(ed *editor.Editor, r *http.Request, resp *EditorResponse) error {
			id, err := ed.AddButton(chi.URLParam(r, "blockID"))
			resp.ID = id
			return err
		}))
		r.Patch("/buttons/{buttonID}", h.edit("update button", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			var patch editor.ButtonPatch
			if err := decodeInto(r, &patch); err != nil {
				return err
			}
			return ed.UpdateButton(chi.URLParam(r, "blockID"), chi.URLParam(r, "buttonID"), patch)
		}))
		r.Delete("/buttons/{buttonID}", h.edit("remove button", func(ed *editor.Editor, r *http.Request, _ *EditorResponse) error {
			return ed.RemoveButton(chi.URLParam(r, "blockID"), chi.URLParam(r, "buttonID"))
		}))
	})
}

type editFunc func(ed *editor.Editor, r *http.Request, resp *EditorResponse) error

// edit opens the project's editor for the viewer, runs fn and answers with
// the resulting state.
func (h *Handler) edit(op string, fn editFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ed, err := h.hub.Open(r.Context(), chi.URLParam(r, "id"), Viewer(r.Context()))
		if err != nil {
			writeError(w, op, err)
			return
		}
		var resp EditorResponse
		if err := fn(ed, r, &resp); err != nil {
			writeError(w, op, err)
			return
		}
		resp.State = ed.State()
		writeJSON(w, http.StatusOK, resp)
	}
}

func decodeInto(r *http.Request, v any) error {
	if err := decodeJSON(r, v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", editor.ErrInvalidInput)
	}
	return nil
}

// EditorState handles GET /api/projects/{id}/editor. Viewers other than
// the owner receive a read-only state.
//
//	@Summary		Get the editor state of a project
//	@Tags			editor
//	@Produce		json
//	@Param			id	path		string	true	"Project id"
//	@Success		200	{object}	EditorResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/editor [get]
func (h *Handler) EditorState(w http.ResponseWriter, r *http.Request) {
	h.edit("editor state", func(*editor.Editor, *http.Request, *EditorResponse) error { return nil })(w, r)
}

// CloseEditor handles POST /api/projects/{id}/editor/close. Pending
// changes are saved before the editor is released.
//
//	@Summary		Save and release the live editor
//	@Tags			editor
//	@Param			id	path	string	true	"Project id"
//	@Success		204	"Editor closed"
//	@Failure		403	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/projects/{id}/editor/close [post]
func (h *Handler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Get(ctx, id, Viewer(ctx)); err != nil {
		writeError(w, "close editor", err)
		return
	}
	if err := h.hub.Close(ctx, id); err != nil {
		writeError(w, "close editor", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// applyGesture dispatches one pointer or keyboard interaction.
func applyGesture(ed *editor.Editor, r *http.Request, resp *EditorResponse) error {
	var g GestureRequest
	if err := decodeInto(r, &g); err != nil {
		return err
	}
	switch g.Type {
	case GestureSelect:
		return ed.Select(g.ID)
	case GestureClearSelection:
		return ed.ClearSelection()
	case GestureHover:
		return ed.Hover(g.ID)
	case GestureUnhover:
		return ed.Unhover(g.ID)
	case GestureBeginEdit:
		if !g.Field.Valid() {
			return fmt.Errorf("%w: field %q", editor.ErrInvalidInput, g.Field)
		}
		return ed.BeginEdit(g.ID, g.Field)
	case GestureBlur:
		return ed.Blur(g.Value)
	case GestureBeginDrag:
		return ed.BeginDrag(g.ID)
	case GestureDragOver:
		pos, err := ed.DragOver(g.ID, g.PointerY, g.Top, g.Height)
		resp.Position = string(pos)
		return err
	case GestureDragLeave:
		return ed.DragLeave(g.ID)
	case GestureDrop:
		return ed.Drop()
	case GestureEndDrag:
		return ed.EndDrag()
	case GestureToggleColorPicker:
		return ed.ToggleColorPicker(g.ID)
	}
	return fmt.Errorf("%w: gesture %q", editor.ErrInvalidInput, g.Type)
}
