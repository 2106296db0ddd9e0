// Package session holds the ephemeral interaction state of one edit
// session: selection, hover, inline editing, drag and drop, and the color
// picker. None of it is persisted.
//
// EditSession is a plain value. Every transition returns a new value, so a
// single owner can keep the current state and hand out copies freely.
package session

import "github.com/starford/onepage/internal/models"

// Field is the text region of a block being edited inline.
type Field string

const (
	FieldTitle   Field = "title"
	FieldContent Field = "content"
)

// Valid reports whether f names an editable region.
func (f Field) Valid() bool {
	return f == FieldTitle || f == FieldContent
}

// EditTarget is the one block region currently in inline-edit mode.
type EditTarget struct {
	ID    string `json:"id"`
	Field Field  `json:"field"`
}

// DropTarget is the block the pointer hovers while dragging and where the
// dragged block would land.
type DropTarget struct {
	ID       string          `json:"id"`
	Position models.Position `json:"position"`
}

// EditSession is the interaction state of one document in the editor.
type EditSession struct {
	SelectedID    string      `json:"selectedId,omitempty"`
	HoveredID     string      `json:"hoveredId,omitempty"`
	Editing       *EditTarget `json:"editing,omitempty"`
	DragSourceID  string      `json:"dragSourceId,omitempty"`
	DropTarget    *DropTarget `json:"dropTarget,omitempty"`
	ColorPickerID string      `json:"colorPickerId,omitempty"`
}

// Neutral returns the idle session.
func Neutral() EditSession { return EditSession{} }

// IsNeutral reports whether nothing is selected, hovered, edited or dragged.
func (s EditSession) IsNeutral() bool {
	return s == EditSession{}
}

// Dragging reports whether a drag gesture is in progress.
func (s EditSession) Dragging() bool { return s.DragSourceID != "" }

// Select makes id the selected block. Selection does not affect hover or
// editing.
func (s EditSession) Select(id string) EditSession {
	s.SelectedID = id
	return s
}

// ClearSelection deselects and closes the color picker, which belongs to
// the selection toolbar.
func (s EditSession) ClearSelection() EditSession {
	s.SelectedID = ""
	s.ColorPickerID = ""
	return s
}

// HoverEnter marks id as hovered. Hover is suppressed while dragging.
func (s EditSession) HoverEnter(id string) EditSession {
	if s.Dragging() {
		return s
	}
	s.HoveredID = id
	return s
}

// HoverLeave clears the hover mark if it is still on id.
func (s EditSession) HoverLeave(id string) EditSession {
	if s.HoveredID == id {
		s.HoveredID = ""
	}
	return s
}

// BeginEdit puts one region of id into inline-edit mode. Only one region
// per document is editable at a time, so any previous edit target is
// replaced. It is ignored while dragging or for an unknown field.
func (s EditSession) BeginEdit(id string, f Field) EditSession {
	if s.Dragging() || !f.Valid() {
		return s
	}
	s.Editing = &EditTarget{ID: id, Field: f}
	return s
}

// EndEdit leaves inline-edit mode.
func (s EditSession) EndEdit() EditSession {
	s.Editing = nil
	return s
}

// IsEditing reports whether the given region is in inline-edit mode.
func (s EditSession) IsEditing(id string, f Field) bool {
	return s.Editing != nil && s.Editing.ID == id && s.Editing.Field == f
}

// BeginDrag starts dragging id. Hover, inline editing and the color picker
// are closed for the duration of the gesture.
func (s EditSession) BeginDrag(id string) EditSession {
	s.DragSourceID = id
	s.DropTarget = nil
	s.HoveredID = ""
	s.Editing = nil
	s.ColorPickerID = ""
	return s
}

// DragOver records the node under the pointer and the computed drop
// position. The dragged node itself is a valid target: dropping it before
// or after itself leaves the tree as it is, inside is rejected as a cycle.
func (s EditSession) DragOver(id string, pos models.Position) EditSession {
	if !s.Dragging() || !pos.Valid() {
		return s
	}
	s.DropTarget = &DropTarget{ID: id, Position: pos}
	return s
}

// DragLeave clears the drop target if the pointer left id.
func (s EditSession) DragLeave(id string) EditSession {
	if s.DropTarget != nil && s.DropTarget.ID == id {
		s.DropTarget = nil
	}
	return s
}

// EndDrag returns every node to idle after a drop or a cancelled drag.
func (s EditSession) EndDrag() EditSession {
	s.DragSourceID = ""
	s.DropTarget = nil
	return s
}

// ToggleColorPicker opens the color picker for id, or closes it if it is
// already open there. Opening it also selects id.
func (s EditSession) ToggleColorPicker(id string) EditSession {
	if s.ColorPickerID == id {
		s.ColorPickerID = ""
		return s
	}
	s.ColorPickerID = id
	s.SelectedID = id
	return s
}

// Reconcile resets every reference to a block for which exists returns
// false. It runs after each committed change so that the session never
// points at a deleted block.
func (s EditSession) Reconcile(exists func(id string) bool) EditSession {
	gone := func(id string) bool { return id != "" && !exists(id) }
	if gone(s.SelectedID) {
		s.SelectedID = ""
	}
	if gone(s.HoveredID) {
		s.HoveredID = ""
	}
	if s.Editing != nil && gone(s.Editing.ID) {
		s.Editing = nil
	}
	if gone(s.DragSourceID) {
		s.DragSourceID = ""
		s.DropTarget = nil
	}
	if s.DropTarget != nil && gone(s.DropTarget.ID) {
		s.DropTarget = nil
	}
	if gone(s.ColorPickerID) {
		s.ColorPickerID = ""
	}
	return s
}
