package editor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starford/onepage/internal/blocktree"
	"github.com/starford/onepage/internal/models"
	"github.com/starford/onepage/internal/session"
)

// ErrInvalidInput is returned for gestures carrying an unknown template,
// position or size.
var ErrInvalidInput = errors.New("editor: invalid input")

// AddRequest describes a block to create. An empty TargetID appends the
// block to the end of the document.
type AddRequest struct {
	Template models.Template `json:"template"`
	Kind     models.Kind     `json:"type"`
	TargetID string          `json:"targetId"`
	Position models.Position `json:"position"`
}

// BlockPatch holds the fields of a block to change. Nil fields are kept.
type BlockPatch struct {
	Title    *string          `json:"title,omitempty"`
	Content  *string          `json:"content,omitempty"`
	Kind     *models.Kind     `json:"type,omitempty"`
	Category *models.Category `json:"blockType,omitempty"`
}

// ButtonPatch holds the fields of a CTA button to change. Nil fields are
// kept.
type ButtonPatch struct {
	Text    *string             `json:"text,omitempty"`
	URL     *string             `json:"url,omitempty"`
	Variant *string             `json:"variant,omitempty"`
	Style   *models.ButtonStyle `json:"style,omitempty"`
}

// gesture runs fn under the editor lock after the read-only check.
func (e *Editor) gesture(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editable {
		return ErrReadOnly
	}
	return fn()
}

// AddBlock creates a block from a template and returns its id. The id is
// empty when the target block no longer exists.
func (e *Editor) AddBlock(req AddRequest) (string, error) {
	var id string
	err := e.gesture(func() error {
		b, err := models.NewBlock(req.Template, req.Kind, e.newID(), e.newButtonID())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if req.TargetID == "" {
			e.commitLocked(blocktree.Append(e.doc.Blocks, b))
			id = b.ID
			return nil
		}
		pos := req.Position
		if pos == "" {
			pos = models.PositionInside
		}
		if !pos.Valid() {
			return fmt.Errorf("%w: position %q", ErrInvalidInput, pos)
		}
		if tree, ok := blocktree.Insert(e.doc.Blocks, req.TargetID, b, pos); ok {
			e.commitLocked(tree)
			id = b.ID
		}
		return nil
	})
	return id, err
}

// UpdateBlock applies patch to the block and commits the merged copy.
func (e *Editor) UpdateBlock(id string, patch BlockPatch) error {
	return e.modify(id, func(b *models.Block) {
		if patch.Title != nil {
			b.Title = *patch.Title
		}
		if patch.Content != nil {
			b.RichContent = *patch.Content
		}
		if patch.Kind != nil && (*patch.Kind == models.KindBlock || *patch.Kind == models.KindInline) {
			b.Kind = *patch.Kind
		}
		if patch.Category != nil {
			b.Category = *patch.Category
		}
	})
}

// SetStyle merges the non-empty fields of patch into the block style.
func (e *Editor) SetStyle(id string, patch models.Style) error {
	return e.modify(id, func(b *models.Block) {
		b.Style = b.Style.Merge(patch)
	})
}

// Resize sets the block width from a size preset.
func (e *Editor) Resize(id string, size models.Size) error {
	w := size.Width()
	if w == "" {
		return fmt.Errorf("%w: size %q", ErrInvalidInput, size)
	}
	return e.SetStyle(id, models.Style{Width: w})
}

// SetBackground changes the block background and closes the color picker.
func (e *Editor) SetBackground(id, color string) error {
	err := e.SetStyle(id, models.Style{BgColor: color})
	if err != nil {
		return err
	}
	return e.gesture(func() error {
		if e.sess.ColorPickerID == id {
			e.sess = e.sess.ToggleColorPicker(id)
		}
		return nil
	})
}

// ToggleKind switches the block between its own row and inline flow.
func (e *Editor) ToggleKind(id string) error {
	return e.modify(id, func(b *models.Block) {
		b.Kind = b.Kind.Toggled()
	})
}

// DeleteBlock removes the block and its subtree. Session references to
// removed blocks are cleared.
func (e *Editor) DeleteBlock(id string) error {
	return e.gesture(func() error {
		e.commitLocked(blocktree.Delete(e.doc.Blocks, id))
		return nil
	})
}

// DuplicateBlock clones the block with fresh ids right after the original
// and returns the clone's id.
func (e *Editor) DuplicateBlock(id string) (string, error) {
	var cloneID string
	err := e.gesture(func() error {
		var tree []models.Block
		tree, cloneID = blocktree.Duplicate(e.doc.Blocks, id, e.newID, e.newButtonID)
		e.commitLocked(tree)
		return nil
	})
	return cloneID, err
}

// AddButton appends a default CTA button to the block and returns its id.
func (e *Editor) AddButton(blockID string) (string, error) {
	btn := models.NewButton(e.newButtonID())
	var added bool
	err := e.modify(blockID, func(b *models.Block) {
		b.CTAButtons = append(b.CTAButtons, btn)
		added = true
	})
	if err != nil || !added {
		return "", err
	}
	return btn.ID, nil
}

// UpdateButton applies patch to one CTA button of the block.
func (e *Editor) UpdateButton(blockID, buttonID string, patch ButtonPatch) error {
	return e.modify(blockID, func(b *models.Block) {
		for i := range b.CTAButtons {
			btn := &b.CTAButtons[i]
			if btn.ID != buttonID {
				continue
			}
			if patch.Text != nil {
				btn.Text = *patch.Text
			}
			if patch.URL != nil {
				btn.URL = *patch.URL
			}
			if patch.Variant != nil {
				btn.Variant = *patch.Variant
			}
			if patch.Style != nil {
				st := *patch.Style
				btn.Style = &st
			}
		}
	})
}

// RemoveButton deletes one CTA button from the block.
func (e *Editor) RemoveButton(blockID, buttonID string) error {
	return e.modify(blockID, func(b *models.Block) {
		kept := b.CTAButtons[:0]
		for _, btn := range b.CTAButtons {
			if btn.ID != buttonID {
				kept = append(kept, btn)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		b.CTAButtons = kept
	})
}

// modify commits a changed copy of one block. Stale ids are ignored.
func (e *Editor) modify(id string, fn func(b *models.Block)) error {
	return e.gesture(func() error {
		b, ok := blocktree.Find(e.doc.Blocks, id)
		if !ok {
			return nil
		}
		b = b.Clone()
		fn(&b)
		e.commitLocked(blocktree.Update(e.doc.Blocks, id, b))
		return nil
	})
}

// Rename changes the project name. The slug is not editable here.
func (e *Editor) Rename(projectName string) error {
	return e.gesture(func() error {
		name := strings.TrimSpace(projectName)
		if name == e.doc.ProjectName {
			return nil
		}
		next := e.doc
		next.ProjectName = name
		e.applyLocked(next)
		if name == "" {
			e.notice(LevelWarning, "invalid_document", "Project name is required.")
		}
		return nil
	})
}

// Select shows the contextual toolbar of the block.
func (e *Editor) Select(id string) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		if !blocktree.Contains(e.doc.Blocks, id) {
			return s
		}
		return s.Select(id)
	})
}

// ClearSelection hides the contextual toolbar.
func (e *Editor) ClearSelection() error {
	return e.sessionGesture(session.EditSession.ClearSelection)
}

// Hover marks the block under the pointer.
func (e *Editor) Hover(id string) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		if !blocktree.Contains(e.doc.Blocks, id) {
			return s
		}
		return s.HoverEnter(id)
	})
}

// Unhover clears the hover mark when the pointer leaves the block.
func (e *Editor) Unhover(id string) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		return s.HoverLeave(id)
	})
}

// BeginEdit puts the title or content of the block into inline-edit mode.
func (e *Editor) BeginEdit(id string, field session.Field) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		if !blocktree.Contains(e.doc.Blocks, id) {
			return s
		}
		return s.BeginEdit(id, field)
	})
}

// Blur ends inline editing. value is the live text of the edited region;
// it is committed only when it differs from the stored value.
func (e *Editor) Blur(value string) error {
	return e.gesture(func() error {
		target := e.sess.Editing
		e.sess = e.sess.EndEdit()
		if target == nil {
			return nil
		}
		b, ok := blocktree.Find(e.doc.Blocks, target.ID)
		if !ok {
			return nil
		}
		current := b.Title
		if target.Field == session.FieldContent {
			current = b.RichContent
		}
		if value == current {
			return nil
		}
		b = b.Clone()
		if target.Field == session.FieldContent {
			b.RichContent = value
		} else {
			b.Title = value
		}
		e.commitLocked(blocktree.Update(e.doc.Blocks, b.ID, b))
		return nil
	})
}

// BeginDrag starts dragging the block.
func (e *Editor) BeginDrag(id string) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		if !blocktree.Contains(e.doc.Blocks, id) {
			return s
		}
		return s.BeginDrag(id)
	})
}

// DragOver records the drop target under the pointer. The drop position
// comes from the pointer's vertical coordinate within the target's box.
func (e *Editor) DragOver(id string, pointerY, top, height float64) (models.Position, error) {
	pos := session.DropPositionAt(pointerY, top, height, e.cfg.Thresholds)
	err := e.sessionGesture(func(s session.EditSession) session.EditSession {
		if !blocktree.Contains(e.doc.Blocks, id) {
			return s
		}
		return s.DragOver(id, pos)
	})
	return pos, err
}

// DragLeave clears the drop target when the pointer leaves it.
func (e *Editor) DragLeave(id string) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		return s.DragLeave(id)
	})
}

// Drop moves the dragged block onto the current drop target and ends the
// drag. Without a drop target the block is appended to the document root.
// Dropping a block inside itself or its descendants leaves the document
// unchanged, emits a warning notice and returns blocktree.ErrCycle.
func (e *Editor) Drop() error {
	return e.gesture(func() error {
		src, target := e.sess.DragSourceID, e.sess.DropTarget
		e.sess = e.sess.EndDrag()
		if src == "" {
			return nil
		}
		if target == nil {
			e.commitLocked(blocktree.MoveToRoot(e.doc.Blocks, src))
			return nil
		}
		tree, err := blocktree.Move(e.doc.Blocks, src, target.ID, target.Position)
		if errors.Is(err, blocktree.ErrCycle) {
			e.notice(LevelWarning, "cycle", "A block cannot be moved inside itself.")
			return err
		}
		e.commitLocked(tree)
		return nil
	})
}

// Move relocates a block directly, without a drag gesture.
func (e *Editor) Move(draggedID, targetID string, pos models.Position) error {
	return e.gesture(func() error {
		tree, err := blocktree.Move(e.doc.Blocks, draggedID, targetID, pos)
		if errors.Is(err, blocktree.ErrCycle) {
			e.notice(LevelWarning, "cycle", "A block cannot be moved inside itself.")
			return err
		}
		e.commitLocked(tree)
		return nil
	})
}

// EndDrag cancels the drag without moving anything.
func (e *Editor) EndDrag() error {
	return e.sessionGesture(session.EditSession.EndDrag)
}

// ToggleColorPicker opens or closes the background picker of the block.
func (e *Editor) ToggleColorPicker(id string) error {
	return e.sessionGesture(func(s session.EditSession) session.EditSession {
		if !blocktree.Contains(e.doc.Blocks, id) {
			return s
		}
		return s.ToggleColorPicker(id)
	})
}

func (e *Editor) sessionGesture(fn func(session.EditSession) session.EditSession) error {
	return e.gesture(func() error {
		e.sess = fn(e.sess)
		return nil
	})
}
