// Package blocktree implements the structural operations on a block tree.
//
// Every operation takes the root-level block sequence and returns a new
// one; inputs are never mutated. Nodes are addressed only by id, and parent
// relationships are re-derived by recursive search on every call. Operations
// on ids that are not in the tree are no-ops: a stale id is a caller race,
// not a user error. The only error surfaced to users is ErrCycle.
package blocktree

import (
	"errors"

	"github.com/starford/onepage/internal/models"
)

var (
	// ErrCycle is returned when a block would be dropped inside itself or
	// one of its own descendants.
	ErrCycle = errors.New("blocktree: cannot move a block inside itself")
	// ErrDuplicateID is returned by Validate when an id appears twice.
	ErrDuplicateID = errors.New("blocktree: duplicate block id")
	// ErrEmptyID is returned by Validate for a block without an id.
	ErrEmptyID = errors.New("blocktree: empty block id")
)

// Find returns a copy of the block with the given id.
func Find(tree []models.Block, id string) (models.Block, bool) {
	for _, b := range tree {
		if b.ID == id {
			return b, true
		}
		if found, ok := Find(b.Children, id); ok {
			return found, true
		}
	}
	return models.Block{}, false
}

// Contains reports whether id is anywhere in the tree.
func Contains(tree []models.Block, id string) bool {
	_, ok := Find(tree, id)
	return ok
}

// IsDescendant reports whether id is in the subtree below node (node itself
// excluded).
func IsDescendant(node models.Block, id string) bool {
	return Contains(node.Children, id)
}

// Remove filters the block with the given id out of whichever level holds
// it and returns the removed block. Search stops at the first match.
func Remove(tree []models.Block, id string) ([]models.Block, *models.Block) {
	for i, b := range tree {
		if b.ID == id {
			removed := b
			out := make([]models.Block, 0, len(tree)-1)
			out = append(out, tree[:i]...)
			out = append(out, tree[i+1:]...)
			return out, &removed
		}
	}
	for i, b := range tree {
		children, removed := Remove(b.Children, id)
		if removed != nil {
			return replaceAt(tree, i, withChildren(b, children)), removed
		}
	}
	return tree, nil
}

// Insert places node relative to the target block. Inside appends to the
// target's children; before and after splice into the target's own sibling
// sequence. It reports false and returns tree unchanged when the target
// does not exist.
func Insert(tree []models.Block, targetID string, node models.Block, pos models.Position) ([]models.Block, bool) {
	for i, b := range tree {
		if b.ID != targetID {
			continue
		}
		switch pos {
		case models.PositionInside:
			children := make([]models.Block, 0, len(b.Children)+1)
			children = append(children, b.Children...)
			children = append(children, node)
			return replaceAt(tree, i, withChildren(b, children)), true
		case models.PositionBefore, models.PositionAfter:
			at := i
			if pos == models.PositionAfter {
				at = i + 1
			}
			out := make([]models.Block, 0, len(tree)+1)
			out = append(out, tree[:at]...)
			out = append(out, node)
			out = append(out, tree[at:]...)
			return out, true
		default:
			return tree, false
		}
	}
	for i, b := range tree {
		if children, ok := Insert(b.Children, targetID, node, pos); ok {
			return replaceAt(tree, i, withChildren(b, children)), true
		}
	}
	return tree, false
}

// Update replaces the block with the given id wholesale. Callers pass a
// fully merged block, not a patch.
func Update(tree []models.Block, id string, node models.Block) []models.Block {
	out, _ := update(tree, id, node)
	return out
}

func update(tree []models.Block, id string, node models.Block) ([]models.Block, bool) {
	for i, b := range tree {
		if b.ID == id {
			return replaceAt(tree, i, node), true
		}
		if children, ok := update(b.Children, id, node); ok {
			return replaceAt(tree, i, withChildren(b, children)), true
		}
	}
	return tree, false
}

// Delete removes the block with the given id and its whole subtree.
func Delete(tree []models.Block, id string) []models.Block {
	out, _ := Remove(tree, id)
	return out
}

// Duplicate deep-clones the block with the given id, assigning a fresh id
// from newID to the clone and every descendant and one from newButtonID to
// every CTA button, and inserts the clone right after the original. A nil
// newButtonID means NewButtonID. It returns the clone's id, or "" when id
// is not in the tree.
func Duplicate(tree []models.Block, id string, newID, newButtonID IDFunc) ([]models.Block, string) {
	src, ok := Find(tree, id)
	if !ok {
		return tree, ""
	}
	if newButtonID == nil {
		newButtonID = NewButtonID
	}
	clone := reassignIDs(src, newID, newButtonID)
	out, _ := Insert(tree, id, clone, models.PositionAfter)
	return out, clone.ID
}

func reassignIDs(b models.Block, newID, newButtonID IDFunc) models.Block {
	out := b.Clone()
	out.ID = newID()
	for i := range out.CTAButtons {
		out.CTAButtons[i].ID = newButtonID()
	}
	for i, child := range b.Children {
		out.Children[i] = reassignIDs(child, newID, newButtonID)
	}
	return out
}

// Move relocates the dragged block relative to the target block.
//
// Dropping a block before or after itself is a no-op. Dropping it inside
// itself or inside any of its descendants returns ErrCycle with the tree
// unchanged. Unknown ids are no-ops, and if the target cannot be found once
// the dragged block has been detached the original tree is returned.
func Move(tree []models.Block, draggedID, targetID string, pos models.Position) ([]models.Block, error) {
	if !pos.Valid() {
		return tree, nil
	}
	if draggedID == targetID {
		if pos == models.PositionInside {
			return tree, ErrCycle
		}
		return tree, nil
	}
	dragged, ok := Find(tree, draggedID)
	if !ok {
		return tree, nil
	}
	if pos == models.PositionInside && IsDescendant(dragged, targetID) {
		return tree, ErrCycle
	}
	detached, removed := Remove(tree, draggedID)
	if removed == nil {
		return tree, nil
	}
	out, ok := Insert(detached, targetID, *removed, pos)
	if !ok {
		return tree, nil
	}
	return out, nil
}

// MoveToRoot detaches the block and appends it to the end of the root
// sequence. It is the outcome of a drop outside any valid target.
func MoveToRoot(tree []models.Block, id string) []models.Block {
	detached, removed := Remove(tree, id)
	if removed == nil {
		return tree
	}
	out := make([]models.Block, 0, len(detached)+1)
	out = append(out, detached...)
	return append(out, *removed)
}

// Append adds node at the end of the root sequence.
func Append(tree []models.Block, node models.Block) []models.Block {
	out := make([]models.Block, 0, len(tree)+1)
	out = append(out, tree...)
	return append(out, node)
}

func replaceAt(tree []models.Block, i int, b models.Block) []models.Block {
	out := make([]models.Block, len(tree))
	copy(out, tree)
	out[i] = b
	return out
}

func withChildren(b models.Block, children []models.Block) models.Block {
	b.Children = compact(children)
	return b
}

// compact normalizes an empty child sequence to nil so that absent and
// empty children serialize identically.
func compact(blocks []models.Block) []models.Block {
	if len(blocks) == 0 {
		return nil
	}
	return blocks
}
