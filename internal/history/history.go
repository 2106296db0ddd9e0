// Package history keeps whole-document snapshots for undo and redo.
package history

import "github.com/starford/onepage/internal/models"

// Stack is an undo/redo stack of document snapshots.
//
// past always holds at least one entry, the document the stack was created
// with, and its last entry is the current document. future holds redo
// candidates with the next one first. A Stack is not safe for concurrent
// use; its owner serializes access.
type Stack struct {
	past      []models.Document
	future    []models.Document
	limit     int
	replaying bool
}

// New returns a stack seeded with initial. A positive limit caps the number
// of past snapshots kept, oldest dropped first.
func New(initial models.Document, limit int) *Stack {
	return &Stack{
		past:  []models.Document{initial.Clone()},
		limit: limit,
	}
}

// Record appends doc as the newest snapshot and clears the redo stack. It
// is ignored while a replay is being applied and reports whether doc was
// recorded.
func (s *Stack) Record(doc models.Document) bool {
	if s.replaying {
		return false
	}
	s.past = append(s.past, doc.Clone())
	s.future = nil
	s.trim()
	return true
}

// Undo steps back one snapshot and returns the document that is current
// afterwards. It reports false when there is nothing to undo.
func (s *Stack) Undo() (models.Document, bool) {
	if len(s.past) <= 1 {
		return models.Document{}, false
	}
	top := s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	s.future = append([]models.Document{top}, s.future...)
	return s.past[len(s.past)-1].Clone(), true
}

// Redo re-applies the next undone snapshot and returns it. It reports false
// when there is nothing to redo.
func (s *Stack) Redo() (models.Document, bool) {
	if len(s.future) == 0 {
		return models.Document{}, false
	}
	next := s.future[0]
	s.future = s.future[1:]
	s.past = append(s.past, next)
	s.trim()
	return next.Clone(), true
}

// Replay runs fn with recording suppressed. Callers apply the document
// returned by Undo or Redo inside fn so that applying it does not register
// as a new edit.
func (s *Stack) Replay(fn func()) {
	prev := s.replaying
	s.replaying = true
	defer func() { s.replaying = prev }()
	fn()
}

// Replaying reports whether a replay is in progress.
func (s *Stack) Replaying() bool { return s.replaying }

// Current returns the newest past snapshot.
func (s *Stack) Current() models.Document {
	return s.past[len(s.past)-1].Clone()
}

// CanUndo reports whether Undo would change anything.
func (s *Stack) CanUndo() bool { return len(s.past) > 1 }

// CanRedo reports whether Redo would change anything.
func (s *Stack) CanRedo() bool { return len(s.future) > 0 }

// Depth returns the number of undo and redo steps available.
func (s *Stack) Depth() (undo, redo int) {
	return len(s.past) - 1, len(s.future)
}

// Reset drops all history and starts over from doc.
func (s *Stack) Reset(doc models.Document) {
	s.past = []models.Document{doc.Clone()}
	s.future = nil
}

func (s *Stack) trim() {
	if s.limit <= 0 || len(s.past) <= s.limit {
		return
	}
	drop := len(s.past) - s.limit
	kept := make([]models.Document, s.limit)
	copy(kept, s.past[drop:])
	s.past = kept
}
