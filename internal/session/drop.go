package session

import (
	"errors"
	"fmt"

	"github.com/starford/onepage/internal/models"
)

// Thresholds splits a drop target's height into three bands. Before is the
// top fraction, After the bottom fraction; the rest of the box means
// inside.
type Thresholds struct {
	Before float64 `yaml:"drop_before" json:"before"`
	After  float64 `yaml:"drop_after" json:"after"`
}

// DefaultThresholds is the 30/40/30 split.
var DefaultThresholds = Thresholds{Before: 0.3, After: 0.3}

var errUnreachable = errors.New("session: drop position unreachable")

// Validate rejects splits that would leave one of the three positions
// unreachable.
func (t Thresholds) Validate() error {
	switch {
	case t.Before <= 0:
		return fmt.Errorf("%w: before band must be > 0", errUnreachable)
	case t.After <= 0:
		return fmt.Errorf("%w: after band must be > 0", errUnreachable)
	case t.Before+t.After >= 1:
		return fmt.Errorf("%w: before+after must leave room for inside", errUnreachable)
	}
	return nil
}

// DropPositionAt maps a pointer's vertical coordinate onto a target box
// spanning [top, top+height). Pointers above the box count as before and
// below it as after. A degenerate box always yields inside.
func DropPositionAt(pointerY, top, height float64, t Thresholds) models.Position {
	if height <= 0 {
		return models.PositionInside
	}
	rel := (pointerY - top) / height
	switch {
	case rel < t.Before:
		return models.PositionBefore
	case rel > 1-t.After:
		return models.PositionAfter
	default:
		return models.PositionInside
	}
}
