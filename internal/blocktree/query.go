package blocktree

import (
	"fmt"

	"github.com/starford/onepage/internal/models"
)

// Walk visits every block depth-first in document order. Returning false
// from fn stops the walk.
func Walk(tree []models.Block, fn func(b models.Block, depth int) bool) {
	walk(tree, 0, fn)
}

func walk(tree []models.Block, depth int, fn func(models.Block, int) bool) bool {
	for _, b := range tree {
		if !fn(b, depth) {
			return false
		}
		if !walk(b.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Count returns the number of blocks in the tree, all levels included.
func Count(tree []models.Block) int {
	n := 0
	Walk(tree, func(models.Block, int) bool {
		n++
		return true
	})
	return n
}

// CountDescendants returns the number of blocks below node.
func CountDescendants(node models.Block) int {
	return Count(node.Children)
}

// IDs returns every block id in document order.
func IDs(tree []models.Block) []string {
	var ids []string
	Walk(tree, func(b models.Block, _ int) bool {
		ids = append(ids, b.ID)
		return true
	})
	return ids
}

// Validate checks that every block has an id and that no id repeats
// anywhere in the tree.
func Validate(tree []models.Block) error {
	seen := make(map[string]struct{})
	var err error
	Walk(tree, func(b models.Block, _ int) bool {
		if b.ID == "" {
			err = ErrEmptyID
			return false
		}
		if _, dup := seen[b.ID]; dup {
			err = fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
			return false
		}
		seen[b.ID] = struct{}{}
		return true
	})
	return err
}
