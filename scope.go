package formula

import (
	"fmt"
	"strings"
)

const DefaultMaxDepth = 256

// Scope tracks the cells and names being evaluated during one top-level
// call. re-entering an entry still on the stack is a circular reference.
// a Scope is never shared between calls.
type Scope struct {
	items      []string                 // display form of the entries, oldest first
	processing map[string]struct{}      // entries currently on the stack
	completed  map[string]CompileResult // cell results computed during this call
	maxDepth   int
}

// NewScope creates an empty scope. maxDepth <= 0 uses DefaultMaxDepth.
func NewScope(maxDepth int) *Scope {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Scope{
		items:      make([]string, 0, 8),
		processing: make(map[string]struct{}),
		completed:  make(map[string]CompileResult),
		maxDepth:   maxDepth,
	}
}

// push enters an evaluation. key identifies the entry case-insensitively,
// display is used in error messages.
func (s *Scope) push(key, display string) error {
	if _, exists := s.processing[key]; exists {
		chain := make([]string, len(s.items))
		copy(chain, s.items)
		return &CircularReferenceError{Address: display, Chain: chain}
	}
	if len(s.items) >= s.maxDepth {
		return fmt.Errorf("%w: %d nested evaluations at %s", ErrMaxDepth, len(s.items), display)
	}
	s.items = append(s.items, display)
	s.processing[key] = struct{}{}
	return nil
}

func (s *Scope) pop(key string) {
	if len(s.items) == 0 {
		return
	}
	s.items = s.items[:len(s.items)-1]
	delete(s.processing, key)
}

// Depth returns the number of evaluations in progress
func (s *Scope) Depth() int {
	return len(s.items)
}

// IsProcessing checks if a cell is currently being evaluated
func (s *Scope) IsProcessing(addr CellAddress) bool {
	_, exists := s.processing[cellKey(addr.Worksheet, addr.Row, addr.Column)]
	return exists
}

func (s *Scope) markCompleted(key string, result CompileResult) {
	s.completed[key] = result
}

func (s *Scope) result(key string) (CompileResult, bool) {
	r, exists := s.completed[key]
	return r, exists
}

func cellKey(sheet string, row, col int) string {
	return fmt.Sprintf("%s!%d:%d", FoldCase(sheet), row, col)
}

func nameKey(name string) string {
	return "name:" + strings.ToUpper(name)
}
