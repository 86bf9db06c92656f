package formula

import (
	"errors"
	"fmt"
	"strings"
)

// structural failures. these are returned from Evaluate and are never
// converted into spreadsheet error values by the engine.
var (
	ErrCircularReference      = errors.New("circular reference")
	ErrMaxDepth               = errors.New("maximum evaluation depth exceeded")
	ErrInvalidTypeCombination = errors.New("invalid combination of data types")
	ErrNilProvider            = errors.New("data provider is nil")
)

// CircularReferenceError reports the reference that re-entered an
// evaluation already in progress, plus the chain that led to it
type CircularReferenceError struct {
	Address string
	Chain   []string
}

func (e *CircularReferenceError) Error() string {
	if len(e.Chain) == 0 {
		return fmt.Sprintf("circular reference at %s", e.Address)
	}
	return fmt.Sprintf("circular reference at %s (%s -> %s)", e.Address, strings.Join(e.Chain, " -> "), e.Address)
}

func (e *CircularReferenceError) Unwrap() error {
	return ErrCircularReference
}

// SyntaxError describes a formula that could not be built into an
// expression tree
type SyntaxError struct {
	Formula string
	Pos     int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d in %q: %s", e.Pos, e.Formula, e.Message)
}

func invalidCombination(left, right CompileResult) error {
	return fmt.Errorf("%w: %s and %s", ErrInvalidTypeCombination, left.DataType, right.DataType)
}
