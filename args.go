package formula

import (
	"iter"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Clock interface provides time functionality for testing
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator interface provides random number generation for testing
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator uses the standard library's rand package
type DefaultRandomGenerator struct{}

func (d *DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// FunctionArgument is one positional argument of a call. it is evaluated
// on first use and remembered, so a function that never looks at an
// argument never evaluates it.
type FunctionArgument struct {
	node      ASTNode
	ctx       *evalContext
	evaluated bool
	value     CompileResult
	err       error
}

// NewValueArgument wraps an already computed value
func NewValueArgument(v CompileResult) *FunctionArgument {
	return &FunctionArgument{evaluated: true, value: v}
}

// Evaluate returns the argument's value, which may be a range
func (a *FunctionArgument) Evaluate() (CompileResult, error) {
	if !a.evaluated {
		a.value, a.err = a.node.Eval(a.ctx)
		a.evaluated = true
	}
	return a.value, a.err
}

// IsExcelRange reports whether the argument evaluates to a range
func (a *FunctionArgument) IsExcelRange() bool {
	v, err := a.Evaluate()
	return err == nil && v.IsRange()
}

// IsEmptyArgument reports whether the argument was omitted, as the middle
// argument of IF(A1,,2)
func (a *FunctionArgument) IsEmptyArgument() bool {
	_, empty := a.node.(*EmptyArgNode)
	return empty
}

// Context is handed to every function call
type Context struct {
	Origin CellAddress
	Clock  Clock
	Random RandomGenerator
	Logger zerolog.Logger
	eval   *evalContext
}

// Scalar evaluates a and reduces a range to a single value by implicit
// intersection with the calling cell. error values are returned as values.
func (c *Context) Scalar(a *FunctionArgument) (CompileResult, error) {
	v, err := a.Evaluate()
	if err != nil {
		return Empty(), err
	}
	return c.reduce(v)
}

func (c *Context) reduce(v CompileResult) (CompileResult, error) {
	if c.eval == nil {
		if r := v.Range(); r != nil {
			return r.Value(0, 0)
		}
		return v, nil
	}
	return c.eval.scalar(v)
}

// value evaluates a to a scalar and returns error values as *ExcelError
func (c *Context) value(a *FunctionArgument) (CompileResult, error) {
	v, err := c.Scalar(a)
	if err != nil {
		return Empty(), err
	}
	if v.IsError() {
		return Empty(), v.ErrorValue()
	}
	return v, nil
}

// Number evaluates a as a number. text must parse as a number or a date.
func (c *Context) Number(a *FunctionArgument) (float64, error) {
	v, err := c.value(a)
	if err != nil {
		return 0, err
	}
	f, ok := ToNumber(v)
	if !ok {
		return 0, NewExcelError(ErrorCodeValue, "")
	}
	return f, nil
}

// Integer evaluates a as a number truncated toward zero
func (c *Context) Integer(a *FunctionArgument) (int, error) {
	f, err := c.Number(a)
	if err != nil {
		return 0, err
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, NewExcelError(ErrorCodeNum, "")
	}
	return int(math.Trunc(f)), nil
}

// Bool evaluates a as a truth value
func (c *Context) Bool(a *FunctionArgument) (bool, error) {
	v, err := c.value(a)
	if err != nil {
		return false, err
	}
	b, ok := ToBoolean(v)
	if !ok {
		return false, NewExcelError(ErrorCodeValue, "")
	}
	return b, nil
}

// Text evaluates a as text
func (c *Context) Text(a *FunctionArgument) (string, error) {
	v, err := c.value(a)
	if err != nil {
		return "", err
	}
	return v.Text(), nil
}

// Range evaluates a and returns it as a range. scalars become a one-cell
// array so callers can treat both alike.
func (c *Context) Range(a *FunctionArgument) (Range, error) {
	v, err := a.Evaluate()
	if err != nil {
		return nil, err
	}
	if v.IsError() {
		return nil, v.ErrorValue()
	}
	if r := v.Range(); r != nil {
		return r, nil
	}
	return NewArrayRange([][]CompileResult{{v}}), nil
}

// flatValue is one value fed to an aggregate, remembering whether it came
// from a reference
type flatValue struct {
	value     CompileResult
	fromRange bool
}

// flatten yields every value of the arguments: populated cells of range
// arguments and the value of scalar ones. omitted arguments yield nothing.
func flatten(args []*FunctionArgument) iter.Seq2[flatValue, error] {
	return func(yield func(flatValue, error) bool) {
		for _, a := range args {
			if a.node != nil && a.IsEmptyArgument() {
				continue
			}
			v, err := a.Evaluate()
			if err != nil {
				yield(flatValue{}, err)
				return
			}
			r := v.Range()
			if r == nil {
				if !yield(flatValue{value: v}, nil) {
					return
				}
				continue
			}
			for value, err := range IterateValues(r) {
				if err != nil {
					yield(flatValue{}, err)
					return
				}
				if !yield(flatValue{value: value, fromRange: true}, nil) {
					return
				}
			}
		}
	}
}

// numbers collects the numeric arguments the way SUM, AVERAGE, MAX and
// friends see them: numbers inside ranges count while text and booleans
// there are skipped; scalar arguments are coerced and must be numeric.
// errors propagate.
func numbers(args []*FunctionArgument) ([]float64, error) {
	var values []float64
	for fv, err := range flatten(args) {
		if err != nil {
			return nil, err
		}
		v := fv.value
		if v.IsError() {
			return nil, v.ErrorValue()
		}
		if fv.fromRange {
			if n, ok := v.Number(); ok {
				values = append(values, n)
			}
			continue
		}
		n, ok := ToNumber(v)
		if !ok {
			return nil, NewExcelError(ErrorCodeValue, "")
		}
		values = append(values, n)
	}
	return values, nil
}
