package formula

import (
	"iter"
)

// RangeCell is one populated cell of a range, located relative to the
// range's top-left corner
type RangeCell struct {
	RowOffset int
	ColOffset int
	Value     CompileResult
}

// Range is a lazily evaluated block of values. iteration skips empty cells
// and yields a non-nil error, then stops, when evaluating a formula cell
// fails structurally.
type Range interface {
	GetBounds() RangeAddress
	Rows() int
	Columns() int
	Iterate() iter.Seq2[RangeCell, error]
	Value(rowOffset, colOffset int) (CompileResult, error)
}

// IterateValues returns the populated values of r in row-major order
func IterateValues(r Range) iter.Seq2[CompileResult, error] {
	return func(yield func(CompileResult, error) bool) {
		for cell, err := range r.Iterate() {
			if !yield(cell.Value, err) || err != nil {
				return
			}
		}
	}
}

// cellRange is a range backed by the data provider. formula cells inside
// it are evaluated through the owning evaluation context.
type cellRange struct {
	address RangeAddress
	ctx     *evalContext
}

func newCellRange(address RangeAddress, ctx *evalContext) *cellRange {
	if dp, ok := ctx.provider.(DimensionProvider); ok {
		if rows, cols, ok := dp.Dimension(address.Worksheet); ok {
			// clamp full column and full row references to the used area
			if address.ToRow == MaxRows-1 && address.FromRow < rows {
				address.ToRow = max(rows-1, address.FromRow)
			}
			if address.ToColumn == MaxColumns-1 && address.FromColumn < cols {
				address.ToColumn = max(cols-1, address.FromColumn)
			}
		}
	}
	return &cellRange{address: address, ctx: ctx}
}

func (r *cellRange) GetBounds() RangeAddress {
	return r.address
}

func (r *cellRange) Rows() int {
	return r.address.Rows()
}

func (r *cellRange) Columns() int {
	return r.address.Columns()
}

func (r *cellRange) Iterate() iter.Seq2[RangeCell, error] {
	return func(yield func(RangeCell, error) bool) {
		a := r.address
		cells := r.ctx.provider.GetRangeValues(a.Worksheet, a.FromRow, a.FromColumn, a.ToRow, a.ToColumn)
		for cell := range cells {
			value := cell.Value
			if cell.Formula != "" {
				var err error
				value, err = r.ctx.formulaCell(CellAddress{Worksheet: a.Worksheet, Row: cell.Row, Column: cell.Column}, cell.Formula)
				if err != nil {
					yield(RangeCell{}, err)
					return
				}
			}
			if value.IsEmpty() {
				continue
			}
			rc := RangeCell{RowOffset: cell.Row - a.FromRow, ColOffset: cell.Column - a.FromColumn, Value: value}
			if !yield(rc, nil) {
				return
			}
		}
	}
}

func (r *cellRange) Value(rowOffset, colOffset int) (CompileResult, error) {
	if rowOffset < 0 || colOffset < 0 || rowOffset >= r.Rows() || colOffset >= r.Columns() {
		return NewErrorResult(ErrorCodeRef), nil
	}
	a := r.address
	return r.ctx.cellValue(a.Worksheet, a.FromRow+rowOffset, a.FromColumn+colOffset)
}

// arrayRange is an in-memory block produced by an array literal such as
// {1,2;3,4}
type arrayRange struct {
	values [][]CompileResult
	cols   int
}

// NewArrayRange builds a range from rows of values. short rows are padded
// with #N/A, the way array constants are widened.
func NewArrayRange(values [][]CompileResult) Range {
	cols := 0
	for _, row := range values {
		cols = max(cols, len(row))
	}
	for i, row := range values {
		for len(row) < cols {
			row = append(row, NewErrorResult(ErrorCodeNA))
		}
		values[i] = row
	}
	return &arrayRange{values: values, cols: cols}
}

func (r *arrayRange) GetBounds() RangeAddress {
	return RangeAddress{ToRow: len(r.values) - 1, ToColumn: r.cols - 1}
}

func (r *arrayRange) Rows() int {
	return len(r.values)
}

func (r *arrayRange) Columns() int {
	return r.cols
}

func (r *arrayRange) Iterate() iter.Seq2[RangeCell, error] {
	return func(yield func(RangeCell, error) bool) {
		for i, row := range r.values {
			for j, v := range row {
				if v.IsEmpty() {
					continue
				}
				if !yield(RangeCell{RowOffset: i, ColOffset: j, Value: v}, nil) {
					return
				}
			}
		}
	}
}

func (r *arrayRange) Value(rowOffset, colOffset int) (CompileResult, error) {
	if rowOffset < 0 || colOffset < 0 || rowOffset >= len(r.values) || colOffset >= r.cols {
		return NewErrorResult(ErrorCodeRef), nil
	}
	return r.values[rowOffset][colOffset], nil
}
