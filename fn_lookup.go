package formula

func lookupFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "VLOOKUP", MinArgs: 3, MaxArgs: 4, Fn: tableLookup(true)},
		{Name: "HLOOKUP", MinArgs: 3, MaxArgs: 4, Fn: tableLookup(false)},
		{Name: "MATCH", MinArgs: 2, MaxArgs: 3, Fn: FunctionFunc(fnMatch)},
		{Name: "INDEX", MinArgs: 2, MaxArgs: 3, Fn: FunctionFunc(fnIndex)},
		{Name: "ROWS", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnRows)},
		{Name: "COLUMNS", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnColumns)},
	}
}

// lookupValue reads the value searched for. a reference to more than one
// cell cannot be searched for and yields #N/A.
func lookupValue(a *FunctionArgument, ctx *Context) (CompileResult, error) {
	v, err := a.Evaluate()
	if err != nil {
		return Empty(), err
	}
	if r := v.Range(); r != nil {
		if r.Rows() != 1 || r.Columns() != 1 {
			return Empty(), NewExcelError(ErrorCodeNA, "")
		}
		if v, err = r.Value(0, 0); err != nil {
			return Empty(), err
		}
	}
	if v.IsError() {
		return Empty(), v.ErrorValue()
	}
	return v, nil
}

// vector is a one-dimensional view over a row or a column of a range
type vector struct {
	r        Range
	vertical bool
	index    int // row or column of r the vector runs along
}

func (v vector) length() int {
	if v.vertical {
		return v.r.Rows()
	}
	return v.r.Columns()
}

// positions yields the populated positions of the vector in order
func (v vector) positions(yield func(pos int, value CompileResult) bool) error {
	for cell, err := range v.r.Iterate() {
		if err != nil {
			return err
		}
		pos, other := cell.RowOffset, cell.ColOffset
		if !v.vertical {
			pos, other = cell.ColOffset, cell.RowOffset
		}
		if other != v.index {
			continue
		}
		if !yield(pos, cell.Value) {
			return nil
		}
	}
	return nil
}

// exactPosition finds the first position equal to value, honoring
// wildcards in text
func (v vector) exactPosition(value CompileResult) (int, error) {
	matcher := NewWildcardValueMatcher()
	found := -1
	err := v.positions(func(pos int, candidate CompileResult) bool {
		if kindOf(candidate) != kindOf(value) {
			return true
		}
		if c, ok := matcher.IsMatch(value, candidate); ok && c == 0 {
			found = pos
			return false
		}
		return true
	})
	return found, err
}

// approximatePosition assumes ascending order and finds the last position
// not greater than value. with descending set, the order is descending and
// the last position not less than value is found.
func (v vector) approximatePosition(value CompileResult, descending bool) (int, error) {
	matcher := NewValueMatcher()
	found := -1
	err := v.positions(func(pos int, candidate CompileResult) bool {
		if kindOf(candidate) != kindOf(value) {
			return true
		}
		c, ok := matcher.IsMatch(value, candidate)
		if !ok {
			return true
		}
		if descending {
			c = -c
		}
		if c < 0 {
			return false
		}
		found = pos
		return c != 0 || descending
	})
	return found, err
}

// tableLookup implements VLOOKUP (vertical) and HLOOKUP
func tableLookup(vertical bool) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		value, err := lookupValue(args[0], ctx)
		if err != nil {
			return Empty(), err
		}
		table, err := ctx.Range(args[1])
		if err != nil {
			return Empty(), err
		}
		index, err := ctx.Integer(args[2])
		if err != nil {
			return Empty(), err
		}
		approximate := true
		if len(args) > 3 {
			if approximate, err = ctx.Bool(args[3]); err != nil {
				return Empty(), err
			}
		}

		width := table.Columns()
		if !vertical {
			width = table.Rows()
		}
		switch {
		case index < 1:
			return NewErrorResult(ErrorCodeValue), nil
		case index > width:
			return NewErrorResult(ErrorCodeRef), nil
		}

		keys := vector{r: table, vertical: vertical}
		var pos int
		if approximate {
			pos, err = keys.approximatePosition(value, false)
		} else {
			pos, err = keys.exactPosition(value)
		}
		if err != nil {
			return Empty(), err
		}
		if pos < 0 {
			return NewErrorResult(ErrorCodeNA), nil
		}
		if vertical {
			return table.Value(pos, index-1)
		}
		return table.Value(index-1, pos)
	})
}

// fnMatch returns the 1-based position of a value in a row or column.
// match type 1 (default) finds the largest value not greater than the
// search value in ascending data, 0 an exact match, -1 the smallest value
// not less than it in descending data.
func fnMatch(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	value, err := lookupValue(args[0], ctx)
	if err != nil {
		return Empty(), err
	}
	r, err := ctx.Range(args[1])
	if err != nil {
		return Empty(), err
	}
	matchType := 1
	if len(args) > 2 && !args[2].IsEmptyArgument() {
		if matchType, err = ctx.Integer(args[2]); err != nil {
			return Empty(), err
		}
	}
	if r.Rows() != 1 && r.Columns() != 1 {
		return NewErrorResult(ErrorCodeNA), nil
	}

	v := vector{r: r, vertical: r.Columns() == 1}
	var pos int
	switch {
	case matchType == 0:
		pos, err = v.exactPosition(value)
	case matchType > 0:
		pos, err = v.approximatePosition(value, false)
	default:
		pos, err = v.approximatePosition(value, true)
	}
	if err != nil {
		return Empty(), err
	}
	if pos < 0 {
		return NewErrorResult(ErrorCodeNA), nil
	}
	return NewInteger(int64(pos + 1)), nil
}

// fnIndex returns the cell at a 1-based row and column. a single row or
// column may be indexed with one number.
func fnIndex(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	row, err := ctx.Integer(args[1])
	if err != nil {
		return Empty(), err
	}
	col := 1
	if len(args) > 2 && !args[2].IsEmptyArgument() {
		if col, err = ctx.Integer(args[2]); err != nil {
			return Empty(), err
		}
	} else if r.Rows() == 1 {
		row, col = 1, row
	}

	// 0 selects the whole row or column, which only reduces to a value
	// when that dimension has a single cell
	if row == 0 && r.Rows() == 1 {
		row = 1
	}
	if col == 0 && r.Columns() == 1 {
		col = 1
	}
	switch {
	case row < 0 || col < 0:
		return NewErrorResult(ErrorCodeValue), nil
	case row == 0 || col == 0:
		return NewErrorResult(ErrorCodeValue), nil
	case row > r.Rows() || col > r.Columns():
		return NewErrorResult(ErrorCodeRef), nil
	}
	return r.Value(row-1, col-1)
}

func fnRows(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	return NewInteger(int64(r.Rows())), nil
}

func fnColumns(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	return NewInteger(int64(r.Columns())), nil
}
