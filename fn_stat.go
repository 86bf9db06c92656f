package formula

import (
	"math"
	"slices"
)

func statisticalFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "AVERAGE", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnAverage)},
		{Name: "AVERAGEA", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnAverageA)},
		{Name: "AVERAGEIF", MinArgs: 2, MaxArgs: 3, Fn: FunctionFunc(fnAverageIf)},
		{Name: "COUNT", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnCount)},
		{Name: "COUNTA", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnCountA)},
		{Name: "COUNTBLANK", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnCountBlank)},
		{Name: "COUNTIF", MinArgs: 2, MaxArgs: 2, Fn: FunctionFunc(fnCountIf)},
		{Name: "MAX", MinArgs: 1, MaxArgs: Unbounded, Fn: extreme(math.Max)},
		{Name: "MIN", MinArgs: 1, MaxArgs: Unbounded, Fn: extreme(math.Min)},
		{Name: "MEDIAN", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnMedian)},
		{Name: "MODE", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnMode)},
	}
}

func fnAverage(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	values, err := numbers(args)
	if err != nil {
		return Empty(), err
	}
	if len(values) == 0 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return NumberResult(sum / float64(len(values))), nil
}

// fnAverageA counts text and logical values inside ranges too: text as 0,
// TRUE as 1 and FALSE as 0
func fnAverageA(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	sum := 0.0
	count := 0
	for fv, err := range flatten(args) {
		if err != nil {
			return Empty(), err
		}
		v := fv.value
		if v.IsError() {
			return v, nil
		}
		if fv.fromRange && v.DataType == DataTypeString {
			count++
			continue
		}
		n, ok := ToNumber(v)
		if !ok {
			return NewErrorResult(ErrorCodeValue), nil
		}
		sum += n
		count++
	}
	if count == 0 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	return NumberResult(sum / float64(count)), nil
}

func fnAverageIf(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	c, err := ctx.criteria(args[1])
	if err != nil {
		return Empty(), err
	}
	averageRange := r
	if len(args) > 2 && !args[2].IsEmptyArgument() {
		if averageRange, err = ctx.Range(args[2]); err != nil {
			return Empty(), err
		}
	}

	sum := 0.0
	count := 0
	for cell, err := range r.Iterate() {
		if err != nil {
			return Empty(), err
		}
		if !c.matches(cell.Value) || cell.RowOffset >= averageRange.Rows() || cell.ColOffset >= averageRange.Columns() {
			continue
		}
		v, err := averageRange.Value(cell.RowOffset, cell.ColOffset)
		if err != nil {
			return Empty(), err
		}
		if v.IsError() {
			return v, nil
		}
		if n, ok := v.Number(); ok {
			sum += n
			count++
		}
	}
	if count == 0 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	return NumberResult(sum / float64(count)), nil
}

// fnCount counts numbers. scalar arguments count when they coerce to a
// number; errors are never counted and never propagate.
func fnCount(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	count := int64(0)
	for fv, err := range flatten(args) {
		if err != nil {
			return Empty(), err
		}
		v := fv.value
		if fv.fromRange {
			if v.DataType.IsNumeric() {
				count++
			}
			continue
		}
		if v.IsError() || v.IsEmpty() {
			continue
		}
		if _, ok := ToNumber(v); ok {
			count++
		}
	}
	return NewInteger(count), nil
}

// fnCountA counts every value that is not empty, errors included
func fnCountA(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	count := int64(0)
	for fv, err := range flatten(args) {
		if err != nil {
			return Empty(), err
		}
		if fv.fromRange && fv.value.IsEmpty() {
			continue
		}
		count++
	}
	return NewInteger(count), nil
}

// fnCountBlank counts empty cells and cells holding empty text
func fnCountBlank(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	total := int64(r.Rows()) * int64(r.Columns())
	filled := int64(0)
	for cell, err := range r.Iterate() {
		if err != nil {
			return Empty(), err
		}
		if cell.Value.DataType == DataTypeString && cell.Value.Value.(string) == "" {
			continue
		}
		filled++
	}
	return NewInteger(total - filled), nil
}

func fnCountIf(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	c, err := ctx.criteria(args[1])
	if err != nil {
		return Empty(), err
	}

	count := int64(0)
	populated := int64(0)
	for cell, err := range r.Iterate() {
		if err != nil {
			return Empty(), err
		}
		populated++
		if c.matches(cell.Value) {
			count++
		}
	}
	// cells the iteration skipped are empty
	if c.matches(Empty()) {
		count += int64(r.Rows())*int64(r.Columns()) - populated
	}
	return NewInteger(count), nil
}

// extreme folds the numbers with pick. no numbers at all yields 0.
func extreme(pick func(a, b float64) float64) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		values, err := numbers(args)
		if err != nil {
			return Empty(), err
		}
		if len(values) == 0 {
			return NewDecimal(0), nil
		}
		result := values[0]
		for _, v := range values[1:] {
			result = pick(result, v)
		}
		return NumberResult(result), nil
	})
}

func fnMedian(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	values, err := numbers(args)
	if err != nil {
		return Empty(), err
	}
	if len(values) == 0 {
		return NewErrorResult(ErrorCodeNum), nil
	}
	slices.Sort(values)

	mid := len(values) / 2
	if len(values)%2 == 0 {
		// even count: average of two middle values
		return NumberResult((values[mid-1] + values[mid]) / 2), nil
	}
	return NumberResult(values[mid]), nil
}

// fnMode returns the most frequent number. ties go to the smallest value
// and a set without repeats is #N/A.
func fnMode(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	values, err := numbers(args)
	if err != nil {
		return Empty(), err
	}
	if len(values) == 0 {
		return NewErrorResult(ErrorCodeNA), nil
	}

	frequency := make(map[float64]int)
	maxFreq := 0
	for _, v := range values {
		frequency[v]++
		maxFreq = max(maxFreq, frequency[v])
	}
	if maxFreq == 1 {
		return NewErrorResultf(ErrorCodeNA, "MODE: no value appears more than once"), nil
	}

	var modes []float64
	for v, freq := range frequency {
		if freq == maxFreq {
			modes = append(modes, v)
		}
	}
	return NumberResult(slices.Min(modes)), nil
}
