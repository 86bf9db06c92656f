package formula

import (
	"math"
)

func mathFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "SUM", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnSum)},
		{Name: "SUMIF", MinArgs: 2, MaxArgs: 3, Fn: FunctionFunc(fnSumIf)},
		{Name: "PRODUCT", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnProduct)},
		{Name: "ABS", MinArgs: 1, MaxArgs: 1, Fn: unaryMath(math.Abs)},
		{Name: "INT", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnInt)},
		{Name: "ROUND", MinArgs: 1, MaxArgs: 2, Fn: rounding(roundHalfAway)},
		{Name: "ROUNDUP", MinArgs: 1, MaxArgs: 2, Fn: rounding(roundAwayFromZero)},
		{Name: "ROUNDDOWN", MinArgs: 1, MaxArgs: 2, Fn: rounding(math.Trunc)},
		{Name: "FLOOR", MinArgs: 1, MaxArgs: 2, Fn: toMultiple(math.Floor)},
		{Name: "CEILING", MinArgs: 1, MaxArgs: 2, Fn: toMultiple(math.Ceil)},
		{Name: "SQRT", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnSqrt)},
		{Name: "POWER", MinArgs: 2, MaxArgs: 2, Fn: FunctionFunc(fnPower)},
		{Name: "MOD", MinArgs: 2, MaxArgs: 2, Fn: operatorFunction(OpModulus)},
		{Name: "QUOTIENT", MinArgs: 2, MaxArgs: 2, Fn: operatorFunction(OpIntegerDivision)},
		{Name: "SIGN", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnSign)},
		{Name: "PI", MinArgs: 0, MaxArgs: 0, Fn: FunctionFunc(func([]*FunctionArgument, *Context) (CompileResult, error) {
			return NewDecimal(math.Pi), nil
		})},
		{Name: "RAND", MinArgs: 0, MaxArgs: 0, Volatile: true, Fn: FunctionFunc(func(_ []*FunctionArgument, ctx *Context) (CompileResult, error) {
			return NewDecimal(ctx.Random.Float64()), nil
		})},
	}
}

func fnSum(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	values, err := numbers(args)
	if err != nil {
		return Empty(), err
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return NumberResult(sum), nil
}

func fnProduct(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	values, err := numbers(args)
	if err != nil {
		return Empty(), err
	}
	if len(values) == 0 {
		return NewDecimal(0), nil
	}
	product := 1.0
	for _, v := range values {
		product *= v
	}
	return NumberResult(product), nil
}

func unaryMath(fn func(float64) float64) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		n, err := ctx.Number(args[0])
		if err != nil {
			return Empty(), err
		}
		return NumberResult(fn(n)), nil
	})
}

// fnInt floors its argument. text must read as a number, a logical value
// or a date.
func fnInt(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	v, err := ctx.value(args[0])
	if err != nil {
		return Empty(), err
	}
	if v.DataType == DataTypeString {
		s := v.Value.(string)
		if b, ok := ParseBoolean(s); ok {
			v = NewBoolean(b)
		}
	}
	n, ok := ToNumber(v)
	if !ok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	return integerOrDecimal(math.Floor(n)), nil
}

func roundHalfAway(f float64) float64 {
	return math.Round(f)
}

func roundAwayFromZero(f float64) float64 {
	if f < 0 {
		return math.Floor(f)
	}
	return math.Ceil(f)
}

// rounding applies mode at the given number of digits. negative digits
// round to the left of the decimal point.
func rounding(mode func(float64) float64) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		n, err := ctx.Number(args[0])
		if err != nil {
			return Empty(), err
		}
		digits := 0
		if len(args) > 1 {
			if digits, err = ctx.Integer(args[1]); err != nil {
				return Empty(), err
			}
		}
		if digits > 15 || digits < -15 {
			return NewDecimal(n), nil
		}
		scale := math.Pow(10, float64(digits))
		// scale through the 15 digit representation so 2.675 rounds like
		// it reads
		scaled, _ := ToNumber(NewString(FormatNumber(n * scale)))
		return NumberResult(mode(scaled) / scale), nil
	})
}

// toMultiple rounds to a multiple of the significance, 1 by default
func toMultiple(mode func(float64) float64) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		n, err := ctx.Number(args[0])
		if err != nil {
			return Empty(), err
		}
		significance := 1.0
		if len(args) > 1 {
			if significance, err = ctx.Number(args[1]); err != nil {
				return Empty(), err
			}
		}
		switch {
		case significance == 0:
			if n == 0 {
				return NewDecimal(0), nil
			}
			return NewErrorResult(ErrorCodeDiv0), nil
		case n > 0 && significance < 0:
			return NewErrorResult(ErrorCodeNum), nil
		}
		return NumberResult(mode(n/significance) * significance), nil
	})
}

func fnSqrt(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	n, err := ctx.Number(args[0])
	if err != nil {
		return Empty(), err
	}
	if n < 0 {
		return NewErrorResult(ErrorCodeNum), nil
	}
	return NumberResult(math.Sqrt(n)), nil
}

func fnPower(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	base, err := ctx.Number(args[0])
	if err != nil {
		return Empty(), err
	}
	exponent, err := ctx.Number(args[1])
	if err != nil {
		return Empty(), err
	}
	if base == 0 && exponent < 0 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	return NumberResult(math.Pow(base, exponent)), nil
}

// operatorFunction exposes a reserved operator of the table as a function
func operatorFunction(op *Operator) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		left, err := ctx.Scalar(args[0])
		if err != nil {
			return Empty(), err
		}
		right, err := ctx.Scalar(args[1])
		if err != nil {
			return Empty(), err
		}
		return op.Apply(left, right)
	})
}

func fnSign(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	n, err := ctx.Number(args[0])
	if err != nil {
		return Empty(), err
	}
	switch {
	case n > 0:
		return NewInteger(1), nil
	case n < 0:
		return NewInteger(-1), nil
	}
	return NewInteger(0), nil
}

func fnSumIf(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	r, err := ctx.Range(args[0])
	if err != nil {
		return Empty(), err
	}
	c, err := ctx.criteria(args[1])
	if err != nil {
		return Empty(), err
	}
	sumRange := r
	if len(args) > 2 && !args[2].IsEmptyArgument() {
		if sumRange, err = ctx.Range(args[2]); err != nil {
			return Empty(), err
		}
	}

	sum := 0.0
	for cell, err := range r.Iterate() {
		if err != nil {
			return Empty(), err
		}
		if !c.matches(cell.Value) || cell.RowOffset >= sumRange.Rows() || cell.ColOffset >= sumRange.Columns() {
			continue
		}
		v, err := sumRange.Value(cell.RowOffset, cell.ColOffset)
		if err != nil {
			return Empty(), err
		}
		if v.IsError() {
			return v, nil
		}
		if n, ok := v.Number(); ok {
			sum += n
		}
	}
	return NumberResult(sum), nil
}
