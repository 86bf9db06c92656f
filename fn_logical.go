package formula

func logicalFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "AND", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnAnd)},
		{Name: "OR", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnOr)},
		{Name: "XOR", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnXor)},
		{Name: "NOT", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnNot)},
		{Name: "IF", MinArgs: 3, MaxArgs: 3, Fn: FunctionFunc(fnIf)},
		{Name: "IFS", MinArgs: 2, MaxArgs: Unbounded, Fn: FunctionFunc(fnIfs)},
		{Name: "IFERROR", MinArgs: 1, MaxArgs: 2, Fn: FunctionFunc(fnIfError)},
		{Name: "IFNA", MinArgs: 2, MaxArgs: 2, Fn: FunctionFunc(fnIfNA)},
		{Name: "SWITCH", MinArgs: 3, MaxArgs: Unbounded, Fn: FunctionFunc(fnSwitch)},
		{Name: "TRUE", MinArgs: 0, MaxArgs: 0, Fn: FunctionFunc(func([]*FunctionArgument, *Context) (CompileResult, error) {
			return NewBoolean(true), nil
		})},
		{Name: "FALSE", MinArgs: 0, MaxArgs: 0, Fn: FunctionFunc(func([]*FunctionArgument, *Context) (CompileResult, error) {
			return NewBoolean(false), nil
		})},
	}
}

// truthValues yields the logical values of one argument. range cells that
// are neither numbers nor booleans are skipped; a scalar must coerce.
func truthValues(a *FunctionArgument, ctx *Context, yield func(bool) bool) error {
	v, err := a.Evaluate()
	if err != nil {
		return err
	}
	r := v.Range()
	if r == nil {
		if v.IsError() {
			return v.ErrorValue()
		}
		if a.IsEmptyArgument() {
			return nil
		}
		b, ok := ToBoolean(v)
		if !ok {
			return NewExcelError(ErrorCodeValue, "")
		}
		yield(b)
		return nil
	}
	for cell, err := range r.Iterate() {
		if err != nil {
			return err
		}
		value := cell.Value
		if value.IsError() {
			return value.ErrorValue()
		}
		if value.DataType != DataTypeBoolean && !value.DataType.IsNumeric() {
			continue
		}
		b, _ := ToBoolean(value)
		if !yield(b) {
			return nil
		}
	}
	return nil
}

// fnOr stops at the first true value; later arguments are never evaluated
func fnOr(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	seen := false
	for _, a := range args {
		found := false
		err := truthValues(a, ctx, func(b bool) bool {
			seen = true
			found = b
			return !b
		})
		if err != nil {
			return Empty(), err
		}
		if found {
			return NewBoolean(true), nil
		}
	}
	if !seen {
		return NewErrorResult(ErrorCodeValue), nil
	}
	return NewBoolean(false), nil
}

// fnAnd stops at the first false value
func fnAnd(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	seen := false
	for _, a := range args {
		failed := false
		err := truthValues(a, ctx, func(b bool) bool {
			seen = true
			failed = !b
			return b
		})
		if err != nil {
			return Empty(), err
		}
		if failed {
			return NewBoolean(false), nil
		}
	}
	if !seen {
		return NewErrorResult(ErrorCodeValue), nil
	}
	return NewBoolean(true), nil
}

func fnXor(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	seen := false
	trues := 0
	for _, a := range args {
		err := truthValues(a, ctx, func(b bool) bool {
			seen = true
			if b {
				trues++
			}
			return true
		})
		if err != nil {
			return Empty(), err
		}
	}
	if !seen {
		return NewErrorResult(ErrorCodeValue), nil
	}
	return NewBoolean(trues%2 == 1), nil
}

func fnNot(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	b, err := ctx.Bool(args[0])
	if err != nil {
		return Empty(), err
	}
	return NewBoolean(!b), nil
}

// fnIf evaluates only the chosen branch and returns its result unchanged
func fnIf(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	condition, err := ctx.Bool(args[0])
	if err != nil {
		return Empty(), err
	}
	branch := args[2]
	if condition {
		branch = args[1]
	}
	return branchValue(branch)
}

// branchValue returns what a chosen argument evaluates to. an omitted
// branch is 0.
func branchValue(a *FunctionArgument) (CompileResult, error) {
	if a.IsEmptyArgument() {
		return NewInteger(0), nil
	}
	return a.Evaluate()
}

func fnIfs(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	if len(args)%2 != 0 {
		return NewErrorResultf(ErrorCodeValue, "IFS: condition without value"), nil
	}
	for i := 0; i < len(args); i += 2 {
		condition, err := ctx.Bool(args[i])
		if err != nil {
			return Empty(), err
		}
		if condition {
			return branchValue(args[i+1])
		}
	}
	return NewErrorResult(ErrorCodeNA), nil
}

// fnSwitch compares the expression with each case by exact value
// equality. with an even argument count the last argument is the default.
func fnSwitch(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	expr, err := ctx.Scalar(args[0])
	if err != nil {
		return Empty(), err
	}
	if expr.IsError() {
		return expr, nil
	}

	last := len(args)
	hasDefault := len(args)%2 == 0
	if hasDefault {
		last--
	}
	for i := 1; i+1 < last; i += 2 {
		candidate, err := ctx.Scalar(args[i])
		if err != nil {
			return Empty(), err
		}
		if candidate.IsError() {
			return candidate, nil
		}
		if valuesEqual(expr, candidate) {
			return branchValue(args[i+1])
		}
	}
	if hasDefault {
		return branchValue(args[len(args)-1])
	}
	return NewErrorResult(ErrorCodeNA), nil
}

// valuesEqual is strict equality: same kind of value and same content.
// integers, decimals and dates all count as numbers.
func valuesEqual(a, b CompileResult) bool {
	if an, ok := a.Number(); ok {
		bn, ok := b.Number()
		return ok && an == bn
	}
	if a.DataType != b.DataType {
		return false
	}
	switch a.DataType {
	case DataTypeEmpty:
		return true
	case DataTypeString:
		return a.Value.(string) == b.Value.(string)
	case DataTypeBoolean:
		return a.Value.(bool) == b.Value.(bool)
	case DataTypeExcelError:
		return a.ErrorCode() == b.ErrorCode()
	}
	return false
}

func fnIfError(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	v, err := ctx.Scalar(args[0])
	if err != nil {
		return Empty(), err
	}
	if !v.IsError() {
		return v, nil
	}
	if len(args) < 2 {
		return Empty(), nil
	}
	return branchValue(args[1])
}

func fnIfNA(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	v, err := ctx.Scalar(args[0])
	if err != nil {
		return Empty(), err
	}
	if v.ErrorCode() != ErrorCodeNA {
		return v, nil
	}
	return branchValue(args[1])
}
