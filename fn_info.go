package formula

import "math"

func informationFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "ISBLANK", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool { return v.IsEmpty() })},
		{Name: "ISERROR", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool { return v.IsError() })},
		{Name: "ISERR", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool {
			return v.IsError() && v.ErrorCode() != ErrorCodeNA
		})},
		{Name: "ISNA", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool { return v.ErrorCode() == ErrorCodeNA })},
		{Name: "ISNUMBER", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool { return v.DataType.IsNumeric() })},
		{Name: "ISTEXT", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool { return v.DataType == DataTypeString })},
		{Name: "ISLOGICAL", MinArgs: 1, MaxArgs: 1, Fn: typePredicate(func(v CompileResult) bool { return v.DataType == DataTypeBoolean })},
		{Name: "ISEVEN", MinArgs: 1, MaxArgs: 1, Fn: parity(true)},
		{Name: "ISODD", MinArgs: 1, MaxArgs: 1, Fn: parity(false)},
		{Name: "NA", MinArgs: 0, MaxArgs: 0, Fn: FunctionFunc(func([]*FunctionArgument, *Context) (CompileResult, error) {
			return NewErrorResult(ErrorCodeNA), nil
		})},
	}
}

// typePredicate inspects the type of a single value. error values are
// inspected too rather than propagated.
func typePredicate(test func(CompileResult) bool) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		v, err := ctx.Scalar(args[0])
		if err != nil {
			return Empty(), err
		}
		return NewBoolean(test(v)), nil
	})
}

// parity floors the number and tests whether it is even
func parity(even bool) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		n, err := ctx.Number(args[0])
		if err != nil {
			return Empty(), err
		}
		isEven := math.Mod(math.Floor(n), 2) == 0
		return NewBoolean(isEven == even), nil
	})
}
