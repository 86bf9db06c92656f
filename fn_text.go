package formula

import (
	"strings"
	"unicode/utf8"
)

func textFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "CONCATENATE", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnConcatenate)},
		{Name: "CONCAT", MinArgs: 1, MaxArgs: Unbounded, Fn: FunctionFunc(fnConcat)},
		{Name: "LEN", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnLen)},
		{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Fn: textTransform(strings.ToUpper)},
		{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Fn: textTransform(strings.ToLower)},
		{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Fn: textTransform(trimSpaces)},
		{Name: "LEFT", MinArgs: 1, MaxArgs: 2, Fn: FunctionFunc(fnLeft)},
		{Name: "RIGHT", MinArgs: 1, MaxArgs: 2, Fn: FunctionFunc(fnRight)},
		{Name: "MID", MinArgs: 3, MaxArgs: 3, Fn: FunctionFunc(fnMid)},
		{Name: "EXACT", MinArgs: 2, MaxArgs: 2, Fn: FunctionFunc(fnExact)},
		{Name: "VALUE", MinArgs: 1, MaxArgs: 1, Fn: FunctionFunc(fnValue)},
	}
}

// fnConcatenate joins scalar arguments; a range argument contributes the
// cell sharing the calling cell's row or column
func fnConcatenate(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	var sb strings.Builder
	for _, a := range args {
		s, err := ctx.Text(a)
		if err != nil {
			return Empty(), err
		}
		sb.WriteString(s)
	}
	return NewString(sb.String()), nil
}

// fnConcat joins every populated cell of its range arguments
func fnConcat(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	var sb strings.Builder
	for fv, err := range flatten(args) {
		if err != nil {
			return Empty(), err
		}
		if fv.value.IsError() {
			return fv.value, nil
		}
		sb.WriteString(fv.value.Text())
	}
	return NewString(sb.String()), nil
}

func fnLen(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return Empty(), err
	}
	return NewInteger(int64(utf8.RuneCountInString(s))), nil
}

func textTransform(fn func(string) string) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		s, err := ctx.Text(args[0])
		if err != nil {
			return Empty(), err
		}
		return NewString(fn(s)), nil
	})
}

// trimSpaces removes leading and trailing spaces and collapses inner runs
// of spaces to one
func trimSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' }), " ")
}

// charCount reads the optional character count argument, 1 by default
func charCount(args []*FunctionArgument, ctx *Context, index int) (int, error) {
	if len(args) <= index {
		return 1, nil
	}
	n, err := ctx.Integer(args[index])
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, NewExcelError(ErrorCodeValue, "")
	}
	return n, nil
}

func fnLeft(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return Empty(), err
	}
	n, err := charCount(args, ctx, 1)
	if err != nil {
		return Empty(), err
	}
	runes := []rune(s)
	return NewString(string(runes[:min(n, len(runes))])), nil
}

func fnRight(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return Empty(), err
	}
	n, err := charCount(args, ctx, 1)
	if err != nil {
		return Empty(), err
	}
	runes := []rune(s)
	return NewString(string(runes[len(runes)-min(n, len(runes)):])), nil
}

func fnMid(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	s, err := ctx.Text(args[0])
	if err != nil {
		return Empty(), err
	}
	start, err := ctx.Integer(args[1])
	if err != nil {
		return Empty(), err
	}
	if start < 1 {
		return NewErrorResult(ErrorCodeValue), nil
	}
	n, err := charCount(args, ctx, 2)
	if err != nil {
		return Empty(), err
	}
	runes := []rune(s)
	if start > len(runes) {
		return NewString(""), nil
	}
	end := min(start-1+n, len(runes))
	return NewString(string(runes[start-1 : end])), nil
}

func fnExact(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	a, err := ctx.Text(args[0])
	if err != nil {
		return Empty(), err
	}
	b, err := ctx.Text(args[1])
	if err != nil {
		return Empty(), err
	}
	return NewBoolean(a == b), nil
}

// fnValue converts text that reads as a number or a date
func fnValue(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	v, err := ctx.value(args[0])
	if err != nil {
		return Empty(), err
	}
	if n, ok := v.Number(); ok {
		return NewDecimal(n), nil
	}
	switch {
	case v.IsEmpty():
		return NewDecimal(0), nil
	case v.DataType != DataTypeString:
		return NewErrorResult(ErrorCodeValue), nil
	}
	n, ok := ToNumber(v)
	if !ok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	return NumberResult(n), nil
}
