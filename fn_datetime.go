package formula

import (
	"math"
	"time"
)

func dateTimeFunctions() []*FunctionDef {
	return []*FunctionDef{
		{Name: "DATE", MinArgs: 3, MaxArgs: 3, Fn: FunctionFunc(fnDate)},
		{Name: "YEAR", MinArgs: 1, MaxArgs: 1, Fn: datePart(func(t time.Time) int { return t.Year() })},
		{Name: "MONTH", MinArgs: 1, MaxArgs: 1, Fn: datePart(func(t time.Time) int { return int(t.Month()) })},
		{Name: "DAY", MinArgs: 1, MaxArgs: 1, Fn: datePart(func(t time.Time) int { return t.Day() })},
		{Name: "NOW", MinArgs: 0, MaxArgs: 0, Volatile: true, Fn: FunctionFunc(fnNow)},
		{Name: "TODAY", MinArgs: 0, MaxArgs: 0, Volatile: true, Fn: FunctionFunc(fnToday)},
	}
}

// fnDate builds a date serial. years below 1900 are offsets from 1900 and
// months or days out of range roll over into the neighbouring period.
func fnDate(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
	year, err := ctx.Integer(args[0])
	if err != nil {
		return Empty(), err
	}
	month, err := ctx.Integer(args[1])
	if err != nil {
		return Empty(), err
	}
	day, err := ctx.Integer(args[2])
	if err != nil {
		return Empty(), err
	}
	if year < 0 || year > 9999 {
		return NewErrorResult(ErrorCodeNum), nil
	}
	if year < 1900 {
		year += 1900
	}
	serial := TimeToSerial(time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC))
	if serial < 0 {
		return NewErrorResult(ErrorCodeNum), nil
	}
	return NewDate(serial), nil
}

func datePart(part func(time.Time) int) Function {
	return FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
		serial, err := ctx.Number(args[0])
		if err != nil {
			return Empty(), err
		}
		if serial < 0 {
			return NewErrorResult(ErrorCodeNum), nil
		}
		return NewInteger(int64(part(SerialToTime(serial)))), nil
	})
}

func fnNow(_ []*FunctionArgument, ctx *Context) (CompileResult, error) {
	return NewDate(TimeToSerial(ctx.Clock.Now())), nil
}

func fnToday(_ []*FunctionArgument, ctx *Context) (CompileResult, error) {
	return NewDate(math.Floor(TimeToSerial(ctx.Clock.Now()))), nil
}
