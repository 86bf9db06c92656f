package formula

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var numericTextPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?%?$`)

// ParseNumber parses numeric text the way a cell would accept it: an
// optional sign, decimal digits, an optional exponent and an optional
// trailing percent sign
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericTextPattern.MatchString(s) {
		return 0, false
	}
	percent := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	if percent {
		f /= 100
	}
	return f, true
}

// ParseBoolean accepts TRUE and FALSE in any case
func ParseBoolean(s string) (bool, bool) {
	switch {
	case strings.EqualFold(strings.TrimSpace(s), "TRUE"):
		return true, true
	case strings.EqualFold(strings.TrimSpace(s), "FALSE"):
		return false, true
	}
	return false, false
}

// ToNumber coerces a scalar to a number. empty is 0, booleans are 1 and 0,
// text must parse as a number or a date. errors and ranges never coerce.
func ToNumber(v CompileResult) (float64, bool) {
	switch v.DataType {
	case DataTypeEmpty:
		return 0, true
	case DataTypeInteger:
		return float64(v.Value.(int64)), true
	case DataTypeDecimal, DataTypeDate:
		return v.Value.(float64), true
	case DataTypeBoolean:
		if v.Value.(bool) {
			return 1, true
		}
		return 0, true
	case DataTypeString:
		s := v.Value.(string)
		if f, ok := ParseNumber(s); ok {
			return f, true
		}
		if serial, ok := ParseDate(s); ok {
			return serial, true
		}
	}
	return 0, false
}

// ToBoolean coerces a scalar to a truth value. numbers are true when
// non-zero and text must read TRUE or FALSE.
func ToBoolean(v CompileResult) (bool, bool) {
	switch v.DataType {
	case DataTypeEmpty:
		return false, true
	case DataTypeBoolean:
		return v.Value.(bool), true
	case DataTypeInteger:
		return v.Value.(int64) != 0, true
	case DataTypeDecimal, DataTypeDate:
		return v.Value.(float64) != 0, true
	case DataTypeString:
		return ParseBoolean(v.Value.(string))
	}
	return false, false
}

// operand is a value coerced for arithmetic
type operand struct {
	f     float64
	i     int64
	isInt bool
}

// toOperand coerces for + - * / ^. empty counts as Integer 0; booleans,
// dates and numeric or date text become decimals.
func toOperand(v CompileResult) (operand, bool) {
	switch v.DataType {
	case DataTypeEmpty:
		return operand{isInt: true}, true
	case DataTypeInteger:
		i := v.Value.(int64)
		return operand{f: float64(i), i: i, isInt: true}, true
	}
	f, ok := ToNumber(v)
	if !ok {
		return operand{}, false
	}
	return operand{f: f}, true
}

// isNumericLike reports whether v takes part in comparisons as a number.
// numeric text counts, booleans do not.
func isNumericLike(v CompileResult) (float64, bool) {
	switch v.DataType {
	case DataTypeInteger, DataTypeDecimal, DataTypeDate:
		return v.Number()
	case DataTypeString:
		return ParseNumber(v.Value.(string))
	}
	return 0, false
}

func integerOrDecimal(f float64) CompileResult {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return NewInteger(int64(f))
	}
	return NumberResult(f)
}
