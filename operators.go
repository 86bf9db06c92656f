package formula

import (
	"math"
)

// operator precedence. a lower number binds tighter; equal precedence
// associates left to right.
const (
	PrecedencePercent         = 2
	PrecedenceExponent        = 4
	PrecedenceMultiply        = 6
	PrecedenceIntegerDivision = 8
	PrecedenceModulus         = 10
	PrecedenceAdd             = 12
	PrecedenceConcatenation   = 15
	PrecedenceComparison      = 25
)

// Operator is one entry of the operator table
type Operator struct {
	Symbol     string
	Precedence int
	apply      func(left, right CompileResult) (CompileResult, error)
}

// Apply combines two scalar operands. an error operand is returned as is,
// left checked first. the Go error is reserved for structural failures.
func (o *Operator) Apply(left, right CompileResult) (CompileResult, error) {
	if left.IsError() {
		return left, nil
	}
	if right.IsError() {
		return right, nil
	}
	return o.apply(left, right)
}

func (o *Operator) String() string {
	return o.Symbol
}

var (
	OpPercent         = &Operator{Symbol: "%", Precedence: PrecedencePercent, apply: applyPercent}
	OpExponent        = &Operator{Symbol: "^", Precedence: PrecedenceExponent, apply: applyExponent}
	OpMultiply        = &Operator{Symbol: "*", Precedence: PrecedenceMultiply, apply: applyMultiply}
	OpDivide          = &Operator{Symbol: "/", Precedence: PrecedenceMultiply, apply: applyDivide}
	OpIntegerDivision = &Operator{Symbol: "\\", Precedence: PrecedenceIntegerDivision, apply: applyIntegerDivision}
	OpModulus         = &Operator{Symbol: "mod", Precedence: PrecedenceModulus, apply: applyModulus}
	OpAdd             = &Operator{Symbol: "+", Precedence: PrecedenceAdd, apply: applyAdd}
	OpSubtract        = &Operator{Symbol: "-", Precedence: PrecedenceAdd, apply: applySubtract}
	OpConcat          = &Operator{Symbol: "&", Precedence: PrecedenceConcatenation, apply: applyConcat}
	OpEqual           = comparison("=", func(c int) bool { return c == 0 })
	OpNotEqual        = comparison("<>", func(c int) bool { return c != 0 })
	OpLess            = comparison("<", func(c int) bool { return c < 0 })
	OpLessEqual       = comparison("<=", func(c int) bool { return c <= 0 })
	OpGreater         = comparison(">", func(c int) bool { return c > 0 })
	OpGreaterEqual    = comparison(">=", func(c int) bool { return c >= 0 })
)

// binaryOperators maps infix symbols as they appear in formulas. the
// integer division and modulus entries have no infix syntax and are used
// by QUOTIENT and MOD.
var binaryOperators = map[string]*Operator{
	"^":  OpExponent,
	"*":  OpMultiply,
	"/":  OpDivide,
	"+":  OpAdd,
	"-":  OpSubtract,
	"&":  OpConcat,
	"=":  OpEqual,
	"<>": OpNotEqual,
	"<":  OpLess,
	"<=": OpLessEqual,
	">":  OpGreater,
	">=": OpGreaterEqual,
}

// LookupOperator returns the binary operator for an infix symbol
func LookupOperator(symbol string) (*Operator, bool) {
	op, ok := binaryOperators[symbol]
	return op, ok
}

func comparison(symbol string, test func(int) bool) *Operator {
	return &Operator{
		Symbol:     symbol,
		Precedence: PrecedenceComparison,
		apply: func(left, right CompileResult) (CompileResult, error) {
			c, err := Compare(left, right)
			if err != nil {
				return Empty(), err
			}
			return NewBoolean(test(c)), nil
		},
	}
}

func applyAdd(left, right CompileResult) (CompileResult, error) {
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	if l.isInt && r.isInt {
		if (r.i > 0 && l.i > math.MaxInt64-r.i) || (r.i < 0 && l.i < math.MinInt64-r.i) {
			return NumberResult(l.f + r.f), nil
		}
		return NewInteger(l.i + r.i), nil
	}
	return NumberResult(l.f + r.f), nil
}

func applySubtract(left, right CompileResult) (CompileResult, error) {
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	if l.isInt && r.isInt {
		if (r.i < 0 && l.i > math.MaxInt64+r.i) || (r.i > 0 && l.i < math.MinInt64+r.i) {
			return NumberResult(l.f - r.f), nil
		}
		return NewInteger(l.i - r.i), nil
	}
	return NumberResult(l.f - r.f), nil
}

func applyMultiply(left, right CompileResult) (CompileResult, error) {
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	if l.isInt && r.isInt {
		p := l.i * r.i
		overflow := l.i != 0 && (p/l.i != r.i || (l.i == -1 && r.i == math.MinInt64))
		if !overflow {
			return NewInteger(p), nil
		}
	}
	return NumberResult(l.f * r.f), nil
}

func applyDivide(left, right CompileResult) (CompileResult, error) {
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	if math.Abs(r.f) < math.SmallestNonzeroFloat64 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	return NumberResult(l.f / r.f), nil
}

// applyExponent keeps a long-standing quirk: an operand that cannot be
// read as a number makes the result 0.0 rather than #VALUE!. only two
// empty operands are #VALUE!.
func applyExponent(left, right CompileResult) (CompileResult, error) {
	if left.IsEmpty() && right.IsEmpty() {
		return NewErrorResult(ErrorCodeValue), nil
	}
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewDecimal(0.0), nil
	}
	result := math.Pow(l.f, r.f)
	if l.isInt && r.isInt && r.i >= 0 {
		if result == math.Trunc(result) && math.Abs(result) < 1<<53 {
			return NewInteger(int64(result)), nil
		}
	}
	return NumberResult(result), nil
}

func applyPercent(left, _ CompileResult) (CompileResult, error) {
	return applyMultiply(left, NewDecimal(0.01))
}

func applyIntegerDivision(left, right CompileResult) (CompileResult, error) {
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	if math.Abs(r.f) < math.SmallestNonzeroFloat64 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	return integerOrDecimal(math.Trunc(l.f / r.f)), nil
}

// applyModulus follows the spreadsheet convention: the result takes the
// sign of the divisor
func applyModulus(left, right CompileResult) (CompileResult, error) {
	l, lok := toOperand(left)
	r, rok := toOperand(right)
	if !lok || !rok {
		return NewErrorResult(ErrorCodeValue), nil
	}
	if math.Abs(r.f) < math.SmallestNonzeroFloat64 {
		return NewErrorResult(ErrorCodeDiv0), nil
	}
	if l.isInt && r.isInt {
		m := l.i % r.i
		if m != 0 && (m < 0) != (r.i < 0) {
			m += r.i
		}
		return NewInteger(m), nil
	}
	return NumberResult(l.f - r.f*math.Floor(l.f/r.f)), nil
}

func applyConcat(left, right CompileResult) (CompileResult, error) {
	return NewString(left.Text() + right.Text()), nil
}
