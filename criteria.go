package formula

import "strings"

// criteria is the condition argument of COUNTIF, SUMIF and AVERAGEIF:
// a value, or text such as ">=10", "<>done" or "A*"
type criteria struct {
	op      string
	operand CompileResult
	matcher *ValueMatcher
}

var criteriaOperators = []string{"<=", ">=", "<>", "<", ">", "="}

// parseCriteria builds a criteria from the condition value
func parseCriteria(v CompileResult) *criteria {
	c := &criteria{op: "=", operand: v, matcher: NewWildcardValueMatcher()}
	if v.DataType != DataTypeString {
		return c
	}
	text := v.Value.(string)
	for _, op := range criteriaOperators {
		if strings.HasPrefix(text, op) {
			c.op = op
			text = text[len(op):]
			break
		}
	}
	c.operand = typedOperand(text)
	return c
}

// typedOperand reads criteria text the way a cell entry is read
func typedOperand(text string) CompileResult {
	if text == "" {
		return Empty()
	}
	if f, ok := ParseNumber(text); ok {
		return NewDecimal(f)
	}
	if b, ok := ParseBoolean(text); ok {
		return NewBoolean(b)
	}
	if code, ok := ParseErrorCode(text); ok {
		return NewErrorResult(code)
	}
	return NewString(text)
}

func (c *Context) criteria(a *FunctionArgument) (*criteria, error) {
	v, err := c.Scalar(a)
	if err != nil {
		return nil, err
	}
	return parseCriteria(v), nil
}

// matches tests one candidate value
func (c *criteria) matches(candidate CompileResult) bool {
	switch c.op {
	case "=":
		return c.equals(candidate)
	case "<>":
		return !c.equals(candidate)
	}

	// relational comparisons only hold between values of the same kind
	if c.operand.IsEmpty() || candidate.IsEmpty() || kindOf(c.operand) != kindOf(candidate) {
		return false
	}
	cmp, ok := NewValueMatcher().IsMatch(candidate, c.operand)
	if !ok {
		return false
	}
	switch c.op {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func (c *criteria) equals(candidate CompileResult) bool {
	if c.operand.IsEmpty() {
		return candidate.IsEmpty() || (candidate.DataType == DataTypeString && candidate.Value.(string) == "")
	}
	if candidate.IsEmpty() {
		return false
	}
	if c.operand.DataType == DataTypeString && candidate.DataType != DataTypeString {
		return false
	}
	cmp, ok := c.matcher.IsMatch(c.operand, candidate)
	return ok && cmp == 0
}

type valueKind int

const (
	kindOther valueKind = iota
	kindNumber
	kindText
	kindLogical
	kindError
)

func kindOf(v CompileResult) valueKind {
	switch {
	case v.DataType.IsNumeric():
		return kindNumber
	case v.DataType == DataTypeString:
		return kindText
	case v.DataType == DataTypeBoolean:
		return kindLogical
	case v.IsError():
		return kindError
	}
	return kindOther
}
