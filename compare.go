package formula

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldCase returns the case-folded form of s. a Caser keeps state, so a
// fresh one is built per call.
func FoldCase(s string) string {
	return cases.Fold().String(s)
}

// CompareStrings compares two strings ordinally after Unicode case folding
func CompareStrings(a, b string) int {
	return strings.Compare(FoldCase(a), FoldCase(b))
}

// Compare orders two scalars for the comparison operators.
//
// numbers (including numeric text, excluding booleans) compare numerically
// and sort before everything else; text sorts before logical values;
// booleans order FALSE < TRUE; text compares case-insensitively. an empty
// operand takes the zero value of the other operand's type. any other
// combination is a programming error and returns ErrInvalidTypeCombination.
func Compare(left, right CompileResult) (int, error) {
	left, right = normalizeEmpty(left, right)
	if left.IsEmpty() && right.IsEmpty() {
		return 0, nil
	}
	if left.IsRange() || right.IsRange() || left.IsError() || right.IsError() {
		return 0, invalidCombination(left, right)
	}

	ln, lNum := isNumericLike(left)
	rn, rNum := isNumericLike(right)
	switch {
	case lNum && rNum:
		return compareFloats(ln, rn), nil
	case lNum:
		return -1, nil
	case rNum:
		return 1, nil
	}

	switch {
	case left.DataType == DataTypeBoolean && right.DataType == DataTypeBoolean:
		return compareBools(left.Value.(bool), right.Value.(bool)), nil
	case left.DataType == DataTypeString && right.DataType == DataTypeBoolean:
		return -1, nil
	case left.DataType == DataTypeBoolean && right.DataType == DataTypeString:
		return 1, nil
	case left.DataType == DataTypeString && right.DataType == DataTypeString:
		return CompareStrings(left.Value.(string), right.Value.(string)), nil
	}
	return 0, invalidCombination(left, right)
}

// normalizeEmpty replaces an empty operand with the zero value matching
// the other operand
func normalizeEmpty(left, right CompileResult) (CompileResult, CompileResult) {
	if left.IsEmpty() && !right.IsEmpty() {
		left = zeroLike(right)
	} else if right.IsEmpty() && !left.IsEmpty() {
		right = zeroLike(left)
	}
	return left, right
}

func zeroLike(v CompileResult) CompileResult {
	switch v.DataType {
	case DataTypeString:
		return NewString("")
	case DataTypeBoolean:
		return NewBoolean(false)
	case DataTypeInteger, DataTypeDecimal, DataTypeDate:
		return NewInteger(0)
	}
	return Empty()
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}
