package formula

import (
	"regexp"
	"strings"
	"sync"
)

// ValueMatcher compares two scalars for lookup and criteria functions. the
// bool result is false when the pair is incomparable and should be
// skipped.
type ValueMatcher struct {
	wildcards bool
}

// NewValueMatcher returns a matcher with plain string comparison
func NewValueMatcher() *ValueMatcher {
	return &ValueMatcher{}
}

// NewWildcardValueMatcher returns a matcher whose search strings may hold
// the * ? and ~ wildcards
func NewWildcardValueMatcher() *ValueMatcher {
	return &ValueMatcher{wildcards: true}
}

// IsMatch compares searched against candidate using comparator sign
// conventions
func (m *ValueMatcher) IsMatch(searched, candidate CompileResult) (int, bool) {
	switch {
	case searched.IsEmpty() && candidate.IsEmpty():
		return 0, true
	case candidate.IsEmpty():
		return -1, true
	case searched.IsEmpty():
		return 1, true
	}
	if searched.IsRange() || candidate.IsRange() {
		return 0, false
	}
	if searched.IsError() || candidate.IsError() {
		if searched.IsError() && candidate.IsError() && searched.ErrorCode() == candidate.ErrorCode() {
			return 0, true
		}
		return 0, false
	}

	sText := searched.DataType == DataTypeString
	cText := candidate.DataType == DataTypeString
	switch {
	case sText && cText:
		return m.compareStrings(searched.Value.(string), candidate.Value.(string)), true
	case sText || cText:
		return compareMixed(searched, candidate)
	}

	a, aok := ToNumber(searched)
	b, bok := ToNumber(candidate)
	if !aok || !bok {
		return 0, false
	}
	return compareFloats(a, b), true
}

func (m *ValueMatcher) compareStrings(pattern, candidate string) int {
	if m.wildcards {
		return WildcardMatch(pattern, candidate)
	}
	return CompareStrings(pattern, candidate)
}

// compareMixed handles text against a non-text value: numeric parse
// first, then boolean, then date
func compareMixed(searched, candidate CompileResult) (int, bool) {
	text, other, sign := searched, candidate, 1
	if candidate.DataType == DataTypeString {
		text, other, sign = candidate, searched, -1
	}
	s := text.Value.(string)

	if f, ok := ParseNumber(s); ok {
		if n, ok := other.Number(); ok {
			return sign * compareFloats(f, n), true
		}
	}
	if b, ok := ParseBoolean(s); ok && other.DataType == DataTypeBoolean {
		return sign * compareBools(b, other.Value.(bool)), true
	}
	if serial, ok := ParseDate(s); ok {
		if n, ok := other.Number(); ok {
			return sign * compareFloats(serial, n), true
		}
	}
	return 0, false
}

var wildcardCache sync.Map // pattern -> *regexp.Regexp

// WildcardMatch compares a search pattern against a candidate. patterns
// holding * ? or ~ are matched as anchored, case-insensitive wildcards and
// yield 0 on a match; everything else falls back to ordinary string
// comparison.
func WildcardMatch(pattern, candidate string) int {
	if strings.ContainsAny(pattern, "*?~") {
		if re := wildcardRegexp(pattern); re != nil && re.MatchString(candidate) {
			return 0
		}
	}
	c := CompareStrings(pattern, candidate)
	if c == 0 && strings.ContainsAny(pattern, "*?~") {
		// identical text, but the wildcards did not match it literally
		return 1
	}
	return c
}

func wildcardRegexp(pattern string) *regexp.Regexp {
	if cached, ok := wildcardCache.Load(pattern); ok {
		return cached.(*regexp.Regexp)
	}
	expr := regexp.QuoteMeta(pattern)
	expr = strings.ReplaceAll(expr, `\*`, `.*`)
	expr = strings.ReplaceAll(expr, `\?`, `.`)
	expr = strings.ReplaceAll(expr, `~.*`, `\*`)
	expr = strings.ReplaceAll(expr, `~.`, `\?`)
	expr = strings.ReplaceAll(expr, `~~`, `~`)
	re, err := regexp.Compile(`(?is)^` + expr + `$`)
	if err != nil {
		return nil
	}
	wildcardCache.Store(pattern, re)
	return re
}
