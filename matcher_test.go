package formula

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWildcardMatch(t *testing.T) {
	testCases := []struct {
		pattern   string
		candidate string
		match     bool
	}{
		{"a?c?", "abcd", true},
		{"a?c?", "abc", false},
		{"A*", "apple", true},
		{"*ple", "APPLE", true},
		{"*", "", true},
		{"~*", "*", true},
		{"~*", "a", false},
		{"~?", "?", true},
		{"~?", "x", false},
		{"a~~b", "a~b", true},
		{"a.b", "a.b", true},
		{"a.b", "axb", false},
		{"(x)*", "(x)yz", true},
		{"line*", "line one\nline two", true},
		{"héllo", "HÉLLO", true},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern+" "+tc.candidate, func(t *testing.T) {
			result := WildcardMatch(tc.pattern, tc.candidate)
			if tc.match {
				require.Equal(t, 0, result)
			} else {
				require.NotEqual(t, 0, result)
			}
		})
	}
}

func TestWildcardMatchOrdering(t *testing.T) {
	// patterns without wildcards order like plain text
	require.Less(t, WildcardMatch("apple", "banana"), 0)
	require.Greater(t, WildcardMatch("cherry", "banana"), 0)
}

func TestValueMatcher(t *testing.T) {
	plain := NewValueMatcher()
	wild := NewWildcardValueMatcher()

	testCases := []struct {
		name       string
		matcher    *ValueMatcher
		searched   CompileResult
		candidate  CompileResult
		expected   int
		comparable bool
	}{
		{"both empty", plain, Empty(), Empty(), 0, true},
		{"empty candidate", plain, NewInteger(1), Empty(), -1, true},
		{"empty searched", plain, Empty(), NewInteger(1), 1, true},
		{"numbers equal", plain, NewInteger(3), NewDecimal(3), 0, true},
		{"numbers ordered", plain, NewInteger(2), NewInteger(3), -1, true},
		{"date against number", plain, NewDate(45000), NewInteger(45000), 0, true},
		{"boolean against number", plain, NewBoolean(true), NewInteger(1), 0, true},
		{"strings fold case", plain, NewString("Abc"), NewString("aBC"), 0, true},
		{"plain matcher ignores wildcards", plain, NewString("a*"), NewString("abc"), -1, true},
		{"wildcard matcher", wild, NewString("a*"), NewString("abc"), 0, true},
		{"numeric text against number", plain, NewString("10"), NewInteger(10), 0, true},
		{"number against numeric text", plain, NewInteger(5), NewString("10"), -1, true},
		{"boolean text against boolean", plain, NewString("TRUE"), NewBoolean(true), 0, true},
		{"date text against date", plain, NewString("2023-03-15"), NewDate(45000), 0, true},
		{"text against number", plain, NewString("abc"), NewInteger(1), 0, false},
		{"same errors", plain, NewErrorResult(ErrorCodeNA), NewErrorResult(ErrorCodeNA), 0, true},
		{"different errors", plain, NewErrorResult(ErrorCodeNA), NewErrorResult(ErrorCodeDiv0), 0, false},
		{"error against number", plain, NewErrorResult(ErrorCodeNA), NewInteger(1), 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, ok := tc.matcher.IsMatch(tc.searched, tc.candidate)
			require.Equal(t, tc.comparable, ok)
			if ok {
				require.Equal(t, tc.expected, result)
			}
		})
	}
}
