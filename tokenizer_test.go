package formula

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type tokenSpec struct {
	kind    TokenKind
	value   string
	negated bool
}

func kinds(tokens []Token) []tokenSpec {
	specs := make([]tokenSpec, len(tokens))
	for i, tok := range tokens {
		specs[i] = tokenSpec{kind: tok.Kind, value: tok.Value, negated: tok.IsNegated}
	}
	return specs
}

func TestTokenizeClassification(t *testing.T) {
	functions := compileContext{functions: NewRegistry()}

	testCases := []struct {
		name     string
		formula  string
		expected []tokenSpec
	}{
		{
			name:    "binary minus",
			formula: "3-2",
			expected: []tokenSpec{
				{TokenInteger, "3", false},
				{TokenOperator, "-", false},
				{TokenInteger, "2", false},
			},
		},
		{
			name:    "leading negation",
			formula: "-2",
			expected: []tokenSpec{
				{TokenNegator, "-", false},
				{TokenInteger, "2", true},
			},
		},
		{
			name:    "negation after parenthesis",
			formula: "(-2)",
			expected: []tokenSpec{
				{TokenOpeningParenthesis, "(", false},
				{TokenNegator, "-", false},
				{TokenInteger, "2", true},
				{TokenClosingParenthesis, ")", false},
			},
		},
		{
			name:    "negation after operator",
			formula: "=1*-A1",
			expected: []tokenSpec{
				{TokenInteger, "1", false},
				{TokenOperator, "*", false},
				{TokenNegator, "-", false},
				{TokenExcelAddress, "A1", true},
			},
		},
		{
			name:    "unary plus is dropped",
			formula: "=+5",
			expected: []tokenSpec{
				{TokenInteger, "5", false},
			},
		},
		{
			name:    "string literal",
			formula: `="a ""b"" c"`,
			expected: []tokenSpec{
				{TokenString, `"`, false},
				{TokenStringContent, `a "b" c`, false},
				{TokenString, `"`, false},
			},
		},
		{
			name:    "empty string",
			formula: `=""`,
			expected: []tokenSpec{
				{TokenString, `"`, false},
				{TokenStringContent, "", false},
				{TokenString, `"`, false},
			},
		},
		{
			name:    "decimal and exponent",
			formula: "=1.5+2E+3",
			expected: []tokenSpec{
				{TokenDecimal, "1.5", false},
				{TokenOperator, "+", false},
				{TokenDecimal, "2E+3", false},
			},
		},
		{
			name:    "merged comparison operators",
			formula: "=1<=2<>3>=4",
			expected: []tokenSpec{
				{TokenInteger, "1", false},
				{TokenOperator, "<=", false},
				{TokenInteger, "2", false},
				{TokenOperator, "<>", false},
				{TokenInteger, "3", false},
				{TokenOperator, ">=", false},
				{TokenInteger, "4", false},
			},
		},
		{
			name:    "function with range",
			formula: "=sum(A1:B2, 3)",
			expected: []tokenSpec{
				{TokenFunction, "sum", false},
				{TokenOpeningParenthesis, "(", false},
				{TokenExcelAddress, "A1:B2", false},
				{TokenComma, ",", false},
				{TokenInteger, "3", false},
				{TokenClosingParenthesis, ")", false},
			},
		},
		{
			name:    "future function prefix",
			formula: "=_xlfn.IFS(TRUE,1)",
			expected: []tokenSpec{
				{TokenFunction, "IFS", false},
				{TokenOpeningParenthesis, "(", false},
				{TokenBoolean, "TRUE", false},
				{TokenComma, ",", false},
				{TokenInteger, "1", false},
				{TokenClosingParenthesis, ")", false},
			},
		},
		{
			name:    "error literals",
			formula: "=#DIV/0!+#n/a",
			expected: []tokenSpec{
				{TokenErrorDiv0, "#DIV/0!", false},
				{TokenOperator, "+", false},
				{TokenErrorNA, "#N/A", false},
			},
		},
		{
			name:    "quoted sheet reference",
			formula: "='My Sheet'!A1&\"x\"",
			expected: []tokenSpec{
				{TokenExcelAddress, "'My Sheet'!A1", false},
				{TokenOperator, "&", false},
				{TokenString, `"`, false},
				{TokenStringContent, "x", false},
				{TokenString, `"`, false},
			},
		},
		{
			name:    "structured reference",
			formula: "=SUM(Sales[Amount])",
			expected: []tokenSpec{
				{TokenFunction, "SUM", false},
				{TokenOpeningParenthesis, "(", false},
				{TokenStructuredReference, "Sales[Amount]", false},
				{TokenClosingParenthesis, ")", false},
			},
		},
		{
			name:    "reference into another workbook",
			formula: "=[1]Sheet1!A1",
			expected: []tokenSpec{
				{TokenInvalidReference, "[1]Sheet1!A1", false},
			},
		},
		{
			name:    "deleted sheet reference",
			formula: "=#REF!A1+1",
			expected: []tokenSpec{
				{TokenInvalidReference, "#REF!A1", false},
				{TokenOperator, "+", false},
				{TokenInteger, "1", false},
			},
		},
		{
			name:    "deleted cell reference",
			formula: "=Sheet1!#REF!",
			expected: []tokenSpec{
				{TokenInvalidReference, "Sheet1!#REF!", false},
			},
		},
		{
			name:    "array literal",
			formula: "={1,2;3,4}",
			expected: []tokenSpec{
				{TokenOpeningEnumerable, "{", false},
				{TokenInteger, "1", false},
				{TokenComma, ",", false},
				{TokenInteger, "2", false},
				{TokenSemiColon, ";", false},
				{TokenInteger, "3", false},
				{TokenComma, ",", false},
				{TokenInteger, "4", false},
				{TokenClosingEnumerable, "}", false},
			},
		},
		{
			name:    "bare array element",
			formula: "={x,1}",
			expected: []tokenSpec{
				{TokenOpeningEnumerable, "{", false},
				{TokenEnumerable, "x", false},
				{TokenComma, ",", false},
				{TokenInteger, "1", false},
				{TokenClosingEnumerable, "}", false},
			},
		},
		{
			name:    "percent",
			formula: "=50%",
			expected: []tokenSpec{
				{TokenInteger, "50", false},
				{TokenOperator, "%", false},
			},
		},
		{
			name:    "unknown identifier",
			formula: "=foo+1",
			expected: []tokenSpec{
				{TokenUnrecognized, "foo", false},
				{TokenOperator, "+", false},
				{TokenInteger, "1", false},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, kinds(Tokenize(tc.formula, "Sheet1", functions)))
		})
	}
}

func TestTokenizeNamedValues(t *testing.T) {
	e := New()
	p := newTestProvider().name("Rate", "0.2")

	tokens := e.Tokenize("=Rate*Total", "Sheet1", p)
	require.Equal(t, []tokenSpec{
		{TokenNameValue, "Rate", false},
		{TokenOperator, "*", false},
		{TokenUnrecognized, "Total", false},
	}, kinds(tokens))

	// without a provider names are left for evaluation
	tokens = e.Tokenize("=Rate", "Sheet1", nil)
	require.Equal(t, TokenUnrecognized, tokens[0].Kind)
}

func TestTokenizeNeverFails(t *testing.T) {
	inputs := []string{
		"",
		"=",
		`="unterminated`,
		"=SUM(",
		"=)))",
		"='unterminated sheet",
		"=#BOGUS",
		"=A1:",
		"=[[[",
		"=€$%",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			require.NotPanics(t, func() {
				Tokenize(input, "Sheet1", nil)
			})
		})
	}
}

func TestTokenPositions(t *testing.T) {
	tokens := Tokenize(`=SUM("é", B2)`, "Sheet1", nil)
	require.Equal(t, 1, tokens[0].Pos)
	require.Equal(t, 4, tokens[1].Pos)
	require.Equal(t, 6, tokens[3].Pos)
	require.Equal(t, "B2", tokens[6].Value)
	require.Equal(t, 10, tokens[6].Pos)
}

func TestSeparatorProvider(t *testing.T) {
	p := Separators()
	for _, ch := range "+-*/^&=<>%" {
		require.True(t, p.IsOperatorCharacter(ch), string(ch))
	}
	tok, ok := p.Lookup('{')
	require.True(t, ok)
	require.Equal(t, TokenOpeningEnumerable, tok.Kind)
	require.False(t, p.IsSeparator(':'))
	require.False(t, p.IsSeparator('!'))
}
