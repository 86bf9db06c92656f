package formula

import "fmt"

// TokenKind classifies a lexical unit of a formula
type TokenKind int

const (
	TokenUnrecognized TokenKind = iota
	TokenDecimal
	TokenInteger
	TokenBoolean
	TokenString        // the quote delimiting a string literal
	TokenStringContent // the text between two String tokens
	TokenOperator
	TokenNegator
	TokenOpeningParenthesis
	TokenClosingParenthesis
	TokenOpeningEnumerable
	TokenClosingEnumerable
	TokenComma
	TokenSemiColon
	TokenExcelAddress
	TokenStructuredReference
	TokenNameValue
	TokenFunction
	TokenEnumerable
	TokenInvalidReference

	// error literals

	TokenErrorDiv0
	TokenErrorNA
	TokenErrorName
	TokenErrorNull
	TokenErrorNum
	TokenErrorRef
	TokenErrorValue
)

var tokenKindNames = [...]string{
	TokenUnrecognized:        "Unrecognized",
	TokenDecimal:             "Decimal",
	TokenInteger:             "Integer",
	TokenBoolean:             "Boolean",
	TokenString:              "String",
	TokenStringContent:       "StringContent",
	TokenOperator:            "Operator",
	TokenNegator:             "Negator",
	TokenOpeningParenthesis:  "OpeningParenthesis",
	TokenClosingParenthesis:  "ClosingParenthesis",
	TokenOpeningEnumerable:   "OpeningEnumerable",
	TokenClosingEnumerable:   "ClosingEnumerable",
	TokenComma:               "Comma",
	TokenSemiColon:           "SemiColon",
	TokenExcelAddress:        "ExcelAddress",
	TokenStructuredReference: "StructuredReference",
	TokenNameValue:           "NameValue",
	TokenFunction:            "Function",
	TokenEnumerable:          "Enumerable",
	TokenInvalidReference:    "InvalidReference",
	TokenErrorDiv0:           "#DIV/0!",
	TokenErrorNA:             "#N/A",
	TokenErrorName:           "#NAME?",
	TokenErrorNull:           "#NULL!",
	TokenErrorNum:            "#NUM!",
	TokenErrorRef:            "#REF!",
	TokenErrorValue:          "#VALUE!",
}

func (k TokenKind) String() string {
	if int(k) >= 0 && int(k) < len(tokenKindNames) {
		return tokenKindNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// IsError reports whether the kind is one of the error literal kinds
func (k TokenKind) IsError() bool {
	return k >= TokenErrorDiv0 && k <= TokenErrorValue
}

// errorTokenKinds maps error codes to their literal token kinds
var errorTokenKinds = map[ErrorCode]TokenKind{
	ErrorCodeDiv0:  TokenErrorDiv0,
	ErrorCodeNA:    TokenErrorNA,
	ErrorCodeName:  TokenErrorName,
	ErrorCodeNull:  TokenErrorNull,
	ErrorCodeNum:   TokenErrorNum,
	ErrorCodeRef:   TokenErrorRef,
	ErrorCodeValue: TokenErrorValue,
}

// ErrorCode returns the code carried by an error literal kind
func (k TokenKind) ErrorCode() (ErrorCode, bool) {
	for code, kind := range errorTokenKinds {
		if kind == k {
			return code, true
		}
	}
	return 0, false
}

// Token represents a classified lexical token with position information
type Token struct {
	Value     string
	Kind      TokenKind
	IsNegated bool // set on numbers, addresses and structured references preceded by a Negator
	Pos       int  // rune position in input
}

func (t Token) String() string {
	if t.IsNegated {
		return fmt.Sprintf("%s(-%s)", t.Kind, t.Value)
	}
	return fmt.Sprintf("%s(%s)", t.Kind, t.Value)
}
