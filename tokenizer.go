package formula

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// character classification constants. slightly easier to read.
const (
	charQuote      = '"'
	charApostrophe = '\''
	charHash       = '#'
	charLBracket   = '['
	charRBracket   = ']'
	charLParen     = '('
	charPlus       = '+'
	charMinus      = '-'
	charEqual      = '='
	charLess       = '<'
	charGreater    = '>'
	charPercent    = '%'
)

var (
	decimalPattern     = regexp.MustCompile(`^(\d+\.\d*|\.\d+)([eE][+-]?\d+)?$|^\d+[eE][+-]?\d+$`)
	integerPattern     = regexp.MustCompile(`^\d+$`)
	exponentPrefix     = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)[eE]$`)
	structuredPattern  = regexp.MustCompile(`^([A-Za-z_\\][A-Za-z0-9_.\\]*)?\[.*\]$`)
	externalRefPattern = regexp.MustCompile(`^'?\[[^\]]*\]`)
)

// errorLiterals are the error codes recognized while scanning from '#'
var errorLiterals = []string{"#DIV/0!", "#N/A", "#NAME?", "#NULL!", "#NUM!", "#REF!", "#VALUE!"}

// TokenizerContext answers the identifier questions the tokenizer cannot
// decide from the text alone
type TokenizerContext interface {
	IsNamedValue(name, worksheet string) bool
	IsFunctionName(name string) bool
}

// tokenizer holds the scan state for one formula
type tokenizer struct {
	runes        []rune
	worksheet    string
	context      TokenizerContext
	separators   *TokenSeparatorProvider
	tokens       []Token
	partial      []rune
	partialStart int
	inString     bool
	inSheetName  bool
	inError      bool
	bracketDepth int
}

// Tokenize converts a formula into classified tokens. a leading '=' is
// skipped. tokenizing never fails: text that cannot be classified becomes
// an Unrecognized token. context may be nil.
func Tokenize(formula string, worksheet string, context TokenizerContext) []Token {
	t := &tokenizer{
		runes:      []rune(formula), // runes for UTF-8 support
		worksheet:  worksheet,
		context:    context,
		separators: Separators(),
		tokens:     make([]Token, 0, len(formula)/2+1),
	}
	return t.run()
}

func (t *tokenizer) run() []Token {
	start := 0
	if len(t.runes) > 0 && t.runes[0] == charEqual {
		start = 1
	}

	for i := start; i < len(t.runes); i++ {
		ch := t.runes[i]

		// modes that bypass separator handling
		switch {
		case t.inString:
			if ch == charQuote {
				if i+1 < len(t.runes) && t.runes[i+1] == charQuote {
					// "" inside a string is an escaped quote
					t.appendPartial(ch, i)
					i++
					continue
				}
				t.emit(Token{Value: string(t.partial), Kind: TokenStringContent, Pos: t.partialStart})
				t.resetPartial()
				t.emit(Token{Value: string(ch), Kind: TokenString, Pos: i})
				t.inString = false
				continue
			}
			t.appendPartial(ch, i)
			continue

		case t.inSheetName:
			t.appendPartial(ch, i)
			if ch == charApostrophe {
				if i+1 < len(t.runes) && t.runes[i+1] == charApostrophe {
					t.appendPartial(t.runes[i+1], i+1)
					i++
					continue
				}
				t.inSheetName = false
			}
			continue

		case t.bracketDepth > 0:
			t.appendPartial(ch, i)
			switch ch {
			case charLBracket:
				t.bracketDepth++
			case charRBracket:
				t.bracketDepth--
			}
			continue

		case t.inError:
			if t.scanError(ch, i) {
				continue
			}
			t.inError = false
		}

		switch {
		case ch == charQuote:
			t.finalize()
			t.emit(Token{Value: string(ch), Kind: TokenString, Pos: i})
			t.inString = true
			t.partialStart = i + 1

		case ch == charApostrophe && len(t.partial) == 0:
			t.inSheetName = true
			t.appendPartial(ch, i)

		case ch == charLBracket:
			t.bracketDepth++
			t.appendPartial(ch, i)

		case ch == charHash && len(t.partial) == 0:
			t.inError = true
			t.appendPartial(ch, i)

		case unicode.IsSpace(ch):
			t.finalize()

		case (ch == charPlus || ch == charMinus) && exponentPrefix.MatchString(string(t.partial)):
			// sign of an exponent, as in 1E+5
			t.appendPartial(ch, i)

		case t.separators.IsSeparator(ch):
			t.finalize()
			t.emitSeparator(ch, i)

		default:
			t.appendPartial(ch, i)
		}
	}

	if t.inString {
		// unterminated string: keep the content, the graph builder reports it
		t.emit(Token{Value: string(t.partial), Kind: TokenStringContent, Pos: t.partialStart})
		t.resetPartial()
		return t.tokens
	}
	t.finalize()
	return t.tokens
}

func (t *tokenizer) appendPartial(ch rune, pos int) {
	if len(t.partial) == 0 {
		t.partialStart = pos
	}
	t.partial = append(t.partial, ch)
}

func (t *tokenizer) resetPartial() {
	t.partial = t.partial[:0]
}

func (t *tokenizer) last() *Token {
	if len(t.tokens) == 0 {
		return nil
	}
	return &t.tokens[len(t.tokens)-1]
}

func (t *tokenizer) emit(tok Token) {
	t.tokens = append(t.tokens, tok)
}

// scanError extends an error literal started by '#'. it returns false when
// ch cannot continue any known literal.
func (t *tokenizer) scanError(ch rune, pos int) bool {
	candidate := strings.ToUpper(string(t.partial) + string(ch))
	for _, literal := range errorLiterals {
		if !strings.HasPrefix(literal, candidate) {
			continue
		}
		t.appendPartial(ch, pos)
		if candidate != literal {
			return true
		}
		t.inError = false
		if literal == "#REF!" {
			// may still be part of a reference such as #REF!A1; decided on finalize
			return true
		}
		code, _ := ParseErrorCode(literal)
		t.emit(Token{Value: literal, Kind: errorTokenKinds[code], Pos: t.partialStart})
		t.resetPartial()
		return true
	}
	return false
}

// isUnaryPosition reports whether a sign at this point applies to the next
// operand rather than combining two operands
func (t *tokenizer) isUnaryPosition() bool {
	last := t.last()
	if last == nil {
		return true
	}
	switch last.Kind {
	case TokenOperator:
		return last.Value != string(charPercent)
	case TokenNegator, TokenOpeningParenthesis, TokenOpeningEnumerable, TokenComma, TokenSemiColon:
		return true
	}
	return false
}

func (t *tokenizer) emitSeparator(ch rune, pos int) {
	tok, _ := t.separators.Lookup(ch)
	tok.Pos = pos

	switch ch {
	case charMinus:
		if t.isUnaryPosition() {
			tok.Kind = TokenNegator
		}
	case charPlus:
		if t.isUnaryPosition() {
			// unary plus is a no-op
			return
		}
	case charLParen:
		t.reclassifyAsFunction()
	case charEqual, charGreater:
		// merge <=, >= and <> from their single character parts
		if last := t.last(); last != nil && last.Kind == TokenOperator && last.Pos == pos-1 {
			if last.Value == string(charLess) || (last.Value == string(charGreater) && ch == charEqual) {
				last.Value += string(ch)
				return
			}
		}
	}

	t.emit(tok)
}

// reclassifyAsFunction turns the identifier before an opening parenthesis
// into a function call, since only the parenthesis confirms the call
func (t *tokenizer) reclassifyAsFunction() {
	last := t.last()
	if last == nil {
		return
	}
	switch last.Kind {
	case TokenExcelAddress, TokenNameValue, TokenBoolean, TokenUnrecognized:
		last.Kind = TokenFunction
		last.Value = stripFunctionPrefix(last.Value)
	}
}

func (t *tokenizer) finalize() {
	t.inError = false
	if len(t.partial) == 0 {
		return
	}
	text := string(t.partial)
	t.resetPartial()

	kind, value := t.classify(text)
	tok := Token{Value: value, Kind: kind, Pos: t.partialStart}
	switch kind {
	case TokenDecimal, TokenInteger, TokenExcelAddress, TokenStructuredReference:
		if last := t.last(); last != nil && last.Kind == TokenNegator {
			tok.IsNegated = true
		}
	}
	t.emit(tok)
}

// classify assigns a kind to finalized token text, in priority order
func (t *tokenizer) classify(text string) (TokenKind, string) {
	switch {
	case decimalPattern.MatchString(text):
		return TokenDecimal, text
	case integerPattern.MatchString(text):
		return TokenInteger, text
	case strings.EqualFold(text, "TRUE") || strings.EqualFold(text, "FALSE"):
		return TokenBoolean, strings.ToUpper(text)
	case isStructuredReference(text):
		return TokenStructuredReference, text
	case t.context != nil && t.context.IsNamedValue(text, t.worksheet):
		return TokenNameValue, text
	case t.context != nil && t.context.IsFunctionName(stripFunctionPrefix(text)):
		return TokenFunction, stripFunctionPrefix(text)
	}

	if last := t.last(); last != nil && last.Kind == TokenOpeningEnumerable {
		return TokenEnumerable, text
	}

	if strings.EqualFold(text, "#REF!") {
		return TokenErrorRef, "#REF!"
	}
	if externalRefPattern.MatchString(text) || strings.Contains(strings.ToUpper(text), "#REF!") {
		return TokenInvalidReference, text
	}
	_, err := ParseRangeAddress(text, t.worksheet)
	if err == nil {
		return TokenExcelAddress, text
	}
	if isInvalidReference(text, err) {
		return TokenInvalidReference, text
	}
	return TokenUnrecognized, text
}

func isStructuredReference(text string) bool {
	return !externalRefPattern.MatchString(text) && structuredPattern.MatchString(text)
}

// isInvalidReference recognizes text shaped like a reference that cannot
// be resolved inside this workbook
func isInvalidReference(text string, parseErr error) bool {
	switch {
	case errors.Is(parseErr, ErrAddressOutOfBounds):
		return true
	case strings.Contains(text, "!"):
		return true
	}
	return false
}

func stripFunctionPrefix(name string) string {
	const prefix = "_xlfn."
	if len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
		return name[len(prefix):]
	}
	return name
}
