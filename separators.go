package formula

// TokenSeparatorProvider is the fixed table of single characters that end
// a partial token and emit a token of their own
type TokenSeparatorProvider struct {
	tokens map[rune]TokenKind
}

var defaultSeparators = &TokenSeparatorProvider{
	tokens: map[rune]TokenKind{
		'+': TokenOperator,
		'-': TokenOperator,
		'*': TokenOperator,
		'/': TokenOperator,
		'^': TokenOperator,
		'&': TokenOperator,
		'=': TokenOperator,
		'<': TokenOperator,
		'>': TokenOperator,
		'%': TokenOperator,
		'(': TokenOpeningParenthesis,
		')': TokenClosingParenthesis,
		'{': TokenOpeningEnumerable,
		'}': TokenClosingEnumerable,
		',': TokenComma,
		';': TokenSemiColon,
		'"': TokenString,
	},
}

// Separators returns the shared separator table
func Separators() *TokenSeparatorProvider {
	return defaultSeparators
}

// Lookup returns the token a separator character emits
func (p *TokenSeparatorProvider) Lookup(ch rune) (Token, bool) {
	kind, ok := p.tokens[ch]
	if !ok {
		return Token{}, false
	}
	return Token{Value: string(ch), Kind: kind}, true
}

// IsSeparator reports whether ch ends the current partial token
func (p *TokenSeparatorProvider) IsSeparator(ch rune) bool {
	_, ok := p.tokens[ch]
	return ok
}

// IsOperatorCharacter reports whether ch is an operator separator
func (p *TokenSeparatorProvider) IsOperatorCharacter(ch rune) bool {
	kind, ok := p.tokens[ch]
	return ok && kind == TokenOperator
}
