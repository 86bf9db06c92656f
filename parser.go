package formula

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_\\][A-Za-z0-9_.\\]*$`)

// ParserContext provides context for parsing relative references and
// function calls
type ParserContext struct {
	Worksheet string
	Functions *Registry
}

// Parser builds an expression tree from a token sequence
type Parser struct {
	tokens   []Token
	pos      int
	context  *ParserContext
	formula  string
	volatile bool
}

// NewParser creates a new parser with the given tokens and context
func NewParser(tokens []Token, context *ParserContext) *Parser {
	if context == nil {
		context = &ParserContext{}
	}
	return &Parser{
		tokens:  tokens,
		context: context,
	}
}

// Parse parses the tokens into an AST. malformed input is reported as a
// *SyntaxError.
func (p *Parser) Parse() (ASTNode, error) {
	if len(p.tokens) == 0 {
		return nil, p.errorf(0, "empty formula")
	}

	node, err := p.parseExpression(math.MaxInt)
	if err != nil {
		return nil, err
	}

	// ensure we've consumed all tokens
	if p.pos < len(p.tokens) {
		tok := p.tokens[p.pos]
		return nil, p.errorf(tok.Pos, "unexpected token %q", tok.Value)
	}
	return node, nil
}

// IsVolatile reports whether the parsed formula calls a volatile function
func (p *Parser) IsVolatile() bool {
	return p.volatile
}

func (p *Parser) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Formula: p.formula, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) peek() *Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	last := p.tokens[len(p.tokens)-1]
	return last.Pos + len(last.Value)
}

// parseExpression climbs the operator table: it consumes binary operators
// binding tighter than maxPrecedence. the right operand is parsed with the
// operator's own precedence as the bound, so equal precedence associates
// to the left.
func (p *Parser) parseExpression(maxPrecedence int) (ASTNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.peek()
		if tok == nil || tok.Kind != TokenOperator {
			return left, nil
		}
		op, ok := LookupOperator(tok.Value)
		if !ok {
			return nil, p.errorf(tok.Pos, "unexpected operator %q", tok.Value)
		}
		if op.Precedence >= maxPrecedence {
			return left, nil
		}
		p.pos++

		right, err := p.parseExpression(op.Precedence)
		if err != nil {
			return nil, err
		}
		left = &BinaryOpNode{
			Op:       op,
			Left:     left,
			Right:    right,
			Position: NodePosition{Start: left.GetPosition().Start, End: right.GetPosition().End},
		}
	}
}

// parseUnary handles negation, which binds tighter than every binary
// operator
func (p *Parser) parseUnary() (ASTNode, error) {
	tok := p.peek()
	if tok != nil && tok.Kind == TokenNegator {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOpNode{
			Operand:  operand,
			Position: NodePosition{Start: tok.Pos, End: operand.GetPosition().End},
		}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles the percent operator
func (p *Parser) parsePostfix() (ASTNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok == nil || tok.Kind != TokenOperator || tok.Value != OpPercent.Symbol {
			return node, nil
		}
		p.pos++
		node = &PercentNode{
			Operand:  node,
			Position: NodePosition{Start: node.GetPosition().Start, End: tok.Pos + 1},
		}
	}
}

// parsePrimary handles primary expressions (literals, references,
// functions, parentheses)
func (p *Parser) parsePrimary() (ASTNode, error) {
	tok := p.peek()
	if tok == nil {
		return nil, p.errorf(p.endPos(), "unexpected end of formula")
	}
	position := NodePosition{Start: tok.Pos, End: tok.Pos + len(tok.Value)}

	if code, ok := tok.Kind.ErrorCode(); ok {
		p.pos++
		return &ErrorNode{Code: code, Position: position}, nil
	}

	switch tok.Kind {
	case TokenInteger:
		p.pos++
		return parseNumberLiteral(tok.Value, position), nil

	case TokenDecimal:
		p.pos++
		return parseNumberLiteral(tok.Value, position), nil

	case TokenBoolean:
		p.pos++
		return &BooleanNode{Value: strings.EqualFold(tok.Value, "TRUE"), Position: position}, nil

	case TokenString:
		return p.parseString()

	case TokenExcelAddress:
		p.pos++
		return p.parseReference(tok, position), nil

	case TokenInvalidReference:
		p.pos++
		return &ErrorNode{Code: ErrorCodeRef, Text: tok.Value, Position: position}, nil

	case TokenStructuredReference:
		p.pos++
		return &StructuredRefNode{Reference: tok.Value, Position: position}, nil

	case TokenNameValue:
		p.pos++
		return &NamedRangeNode{Name: tok.Value, Position: position}, nil

	case TokenFunction:
		if next := p.peekAt(1); next != nil && next.Kind == TokenOpeningParenthesis {
			return p.parseFunctionCall()
		}
		// a function name used without a call is looked up as a name
		p.pos++
		return &NamedRangeNode{Name: tok.Value, Position: position}, nil

	case TokenEnumerable:
		p.pos++
		return constantNode(tok.Value, position), nil

	case TokenUnrecognized:
		p.pos++
		if strings.HasPrefix(tok.Value, ":") || strings.HasSuffix(tok.Value, ":") {
			return nil, p.errorf(tok.Pos, "incomplete range %q", tok.Value)
		}
		if identifierPattern.MatchString(tok.Value) {
			return &NamedRangeNode{Name: tok.Value, Position: position}, nil
		}
		return &ErrorNode{Code: ErrorCodeName, Text: tok.Value, Position: position}, nil

	case TokenOpeningParenthesis:
		p.pos++
		node, err := p.parseExpression(math.MaxInt)
		if err != nil {
			return nil, err
		}
		if next := p.peek(); next == nil || next.Kind != TokenClosingParenthesis {
			return nil, p.errorf(p.endPos(), "expected closing parenthesis")
		}
		p.pos++
		return node, nil

	case TokenOpeningEnumerable:
		return p.parseArray()
	}

	return nil, p.errorf(tok.Pos, "unexpected token %q", tok.Value)
}

func (p *Parser) peekAt(offset int) *Token {
	if p.pos+offset >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+offset]
}

// parseString consumes the String, StringContent, String sequence
func (p *Parser) parseString() (ASTNode, error) {
	open := p.tokens[p.pos]
	p.pos++
	content := p.peek()
	if content == nil || content.Kind != TokenStringContent {
		return nil, p.errorf(open.Pos, "malformed string literal")
	}
	p.pos++
	closing := p.peek()
	if closing == nil || closing.Kind != TokenString {
		return nil, p.errorf(open.Pos, "unterminated string literal")
	}
	p.pos++
	return &StringNode{
		Value:    content.Value,
		Position: NodePosition{Start: open.Pos, End: closing.Pos + 1},
	}, nil
}

func (p *Parser) parseReference(tok *Token, position NodePosition) ASTNode {
	addr, err := ParseRangeAddress(tok.Value, p.context.Worksheet)
	if err != nil {
		return &ErrorNode{Code: ErrorCodeRef, Text: tok.Value, Position: position}
	}
	if addr.IsSingleCell() && !strings.Contains(tok.Value, ":") {
		return &CellRefNode{Address: addr.TopLeft(), Text: tok.Value, Position: position}
	}
	return &RangeNode{Address: addr, Text: tok.Value, Position: position}
}

// parseFunctionCall parses a function call. arguments are split on commas
// or semicolons; an omitted argument becomes an EmptyArgNode.
func (p *Parser) parseFunctionCall() (ASTNode, error) {
	funcTok := p.tokens[p.pos]
	name := strings.ToUpper(funcTok.Value)
	p.pos += 2 // name and '('

	var def *FunctionDef
	if p.context.Functions != nil {
		def, _ = p.context.Functions.Lookup(name)
	}
	if def != nil && def.Volatile {
		p.volatile = true
	}

	args := []ASTNode{}
	if next := p.peek(); next != nil && next.Kind == TokenClosingParenthesis {
		p.pos++
		return &FunctionCallNode{
			Name:     name,
			Def:      def,
			Args:     args,
			Position: NodePosition{Start: funcTok.Pos, End: next.Pos + 1},
		}, nil
	}

	for {
		next := p.peek()
		if next == nil {
			return nil, p.errorf(p.endPos(), "unexpected end in arguments of %s", name)
		}

		if isArgumentSeparator(next.Kind) || next.Kind == TokenClosingParenthesis {
			args = append(args, &EmptyArgNode{Position: NodePosition{Start: next.Pos, End: next.Pos}})
		} else {
			arg, err := p.parseExpression(math.MaxInt)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}

		next = p.peek()
		if next == nil {
			return nil, p.errorf(p.endPos(), "unexpected end in arguments of %s", name)
		}
		if next.Kind == TokenClosingParenthesis {
			p.pos++
			return &FunctionCallNode{
				Name:     name,
				Def:      def,
				Args:     args,
				Position: NodePosition{Start: funcTok.Pos, End: next.Pos + 1},
			}, nil
		}
		if !isArgumentSeparator(next.Kind) {
			return nil, p.errorf(next.Pos, "expected ',' or ')' in arguments of %s", name)
		}
		p.pos++
	}
}

// parseArray parses {a,b;c,d}. commas separate columns and semicolons
// separate rows.
func (p *Parser) parseArray() (ASTNode, error) {
	open := p.tokens[p.pos]
	p.pos++

	rows := [][]ASTNode{{}}
	for {
		next := p.peek()
		if next == nil {
			return nil, p.errorf(open.Pos, "unterminated array literal")
		}
		if next.Kind == TokenClosingEnumerable && len(rows) == 1 && len(rows[0]) == 0 {
			return nil, p.errorf(next.Pos, "empty array literal")
		}

		element, err := p.parseExpression(math.MaxInt)
		if err != nil {
			return nil, err
		}
		rows[len(rows)-1] = append(rows[len(rows)-1], element)

		next = p.peek()
		if next == nil {
			return nil, p.errorf(open.Pos, "unterminated array literal")
		}
		switch next.Kind {
		case TokenComma:
			p.pos++
		case TokenSemiColon:
			p.pos++
			rows = append(rows, []ASTNode{})
		case TokenClosingEnumerable:
			p.pos++
			return &ArrayNode{Rows: rows, Position: NodePosition{Start: open.Pos, End: next.Pos + 1}}, nil
		default:
			return nil, p.errorf(next.Pos, "unexpected token %q in array literal", next.Value)
		}
	}
}

func isArgumentSeparator(kind TokenKind) bool {
	return kind == TokenComma || kind == TokenSemiColon
}

// parseNumberLiteral builds an Integer node, or a Decimal one when the
// text has a fraction or exponent or does not fit in an int64
func parseNumberLiteral(text string, position NodePosition) *NumberNode {
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return &NumberNode{Value: NewInteger(i), Position: position}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return &NumberNode{Value: NewErrorResult(ErrorCodeNum), Position: position}
	}
	return &NumberNode{Value: NumberResult(f), Position: position}
}

// constantNode types a bare array element
func constantNode(text string, position NodePosition) ASTNode {
	if f, ok := ParseNumber(text); ok {
		return &NumberNode{Value: NumberResult(f), Position: position}
	}
	if b, ok := ParseBoolean(text); ok {
		return &BooleanNode{Value: b, Position: position}
	}
	return &StringNode{Value: text, Position: position}
}
