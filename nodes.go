package formula

import (
	"fmt"
	"strings"
)

type NodePosition struct {
	Start int
	End   int
}

// ASTNode is one node of a compiled expression tree. references hold
// address descriptors only and read the data provider when evaluated.
type ASTNode interface {
	Eval(ctx *evalContext) (CompileResult, error)
	GetPosition() NodePosition
	ToString() string
}

// NumberNode represents a numeric literal
type NumberNode struct {
	Value    CompileResult
	Position NodePosition
}

func (n *NumberNode) Eval(ctx *evalContext) (CompileResult, error) {
	return n.Value, nil
}

func (n *NumberNode) GetPosition() NodePosition {
	return n.Position
}

func (n *NumberNode) ToString() string {
	return n.Value.Text()
}

// StringNode represents a string literal
type StringNode struct {
	Value    string
	Position NodePosition
}

func (n *StringNode) Eval(ctx *evalContext) (CompileResult, error) {
	return NewString(n.Value), nil
}

func (n *StringNode) GetPosition() NodePosition {
	return n.Position
}

func (n *StringNode) ToString() string {
	// escape quotes in string
	return `"` + strings.ReplaceAll(n.Value, `"`, `""`) + `"`
}

// BooleanNode represents a TRUE or FALSE literal
type BooleanNode struct {
	Value    bool
	Position NodePosition
}

func (n *BooleanNode) Eval(ctx *evalContext) (CompileResult, error) {
	return NewBoolean(n.Value), nil
}

func (n *BooleanNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BooleanNode) ToString() string {
	if n.Value {
		return "TRUE"
	}
	return "FALSE"
}

// ErrorNode is an error literal, or a piece of a formula that is known to
// fail, such as a reference into another workbook
type ErrorNode struct {
	Code     ErrorCode
	Message  string
	Text     string
	Position NodePosition
}

func (n *ErrorNode) Eval(ctx *evalContext) (CompileResult, error) {
	if n.Message != "" {
		return NewErrorResultf(n.Code, n.Message), nil
	}
	return NewErrorResult(n.Code), nil
}

func (n *ErrorNode) GetPosition() NodePosition {
	return n.Position
}

func (n *ErrorNode) ToString() string {
	if n.Text != "" {
		return n.Text
	}
	return n.Code.String()
}

// CellRefNode references a single cell. it evaluates to a one-cell range
// so that functions can tell references from literals.
type CellRefNode struct {
	Address  CellAddress
	Text     string
	Position NodePosition
}

func (n *CellRefNode) Eval(ctx *evalContext) (CompileResult, error) {
	a := n.Address
	r := RangeAddress{Worksheet: a.Worksheet, FromRow: a.Row, FromColumn: a.Column, ToRow: a.Row, ToColumn: a.Column}
	return NewRangeResult(&cellRange{address: r, ctx: ctx}), nil
}

func (n *CellRefNode) GetPosition() NodePosition {
	return n.Position
}

func (n *CellRefNode) ToString() string {
	return n.Text
}

// RangeNode references a block of cells, a full column or a full row
type RangeNode struct {
	Address  RangeAddress
	Text     string
	Position NodePosition
}

func (n *RangeNode) Eval(ctx *evalContext) (CompileResult, error) {
	return NewRangeResult(newCellRange(n.Address, ctx)), nil
}

func (n *RangeNode) GetPosition() NodePosition {
	return n.Position
}

func (n *RangeNode) ToString() string {
	return n.Text
}

// NamedRangeNode is an identifier resolved against the defined names of
// the data provider when evaluated. unknown names evaluate to #NAME?.
type NamedRangeNode struct {
	Name     string
	Position NodePosition
}

func (n *NamedRangeNode) Eval(ctx *evalContext) (CompileResult, error) {
	return ctx.namedValue(n.Name)
}

func (n *NamedRangeNode) GetPosition() NodePosition {
	return n.Position
}

func (n *NamedRangeNode) ToString() string {
	return n.Name
}

// StructuredRefNode is a table reference such as Sales[Amount]
type StructuredRefNode struct {
	Reference string
	Position  NodePosition
}

func (n *StructuredRefNode) Eval(ctx *evalContext) (CompileResult, error) {
	resolver, ok := ctx.provider.(TableResolver)
	if !ok {
		return NewErrorResult(ErrorCodeRef), nil
	}
	addr, ok := resolver.ResolveStructuredReference(n.Reference, ctx.origin)
	if !ok {
		return NewErrorResult(ErrorCodeRef), nil
	}
	return NewRangeResult(newCellRange(addr, ctx)), nil
}

func (n *StructuredRefNode) GetPosition() NodePosition {
	return n.Position
}

func (n *StructuredRefNode) ToString() string {
	return n.Reference
}

// BinaryOpNode applies an entry of the operator table to two operands
type BinaryOpNode struct {
	Op       *Operator
	Left     ASTNode
	Right    ASTNode
	Position NodePosition
}

func (n *BinaryOpNode) Eval(ctx *evalContext) (CompileResult, error) {
	left, err := ctx.evalScalar(n.Left)
	if err != nil {
		return Empty(), err
	}
	right, err := ctx.evalScalar(n.Right)
	if err != nil {
		return Empty(), err
	}
	return n.Op.Apply(left, right)
}

func (n *BinaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *BinaryOpNode) ToString() string {
	return fmt.Sprintf("(%s%s%s)", n.Left.ToString(), n.Op.Symbol, n.Right.ToString())
}

// UnaryOpNode negates its operand
type UnaryOpNode struct {
	Operand  ASTNode
	Position NodePosition
}

func (n *UnaryOpNode) Eval(ctx *evalContext) (CompileResult, error) {
	v, err := ctx.evalScalar(n.Operand)
	if err != nil {
		return Empty(), err
	}
	return OpSubtract.Apply(NewInteger(0), v)
}

func (n *UnaryOpNode) GetPosition() NodePosition {
	return n.Position
}

func (n *UnaryOpNode) ToString() string {
	return "-" + n.Operand.ToString()
}

// PercentNode is the postfix percent operator
type PercentNode struct {
	Operand  ASTNode
	Position NodePosition
}

func (n *PercentNode) Eval(ctx *evalContext) (CompileResult, error) {
	v, err := ctx.evalScalar(n.Operand)
	if err != nil {
		return Empty(), err
	}
	return OpPercent.Apply(v, Empty())
}

func (n *PercentNode) GetPosition() NodePosition {
	return n.Position
}

func (n *PercentNode) ToString() string {
	return n.Operand.ToString() + "%"
}

// FunctionCallNode represents a function call. Def is nil when the name is
// not registered, which evaluates to #NAME?.
type FunctionCallNode struct {
	Name     string
	Def      *FunctionDef
	Args     []ASTNode
	Position NodePosition
}

func (n *FunctionCallNode) Eval(ctx *evalContext) (CompileResult, error) {
	if n.Def == nil {
		return NewErrorResultf(ErrorCodeName, fmt.Sprintf("unknown function %s", n.Name)), nil
	}
	args := make([]*FunctionArgument, len(n.Args))
	for i, node := range n.Args {
		args[i] = &FunctionArgument{node: node, ctx: ctx}
	}
	return n.Def.Call(args, ctx.functionContext())
}

func (n *FunctionCallNode) GetPosition() NodePosition {
	return n.Position
}

func (n *FunctionCallNode) ToString() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.ToString()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ","))
}

// EmptyArgNode is an omitted function argument, as in IF(A1,,1)
type EmptyArgNode struct {
	Position NodePosition
}

func (n *EmptyArgNode) Eval(ctx *evalContext) (CompileResult, error) {
	return Empty(), nil
}

func (n *EmptyArgNode) GetPosition() NodePosition {
	return n.Position
}

func (n *EmptyArgNode) ToString() string {
	return ""
}

// ArrayNode is an array literal such as {1,2;3,4}
type ArrayNode struct {
	Rows     [][]ASTNode
	Position NodePosition
}

func (n *ArrayNode) Eval(ctx *evalContext) (CompileResult, error) {
	values := make([][]CompileResult, len(n.Rows))
	for i, row := range n.Rows {
		values[i] = make([]CompileResult, len(row))
		for j, node := range row {
			v, err := ctx.evalScalar(node)
			if err != nil {
				return Empty(), err
			}
			values[i][j] = v
		}
	}
	return NewRangeResult(NewArrayRange(values)), nil
}

func (n *ArrayNode) GetPosition() NodePosition {
	return n.Position
}

func (n *ArrayNode) ToString() string {
	rows := make([]string, len(n.Rows))
	for i, row := range n.Rows {
		cells := make([]string, len(row))
		for j, node := range row {
			cells[j] = node.ToString()
		}
		rows[i] = strings.Join(cells, ",")
	}
	return "{" + strings.Join(rows, ";") + "}"
}

// Walk visits node and its descendants depth first
func Walk(node ASTNode, visit func(ASTNode)) {
	if node == nil {
		return
	}
	visit(node)
	switch n := node.(type) {
	case *BinaryOpNode:
		Walk(n.Left, visit)
		Walk(n.Right, visit)
	case *UnaryOpNode:
		Walk(n.Operand, visit)
	case *PercentNode:
		Walk(n.Operand, visit)
	case *FunctionCallNode:
		for _, arg := range n.Args {
			Walk(arg, visit)
		}
	case *ArrayNode:
		for _, row := range n.Rows {
			for _, cell := range row {
				Walk(cell, visit)
			}
		}
	}
}
