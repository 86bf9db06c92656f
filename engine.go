package formula

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Options configures an Engine
type Options struct {
	Logger    zerolog.Logger
	MaxDepth  int
	CacheSize int
	Clock     Clock
	Random    RandomGenerator
	Functions []*FunctionDef
}

// Option is a functional option for New
type Option func(*Options)

// WithLogger sets the logger used for compile and evaluation diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMaxDepth bounds the number of nested cell and name evaluations
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		o.MaxDepth = depth
	}
}

// WithCacheSize sets the capacity of the compiled expression cache
func WithCacheSize(size int) Option {
	return func(o *Options) {
		o.CacheSize = size
	}
}

// WithClock sets the clock read by NOW and TODAY
func WithClock(clock Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithRandom sets the generator read by RAND
func WithRandom(random RandomGenerator) Option {
	return func(o *Options) {
		o.Random = random
	}
}

// WithFunction registers an additional function, replacing a built-in of
// the same name
func WithFunction(def *FunctionDef) Option {
	return func(o *Options) {
		o.Functions = append(o.Functions, def)
	}
}

// Engine compiles and evaluates formulas. it holds no per-evaluation state
// and is safe for concurrent use.
type Engine struct {
	functions *Registry
	cache     *expressionCache
	logger    zerolog.Logger
	maxDepth  int
	clock     Clock
	random    RandomGenerator
}

// New creates an engine with the built-in function catalog
func New(opts ...Option) *Engine {
	o := Options{
		Logger:    zerolog.Nop(),
		MaxDepth:  DefaultMaxDepth,
		CacheSize: DefaultCacheSize,
		Clock:     &WallClock{},
		Random:    &DefaultRandomGenerator{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	functions := NewRegistry()
	for _, def := range o.Functions {
		functions.Register(def)
	}

	return &Engine{
		functions: functions,
		cache:     newExpressionCache(o.CacheSize),
		logger:    o.Logger,
		maxDepth:  o.MaxDepth,
		clock:     o.Clock,
		random:    o.Random,
	}
}

// Functions returns the engine's function registry
func (e *Engine) Functions() *Registry {
	return e.functions
}

// Logger returns the engine's logger
func (e *Engine) Logger() zerolog.Logger {
	return e.logger
}

// compileContext answers tokenizer questions at compile time. names are
// not classified here: compiled expressions are shared between providers,
// so identifiers are resolved when evaluated.
type compileContext struct {
	functions *Registry
}

func (c compileContext) IsNamedValue(name, worksheet string) bool {
	return false
}

func (c compileContext) IsFunctionName(name string) bool {
	return c.functions.IsFunctionName(name)
}

// providerContext classifies names against a data provider
type providerContext struct {
	compileContext
	provider DataProvider
}

func (c providerContext) IsNamedValue(name, worksheet string) bool {
	return c.provider.IsNamedValue(name, worksheet)
}

// Tokenize splits a formula into tokens, classifying defined names of p
// when p is not nil
func (e *Engine) Tokenize(formula, worksheet string, p DataProvider) []Token {
	var ctx TokenizerContext = compileContext{functions: e.functions}
	if p != nil {
		ctx = providerContext{compileContext: compileContext{functions: e.functions}, provider: p}
	}
	return Tokenize(formula, worksheet, ctx)
}

// Compile builds the expression tree of a formula. compilation never
// fails: a formula that cannot be parsed compiles to an expression that
// evaluates to #VALUE!, and Err reports the syntax error.
func (e *Engine) Compile(formula, worksheet string) *CompiledExpression {
	key := cacheKey(worksheet, formula)
	if expr, ok := e.cache.get(key); ok {
		return expr
	}

	tokens := Tokenize(formula, worksheet, compileContext{functions: e.functions})
	parser := NewParser(tokens, &ParserContext{Worksheet: worksheet, Functions: e.functions})
	parser.formula = formula

	expr := &CompiledExpression{
		engine:    e,
		formula:   formula,
		worksheet: worksheet,
	}
	root, err := parser.Parse()
	if err != nil {
		e.logger.Debug().
			Str("formula", formula).
			Str("worksheet", worksheet).
			Err(err).
			Msg("formula does not parse")
		expr.err = err
		expr.root = &ErrorNode{Code: ErrorCodeValue, Message: err.Error()}
	} else {
		expr.root = root
		expr.volatile = parser.IsVolatile()
	}

	e.cache.set(key, expr)
	return expr
}

// Calculate compiles formula and evaluates it at origin
func (e *Engine) Calculate(p DataProvider, formula string, origin CellAddress) (CompileResult, error) {
	return e.Compile(formula, origin.Worksheet).Evaluate(p, origin)
}

// EvaluateCell computes the value of a cell. a cell with formula text is
// evaluated, others return their stored value.
func (e *Engine) EvaluateCell(p DataProvider, addr CellAddress) (CompileResult, error) {
	if p == nil {
		return Empty(), ErrNilProvider
	}
	ctx := e.newEvalContext(p, addr)
	return ctx.cellValue(addr.Worksheet, addr.Row, addr.Column)
}

func (e *Engine) newEvalContext(p DataProvider, origin CellAddress) *evalContext {
	return &evalContext{
		engine:   e,
		provider: p,
		origin:   origin,
		scope:    NewScope(e.maxDepth),
	}
}

// CompiledExpression is the expression tree of one formula. it can be
// evaluated any number of times against changing data.
type CompiledExpression struct {
	engine    *Engine
	formula   string
	worksheet string
	root      ASTNode
	volatile  bool
	err       error
}

// Evaluate runs the expression with origin as the calling cell. a range
// result is reduced to a single value. the error return carries
// structural failures only; spreadsheet errors are results.
func (c *CompiledExpression) Evaluate(p DataProvider, origin CellAddress) (CompileResult, error) {
	if p == nil {
		return Empty(), ErrNilProvider
	}
	ctx := c.engine.newEvalContext(p, origin)
	result, err := c.root.Eval(ctx)
	if err != nil {
		return Empty(), err
	}
	return ctx.scalar(result)
}

// Err returns the syntax error found while compiling, or nil
func (c *CompiledExpression) Err() error {
	return c.err
}

// IsVolatile reports whether the formula calls NOW, TODAY, RAND or another
// volatile function
func (c *CompiledExpression) IsVolatile() bool {
	return c.volatile
}

// Formula returns the source text
func (c *CompiledExpression) Formula() string {
	return c.formula
}

// Root returns the expression tree
func (c *CompiledExpression) Root() ASTNode {
	return c.root
}

// References lists the cells and ranges the formula reads directly, in
// the order they appear. names and structured references are not
// included.
func (c *CompiledExpression) References() []RangeAddress {
	var refs []RangeAddress
	Walk(c.root, func(node ASTNode) {
		switch n := node.(type) {
		case *CellRefNode:
			a := n.Address
			refs = append(refs, RangeAddress{Worksheet: a.Worksheet, FromRow: a.Row, FromColumn: a.Column, ToRow: a.Row, ToColumn: a.Column})
		case *RangeNode:
			refs = append(refs, n.Address)
		}
	})
	return refs
}

// Names lists the identifiers the formula resolves as defined names
func (c *CompiledExpression) Names() []string {
	var names []string
	Walk(c.root, func(node ASTNode) {
		if n, ok := node.(*NamedRangeNode); ok {
			names = append(names, n.Name)
		}
	})
	return names
}

func (c *CompiledExpression) String() string {
	return "=" + c.root.ToString()
}

// evalContext carries one top-level evaluation: the provider, the cell
// whose formula is running and the scope shared by all nested cells
type evalContext struct {
	engine   *Engine
	provider DataProvider
	origin   CellAddress
	scope    *Scope
}

func (c *evalContext) withOrigin(origin CellAddress) *evalContext {
	return &evalContext{
		engine:   c.engine,
		provider: c.provider,
		origin:   origin,
		scope:    c.scope,
	}
}

func (c *evalContext) functionContext() *Context {
	return &Context{
		Origin: c.origin,
		Clock:  c.engine.clock,
		Random: c.engine.random,
		Logger: c.engine.logger,
		eval:   c,
	}
}

// evalScalar evaluates node and reduces a range result to one value
func (c *evalContext) evalScalar(node ASTNode) (CompileResult, error) {
	v, err := node.Eval(c)
	if err != nil {
		return Empty(), err
	}
	return c.scalar(v)
}

// scalar reduces a range to one value: the single cell of a one-cell
// range, the first element of an array, or the cell sharing the origin's
// row or column. anything else is #VALUE!.
func (c *evalContext) scalar(v CompileResult) (CompileResult, error) {
	r := v.Range()
	if r == nil {
		return v, nil
	}
	if r.Rows() == 1 && r.Columns() == 1 {
		return r.Value(0, 0)
	}
	cells, isCells := r.(*cellRange)
	if !isCells {
		return r.Value(0, 0)
	}
	a := cells.address
	switch {
	case a.Columns() == 1 && c.origin.Row >= a.FromRow && c.origin.Row <= a.ToRow:
		return r.Value(c.origin.Row-a.FromRow, 0)
	case a.Rows() == 1 && c.origin.Column >= a.FromColumn && c.origin.Column <= a.ToColumn:
		return r.Value(0, c.origin.Column-a.FromColumn)
	}
	return NewErrorResult(ErrorCodeValue), nil
}

// cellValue returns the value of a cell, evaluating its formula when the
// provider reports one
func (c *evalContext) cellValue(sheet string, row, col int) (CompileResult, error) {
	if v, ok := c.scope.result(cellKey(sheet, row, col)); ok {
		return v, nil
	}
	formula, ok := c.provider.GetCellFormula(sheet, row, col)
	if !ok {
		return c.provider.GetCellValue(sheet, row, col), nil
	}
	return c.formulaCell(CellAddress{Worksheet: sheet, Row: row, Column: col}, formula)
}

// formulaCell evaluates the formula of a cell. the cell stays on the scope
// stack while its formula runs, so reaching it again is a circular
// reference.
func (c *evalContext) formulaCell(addr CellAddress, formula string) (CompileResult, error) {
	key := cellKey(addr.Worksheet, addr.Row, addr.Column)
	if v, ok := c.scope.result(key); ok {
		return v, nil
	}
	if err := c.scope.push(key, addr.String()); err != nil {
		c.logStructural(err, addr.String())
		return Empty(), err
	}
	defer c.scope.pop(key)

	expr := c.engine.Compile(strings.TrimPrefix(formula, "="), addr.Worksheet)
	inner := c.withOrigin(addr)
	result, err := expr.root.Eval(inner)
	if err != nil {
		return Empty(), err
	}
	result, err = inner.scalar(result)
	if err != nil {
		return Empty(), err
	}

	c.scope.markCompleted(key, result)
	if recorder, ok := c.provider.(ResultRecorder); ok {
		recorder.RecordResult(addr.Worksheet, addr.Row, addr.Column, result)
	}
	return result, nil
}

// namedValue evaluates what a defined name refers to. a name that refers
// to itself, directly or through cells, is a circular reference.
func (c *evalContext) namedValue(name string) (CompileResult, error) {
	refersTo, ok := c.provider.ResolveNamedValue(name, c.origin.Worksheet)
	if !ok {
		return NewErrorResultf(ErrorCodeName, "unknown name "+name), nil
	}

	key := nameKey(name)
	if err := c.scope.push(key, name); err != nil {
		c.logStructural(err, name)
		return Empty(), err
	}
	defer c.scope.pop(key)

	expr := c.engine.Compile(strings.TrimPrefix(refersTo, "="), c.origin.Worksheet)
	return expr.root.Eval(c)
}

func (c *evalContext) logStructural(err error, address string) {
	event := c.engine.logger.Debug()
	if errors.Is(err, ErrMaxDepth) {
		event = c.engine.logger.Warn()
	}
	event.Str("address", address).Int("depth", c.scope.Depth()).Err(err).Msg("evaluation stopped")
}
