package grid

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vogtb/go-spreadsheet/packages/formula"
)

var namePattern = regexp.MustCompile(`^[A-Za-z_\\][A-Za-z0-9_.\\]*$`)

// Option configures a Workbook
type Option func(*Workbook)

// WithEngine sets the engine formulas are evaluated with
func WithEngine(engine *formula.Engine) Option {
	return func(w *Workbook) {
		w.engine = engine
	}
}

// WithLogger sets the logger used for recalculation diagnostics
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Workbook) {
		w.logger = logger
	}
}

type definedName struct {
	name     string
	refersTo string
}

type table struct {
	name  string
	block RangeID
}

// Workbook is an in-memory workbook: worksheets of constants and formulas,
// defined names and tables, and a dependency graph that keeps formula
// results current. it serves as the data provider its own formulas are
// evaluated against. a Workbook is not safe for concurrent use.
type Workbook struct {
	engine  *formula.Engine
	logger  zerolog.Logger
	sheets  *worksheetTable
	strings *stringTable
	graph   *DependencyGraph
	names   map[string]definedName
	tables  map[string]*table
}

var (
	_ formula.DataProvider      = (*Workbook)(nil)
	_ formula.DimensionProvider = (*Workbook)(nil)
	_ formula.TableResolver     = (*Workbook)(nil)
	_ formula.ResultRecorder    = (*Workbook)(nil)
)

// New creates an empty workbook
func New(opts ...Option) *Workbook {
	w := &Workbook{
		logger:  zerolog.Nop(),
		sheets:  newWorksheetTable(),
		strings: newStringTable(),
		graph:   NewDependencyGraph(),
		names:   make(map[string]definedName),
		tables:  make(map[string]*table),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.engine == nil {
		w.engine = formula.New(formula.WithLogger(w.logger))
	}
	return w
}

// Engine returns the engine formulas are evaluated with
func (w *Workbook) Engine() *formula.Engine {
	return w.engine
}

// resolveAddress parses a cell address. an address without a worksheet
// refers to the first worksheet.
func (w *Workbook) resolveAddress(address string) (*Worksheet, formula.CellAddress, error) {
	defaultSheet := ""
	if sheets := w.sheets.list(); len(sheets) > 0 {
		defaultSheet = sheets[0].name
	}
	addr, err := formula.ParseCellAddress(address, defaultSheet)
	if err != nil {
		return nil, formula.CellAddress{}, wrapApplicationError(InvalidArgument, "invalid address", err)
	}
	if addr.Worksheet == "" {
		return nil, formula.CellAddress{}, NewApplicationError(FailedPrecondition, "workbook has no worksheets")
	}
	ws, exists := w.sheets.byName(addr.Worksheet)
	if !exists {
		return nil, formula.CellAddress{}, NewApplicationError(NotFound, fmt.Sprintf("worksheet %q not found", addr.Worksheet))
	}
	addr.Worksheet = ws.name
	return ws, addr, nil
}

// toResult converts a Go value to a cell value
func toResult(value any) (formula.CompileResult, error) {
	switch v := value.(type) {
	case formula.CompileResult:
		return v, nil
	case int:
		return formula.NewInteger(int64(v)), nil
	case int64:
		return formula.NewInteger(v), nil
	case float64:
		return formula.NumberResult(v), nil
	case bool:
		return formula.NewBoolean(v), nil
	case string:
		return formula.NewString(v), nil
	case time.Time:
		return formula.NewDate(formula.TimeToSerial(v)), nil
	}
	return formula.Empty(), NewApplicationError(InvalidArgument, fmt.Sprintf("unsupported cell value type %T", value))
}

// Get returns the value of a cell as of the last Calculate
func (w *Workbook) Get(address string) (formula.CompileResult, error) {
	ws, addr, err := w.resolveAddress(address)
	if err != nil {
		return formula.Empty(), err
	}
	return ws.value(addr.Row, addr.Column), nil
}

// Formula returns the formula of a cell with its leading '=', or "" for a
// cell holding a constant
func (w *Workbook) Formula(address string) (string, error) {
	ws, addr, err := w.resolveAddress(address)
	if err != nil {
		return "", err
	}
	if text, ok := ws.formula(addr.Row, addr.Column); ok {
		return "=" + text, nil
	}
	return "", nil
}

// Set stores a value or, for a string starting with '=', a formula. nil
// clears the cell. dependent formulas are marked for recalculation.
func (w *Workbook) Set(address string, value any) error {
	if value == nil {
		return w.Remove(address)
	}
	ws, addr, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	id := CellID{Sheet: ws.id, Row: addr.Row, Column: addr.Column}

	if text, ok := value.(string); ok && len(text) > 1 && text[0] == '=' {
		ws.setFormula(addr.Row, addr.Column, text[1:])
		w.graph.SetFormula(id, true)
		w.extractDependencies(id, ws.name, text[1:])
		w.graph.MarkDirty(id)
		w.markAffected(id)
		return nil
	}

	v, err := toResult(value)
	if err != nil {
		return err
	}
	ws.setValue(addr.Row, addr.Column, v)
	w.graph.ClearDependencies(id)
	w.graph.ClearDirty(id)
	w.graph.SetFormula(id, false)
	w.markAffected(id)
	if w.isTableHeader(id) {
		w.invalidate()
	}
	return nil
}

// Remove clears a cell
func (w *Workbook) Remove(address string) error {
	ws, addr, err := w.resolveAddress(address)
	if err != nil {
		return err
	}
	id := CellID{Sheet: ws.id, Row: addr.Row, Column: addr.Column}

	if !ws.remove(addr.Row, addr.Column) {
		return nil
	}
	w.graph.ClearDependencies(id)
	w.graph.ClearDirty(id)
	w.graph.SetFormula(id, false)
	w.markAffected(id)
	if w.isTableHeader(id) {
		w.invalidate()
	}
	return nil
}

// isTableHeader reports whether a cell is a column header of a table.
// structured references resolve through headers, so editing one redirects
// them.
func (w *Workbook) isTableHeader(id CellID) bool {
	for _, t := range w.tables {
		b := t.block
		if id.Sheet == b.Sheet && id.Row == b.FromRow && id.Column >= b.FromColumn && id.Column <= b.ToColumn {
			return true
		}
	}
	return false
}

func (w *Workbook) markAffected(id CellID) {
	for _, affected := range w.graph.GetAffectedCells(id) {
		w.graph.MarkDirty(affected)
	}
}

// AddWorksheet adds a new worksheet
func (w *Workbook) AddWorksheet(name string) error {
	if err := validateSheetName(name); err != nil {
		return err
	}
	if _, created := w.sheets.define(name, w.strings); !created {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("worksheet %q already exists", name))
	}
	w.invalidate()
	return nil
}

// RemoveWorksheet removes a worksheet and its cells. formulas reading it
// evaluate to #REF! from then on.
func (w *Workbook) RemoveWorksheet(name string) error {
	ws, exists := w.sheets.undefine(name)
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %q not found", name))
	}
	for _, cell := range ws.cells(0, 0, formula.MaxRows-1, formula.MaxColumns-1) {
		ws.remove(cell.Row, cell.Column)
	}
	for key, t := range w.tables {
		if t.block.Sheet == ws.id {
			delete(w.tables, key)
		}
	}
	w.invalidate()
	return nil
}

// RenameWorksheet renames a worksheet. formula text is kept as written, so
// references through the old name stop resolving.
func (w *Workbook) RenameWorksheet(oldName, newName string) error {
	ws, exists := w.sheets.byName(oldName)
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %q not found", oldName))
	}
	if err := validateSheetName(newName); err != nil {
		return err
	}
	if other, taken := w.sheets.byName(newName); taken && other != ws {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("worksheet %q already exists", newName))
	}
	w.sheets.rename(ws, newName)
	w.invalidate()
	return nil
}

// DoesWorksheetExist checks if a worksheet exists
func (w *Workbook) DoesWorksheetExist(name string) bool {
	_, exists := w.sheets.byName(name)
	return exists
}

// ListWorksheets returns the worksheet names in creation order
func (w *Workbook) ListWorksheets() []string {
	sheets := w.sheets.list()
	result := make([]string, 0, len(sheets))
	for _, ws := range sheets {
		result = append(result, ws.name)
	}
	return result
}

// ListReferencedWorksheets returns worksheet names formulas refer to that
// do not exist
func (w *Workbook) ListReferencedWorksheets() []string {
	w.sheets.prune(w.graph.Sheets())
	return w.sheets.undefinedNames()
}

// FormulaCells returns every cell holding a formula, by worksheet in
// creation order, then row and column
func (w *Workbook) FormulaCells() []formula.CellAddress {
	var result []formula.CellAddress
	for _, ws := range w.sheets.list() {
		for _, cell := range ws.formulaCells() {
			result = append(result, formula.CellAddress{Worksheet: ws.name, Row: cell.Row, Column: cell.Column})
		}
	}
	return result
}

// Worksheet returns a worksheet by name for diagnostic purposes
func (w *Workbook) Worksheet(name string) (*Worksheet, bool) {
	return w.sheets.byName(name)
}

func validateSheetName(name string) error {
	if name == "" || len([]rune(name)) > 31 || strings.ContainsAny(name, `[]:*?/\`) ||
		strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("invalid worksheet name %q", name))
	}
	return nil
}

func (w *Workbook) validateName(name string) error {
	if !namePattern.MatchString(name) || strings.EqualFold(name, "TRUE") || strings.EqualFold(name, "FALSE") {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("invalid name %q", name))
	}
	if _, err := formula.ParseRangeAddress(name, "Sheet1"); err == nil {
		return NewApplicationError(InvalidArgument, fmt.Sprintf("name %q looks like a cell reference", name))
	}
	return nil
}

// DefineName defines or redefines a workbook-scoped name. refersTo is
// formula text such as "Sheet1!$A$1:$A$10" or "0.2", with or without a
// leading '='.
func (w *Workbook) DefineName(name, refersTo string) error {
	if err := w.validateName(name); err != nil {
		return err
	}
	refersTo = strings.TrimPrefix(refersTo, "=")
	if err := w.engine.Compile(refersTo, "").Err(); err != nil {
		return wrapApplicationError(InvalidArgument, fmt.Sprintf("name %q", name), err)
	}
	w.names[strings.ToUpper(name)] = definedName{name: name, refersTo: refersTo}
	w.invalidate()
	return nil
}

// RemoveName removes a defined name. formulas using it evaluate to #NAME?.
func (w *Workbook) RemoveName(name string) error {
	key := strings.ToUpper(name)
	if _, exists := w.names[key]; !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("name %q not found", name))
	}
	delete(w.names, key)
	w.invalidate()
	return nil
}

// DoesNameExist checks if a name is defined
func (w *Workbook) DoesNameExist(name string) bool {
	_, exists := w.names[strings.ToUpper(name)]
	return exists
}

// ListNames returns the defined names in sorted order
func (w *Workbook) ListNames() []string {
	result := make([]string, 0, len(w.names))
	for _, n := range w.names {
		result = append(result, n.name)
	}
	slices.Sort(result)
	return result
}

// AddTable defines a table over a block whose first row holds the column
// headers, such as AddTable("Sales", "Sheet1!A1:C20")
func (w *Workbook) AddTable(name, ref string) error {
	if err := w.validateName(name); err != nil {
		return err
	}
	key := strings.ToUpper(name)
	if _, exists := w.tables[key]; exists {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("table %q already exists", name))
	}
	if _, exists := w.names[key]; exists {
		return NewApplicationError(AlreadyExists, fmt.Sprintf("%q is already a defined name", name))
	}

	defaultSheet := ""
	if sheets := w.sheets.list(); len(sheets) > 0 {
		defaultSheet = sheets[0].name
	}
	block, err := formula.ParseRangeAddress(ref, defaultSheet)
	if err != nil {
		return wrapApplicationError(InvalidArgument, "invalid table range", err)
	}
	ws, exists := w.sheets.byName(block.Worksheet)
	if !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("worksheet %q not found", block.Worksheet))
	}
	w.tables[key] = &table{
		name: name,
		block: RangeID{
			Sheet:      ws.id,
			FromRow:    block.FromRow,
			FromColumn: block.FromColumn,
			ToRow:      block.ToRow,
			ToColumn:   block.ToColumn,
		},
	}
	w.invalidate()
	return nil
}

// RemoveTable removes a table definition, leaving its cells in place
func (w *Workbook) RemoveTable(name string) error {
	key := strings.ToUpper(name)
	if _, exists := w.tables[key]; !exists {
		return NewApplicationError(NotFound, fmt.Sprintf("table %q not found", name))
	}
	delete(w.tables, key)
	w.invalidate()
	return nil
}

// invalidate rebuilds the dependency graph from the stored formulas and
// marks every formula for recalculation. used after structural changes
// that can redirect references: worksheets, names and tables.
func (w *Workbook) invalidate() {
	w.graph.Clear()
	for _, ws := range w.sheets.list() {
		for _, cell := range ws.formulaCells() {
			id := CellID{Sheet: ws.id, Row: cell.Row, Column: cell.Column}
			w.graph.SetFormula(id, true)
			w.extractDependencies(id, ws.name, cell.Formula)
			w.graph.MarkDirty(id)
		}
	}
	w.sheets.prune(w.graph.Sheets())
}

// extractDependencies records the cells, blocks, names and tables the
// formula of a cell reads
func (w *Workbook) extractDependencies(id CellID, sheet, text string) {
	w.graph.ClearDependencies(id)
	w.graph.SetFormula(id, true)
	w.addReferences(id, sheet, w.engine.Compile(text, sheet), make(map[string]struct{}))
}

func (w *Workbook) addReferences(id CellID, sheet string, expr *formula.CompiledExpression, seenNames map[string]struct{}) {
	if expr.IsVolatile() {
		w.graph.MarkVolatile(id)
	}

	for _, ref := range expr.References() {
		w.addRange(id, ref)
	}

	for _, name := range expr.Names() {
		key := strings.ToUpper(name)
		if _, seen := seenNames[key]; seen {
			continue
		}
		seenNames[key] = struct{}{}
		if def, exists := w.names[key]; exists {
			w.addReferences(id, sheet, w.engine.Compile(def.refersTo, sheet), seenNames)
		}
	}

	origin := formula.CellAddress{Worksheet: sheet, Row: id.Row, Column: id.Column}
	formula.Walk(expr.Root(), func(node formula.ASTNode) {
		if ref, ok := node.(*formula.StructuredRefNode); ok {
			if block, ok := w.ResolveStructuredReference(ref.Reference, origin); ok {
				w.addRange(id, block)
			}
		}
	})
}

func (w *Workbook) addRange(id CellID, ref formula.RangeAddress) {
	sheet := w.sheets.intern(ref.Worksheet)
	if ref.IsSingleCell() {
		w.graph.AddCellDependency(id, CellID{Sheet: sheet, Row: ref.FromRow, Column: ref.FromColumn})
		return
	}
	w.graph.AddRangeDependency(id, RangeID{
		Sheet:      sheet,
		FromRow:    ref.FromRow,
		FromColumn: ref.FromColumn,
		ToRow:      ref.ToRow,
		ToColumn:   ref.ToColumn,
	})
}

// Calculate recomputes every formula marked for recalculation, and every
// volatile formula, in dependency order. a cell whose evaluation fails
// structurally stores #REF! for a circular reference or #NUM! for too deep
// a chain; the failures are returned joined.
func (w *Workbook) Calculate() error {
	for _, id := range w.graph.VolatileCells() {
		w.graph.MarkDirty(id)
		w.markAffected(id)
	}

	dirty := w.graph.DirtyCells()
	order, hasCycle := w.graph.CalculationOrder(dirty)

	var errs []error
	for _, id := range order {
		if !w.graph.IsDirty(id) {
			// computed while evaluating an earlier cell
			continue
		}
		ws, exists := w.sheets.byID(id.Sheet)
		if !exists {
			w.graph.ClearDirty(id)
			continue
		}

		addr := formula.CellAddress{Worksheet: ws.name, Row: id.Row, Column: id.Column}
		if _, err := w.engine.EvaluateCell(w, addr); err != nil {
			w.storeFailure(addr, err)
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		}
		w.graph.ClearDirty(id)
	}

	event := w.logger.Debug()
	if len(errs) > 0 {
		event = w.logger.Warn()
	}
	event.Int("dirty", len(dirty)).
		Int("failed", len(errs)).
		Bool("cycle", hasCycle).
		Msg("recalculated")

	return errors.Join(errs...)
}

// storeFailure writes the display error of a structural failure into the
// failing cell and, for a circular reference, every cell on the cycle
func (w *Workbook) storeFailure(addr formula.CellAddress, err error) {
	code := formula.ErrorCodeValue
	switch {
	case errors.Is(err, formula.ErrCircularReference):
		code = formula.ErrorCodeRef
	case errors.Is(err, formula.ErrMaxDepth):
		code = formula.ErrorCodeNum
	}
	result := formula.NewErrorResultf(code, err.Error())

	cells := []formula.CellAddress{addr}
	var circular *formula.CircularReferenceError
	if errors.As(err, &circular) {
		for _, entry := range append(circular.Chain, circular.Address) {
			if cell, parseErr := formula.ParseCellAddress(entry, addr.Worksheet); parseErr == nil {
				cells = append(cells, cell)
			}
		}
	}

	for _, cell := range cells {
		ws, exists := w.sheets.byName(cell.Worksheet)
		if !exists {
			continue
		}
		ws.setResult(cell.Row, cell.Column, result)
		w.graph.ClearDirty(CellID{Sheet: ws.id, Row: cell.Row, Column: cell.Column})
	}
}
