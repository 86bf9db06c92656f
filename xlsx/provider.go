// Package xlsx evaluates formulas against workbooks stored in the Office
// Open XML format.
package xlsx

import (
	"iter"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/xuri/excelize/v2"
)

// Option configures a Provider
type Option func(*Provider)

// WithLogger sets the logger for read failures and recalculation
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

type resultKey struct {
	sheet string
	row   int
	col   int
}

// Provider serves cells, formulas and defined names of an excelize
// workbook to the formula engine. computed formula results are kept in
// memory; the workbook itself is never modified.
type Provider struct {
	file    *excelize.File
	logger  zerolog.Logger
	results map[resultKey]formula.CompileResult
	dims    map[string][2]int
}

var (
	_ formula.DataProvider      = (*Provider)(nil)
	_ formula.DimensionProvider = (*Provider)(nil)
	_ formula.ResultRecorder    = (*Provider)(nil)
)

// NewProvider wraps an open workbook
func NewProvider(f *excelize.File, opts ...Option) *Provider {
	p := &Provider{
		file:    f,
		logger:  zerolog.Nop(),
		results: make(map[resultKey]formula.CompileResult),
		dims:    make(map[string][2]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open opens a workbook file
func Open(path string, opts ...Option) (*Provider, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	return NewProvider(f, opts...), nil
}

// Close closes the underlying workbook
func (p *Provider) Close() error {
	return p.file.Close()
}

// File returns the underlying workbook
func (p *Provider) File() *excelize.File {
	return p.file
}

// Sheets returns the worksheet names in workbook order
func (p *Provider) Sheets() []string {
	return p.file.GetSheetList()
}

func key(sheet string, row, col int) resultKey {
	return resultKey{sheet: formula.FoldCase(sheet), row: row, col: col}
}

func (p *Provider) hasSheet(sheet string) bool {
	idx, err := p.file.GetSheetIndex(sheet)
	return err == nil && idx >= 0
}

func cellName(row, col int) string {
	return formula.ColumnName(col) + strconv.Itoa(row+1)
}

// GetCellValue returns a computed result, or the value stored in the file
func (p *Provider) GetCellValue(sheet string, row, col int) formula.CompileResult {
	if !p.hasSheet(sheet) {
		return formula.NewErrorResultf(formula.ErrorCodeRef, "worksheet "+sheet+" not found")
	}
	if v, ok := p.results[key(sheet, row, col)]; ok {
		return v
	}
	return p.read(sheet, cellName(row, col))
}

// read converts the raw content of a cell using its type attribute
func (p *Provider) read(sheet, ref string) formula.CompileResult {
	raw, err := p.file.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	if err != nil {
		p.logger.Debug().Err(err).Str("sheet", sheet).Str("cell", ref).Msg("cell not readable")
		return formula.NewErrorResultf(formula.ErrorCodeRef, err.Error())
	}
	if raw == "" {
		return formula.Empty()
	}

	typ, err := p.file.GetCellType(sheet, ref)
	if err != nil {
		typ = excelize.CellTypeUnset
	}
	switch typ {
	case excelize.CellTypeBool:
		return formula.NewBoolean(raw == "1" || strings.EqualFold(raw, "TRUE"))
	case excelize.CellTypeError:
		if code, ok := formula.ParseErrorCode(raw); ok {
			return formula.NewErrorResult(code)
		}
		return formula.NewErrorResultf(formula.ErrorCodeValue, raw)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return formula.NewString(raw)
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return formula.NewDate(formula.TimeToSerial(t))
			}
		}
	}

	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return formula.NewInteger(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return formula.NumberResult(f)
	}
	return formula.NewString(raw)
}

// GetRangeValues yields the cells of a block within the used area.
// formulas without a computed result are reported for evaluation.
func (p *Provider) GetRangeValues(sheet string, rowFrom, colFrom, rowTo, colTo int) iter.Seq[formula.Cell] {
	return func(yield func(formula.Cell) bool) {
		rows, cols, ok := p.Dimension(sheet)
		if !ok {
			yield(formula.Cell{
				Row:    rowFrom,
				Column: colFrom,
				Value:  formula.NewErrorResultf(formula.ErrorCodeRef, "worksheet "+sheet+" not found"),
			})
			return
		}
		rowTo, colTo = min(rowTo, rows-1), min(colTo, cols-1)
		for row := rowFrom; row <= rowTo; row++ {
			for col := colFrom; col <= colTo; col++ {
				text, hasFormula := p.GetCellFormula(sheet, row, col)
				v := p.GetCellValue(sheet, row, col)
				if v.IsEmpty() && !hasFormula {
					continue
				}
				if !yield(formula.Cell{Row: row, Column: col, Value: v, Formula: text}) {
					return
				}
			}
		}
	}
}

// GetCellFormula returns the formula of a cell that has not been computed
// yet
func (p *Provider) GetCellFormula(sheet string, row, col int) (string, bool) {
	if _, ok := p.results[key(sheet, row, col)]; ok {
		return "", false
	}
	if !p.hasSheet(sheet) {
		return "", false
	}
	text, err := p.file.GetCellFormula(sheet, cellName(row, col))
	if err != nil || text == "" {
		return "", false
	}
	return strings.TrimPrefix(text, "="), true
}

// definedName finds a name scoped to worksheet, then a workbook-level one
func (p *Provider) definedName(name, worksheet string) (excelize.DefinedName, bool) {
	var global excelize.DefinedName
	found := false
	for _, dn := range p.file.GetDefinedName() {
		if !strings.EqualFold(dn.Name, name) {
			continue
		}
		if worksheet != "" && strings.EqualFold(dn.Scope, worksheet) {
			return dn, true
		}
		if dn.Scope == "" || strings.EqualFold(dn.Scope, "Workbook") {
			global, found = dn, true
		}
	}
	return global, found
}

// IsNamedValue reports whether name is defined for worksheet
func (p *Provider) IsNamedValue(name, worksheet string) bool {
	_, ok := p.definedName(name, worksheet)
	return ok
}

// ResolveNamedValue returns the formula text a defined name refers to
func (p *Provider) ResolveNamedValue(name, worksheet string) (string, bool) {
	dn, ok := p.definedName(name, worksheet)
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(dn.RefersTo, "="), true
}

// Dimension returns the used area of a worksheet: the extent of its rows,
// widened by the dimension recorded in the file
func (p *Provider) Dimension(sheet string) (rows, cols int, ok bool) {
	folded := formula.FoldCase(sheet)
	if dim, cached := p.dims[folded]; cached {
		return dim[0], dim[1], true
	}
	if !p.hasSheet(sheet) {
		return 0, 0, false
	}

	values, err := p.file.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		p.logger.Debug().Err(err).Str("sheet", sheet).Msg("rows not readable")
		return 0, 0, false
	}
	rows = len(values)
	for _, row := range values {
		cols = max(cols, len(row))
	}
	if ref, err := p.file.GetSheetDimension(sheet); err == nil && ref != "" {
		if area, err := formula.ParseRangeAddress(ref, sheet); err == nil {
			rows, cols = max(rows, area.ToRow+1), max(cols, area.ToColumn+1)
		}
	}

	p.dims[folded] = [2]int{rows, cols}
	return rows, cols, true
}

// RecordResult keeps a computed formula result
func (p *Provider) RecordResult(sheet string, row, col int, result formula.CompileResult) {
	p.results[key(sheet, row, col)] = result
}

// Result returns the computed result of a formula cell
func (p *Provider) Result(sheet string, row, col int) (formula.CompileResult, bool) {
	v, ok := p.results[key(sheet, row, col)]
	return v, ok
}

// Reset forgets computed results and cached dimensions, for a workbook
// changed through File
func (p *Provider) Reset() {
	clear(p.results)
	clear(p.dims)
}
