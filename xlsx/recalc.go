package xlsx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/formula/grid"
	"github.com/xuri/excelize/v2"
)

// FormulaCells returns the cells of a worksheet holding a formula, in row
// order. only the cells excelize reports for each row are inspected.
func (p *Provider) FormulaCells(sheet string) []formula.CellAddress {
	rows, err := p.file.Rows(sheet)
	if err != nil {
		p.logger.Debug().Err(err).Str("sheet", sheet).Msg("rows not readable")
		return nil
	}
	defer func() { _ = rows.Close() }()

	var found []formula.CellAddress
	for row := 0; rows.Next(); row++ {
		cells, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			p.logger.Debug().Err(err).Str("sheet", sheet).Int("row", row).Msg("row not readable")
			break
		}
		for col := range cells {
			text, err := p.file.GetCellFormula(sheet, cellName(row, col))
			if err == nil && text != "" {
				found = append(found, formula.CellAddress{Worksheet: sheet, Row: row, Column: col})
			}
		}
	}
	return found
}

// Recalculate computes every formula of the workbook, precedents first,
// and keeps the results in the provider. a circular reference stores
// #REF! in each cell of the cycle; failures are returned joined.
func (p *Provider) Recalculate(engine *formula.Engine) error {
	clear(p.results)

	sheets := p.Sheets()
	ids := make(map[string]uint32, len(sheets))
	for i, sheet := range sheets {
		ids[formula.FoldCase(sheet)] = uint32(i + 1)
	}

	graph := grid.NewDependencyGraph()
	var cells []grid.CellID
	addrs := make(map[grid.CellID]formula.CellAddress)
	for _, sheet := range sheets {
		for _, addr := range p.FormulaCells(sheet) {
			id := grid.CellID{Sheet: ids[formula.FoldCase(sheet)], Row: addr.Row, Column: addr.Column}
			graph.SetFormula(id, true)
			cells = append(cells, id)
			addrs[id] = addr

			text, _ := p.GetCellFormula(sheet, addr.Row, addr.Column)
			p.addPrecedents(graph, ids, id, text, sheet, make(map[string]struct{}))
		}
	}

	order, hasCycle := graph.CalculationOrder(cells)
	var errs []error
	for _, id := range order {
		addr := addrs[id]
		if _, done := p.Result(addr.Worksheet, addr.Row, addr.Column); done {
			continue
		}
		if _, err := engine.EvaluateCell(p, addr); err != nil {
			p.recordFailure(addr, err)
			errs = append(errs, fmt.Errorf("%s: %w", addr, err))
		}
	}

	event := p.logger.Debug()
	if len(errs) > 0 {
		event = p.logger.Warn()
	}
	event.Int("formulas", len(cells)).
		Int("failed", len(errs)).
		Bool("cycle", hasCycle).
		Msg("workbook recalculated")
	return errors.Join(errs...)
}

func (p *Provider) addPrecedents(graph *grid.DependencyGraph, ids map[string]uint32, id grid.CellID, text, sheet string, seen map[string]struct{}) {
	refs, names := Precedents(text, sheet)
	for _, ref := range refs {
		sheetID, exists := ids[formula.FoldCase(ref.Worksheet)]
		if !exists {
			continue
		}
		if ref.IsSingleCell() {
			graph.AddCellDependency(id, grid.CellID{Sheet: sheetID, Row: ref.FromRow, Column: ref.FromColumn})
			continue
		}
		graph.AddRangeDependency(id, grid.RangeID{
			Sheet:      sheetID,
			FromRow:    ref.FromRow,
			FromColumn: ref.FromColumn,
			ToRow:      ref.ToRow,
			ToColumn:   ref.ToColumn,
		})
	}
	for _, name := range names {
		folded := strings.ToUpper(name)
		if _, done := seen[folded]; done {
			continue
		}
		seen[folded] = struct{}{}
		if refersTo, ok := p.ResolveNamedValue(name, sheet); ok {
			p.addPrecedents(graph, ids, id, refersTo, sheet, seen)
		}
	}
}

// recordFailure stores the display error of a structural failure
func (p *Provider) recordFailure(addr formula.CellAddress, err error) {
	code := formula.ErrorCodeValue
	switch {
	case errors.Is(err, formula.ErrCircularReference):
		code = formula.ErrorCodeRef
	case errors.Is(err, formula.ErrMaxDepth):
		code = formula.ErrorCodeNum
	}
	result := formula.NewErrorResultf(code, err.Error())
	p.RecordResult(addr.Worksheet, addr.Row, addr.Column, result)

	var circular *formula.CircularReferenceError
	if !errors.As(err, &circular) {
		return
	}
	for _, entry := range append(circular.Chain, circular.Address) {
		if cell, parseErr := formula.ParseCellAddress(entry, addr.Worksheet); parseErr == nil && p.hasSheet(cell.Worksheet) {
			p.RecordResult(cell.Worksheet, cell.Row, cell.Column, result)
		}
	}
}
