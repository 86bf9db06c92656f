package grid

import (
	"iter"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/formula"
)

// GetCellValue returns the stored value of a cell. a worksheet that does
// not exist reads as #REF!.
func (w *Workbook) GetCellValue(sheet string, row, col int) formula.CompileResult {
	ws, exists := w.sheets.byName(sheet)
	if !exists {
		return formula.NewErrorResultf(formula.ErrorCodeRef, "worksheet "+sheet+" not found")
	}
	return ws.value(row, col)
}

// GetRangeValues yields the occupied cells of a block. formula text is
// reported only for cells awaiting recalculation, so clean formulas are
// read from their stored result.
func (w *Workbook) GetRangeValues(sheet string, rowFrom, colFrom, rowTo, colTo int) iter.Seq[formula.Cell] {
	return func(yield func(formula.Cell) bool) {
		ws, exists := w.sheets.byName(sheet)
		if !exists {
			yield(formula.Cell{
				Row:    rowFrom,
				Column: colFrom,
				Value:  formula.NewErrorResultf(formula.ErrorCodeRef, "worksheet "+sheet+" not found"),
			})
			return
		}
		for _, cell := range ws.cells(rowFrom, colFrom, rowTo, colTo) {
			if cell.Formula != "" && !w.graph.IsDirty(CellID{Sheet: ws.id, Row: cell.Row, Column: cell.Column}) {
				cell.Formula = ""
			}
			if !yield(cell) {
				return
			}
		}
	}
}

// GetCellFormula returns the formula of a cell awaiting recalculation
func (w *Workbook) GetCellFormula(sheet string, row, col int) (string, bool) {
	ws, exists := w.sheets.byName(sheet)
	if !exists {
		return "", false
	}
	if !w.graph.IsDirty(CellID{Sheet: ws.id, Row: row, Column: col}) {
		return "", false
	}
	return ws.formula(row, col)
}

// IsNamedValue reports whether name is a defined name
func (w *Workbook) IsNamedValue(name, worksheet string) bool {
	return w.DoesNameExist(name)
}

// ResolveNamedValue returns the formula text a defined name refers to
func (w *Workbook) ResolveNamedValue(name, worksheet string) (string, bool) {
	def, exists := w.names[strings.ToUpper(name)]
	if !exists {
		return "", false
	}
	return def.refersTo, true
}

// Dimension returns the used area of a worksheet
func (w *Workbook) Dimension(sheet string) (rows, cols int, ok bool) {
	ws, exists := w.sheets.byName(sheet)
	if !exists {
		return 0, 0, false
	}
	rows, cols = ws.Dimension()
	return rows, cols, true
}

// RecordResult stores a formula result computed while evaluating another
// cell, so it is not computed again during the same Calculate
func (w *Workbook) RecordResult(sheet string, row, col int, result formula.CompileResult) {
	ws, exists := w.sheets.byName(sheet)
	if !exists {
		return
	}
	ws.setResult(row, col, result)
	w.graph.ClearDirty(CellID{Sheet: ws.id, Row: row, Column: col})
}

// ResolveStructuredReference turns a table reference into a block.
// supported forms are Table[], Table[Column], Table[#All], Table[#Data],
// Table[#Headers], Table[#This Row], Table[@Column] and the bracketed
// lists such as Table[[#This Row],[Amount]] or Table[[#All],[A]:[C]].
// #This Row and @ select the row of origin, which has to lie inside the
// data rows.
func (w *Workbook) ResolveStructuredReference(ref string, origin formula.CellAddress) (formula.RangeAddress, bool) {
	name, item, found := strings.Cut(ref, "[")
	if !found || !strings.HasSuffix(item, "]") {
		return formula.RangeAddress{}, false
	}
	t, exists := w.tables[strings.ToUpper(strings.TrimSpace(name))]
	if !exists {
		return formula.RangeAddress{}, false
	}
	ws, exists := w.sheets.byID(t.block.Sheet)
	if !exists {
		return formula.RangeAddress{}, false
	}
	sel, ok := parseTableSelection(strings.TrimSuffix(item, "]"))
	if !ok {
		return formula.RangeAddress{}, false
	}

	b := t.block
	result := formula.RangeAddress{
		Worksheet:  ws.name,
		FromRow:    b.FromRow + 1,
		FromColumn: b.FromColumn,
		ToRow:      b.ToRow,
		ToColumn:   b.ToColumn,
	}

	for i, row := range sel.rows {
		var from, to int
		switch row {
		case "#ALL":
			from, to = b.FromRow, b.ToRow
		case "#DATA":
			from, to = b.FromRow+1, b.ToRow
		case "#HEADERS":
			from, to = b.FromRow, b.FromRow
		case "#THIS ROW":
			if !strings.EqualFold(origin.Worksheet, ws.name) || origin.Row <= b.FromRow || origin.Row > b.ToRow {
				return formula.RangeAddress{}, false
			}
			from, to = origin.Row, origin.Row
		default:
			return formula.RangeAddress{}, false
		}
		if i == 0 {
			result.FromRow, result.ToRow = from, to
		} else {
			result.FromRow, result.ToRow = min(result.FromRow, from), max(result.ToRow, to)
		}
	}

	if len(sel.columns) > 0 {
		first, ok := w.tableColumn(ws, b, sel.columns[0])
		if !ok {
			return formula.RangeAddress{}, false
		}
		last := first
		if len(sel.columns) == 2 {
			if last, ok = w.tableColumn(ws, b, sel.columns[1]); !ok {
				return formula.RangeAddress{}, false
			}
		}
		result.FromColumn, result.ToColumn = min(first, last), max(first, last)
	}

	if result.FromRow > result.ToRow {
		// a table without data rows
		return formula.RangeAddress{}, false
	}
	return result, true
}

// tableSelection is the part of a structured reference inside the
// brackets: special row items, upper-cased, and a column or a column span
type tableSelection struct {
	rows    []string
	columns []string
}

func (s *tableSelection) add(item string, span bool) bool {
	if strings.HasPrefix(item, "#") {
		if span {
			return false
		}
		s.rows = append(s.rows, strings.ToUpper(item))
		return true
	}
	if span != (len(s.columns) == 1) {
		return false
	}
	s.columns = append(s.columns, item)
	return true
}

func parseTableSelection(text string) (tableSelection, bool) {
	var sel tableSelection
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "@"); ok {
		sel.rows = append(sel.rows, "#THIS ROW")
		text = strings.TrimSpace(rest)
	}
	switch {
	case text == "":
		return sel, true
	case !strings.HasPrefix(text, "["):
		return sel, sel.add(text, false)
	}

	items, spans, ok := splitBracketed(text)
	if !ok {
		return tableSelection{}, false
	}
	for i, item := range items {
		if !sel.add(item, spans[i]) {
			return tableSelection{}, false
		}
	}
	return sel, true
}

// splitBracketed splits "[a],[b]:[c]" into its items. spans marks an item
// that closes a column span opened by the previous one. a quote escapes
// the next character inside an item.
func splitBracketed(text string) (items []string, spans []bool, ok bool) {
	span := false
	for i := 0; i < len(text); {
		switch text[i] {
		case '[':
			var b strings.Builder
			j := i + 1
			for ; j < len(text) && text[j] != ']'; j++ {
				if text[j] == '\'' && j+1 < len(text) {
					j++
				}
				b.WriteByte(text[j])
			}
			if j == len(text) {
				return nil, nil, false
			}
			items = append(items, strings.TrimSpace(b.String()))
			spans = append(spans, span)
			span = false
			i = j + 1
		case ':':
			if len(items) == 0 || span {
				return nil, nil, false
			}
			span = true
			i++
		case ',', ' ':
			i++
		default:
			return nil, nil, false
		}
	}
	return items, spans, !span
}

func (w *Workbook) tableColumn(ws *Worksheet, b RangeID, header string) (int, bool) {
	for col := b.FromColumn; col <= b.ToColumn; col++ {
		if formula.CompareStrings(ws.value(b.FromRow, col).Text(), header) == 0 {
			return col, true
		}
	}
	return 0, false
}
