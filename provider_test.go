package formula

import (
	"iter"
	"slices"
	"strings"
	"time"
)

// testProvider is an in-memory DataProvider for tests. values are Go
// values or strings starting with '=' for formulas.
type testProvider struct {
	cells  map[string]map[[2]int]Cell
	names  map[string]string
	tables map[string]RangeAddress
}

func newTestProvider() *testProvider {
	return &testProvider{
		cells:  make(map[string]map[[2]int]Cell),
		names:  make(map[string]string),
		tables: make(map[string]RangeAddress),
	}
}

func (p *testProvider) set(ref string, value any) *testProvider {
	addr, err := ParseCellAddress(ref, "Sheet1")
	if err != nil {
		panic(err)
	}
	sheet := strings.ToUpper(addr.Worksheet)
	if p.cells[sheet] == nil {
		p.cells[sheet] = make(map[[2]int]Cell)
	}
	cell := Cell{Row: addr.Row, Column: addr.Column}
	switch v := value.(type) {
	case nil:
		delete(p.cells[sheet], [2]int{addr.Row, addr.Column})
		return p
	case int:
		cell.Value = NewInteger(int64(v))
	case float64:
		cell.Value = NewDecimal(v)
	case bool:
		cell.Value = NewBoolean(v)
	case CompileResult:
		cell.Value = v
	case string:
		if strings.HasPrefix(v, "=") {
			cell.Formula = v[1:]
		} else {
			cell.Value = NewString(v)
		}
	}
	p.cells[sheet][[2]int{addr.Row, addr.Column}] = cell
	return p
}

func (p *testProvider) name(name, refersTo string) *testProvider {
	p.names[strings.ToUpper(name)] = refersTo
	return p
}

func (p *testProvider) table(name, ref string) *testProvider {
	addr, err := ParseRangeAddress(ref, "Sheet1")
	if err != nil {
		panic(err)
	}
	p.tables[strings.ToUpper(name)] = addr
	return p
}

func (p *testProvider) GetCellValue(sheet string, row, col int) CompileResult {
	cell, ok := p.cells[strings.ToUpper(sheet)][[2]int{row, col}]
	if !ok {
		return Empty()
	}
	return cell.Value
}

func (p *testProvider) GetRangeValues(sheet string, rowFrom, colFrom, rowTo, colTo int) iter.Seq[Cell] {
	return func(yield func(Cell) bool) {
		var found []Cell
		for key, cell := range p.cells[strings.ToUpper(sheet)] {
			if key[0] >= rowFrom && key[0] <= rowTo && key[1] >= colFrom && key[1] <= colTo {
				found = append(found, cell)
			}
		}
		slices.SortFunc(found, func(a, b Cell) int {
			if a.Row != b.Row {
				return a.Row - b.Row
			}
			return a.Column - b.Column
		})
		for _, cell := range found {
			if !yield(cell) {
				return
			}
		}
	}
}

func (p *testProvider) GetCellFormula(sheet string, row, col int) (string, bool) {
	cell, ok := p.cells[strings.ToUpper(sheet)][[2]int{row, col}]
	if !ok || cell.Formula == "" {
		return "", false
	}
	return cell.Formula, true
}

func (p *testProvider) IsNamedValue(name, worksheet string) bool {
	_, ok := p.names[strings.ToUpper(name)]
	return ok
}

func (p *testProvider) ResolveNamedValue(name, worksheet string) (string, bool) {
	refersTo, ok := p.names[strings.ToUpper(name)]
	return refersTo, ok
}

// ResolveStructuredReference supports Table[Column] with the first row of
// the table holding the headers
func (p *testProvider) ResolveStructuredReference(ref string, origin CellAddress) (RangeAddress, bool) {
	tableName, column, ok := strings.Cut(strings.TrimSuffix(ref, "]"), "[")
	if !ok {
		return RangeAddress{}, false
	}
	table, ok := p.tables[strings.ToUpper(tableName)]
	if !ok {
		return RangeAddress{}, false
	}
	for col := table.FromColumn; col <= table.ToColumn; col++ {
		header := p.GetCellValue(table.Worksheet, table.FromRow, col)
		if strings.EqualFold(header.Text(), column) {
			return RangeAddress{
				Worksheet:  table.Worksheet,
				FromRow:    table.FromRow + 1,
				FromColumn: col,
				ToRow:      table.ToRow,
				ToColumn:   col,
			}, true
		}
	}
	return RangeAddress{}, false
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type fixedRandom struct {
	value float64
}

func (r *fixedRandom) Float64() float64 {
	return r.value
}

func origin(ref string) CellAddress {
	addr, err := ParseCellAddress(ref, "Sheet1")
	if err != nil {
		panic(err)
	}
	return addr
}
