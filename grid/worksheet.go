package grid

import (
	"math/bits"
	"slices"

	"github.com/vogtb/go-spreadsheet/packages/formula"
)

const (
	chunkRows = 256                   // rows per chunk, power of 2 for cheap modulo
	chunkCols = 256                   // columns per chunk
	chunkSize = chunkRows * chunkCols // 65536 cells per chunk
)

type chunkKey struct {
	row int
	col int
}

// chunk is a 256x256 region of cells in structure-of-arrays layout. only
// types and occupied exist up front, value arrays are allocated on first
// use.
type chunk struct {
	types    []formula.DataType
	occupied []uint64 // bit per cell holding a value or a formula
	count    int

	numbers  []float64 // integers, decimals, dates, booleans and error codes
	strings  []uint32  // interned text and error messages
	formulas []string  // formula text without the leading '='
}

func newChunk() *chunk {
	return &chunk{
		types:    make([]formula.DataType, chunkSize),
		occupied: make([]uint64, chunkSize/64),
	}
}

func (c *chunk) isOccupied(idx int) bool {
	return c.occupied[idx/64]&(1<<(idx%64)) != 0
}

func (c *chunk) formula(idx int) string {
	if c.formulas == nil {
		return ""
	}
	return c.formulas[idx]
}

// Worksheet is sparse cell storage for one sheet. cells are partitioned
// into 256x256 chunks, so memory is spent only on regions holding data.
type Worksheet struct {
	id       uint32
	name     string
	chunks   map[chunkKey]*chunk
	strings  *stringTable
	numCells int
	rows     int // high-water mark of the used area
	cols     int
}

func newWorksheet(id uint32, name string, strings *stringTable) *Worksheet {
	return &Worksheet{
		id:      id,
		name:    name,
		chunks:  make(map[chunkKey]*chunk),
		strings: strings,
	}
}

// Name returns the display name of the worksheet
func (w *Worksheet) Name() string {
	return w.name
}

// Len returns the number of cells holding a value or a formula
func (w *Worksheet) Len() int {
	return w.numCells
}

// Dimension returns the used area as a row and column count
func (w *Worksheet) Dimension() (rows, cols int) {
	return w.rows, w.cols
}

// locate maps a cell to its chunk and column-major offset inside it
func locate(row, col int) (chunkKey, int) {
	key := chunkKey{row: row / chunkRows, col: col / chunkCols}
	return key, (col%chunkCols)*chunkRows + row%chunkRows
}

func (w *Worksheet) lookup(row, col int) (*chunk, int) {
	key, idx := locate(row, col)
	c, exists := w.chunks[key]
	if !exists || !c.isOccupied(idx) {
		return nil, 0
	}
	return c, idx
}

// value returns the stored value of a cell: the constant, or the last
// computed result of a formula
func (w *Worksheet) value(row, col int) formula.CompileResult {
	c, idx := w.lookup(row, col)
	if c == nil {
		return formula.Empty()
	}
	return w.read(c, idx)
}

func (w *Worksheet) read(c *chunk, idx int) formula.CompileResult {
	switch t := c.types[idx]; t {
	case formula.DataTypeInteger:
		return formula.NewInteger(int64(c.numbers[idx]))
	case formula.DataTypeDecimal:
		return formula.NewDecimal(c.numbers[idx])
	case formula.DataTypeDate:
		return formula.NewDate(c.numbers[idx])
	case formula.DataTypeBoolean:
		return formula.NewBoolean(c.numbers[idx] != 0)
	case formula.DataTypeString:
		return formula.NewString(w.strings.lookup(c.strings[idx]))
	case formula.DataTypeExcelError:
		code := formula.ErrorCode(c.numbers[idx])
		return formula.NewErrorResultf(code, w.strings.lookup(c.strings[idx]))
	}
	return formula.Empty()
}

// formula returns the formula text of a cell
func (w *Worksheet) formula(row, col int) (string, bool) {
	c, idx := w.lookup(row, col)
	if c == nil {
		return "", false
	}
	text := c.formula(idx)
	return text, text != ""
}

// chunkFor returns the chunk of a cell, creating it and marking the cell
// occupied
func (w *Worksheet) chunkFor(row, col int) (*chunk, int) {
	key, idx := locate(row, col)
	c, exists := w.chunks[key]
	if !exists {
		c = newChunk()
		w.chunks[key] = c
	}
	if !c.isOccupied(idx) {
		c.occupied[idx/64] |= 1 << (idx % 64)
		c.count++
		w.numCells++
		w.rows = max(w.rows, row+1)
		w.cols = max(w.cols, col+1)
	}
	return c, idx
}

// store writes v into the value arrays, releasing any string it replaces
func (w *Worksheet) store(c *chunk, idx int, v formula.CompileResult) {
	if t := c.types[idx]; (t == formula.DataTypeString || t == formula.DataTypeExcelError) && c.strings[idx] != 0 {
		w.strings.release(c.strings[idx])
		c.strings[idx] = 0
	}

	if v.IsRange() {
		v = formula.NewErrorResult(formula.ErrorCodeValue)
	}
	c.types[idx] = v.DataType

	switch v.DataType {
	case formula.DataTypeInteger, formula.DataTypeDecimal, formula.DataTypeDate, formula.DataTypeBoolean:
		if c.numbers == nil {
			c.numbers = make([]float64, chunkSize)
		}
		n, _ := v.Number()
		if v.DataType == formula.DataTypeBoolean {
			n = 0
			if b, _ := v.Value.(bool); b {
				n = 1
			}
		}
		c.numbers[idx] = n
	case formula.DataTypeString:
		if c.strings == nil {
			c.strings = make([]uint32, chunkSize)
		}
		c.strings[idx] = w.strings.intern(v.Text())
	case formula.DataTypeExcelError:
		if c.numbers == nil {
			c.numbers = make([]float64, chunkSize)
		}
		if c.strings == nil {
			c.strings = make([]uint32, chunkSize)
		}
		xe := v.ErrorValue()
		c.numbers[idx] = float64(xe.Code)
		c.strings[idx] = w.strings.intern(xe.Message)
	}
}

// setValue stores a constant, dropping any formula the cell held
func (w *Worksheet) setValue(row, col int, v formula.CompileResult) {
	if v.IsEmpty() {
		w.remove(row, col)
		return
	}
	c, idx := w.chunkFor(row, col)
	if c.formulas != nil {
		c.formulas[idx] = ""
	}
	w.store(c, idx, v)
}

// setFormula stores formula text. the previous result stays until the
// cell is recalculated.
func (w *Worksheet) setFormula(row, col int, text string) {
	c, idx := w.chunkFor(row, col)
	if c.formulas == nil {
		c.formulas = make([]string, chunkSize)
	}
	c.formulas[idx] = text
}

// setResult stores the computed result of a formula cell
func (w *Worksheet) setResult(row, col int, v formula.CompileResult) {
	c, idx := w.lookup(row, col)
	if c == nil || c.formula(idx) == "" {
		return
	}
	w.store(c, idx, v)
}

// remove clears a cell. an emptied chunk is dropped.
func (w *Worksheet) remove(row, col int) bool {
	key, idx := locate(row, col)
	c, exists := w.chunks[key]
	if !exists || !c.isOccupied(idx) {
		return false
	}

	w.store(c, idx, formula.Empty())
	if c.formulas != nil {
		c.formulas[idx] = ""
	}
	c.occupied[idx/64] &^= 1 << (idx % 64)
	c.count--
	w.numCells--

	if c.count == 0 {
		delete(w.chunks, key)
	}
	return true
}

// cells returns the occupied cells of a block in row-major order
func (w *Worksheet) cells(rowFrom, colFrom, rowTo, colTo int) []formula.Cell {
	var found []formula.Cell
	for key, c := range w.chunks {
		baseRow, baseCol := key.row*chunkRows, key.col*chunkCols
		if baseRow > rowTo || baseRow+chunkRows <= rowFrom || baseCol > colTo || baseCol+chunkCols <= colFrom {
			continue
		}
		for word, set := range c.occupied {
			for set != 0 {
				bit := bits.TrailingZeros64(set)
				set &^= 1 << bit
				idx := word*64 + bit
				row, col := baseRow+idx%chunkRows, baseCol+idx/chunkRows
				if row < rowFrom || row > rowTo || col < colFrom || col > colTo {
					continue
				}
				found = append(found, formula.Cell{
					Row:     row,
					Column:  col,
					Value:   w.read(c, idx),
					Formula: c.formula(idx),
				})
			}
		}
	}
	slices.SortFunc(found, func(a, b formula.Cell) int {
		if a.Row != b.Row {
			return a.Row - b.Row
		}
		return a.Column - b.Column
	})
	return found
}

// formulaCells returns every cell holding a formula
func (w *Worksheet) formulaCells() []formula.Cell {
	cells := w.cells(0, 0, formula.MaxRows-1, formula.MaxColumns-1)
	return slices.DeleteFunc(cells, func(c formula.Cell) bool {
		return c.Formula == ""
	})
}

// worksheetTable maps worksheet names to stable ids. a name can be
// referenced by formulas before it is defined, so ids exist for undefined
// worksheets too.
type worksheetTable struct {
	ids     map[string]uint32 // folded name -> id, defined or referenced
	names   map[uint32]string // id -> display name
	defined map[uint32]*Worksheet
	nextID  uint32
}

func newWorksheetTable() *worksheetTable {
	return &worksheetTable{
		ids:     make(map[string]uint32),
		names:   make(map[uint32]string),
		defined: make(map[uint32]*Worksheet),
		nextID:  1,
	}
}

// intern returns the id of a worksheet name, defined or not
func (wt *worksheetTable) intern(name string) uint32 {
	key := formula.FoldCase(name)
	if id, exists := wt.ids[key]; exists {
		return id
	}
	id := wt.nextID
	wt.ids[key] = id
	wt.names[id] = name
	wt.nextID++
	return id
}

// define creates a worksheet. a name referenced earlier keeps its id.
func (wt *worksheetTable) define(name string, strings *stringTable) (*Worksheet, bool) {
	id := wt.intern(name)
	if _, exists := wt.defined[id]; exists {
		return nil, false
	}
	wt.names[id] = name
	ws := newWorksheet(id, name, strings)
	wt.defined[id] = ws
	return ws, true
}

// undefine drops the worksheet. its id survives while formulas reference
// it, see prune.
func (wt *worksheetTable) undefine(name string) (*Worksheet, bool) {
	ws, exists := wt.byName(name)
	if !exists {
		return nil, false
	}
	delete(wt.defined, ws.id)
	return ws, true
}

// rename moves a defined worksheet to a new name. an undefined id holding
// the new name is forgotten.
func (wt *worksheetTable) rename(ws *Worksheet, newName string) {
	delete(wt.ids, formula.FoldCase(ws.name))
	if stale, exists := wt.ids[formula.FoldCase(newName)]; exists && stale != ws.id {
		delete(wt.names, stale)
	}
	wt.ids[formula.FoldCase(newName)] = ws.id
	wt.names[ws.id] = newName
	ws.name = newName
}

func (wt *worksheetTable) byName(name string) (*Worksheet, bool) {
	id, exists := wt.ids[formula.FoldCase(name)]
	if !exists {
		return nil, false
	}
	ws, defined := wt.defined[id]
	return ws, defined
}

func (wt *worksheetTable) byID(id uint32) (*Worksheet, bool) {
	ws, exists := wt.defined[id]
	return ws, exists
}

func (wt *worksheetTable) name(id uint32) string {
	return wt.names[id]
}

// list returns the defined worksheets in creation order
func (wt *worksheetTable) list() []*Worksheet {
	result := make([]*Worksheet, 0, len(wt.defined))
	for _, ws := range wt.defined {
		result = append(result, ws)
	}
	slices.SortFunc(result, func(a, b *Worksheet) int {
		return int(a.id) - int(b.id)
	})
	return result
}

// undefinedNames returns referenced worksheet names that are not defined
func (wt *worksheetTable) undefinedNames() []string {
	var result []string
	for id, name := range wt.names {
		if _, defined := wt.defined[id]; !defined {
			result = append(result, name)
		}
	}
	slices.Sort(result)
	return result
}

// prune forgets undefined worksheets no longer in use
func (wt *worksheetTable) prune(used map[uint32]struct{}) {
	for id, name := range wt.names {
		if _, defined := wt.defined[id]; defined {
			continue
		}
		if _, inUse := used[id]; inUse {
			continue
		}
		delete(wt.ids, formula.FoldCase(name))
		delete(wt.names, id)
	}
}
