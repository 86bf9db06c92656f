package formula

import "iter"

// Cell is one populated cell reported by a data provider. Formula is set
// when the provider wants the engine to compute the value rather than use
// Value as stored.
type Cell struct {
	Row     int
	Column  int
	Value   CompileResult
	Formula string
}

// DataProvider is the narrow view of cell storage the engine evaluates
// against. rows and columns are zero-based.
type DataProvider interface {
	// GetCellValue returns the stored value of a cell, Empty when unset
	GetCellValue(sheet string, row, col int) CompileResult

	// GetRangeValues yields the cells of the block holding a value or a
	// formula, in row-major order. empty cells are skipped.
	GetRangeValues(sheet string, rowFrom, colFrom, rowTo, colTo int) iter.Seq[Cell]

	// GetCellFormula returns the formula text of a cell that must be
	// computed, without the leading '='
	GetCellFormula(sheet string, row, col int) (string, bool)

	// IsNamedValue reports whether name is a defined name visible from
	// worksheet
	IsNamedValue(name, worksheet string) bool

	// ResolveNamedValue returns the formula text a defined name refers to,
	// such as "Sheet1!$A$1:$A$10" or "0.2"
	ResolveNamedValue(name, worksheet string) (string, bool)
}

// DimensionProvider is implemented by providers that know the used area of
// a worksheet. full column and full row references are clamped to it.
type DimensionProvider interface {
	Dimension(sheet string) (rows, cols int, ok bool)
}

// TableResolver is implemented by providers that hold tables and can turn
// a structured reference such as Sales[Amount] into a cell block
type TableResolver interface {
	ResolveStructuredReference(ref string, origin CellAddress) (RangeAddress, bool)
}

// ResultRecorder is implemented by providers that want to store formula
// results computed while evaluating other cells
type ResultRecorder interface {
	RecordResult(sheet string, row, col int, result CompileResult)
}
