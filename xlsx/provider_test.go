package xlsx

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook saves a workbook built by fill and opens it again
func writeWorkbook(t *testing.T, fill func(f *excelize.File)) *Provider {
	t.Helper()
	f := excelize.NewFile()
	fill(f)
	path := filepath.Join(t.TempDir(), "book.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	p, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func salesWorkbook(t *testing.T) *Provider {
	return writeWorkbook(t, func(f *excelize.File) {
		_, err := f.NewSheet("Data")
		require.NoError(t, err)
		for _, c := range []struct {
			sheet, cell string
			value any
		}{
			{"Sheet1", "A1", 10},
			{"Sheet1", "A2", 20},
			{"Sheet1", "A3", 30.5},
			{"Sheet1", "C1", "note"},
			{"Sheet1", "C2", true},
			{"Sheet1", "C3", "note"},
			{"Data", "A1", 4},
		} {
			require.NoError(t, f.SetCellValue(c.sheet, c.cell, c.value))
		}
		require.NoError(t, f.SetCellFormula("Sheet1", "B1", "SUM(A1:A3)"))
		require.NoError(t, f.SetCellFormula("Sheet1", "B2", "B1*Rate"))
		require.NoError(t, f.SetCellFormula("Sheet1", "B3", "Data!A1+B2"))
		require.NoError(t, f.SetDefinedName(&excelize.DefinedName{Name: "Rate", RefersTo: "Sheet1!$A$1"}))
	})
}

func TestProviderValues(t *testing.T) {
	p := salesWorkbook(t)

	require.Equal(t, []string{"Sheet1", "Data"}, p.Sheets())
	require.Equal(t, formula.NewInteger(10), p.GetCellValue("Sheet1", 0, 0))
	require.Equal(t, formula.NewDecimal(30.5), p.GetCellValue("Sheet1", 2, 0))
	require.Equal(t, formula.NewString("note"), p.GetCellValue("Sheet1", 0, 2))
	require.Equal(t, formula.NewBoolean(true), p.GetCellValue("Sheet1", 1, 2))
	require.True(t, p.GetCellValue("Sheet1", 9, 9).IsEmpty())
	require.Equal(t, formula.ErrorCodeRef, p.GetCellValue("Missing", 0, 0).ErrorCode())

	text, ok := p.GetCellFormula("Sheet1", 0, 1)
	require.True(t, ok)
	require.Equal(t, "SUM(A1:A3)", text)
	_, ok = p.GetCellFormula("Sheet1", 0, 0)
	require.False(t, ok)

	rows, cols, ok := p.Dimension("Sheet1")
	require.True(t, ok)
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)
	_, _, ok = p.Dimension("Missing")
	require.False(t, ok)

	require.True(t, p.IsNamedValue("rate", "Sheet1"))
	refersTo, ok := p.ResolveNamedValue("Rate", "Sheet1")
	require.True(t, ok)
	require.Equal(t, "Sheet1!$A$1", refersTo)
	require.False(t, p.IsNamedValue("Other", "Sheet1"))

	var formulas []string
	for cell := range p.GetRangeValues("Sheet1", 0, 0, formula.MaxRows-1, 1) {
		if cell.Formula != "" {
			formulas = append(formulas, cell.Formula)
		}
	}
	require.Equal(t, []string{"SUM(A1:A3)", "B1*Rate", "Data!A1+B2"}, formulas)
	require.Len(t, p.FormulaCells("Sheet1"), 3)
	require.Empty(t, p.FormulaCells("Data"))
}

func TestProviderRecalculate(t *testing.T) {
	p := salesWorkbook(t)
	require.NoError(t, p.Recalculate(formula.New()))

	for _, tt := range []struct {
		cell     string
		expected float64
	}{
		{"B1", 60.5},
		{"B2", 605},
		{"B3", 609},
	} {
		t.Run(tt.cell, func(t *testing.T) {
			addr, err := formula.ParseCellAddress(tt.cell, "Sheet1")
			require.NoError(t, err)
			v, ok := p.Result("Sheet1", addr.Row, addr.Column)
			require.True(t, ok)
			n, ok := formula.ToNumber(v)
			require.True(t, ok)
			require.InDelta(t, tt.expected, n, 1e-9)

			// computed cells read as values from now on
			_, hasFormula := p.GetCellFormula("Sheet1", addr.Row, addr.Column)
			require.False(t, hasFormula)
		})
	}

	v, err := formula.New().Calculate(p, "=SUM(B1:B3)", formula.CellAddress{Worksheet: "Sheet1"})
	require.NoError(t, err)
	n, _ := formula.ToNumber(v)
	require.InDelta(t, 1274.5, n, 1e-9)

	p.Reset()
	_, ok := p.Result("Sheet1", 0, 1)
	require.False(t, ok)
}

func TestProviderCircularReference(t *testing.T) {
	p := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellFormula("Sheet1", "A1", "B1+1"))
		require.NoError(t, f.SetCellFormula("Sheet1", "B1", "A1+1"))
		require.NoError(t, f.SetCellFormula("Sheet1", "C1", "5*2"))
		require.NoError(t, f.SetCellValue("Sheet1", "D1", "end"))
	})

	err := p.Recalculate(formula.New())
	require.ErrorIs(t, err, formula.ErrCircularReference)

	for col, code := range map[int]formula.ErrorCode{0: formula.ErrorCodeRef, 1: formula.ErrorCodeRef} {
		v, ok := p.Result("Sheet1", 0, col)
		require.True(t, ok)
		require.Equal(t, code, v.ErrorCode())
	}
	v, ok := p.Result("Sheet1", 0, 2)
	require.True(t, ok)
	n, _ := formula.ToNumber(v)
	require.Equal(t, 10.0, n)
}

func TestPrecedents(t *testing.T) {
	refs, names := Precedents("=SUM(A1:B2, 'My Data'!C3) + Rate * Sales[Amount] + Sheet2!$D$4", "Sheet1")
	require.Equal(t, []formula.RangeAddress{
		{Worksheet: "Sheet1", FromRow: 0, FromColumn: 0, ToRow: 1, ToColumn: 1},
		{Worksheet: "My Data", FromRow: 2, FromColumn: 2, ToRow: 2, ToColumn: 2},
		{Worksheet: "Sheet2", FromRow: 3, FromColumn: 3, ToRow: 3, ToColumn: 3},
	}, refs)
	require.Equal(t, []string{"Rate"}, names)

	refs, names = Precedents(`=IF(TRUE, "A1", 1)`, "Sheet1")
	require.Empty(t, refs)
	require.Empty(t, names)
}

func TestFormulaCellsSparseRows(t *testing.T) {
	p := writeWorkbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", 7))
		require.NoError(t, f.SetCellValue("Sheet1", "H1", "wide"))
		require.NoError(t, f.SetCellFormula("Sheet1", "B10", "A1*3"))
		require.NoError(t, f.SetCellValue("Sheet1", "C10", "end"))
	})

	require.Equal(t, []formula.CellAddress{{Worksheet: "Sheet1", Row: 9, Column: 1}}, p.FormulaCells("Sheet1"))
	require.Nil(t, p.FormulaCells("Missing"))

	require.NoError(t, p.Recalculate(formula.New()))
	v, ok := p.Result("Sheet1", 9, 1)
	require.True(t, ok)
	require.Equal(t, formula.NewInteger(21), v)
}
