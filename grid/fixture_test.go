package grid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vogtb/go-spreadsheet/packages/formula"
)

const salesFixture = `
sheets:
  Data:
    A1: Region
    B1: Amount
    A2: North
    B2: 5
    A3: South
    B3: 7.5
    A4: North
    B4: 9
  Summary Sheet:
    A1: "=SUM(Sales[Amount])"
    A2: "=SUMIF(Sales[Region], \"North\", Sales[Amount])*Rate"
    A3: "=IF(Data!B2>1, TRUE, FALSE)"
    A4: true
    A5: 2023-03-15
    A6:
names:
  Rate: "2"
tables:
  Sales: "Data!A1:B4"
`

func TestLoadYAML(t *testing.T) {
	w, err := LoadYAML(strings.NewReader(salesFixture))
	require.NoError(t, err)
	require.Equal(t, []string{"Data", "Summary Sheet"}, w.ListWorksheets())
	require.Equal(t, []string{"Rate"}, w.ListNames())
	require.NoError(t, w.Calculate())

	for _, tt := range []struct {
		address  string
		expected formula.CompileResult
	}{
		{"Data!A1", formula.NewString("Region")},
		{"Data!B3", formula.NewDecimal(7.5)},
		{"'Summary Sheet'!A1", formula.NewDecimal(21.5)},
		{"'Summary Sheet'!A2", formula.NewDecimal(28)},
		{"'Summary Sheet'!A3", formula.NewBoolean(true)},
		{"'Summary Sheet'!A4", formula.NewBoolean(true)},
		{"'Summary Sheet'!A5", formula.NewDate(45000)},
		{"'Summary Sheet'!A6", formula.Empty()},
	} {
		t.Run(tt.address, func(t *testing.T) {
			actual, err := w.Get(tt.address)
			require.NoError(t, err)
			require.Equal(t, tt.expected.DataType, actual.DataType, "%v", actual)
			expected, _ := tt.expected.Number()
			n, _ := actual.Number()
			require.InDelta(t, expected, n, 1e-9)
			require.Equal(t, tt.expected.Text(), actual.Text())
		})
	}
}

func TestLoadYAMLErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		doc  string
		code AppErrorCode
	}{
		{"UnknownField", "sheet: {}", InvalidArgument},
		{"SheetsNotMapping", "sheets: [a, b]", InvalidArgument},
		{"CellsNotMapping", "sheets:\n  Sheet1: [1, 2]", InvalidArgument},
		{"BadAddress", "sheets:\n  Sheet1:\n    1A: 2", InvalidArgument},
		{"BadName", "sheets:\n  Sheet1: {}\nnames:\n  A1: \"1\"", InvalidArgument},
		{"TableOnMissingSheet", "sheets:\n  Sheet1: {}\ntables:\n  T: \"Other!A1:B2\"", NotFound},
		{"DuplicateSheet", "sheets:\n  Sheet1: {}\n  SHEET1: {}", AlreadyExists},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(tt.doc))
			var appErr *AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, tt.code, appErr.Code, "%v", err)
		})
	}

	w, err := LoadYAML(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, w.ListWorksheets())
}
