package formula

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestColumnConversion(t *testing.T) {
	testCases := []struct {
		name  string
		index int
	}{
		{"A", 0},
		{"Z", 25},
		{"AA", 26},
		{"AZ", 51},
		{"ZZ", 701},
		{"AAA", 702},
		{"XFD", MaxColumns - 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			index, ok := ColumnIndex(tc.name)
			require.True(t, ok)
			require.Equal(t, tc.index, index)
			require.Equal(t, tc.name, ColumnName(tc.index))
		})
	}

	_, ok := ColumnIndex("A1")
	require.False(t, ok)
	_, ok = ColumnIndex("ABCD")
	require.False(t, ok)
}

func TestParseRangeAddress(t *testing.T) {
	testCases := []struct {
		ref      string
		expected RangeAddress
	}{
		{"A1", RangeAddress{"Sheet1", 0, 0, 0, 0}},
		{"$B$2", RangeAddress{"Sheet1", 1, 1, 1, 1}},
		{"B2:A1", RangeAddress{"Sheet1", 0, 0, 1, 1}},
		{"Data!C3:D4", RangeAddress{"Data", 2, 2, 3, 3}},
		{"'My Sheet'!A1", RangeAddress{"My Sheet", 0, 0, 0, 0}},
		{"'It''s'!A1", RangeAddress{"It's", 0, 0, 0, 0}},
		{"Data!A1:Data!B2", RangeAddress{"Data", 0, 0, 1, 1}},
		{"A:B", RangeAddress{"Sheet1", 0, 0, MaxRows - 1, 1}},
		{"2:3", RangeAddress{"Sheet1", 1, 0, 2, MaxColumns - 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.ref, func(t *testing.T) {
			addr, err := ParseRangeAddress(tc.ref, "Sheet1")
			require.NoError(t, err)
			require.Equal(t, tc.expected, addr)
		})
	}
}

func TestParseRangeAddressErrors(t *testing.T) {
	testCases := []struct {
		ref      string
		expected error
	}{
		{"", ErrInvalidAddress},
		{"A", ErrInvalidAddress},
		{"A0", ErrInvalidAddress},
		{"A1:B", ErrInvalidAddress},
		{"Sheet1!A1:Sheet2!B2", ErrInvalidAddress},
		{"'unterminated!A1", ErrInvalidAddress},
		{"XFE1", ErrAddressOutOfBounds},
		{"A1048577", ErrAddressOutOfBounds},
	}
	for _, tc := range testCases {
		t.Run(tc.ref, func(t *testing.T) {
			_, err := ParseRangeAddress(tc.ref, "Sheet1")
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.expected), err.Error())
		})
	}

	_, err := ParseCellAddress("A1:B2", "Sheet1")
	require.True(t, errors.Is(err, ErrInvalidAddress))
	_, err = ParseCellAddress("A1:A1", "Sheet1")
	require.True(t, errors.Is(err, ErrInvalidAddress))
}

func TestAddressStrings(t *testing.T) {
	require.Equal(t, "Sheet1!B3", CellAddress{Worksheet: "Sheet1", Row: 2, Column: 1}.String())
	require.Equal(t, "'My Sheet'!A1", CellAddress{Worksheet: "My Sheet", Row: 0, Column: 0}.String())
	require.Equal(t, "A1:C4", RangeAddress{FromRow: 0, FromColumn: 0, ToRow: 3, ToColumn: 2}.String())
	require.Equal(t, "Data!B:B", RangeAddress{Worksheet: "Data", FromRow: 0, FromColumn: 1, ToRow: MaxRows - 1, ToColumn: 1}.String())
	require.Equal(t, "2:2", RangeAddress{FromRow: 1, FromColumn: 0, ToRow: 1, ToColumn: MaxColumns - 1}.String())
	require.Equal(t, "'2024'!A1", QuoteSheetName("2024")+"!A1")

	r := RangeAddress{Worksheet: "Data", FromRow: 1, FromColumn: 1, ToRow: 3, ToColumn: 2}
	require.True(t, r.Contains("data", 2, 2))
	require.False(t, r.Contains("Data", 0, 1))
	require.Equal(t, 3, r.Rows())
	require.Equal(t, 2, r.Columns())
}
