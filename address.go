package formula

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MaxRows    = 1048576
	MaxColumns = 16384
)

var (
	ErrInvalidAddress     = errors.New("invalid address")
	ErrAddressOutOfBounds = errors.New("address out of bounds")
)

// CellAddress locates a single cell. rows and columns are zero-based.
type CellAddress struct {
	Worksheet string
	Row       int
	Column    int
}

func (a CellAddress) String() string {
	ref := ColumnName(a.Column) + strconv.Itoa(a.Row+1)
	if a.Worksheet == "" {
		return ref
	}
	return QuoteSheetName(a.Worksheet) + "!" + ref
}

// RangeAddress is a rectangular block of cells within one worksheet. the
// bounds are inclusive and normalized so From <= To.
type RangeAddress struct {
	Worksheet  string
	FromRow    int
	FromColumn int
	ToRow      int
	ToColumn   int
}

func (r RangeAddress) Rows() int {
	return r.ToRow - r.FromRow + 1
}

func (r RangeAddress) Columns() int {
	return r.ToColumn - r.FromColumn + 1
}

func (r RangeAddress) IsSingleCell() bool {
	return r.FromRow == r.ToRow && r.FromColumn == r.ToColumn
}

// Contains checks if a cell is within the range. worksheet names compare
// case-insensitively.
func (r RangeAddress) Contains(worksheet string, row, col int) bool {
	return strings.EqualFold(r.Worksheet, worksheet) &&
		row >= r.FromRow && row <= r.ToRow &&
		col >= r.FromColumn && col <= r.ToColumn
}

func (r RangeAddress) TopLeft() CellAddress {
	return CellAddress{Worksheet: r.Worksheet, Row: r.FromRow, Column: r.FromColumn}
}

func (r RangeAddress) String() string {
	var ref string
	switch {
	case r.FromRow == 0 && r.ToRow == MaxRows-1:
		ref = ColumnName(r.FromColumn) + ":" + ColumnName(r.ToColumn)
	case r.FromColumn == 0 && r.ToColumn == MaxColumns-1:
		ref = strconv.Itoa(r.FromRow+1) + ":" + strconv.Itoa(r.ToRow+1)
	case r.IsSingleCell():
		ref = ColumnName(r.FromColumn) + strconv.Itoa(r.FromRow+1)
	default:
		ref = ColumnName(r.FromColumn) + strconv.Itoa(r.FromRow+1) + ":" +
			ColumnName(r.ToColumn) + strconv.Itoa(r.ToRow+1)
	}
	if r.Worksheet == "" {
		return ref
	}
	return QuoteSheetName(r.Worksheet) + "!" + ref
}

// ColumnIndex converts a column name to a zero-based index (A=0, B=1, ...,
// Z=25, AA=26, AB=27, ...)
func ColumnIndex(name string) (int, bool) {
	if name == "" || len(name) > 3 {
		return 0, false
	}
	col := 0
	for _, ch := range strings.ToUpper(name) {
		if ch < 'A' || ch > 'Z' {
			return 0, false
		}
		col = col*26 + int(ch-'A') + 1
	}
	return col - 1, true
}

// ColumnName converts a zero-based column index to its letters
func ColumnName(index int) string {
	if index < 0 {
		return ""
	}
	var buf [4]byte
	i := len(buf)
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		i--
		buf[i] = byte('A' + (n-1)%26)
	}
	return string(buf[i:])
}

// QuoteSheetName wraps a worksheet name in single quotes when it contains
// anything other than letters, digits, dots and underscores
func QuoteSheetName(name string) string {
	plain := name != ""
	for i, ch := range name {
		isLetter := ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' || ch == '_'
		isDigit := ch >= '0' && ch <= '9'
		if !(isLetter || (i > 0 && (isDigit || ch == '.'))) {
			plain = false
			break
		}
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// splitSheet separates an optional worksheet prefix from a reference.
// quoted names have their escaped quotes collapsed.
func splitSheet(ref string) (sheet string, rest string, err error) {
	if strings.HasPrefix(ref, "'") {
		for i := 1; i < len(ref); i++ {
			if ref[i] != '\'' {
				continue
			}
			if i+1 < len(ref) && ref[i+1] == '\'' {
				i++
				continue
			}
			if i+1 >= len(ref) || ref[i+1] != '!' {
				return "", "", fmt.Errorf("%w: %q", ErrInvalidAddress, ref)
			}
			return strings.ReplaceAll(ref[1:i], "''", "'"), ref[i+2:], nil
		}
		return "", "", fmt.Errorf("%w: unterminated sheet name in %q", ErrInvalidAddress, ref)
	}
	idx := strings.Index(ref, "!")
	if idx == -1 {
		return "", ref, nil
	}
	if idx == 0 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidAddress, ref)
	}
	return ref[:idx], ref[idx+1:], nil
}

type endpointKind int

const (
	endpointCell endpointKind = iota
	endpointColumn
	endpointRow
)

// parseEndpoint parses one side of a range: "$A$1", "A", or "1"
func parseEndpoint(s string) (row, col int, kind endpointKind, err error) {
	s = strings.ReplaceAll(s, "$", "")
	if s == "" {
		return 0, 0, 0, ErrInvalidAddress
	}

	// find where letters end and numbers begin
	letterEnd := 0
	for i, ch := range s {
		if ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z' {
			letterEnd = i + 1
		} else {
			break
		}
	}

	letters, digits := s[:letterEnd], s[letterEnd:]
	for _, ch := range digits {
		if ch < '0' || ch > '9' {
			return 0, 0, 0, ErrInvalidAddress
		}
	}
	if len(letters) > 3 {
		return 0, 0, 0, ErrInvalidAddress
	}

	if letters != "" {
		c, ok := ColumnIndex(letters)
		if !ok {
			return 0, 0, 0, ErrInvalidAddress
		}
		col = c
		kind = endpointColumn
	}
	if digits != "" {
		if len(digits) > 7 {
			return 0, 0, 0, ErrAddressOutOfBounds
		}
		n, convErr := strconv.Atoi(digits)
		if convErr != nil {
			return 0, 0, 0, ErrInvalidAddress
		}
		if n < 1 {
			return 0, 0, 0, ErrInvalidAddress
		}
		row = n - 1
		if letters == "" {
			kind = endpointRow
		} else {
			kind = endpointCell
		}
	}
	if col >= MaxColumns || row >= MaxRows {
		return 0, 0, 0, ErrAddressOutOfBounds
	}
	return row, col, kind, nil
}

// ParseCellAddress parses "A1", "$B$2" or "Sheet1!C3". references without
// a worksheet use defaultSheet.
func ParseCellAddress(ref string, defaultSheet string) (CellAddress, error) {
	r, err := ParseRangeAddress(ref, defaultSheet)
	if err != nil {
		return CellAddress{}, err
	}
	if !r.IsSingleCell() || strings.Contains(ref, ":") {
		return CellAddress{}, fmt.Errorf("%w: %q is not a single cell", ErrInvalidAddress, ref)
	}
	return r.TopLeft(), nil
}

// ParseRangeAddress parses cell, range, full-column and full-row
// references, optionally sheet qualified: "A1", "A1:B2", "A:A", "1:3",
// "'My Sheet'!$A$1:$B$9"
func ParseRangeAddress(ref string, defaultSheet string) (RangeAddress, error) {
	sheet, rest, err := splitSheet(ref)
	if err != nil {
		return RangeAddress{}, err
	}
	if sheet == "" {
		sheet = defaultSheet
	}

	start, end, isRange := strings.Cut(rest, ":")
	if isRange {
		// tolerate "Sheet1!A1:Sheet1!B2" when both sides name the same sheet
		if endSheet, endRest, splitErr := splitSheet(end); splitErr == nil && endSheet != "" {
			if !strings.EqualFold(endSheet, sheet) {
				return RangeAddress{}, fmt.Errorf("%w: cross-worksheet range %q", ErrInvalidAddress, ref)
			}
			end = endRest
		}
	}

	r1, c1, k1, err := parseEndpoint(start)
	if err != nil {
		return RangeAddress{}, fmt.Errorf("%w: %q", err, ref)
	}
	if !isRange {
		if k1 != endpointCell {
			return RangeAddress{}, fmt.Errorf("%w: %q", ErrInvalidAddress, ref)
		}
		return RangeAddress{Worksheet: sheet, FromRow: r1, FromColumn: c1, ToRow: r1, ToColumn: c1}, nil
	}

	r2, c2, k2, err := parseEndpoint(end)
	if err != nil {
		return RangeAddress{}, fmt.Errorf("%w: %q", err, ref)
	}
	if k1 != k2 {
		return RangeAddress{}, fmt.Errorf("%w: mixed range %q", ErrInvalidAddress, ref)
	}

	switch k1 {
	case endpointColumn:
		r1, r2 = 0, MaxRows-1
	case endpointRow:
		c1, c2 = 0, MaxColumns-1
	}

	return RangeAddress{
		Worksheet:  sheet,
		FromRow:    min(r1, r2),
		FromColumn: min(c1, c2),
		ToRow:      max(r1, r2),
		ToColumn:   max(c1, c2),
	}, nil
}
