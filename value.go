package formula

import (
	"math"
	"strconv"
	"strings"
)

// DataType tags every intermediate and final value produced by the engine.
// coercion and comparison branch on this tag, never on the Go type of the
// raw value.
type DataType uint8

const (
	DataTypeEmpty      DataType = 0
	DataTypeInteger    DataType = 1 // int64
	DataTypeDecimal    DataType = 2 // float64
	DataTypeString     DataType = 3 // string
	DataTypeBoolean    DataType = 4 // bool
	DataTypeDate       DataType = 5 // float64 serial, 1900 date system
	DataTypeExcelError DataType = 6 // *ExcelError
	DataTypeRange      DataType = 7 // Range
)

var dataTypeNames = map[DataType]string{
	DataTypeEmpty:      "Empty",
	DataTypeInteger:    "Integer",
	DataTypeDecimal:    "Decimal",
	DataTypeString:     "String",
	DataTypeBoolean:    "Boolean",
	DataTypeDate:       "Date",
	DataTypeExcelError: "ExcelError",
	DataTypeRange:      "Range",
}

func (d DataType) String() string {
	if name, ok := dataTypeNames[d]; ok {
		return name
	}
	return "DataType(" + strconv.Itoa(int(d)) + ")"
}

// IsNumeric reports whether values of this type carry a number
func (d DataType) IsNumeric() bool {
	return d == DataTypeInteger || d == DataTypeDecimal || d == DataTypeDate
}

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeNull  ErrorCode = 1 // #NULL! - no cells in common between ranges
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - wrong type of argument or operand
	ErrorCodeRef   ErrorCode = 4 // #REF! - invalid cell reference
	ErrorCodeName  ErrorCode = 5 // #NAME? - unrecognized function or name
	ErrorCodeNum   ErrorCode = 6 // #NUM! - number too large or small to be represented
	ErrorCodeNA    ErrorCode = 7 // #N/A - value not available
)

// ErrorMapper maps error codes to their literal representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeNull:  "#NULL!",
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeRef:   "#REF!",
	ErrorCodeName:  "#NAME?",
	ErrorCodeNum:   "#NUM!",
	ErrorCodeNA:    "#N/A",
}

func (c ErrorCode) String() string {
	if s, ok := ErrorMapper[c]; ok {
		return s
	}
	return "#ERROR!"
}

// ParseErrorCode maps an error literal such as "#N/A" to its code. the
// comparison is case-insensitive.
func ParseErrorCode(literal string) (ErrorCode, bool) {
	upper := strings.ToUpper(literal)
	for code, s := range ErrorMapper {
		if s == upper {
			return code, true
		}
	}
	return 0, false
}

// ExcelError is a spreadsheet-visible error value. it travels through
// evaluation as a CompileResult, never as a Go error return.
type ExcelError struct {
	Code    ErrorCode
	Message string
}

func (e *ExcelError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Code.String()
}

func NewExcelError(code ErrorCode, message string) *ExcelError {
	if message == "" {
		message = code.String()
	}
	return &ExcelError{
		Code:    code,
		Message: message,
	}
}

// CompileResult is a value paired with its data type
type CompileResult struct {
	Value    any
	DataType DataType
}

func Empty() CompileResult {
	return CompileResult{DataType: DataTypeEmpty}
}

func NewInteger(v int64) CompileResult {
	return CompileResult{Value: v, DataType: DataTypeInteger}
}

func NewDecimal(v float64) CompileResult {
	return CompileResult{Value: v, DataType: DataTypeDecimal}
}

func NewString(v string) CompileResult {
	return CompileResult{Value: v, DataType: DataTypeString}
}

func NewBoolean(v bool) CompileResult {
	return CompileResult{Value: v, DataType: DataTypeBoolean}
}

func NewDate(serial float64) CompileResult {
	return CompileResult{Value: serial, DataType: DataTypeDate}
}

func NewRangeResult(r Range) CompileResult {
	return CompileResult{Value: r, DataType: DataTypeRange}
}

// NewErrorResult wraps an error code in a CompileResult
func NewErrorResult(code ErrorCode) CompileResult {
	return CompileResult{Value: NewExcelError(code, ""), DataType: DataTypeExcelError}
}

// NewErrorResultf wraps an error code with a diagnostic message
func NewErrorResultf(code ErrorCode, message string) CompileResult {
	return CompileResult{Value: NewExcelError(code, message), DataType: DataTypeExcelError}
}

// NumberResult returns a Decimal, or #NUM! when f is not finite
func NumberResult(f float64) CompileResult {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NewErrorResult(ErrorCodeNum)
	}
	return NewDecimal(f)
}

func (r CompileResult) IsEmpty() bool {
	return r.DataType == DataTypeEmpty
}

func (r CompileResult) IsError() bool {
	return r.DataType == DataTypeExcelError
}

func (r CompileResult) IsRange() bool {
	return r.DataType == DataTypeRange
}

// ErrorValue returns the carried *ExcelError, or nil
func (r CompileResult) ErrorValue() *ExcelError {
	if r.DataType != DataTypeExcelError {
		return nil
	}
	if e, ok := r.Value.(*ExcelError); ok {
		return e
	}
	return NewExcelError(ErrorCodeValue, "")
}

// ErrorCode returns the code of an error result, or zero
func (r CompileResult) ErrorCode() ErrorCode {
	if e := r.ErrorValue(); e != nil {
		return e.Code
	}
	return 0
}

// Range returns the carried range, or nil
func (r CompileResult) Range() Range {
	if r.DataType != DataTypeRange {
		return nil
	}
	rng, _ := r.Value.(Range)
	return rng
}

// Number returns the raw numeric content of Integer, Decimal and Date
// results. no coercion is attempted.
func (r CompileResult) Number() (float64, bool) {
	switch r.DataType {
	case DataTypeInteger:
		return float64(r.Value.(int64)), true
	case DataTypeDecimal, DataTypeDate:
		return r.Value.(float64), true
	}
	return 0, false
}

// Text renders the value the way concatenation and text functions see it
func (r CompileResult) Text() string {
	switch r.DataType {
	case DataTypeEmpty:
		return ""
	case DataTypeInteger:
		return strconv.FormatInt(r.Value.(int64), 10)
	case DataTypeDecimal, DataTypeDate:
		return FormatNumber(r.Value.(float64))
	case DataTypeString:
		return r.Value.(string)
	case DataTypeBoolean:
		if r.Value.(bool) {
			return "TRUE"
		}
		return "FALSE"
	case DataTypeExcelError:
		return r.ErrorCode().String()
	case DataTypeRange:
		return "#VALUE!"
	}
	return ""
}

func (r CompileResult) String() string {
	return r.Text()
}

// FormatNumber renders f with at most 15 significant digits, the
// precision spreadsheets display
func FormatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', 15, 64), 64)
	if err != nil {
		rounded = f
	}
	abs := math.Abs(rounded)
	if abs != 0 && (abs < 1e-9 || abs >= 1e21) {
		return strings.ToUpper(strconv.FormatFloat(rounded, 'g', -1, 64))
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
