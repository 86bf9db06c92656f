package formula

import (
	"bytes"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func calculate(t *testing.T, e *Engine, p DataProvider, formula string) CompileResult {
	t.Helper()
	result, err := e.Calculate(p, formula, origin("Z100"))
	require.NoError(t, err)
	return result
}

func TestEngineOperatorPrecedence(t *testing.T) {
	e := New()
	p := newTestProvider().set("A1", 5)

	testCases := []struct {
		formula  string
		expected CompileResult
	}{
		{"=2+3*4", NewInteger(14)},
		{"=(2+3)*4", NewInteger(20)},
		{"=-2^2", NewInteger(4)},
		{"=2^3^2", NewInteger(64)},
		{"=10-4-3", NewInteger(3)},
		{"=1+2&3", NewString("33")},
		{"=1/4", NewDecimal(0.25)},
		{"=2*50%", NewDecimal(1)},
		{"=1<2", NewBoolean(true)},
		{`="a"&"b"="AB"`, NewBoolean(true)},
		{"=-A1", NewInteger(-5)},
		{"=A1*A1-A1", NewInteger(20)},
		{"={1,2;3,4}", NewInteger(1)},
		{`=""`, NewString("")},
	}

	for _, tc := range testCases {
		t.Run(tc.formula, func(t *testing.T) {
			require.Equal(t, tc.expected, calculate(t, e, p, tc.formula))
		})
	}
}

func TestEngineErrorResults(t *testing.T) {
	e := New()
	p := newTestProvider().set("A1", "text")

	testCases := []struct {
		formula  string
		expected ErrorCode
	}{
		{"=7/0", ErrorCodeDiv0},
		{"=#N/A+1", ErrorCodeNA},
		{"=1+#REF!", ErrorCodeRef},
		{`=1+"x"`, ErrorCodeValue},
		{"=A1*2", ErrorCodeValue},
		{"=NoSuchFunction(1)", ErrorCodeName},
		{"=UnknownName+1", ErrorCodeName},
		{"=[Book2]Sheet1!A1", ErrorCodeRef},
		{"=#REF!A1+1", ErrorCodeRef},
		{"=SUM(#REF!A1)", ErrorCodeRef},
		{"=Sheet1!#REF!*2", ErrorCodeRef},
		{"=Sales[Amount]", ErrorCodeRef},
		{"=IF(1)", ErrorCodeValue},
		{"=1+", ErrorCodeValue},
	}

	for _, tc := range testCases {
		t.Run(tc.formula, func(t *testing.T) {
			result := calculate(t, e, p, tc.formula)
			require.True(t, result.IsError(), result.Text())
			require.Equal(t, tc.expected, result.ErrorCode())
		})
	}
}

func TestEngineSyntaxErrors(t *testing.T) {
	e := New()
	expr := e.Compile("=SUM(1,", "Sheet1")

	var syntaxErr *SyntaxError
	require.True(t, errors.As(expr.Err(), &syntaxErr))

	result, err := expr.Evaluate(newTestProvider(), origin("A1"))
	require.NoError(t, err)
	require.Equal(t, ErrorCodeValue, result.ErrorCode())

	require.NoError(t, e.Compile("=SUM(1,2)", "Sheet1").Err())
}

func TestEngineIfBranchIsolation(t *testing.T) {
	e := New()
	p := newTestProvider()

	require.Equal(t, NewInteger(1), calculate(t, e, p, "=IF(TRUE, 1, 1/0)"))
	require.Equal(t, NewInteger(2), calculate(t, e, p, "=IF(FALSE, 1/0, 2)"))
	require.Equal(t, NewString("yes"), calculate(t, e, p, `=IF(1, "yes", 2)`))
	require.Equal(t, NewInteger(0), calculate(t, e, p, "=IF(FALSE, 1, )"))
}

func TestEngineIfsArity(t *testing.T) {
	e := New()
	expr := e.Compile("=IFS(TRUE, 1, FALSE)", "Sheet1")
	require.NoError(t, expr.Err())

	result, err := expr.Evaluate(newTestProvider(), origin("A1"))
	require.NoError(t, err)
	require.Equal(t, ErrorCodeValue, result.ErrorCode())
}

func TestEngineSwitchDefault(t *testing.T) {
	e := New()
	result := calculate(t, e, newTestProvider(), `=SWITCH(5, 1,"a", 2,"b", "default")`)
	require.Equal(t, NewString("default"), result)
}

func TestEngineCircularReference(t *testing.T) {
	e := New()
	p := newTestProvider().
		set("A1", "=B1+1").
		set("B1", "=A1")

	for _, ref := range []string{"A1", "B1"} {
		t.Run(ref, func(t *testing.T) {
			_, err := e.EvaluateCell(p, origin(ref))
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCircularReference))

			var circular *CircularReferenceError
			require.True(t, errors.As(err, &circular))
			require.Equal(t, "Sheet1!"+ref, circular.Address)
			require.Len(t, circular.Chain, 2)
		})
	}

	// reaching the cycle from another formula fails the same way
	_, err := e.Calculate(p, "=A1*2", origin("C1"))
	require.True(t, errors.Is(err, ErrCircularReference))
}

func TestEngineCircularReferenceVariants(t *testing.T) {
	e := New()

	testCases := []struct {
		name     string
		provider *testProvider
		cell     string
	}{
		{
			name:     "self reference",
			provider: newTestProvider().set("A1", "=A1+1"),
			cell:     "A1",
		},
		{
			name: "through a range",
			provider: newTestProvider().
				set("A1", "=SUM(A2:A3)").
				set("A2", 1).
				set("A3", "=A1"),
			cell: "A1",
		},
		{
			name: "across worksheets",
			provider: newTestProvider().
				set("Sheet1!A1", "=Data!A1").
				set("Data!A1", "=Sheet1!A1"),
			cell: "A1",
		},
		{
			name: "through a name",
			provider: newTestProvider().
				set("A1", "=Total").
				name("Total", "=Sheet1!A1+1"),
			cell: "A1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.EvaluateCell(tc.provider, origin(tc.cell))
			require.True(t, errors.Is(err, ErrCircularReference), "expected circular reference, got %v", err)
		})
	}

	p := newTestProvider().name("Loop", "=Loop+1")
	_, err := e.Calculate(p, "=Loop", origin("A1"))
	require.True(t, errors.Is(err, ErrCircularReference))
}

func TestEngineSemiCircularIf(t *testing.T) {
	e := New()
	p := newTestProvider().
		set("A1", "=IF(TRUE, 1, B1)").
		set("B1", "=A1+1")

	result, err := e.EvaluateCell(p, origin("A1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(1), result)

	result, err = e.EvaluateCell(p, origin("B1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(2), result)
}

func chainProvider(length int) *testProvider {
	p := newTestProvider()
	for i := 1; i < length; i++ {
		p.set("A"+strconv.Itoa(i), "=A"+strconv.Itoa(i+1)+"+1")
	}
	p.set("A"+strconv.Itoa(length), 1)
	return p
}

func TestEngineMaxDepth(t *testing.T) {
	p := chainProvider(20)

	result, err := New().EvaluateCell(p, origin("A1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(20), result)

	_, err = New(WithMaxDepth(10)).EvaluateCell(p, origin("A1"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMaxDepth))
	require.False(t, errors.Is(err, ErrCircularReference))
}

func TestEngineDeterminism(t *testing.T) {
	e := New(WithRandom(&fixedRandom{value: 0.25}))
	p := newTestProvider().
		set("A1", 3).
		set("A2", "=A1*2").
		set("A3", "=SUM(A1:A2)+RAND()")

	expr := e.Compile("=A3/2+COUNTIF(A1:A3, \">3\")", "Sheet1")
	first, err := expr.Evaluate(p, origin("B1"))
	require.NoError(t, err)
	for range 5 {
		again, err := expr.Evaluate(p, origin("B1"))
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
	require.InDelta(t, 6.625, first.Value, 1e-12)
}

func TestEngineLazyReferences(t *testing.T) {
	e := New()
	p := newTestProvider().set("A1", 1)
	expr := e.Compile("=A1*10", "Sheet1")

	result, err := expr.Evaluate(p, origin("B1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(10), result)

	p.set("A1", 4)
	result, err = expr.Evaluate(p, origin("B1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(40), result)
}

func TestEngineNamedValues(t *testing.T) {
	e := New()
	p := newTestProvider().
		set("B1", 10).
		set("B2", 20).
		set("B3", 30).
		name("Rate", "0.2").
		name("Prices", "=Sheet1!B1:B3")

	result := calculate(t, e, p, "=SUM(Prices)*Rate")
	require.Equal(t, DataTypeDecimal, result.DataType)
	require.InDelta(t, 12.0, result.Value, 1e-12)

	expr := e.Compile("=SUM(Prices)*Rate", "Sheet1")
	require.Equal(t, []string{"Prices", "Rate"}, expr.Names())
}

func TestEngineStructuredReferences(t *testing.T) {
	e := New()
	p := newTestProvider().
		set("A1", "Region").
		set("B1", "Amount").
		set("A2", "North").
		set("B2", 5).
		set("A3", "South").
		set("B3", 7).
		set("A4", "North").
		set("B4", 9).
		table("Sales", "A1:B4")

	require.Equal(t, NewDecimal(21), calculate(t, e, p, "=SUM(Sales[Amount])"))
	require.Equal(t, NewDecimal(14), calculate(t, e, p, `=SUMIF(Sales[Region], "North", Sales[Amount])`))
	require.Equal(t, ErrorCodeRef, calculate(t, e, p, "=SUM(Sales[Missing])").ErrorCode())
}

func TestEngineImplicitIntersection(t *testing.T) {
	e := New()
	p := newTestProvider().
		set("B1", 10).
		set("B2", 20).
		set("B3", 30).
		set("D1", 1).
		set("E1", 2)

	result, err := e.Calculate(p, "=B1:B3", origin("C2"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(20), result)

	result, err = e.Calculate(p, "=D1:E1*3", origin("E7"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(6), result)

	result, err = e.Calculate(p, "=B1:B3", origin("C10"))
	require.NoError(t, err)
	require.Equal(t, ErrorCodeValue, result.ErrorCode())
}

func TestEngineCrossWorksheet(t *testing.T) {
	e := New()
	p := newTestProvider().
		set("Data!A1", 2).
		set("'Q1 Report'!B2", 3).
		set("A1", "=Data!A1*'Q1 Report'!B2")

	result, err := e.EvaluateCell(p, origin("A1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(6), result)
}

func TestEngineReferences(t *testing.T) {
	e := New()
	expr := e.Compile("=A1+SUM(B1:C2, Data!D4)", "Sheet1")
	require.Equal(t, []RangeAddress{
		{Worksheet: "Sheet1", FromRow: 0, FromColumn: 0, ToRow: 0, ToColumn: 0},
		{Worksheet: "Sheet1", FromRow: 0, FromColumn: 1, ToRow: 1, ToColumn: 2},
		{Worksheet: "Data", FromRow: 3, FromColumn: 3, ToRow: 3, ToColumn: 3},
	}, expr.References())
	require.Equal(t, "=(A1+SUM(B1:C2,Data!D4))", expr.String())
	require.Equal(t, "=A1+SUM(B1:C2, Data!D4)", expr.Formula())
}

func TestEngineCompileCache(t *testing.T) {
	e := New(WithCacheSize(2))
	first := e.Compile("=1+1", "Sheet1")
	require.Same(t, first, e.Compile("=1+1", "sheet1"))
	require.NotSame(t, first, e.Compile("=1+1", "Sheet2"))

	e.Compile("=2+2", "Sheet1")
	e.Compile("=3+3", "Sheet1")
	require.Equal(t, 2, e.cache.len())
	require.NotSame(t, first, e.Compile("=1+1", "Sheet1"))
}

func TestEngineVolatile(t *testing.T) {
	now := time.Date(2023, 3, 15, 18, 0, 0, 0, time.UTC)
	e := New(WithClock(&fixedClock{now: now}), WithRandom(&fixedRandom{value: 0.5}))

	require.True(t, e.Compile("=NOW()", "Sheet1").IsVolatile())
	require.True(t, e.Compile("=1+RAND()", "Sheet1").IsVolatile())
	require.False(t, e.Compile("=1+1", "Sheet1").IsVolatile())

	p := newTestProvider()
	require.Equal(t, NewDate(45000.75), calculate(t, e, p, "=NOW()"))
	require.Equal(t, NewDate(45000), calculate(t, e, p, "=TODAY()"))
	require.Equal(t, NewDecimal(0.5), calculate(t, e, p, "=RAND()"))
}

func TestEngineCustomFunction(t *testing.T) {
	double := &FunctionDef{
		Name:    "DOUBLE",
		MinArgs: 1,
		MaxArgs: 1,
		Fn: FunctionFunc(func(args []*FunctionArgument, ctx *Context) (CompileResult, error) {
			n, err := ctx.Number(args[0])
			if err != nil {
				return Empty(), err
			}
			return NumberResult(n * 2), nil
		}),
	}
	e := New(WithFunction(double))
	p := newTestProvider()

	require.Equal(t, NewDecimal(42), calculate(t, e, p, "=double(21)"))
	require.Equal(t, ErrorCodeValue, calculate(t, e, p, `=DOUBLE("x")`).ErrorCode())
	require.Equal(t, ErrorCodeValue, calculate(t, e, p, "=DOUBLE(1,2)").ErrorCode())
	require.Contains(t, e.Functions().Names(), "DOUBLE")
}

type recordingProvider struct {
	*testProvider
	recorded map[string]CompileResult
}

func (p *recordingProvider) RecordResult(sheet string, row, col int, result CompileResult) {
	p.recorded[CellAddress{Worksheet: sheet, Row: row, Column: col}.String()] = result
}

func TestEngineRecordsResults(t *testing.T) {
	p := &recordingProvider{
		testProvider: newTestProvider().
			set("A1", "=B1*2").
			set("B1", "=3").
			set("C1", 4),
		recorded: make(map[string]CompileResult),
	}

	result, err := New().EvaluateCell(p, origin("A1"))
	require.NoError(t, err)
	require.Equal(t, NewInteger(6), result)
	require.Equal(t, map[string]CompileResult{
		"Sheet1!A1": NewInteger(6),
		"Sheet1!B1": NewInteger(3),
	}, p.recorded)
}

func TestEngineNilProvider(t *testing.T) {
	e := New()
	_, err := e.Calculate(nil, "=1", origin("A1"))
	require.True(t, errors.Is(err, ErrNilProvider))

	_, err = e.EvaluateCell(nil, origin("A1"))
	require.True(t, errors.Is(err, ErrNilProvider))
}

func TestEngineConcurrentEvaluation(t *testing.T) {
	e := New()
	p := chainProvider(50)

	var wg sync.WaitGroup
	results := make([]CompileResult, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = e.EvaluateCell(p, origin("A1"))
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		require.Equal(t, NewInteger(50), results[i])
	}
}

func TestEngineLogsStructuralFailures(t *testing.T) {
	var buf bytes.Buffer
	e := New(WithLogger(zerolog.New(&buf).Level(zerolog.DebugLevel)))
	p := newTestProvider().set("A1", "=A1")

	_, err := e.EvaluateCell(p, origin("A1"))
	require.Error(t, err)
	require.Contains(t, buf.String(), "evaluation stopped")
	require.Contains(t, buf.String(), "Sheet1!A1")

	buf.Reset()
	e.Compile("=(", "Sheet1")
	require.Contains(t, buf.String(), "formula does not parse")
}

func TestScope(t *testing.T) {
	s := NewScope(2)
	require.NoError(t, s.push(cellKey("Sheet1", 0, 0), "Sheet1!A1"))
	require.True(t, s.IsProcessing(CellAddress{Worksheet: "SHEET1", Row: 0, Column: 0}))

	err := s.push(cellKey("sheet1", 0, 0), "Sheet1!A1")
	require.True(t, errors.Is(err, ErrCircularReference))

	require.NoError(t, s.push(cellKey("Sheet1", 0, 1), "Sheet1!B1"))
	err = s.push(cellKey("Sheet1", 0, 2), "Sheet1!C1")
	require.True(t, errors.Is(err, ErrMaxDepth))
	require.Equal(t, 2, s.Depth())

	s.pop(cellKey("Sheet1", 0, 1))
	s.pop(cellKey("Sheet1", 0, 0))
	require.Equal(t, 0, s.Depth())
	require.False(t, s.IsProcessing(CellAddress{Worksheet: "Sheet1", Row: 0, Column: 0}))

	require.Equal(t, DefaultMaxDepth, NewScope(0).maxDepth)
}
