package formula

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToNumber(t *testing.T) {
	testCases := []struct {
		name     string
		value    CompileResult
		expected float64
		ok       bool
	}{
		{"empty", Empty(), 0, true},
		{"integer", NewInteger(7), 7, true},
		{"decimal", NewDecimal(2.5), 2.5, true},
		{"true", NewBoolean(true), 1, true},
		{"false", NewBoolean(false), 0, true},
		{"numeric text", NewString(" 12.5 "), 12.5, true},
		{"signed exponent text", NewString("-1e3"), -1000, true},
		{"percent text", NewString("50%"), 0.5, true},
		{"date text", NewString("2023-03-15"), 45000, true},
		{"time text", NewString("12:00"), 0.5, true},
		{"plain text", NewString("abc"), 0, false},
		{"empty text", NewString(""), 0, false},
		{"error", NewErrorResult(ErrorCodeNA), 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n, ok := ToNumber(tc.value)
			require.Equal(t, tc.ok, ok)
			require.InDelta(t, tc.expected, n, 1e-9)
		})
	}
}

func TestToBoolean(t *testing.T) {
	b, ok := ToBoolean(NewString("true"))
	require.True(t, ok)
	require.True(t, b)

	b, ok = ToBoolean(NewDecimal(0.0))
	require.True(t, ok)
	require.False(t, b)

	b, ok = ToBoolean(NewInteger(-3))
	require.True(t, ok)
	require.True(t, b)

	_, ok = ToBoolean(NewString("yes"))
	require.False(t, ok)

	_, ok = ToBoolean(NewErrorResult(ErrorCodeValue))
	require.False(t, ok)
}

func TestFormatNumber(t *testing.T) {
	testCases := []struct {
		value    float64
		expected string
	}{
		{0, "0"},
		{42, "42"},
		{-3.5, "-3.5"},
		{0.1 + 0.2, "0.3"},
		{1.0 / 3.0, "0.333333333333333"},
		{1e21, "1E+21"},
		{1.5e-10, "1.5E-10"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.expected, FormatNumber(tc.value))
	}
}

func TestResultText(t *testing.T) {
	require.Equal(t, "", Empty().Text())
	require.Equal(t, "12", NewInteger(12).Text())
	require.Equal(t, "FALSE", NewBoolean(false).Text())
	require.Equal(t, "#DIV/0!", NewErrorResult(ErrorCodeDiv0).Text())
	require.Equal(t, "#NAME?", NewErrorResultf(ErrorCodeName, "unknown name x").Text())
	require.Equal(t, "unknown name x", NewErrorResultf(ErrorCodeName, "unknown name x").ErrorValue().Error())
	require.Equal(t, ErrorCodeNum, NumberResult(math.Inf(1)).ErrorCode())
	require.Equal(t, ErrorCodeNum, NumberResult(math.NaN()).ErrorCode())
}

func TestParseErrorCode(t *testing.T) {
	for code, literal := range ErrorMapper {
		parsed, ok := ParseErrorCode(literal)
		require.True(t, ok)
		require.Equal(t, code, parsed)
	}
	parsed, ok := ParseErrorCode("#value!")
	require.True(t, ok)
	require.Equal(t, ErrorCodeValue, parsed)

	_, ok = ParseErrorCode("#BOGUS!")
	require.False(t, ok)
}

func TestDateSerials(t *testing.T) {
	testCases := []struct {
		date   time.Time
		serial float64
	}{
		{time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), 1},
		{time.Date(1900, 2, 28, 0, 0, 0, 0, time.UTC), 59},
		{time.Date(1900, 3, 1, 0, 0, 0, 0, time.UTC), 61},
		{time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC), 45000},
		{time.Date(2023, 3, 15, 18, 0, 0, 0, time.UTC), 45000.75},
	}
	for _, tc := range testCases {
		t.Run(tc.date.Format(time.RFC3339), func(t *testing.T) {
			require.InDelta(t, tc.serial, TimeToSerial(tc.date), 1e-9)
			require.True(t, tc.date.Equal(SerialToTime(tc.serial)))
		})
	}
}

func TestParseDate(t *testing.T) {
	for _, text := range []string{"2023-03-15", "3/15/2023", "Mar 15, 2023", "15-Mar-2023", "2023/03/15"} {
		serial, ok := ParseDate(text)
		require.True(t, ok, text)
		require.Equal(t, 45000.0, serial, text)
	}
	_, ok := ParseDate("not a date")
	require.False(t, ok)
}
