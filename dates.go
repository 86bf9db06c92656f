package formula

import (
	"math"
	"strings"
	"time"
)

const (
	secondsPerDay = 86400

	// serial 60 is the fictitious 1900-02-29 kept for Lotus compatibility.
	// serials below it sit one day off the epoch arithmetic.
	leapBugSerial = 61
)

// excelEpoch is day zero of the 1900 date system as used for serials from
// 1900-03-01 onwards
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04 PM",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
	"2 Jan 2006",
	"2 January 2006",
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04:05 PM",
	"3:04PM",
}

// TimeToSerial converts a wall-clock time to a date serial
func TimeToSerial(t time.Time) float64 {
	wall := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	days := float64(wall.Unix()-excelEpoch.Unix()) / secondsPerDay
	days += float64(wall.Nanosecond()) / (secondsPerDay * 1e9)
	if days < leapBugSerial {
		days--
	}
	return days
}

// SerialToTime converts a date serial to a UTC time, rounded to the
// millisecond
func SerialToTime(serial float64) time.Time {
	if serial < leapBugSerial {
		serial++
	}
	days := math.Floor(serial)
	ms := math.Round((serial - days) * secondsPerDay * 1000)
	return excelEpoch.AddDate(0, 0, int(days)).Add(time.Duration(ms) * time.Millisecond)
}

// ParseDate recognizes common date and time text and returns its serial.
// time-only text yields the fraction of a day.
func ParseDate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeToSerial(t), true
		}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			seconds := t.Hour()*3600 + t.Minute()*60 + t.Second()
			return float64(seconds) / secondsPerDay, true
		}
	}
	return 0, false
}
