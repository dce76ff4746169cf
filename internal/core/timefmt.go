// Package core holds the time-tracking domain: the local time codec, the
// overlap guard, entities and the summary reducer. Nothing here performs I/O.
package core

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// LocalOffset is the fixed offset every external timestamp is expressed in.
const LocalOffset = 5*time.Hour + 30*time.Minute

// LocalZone renders and parses instants at LocalOffset. It is never looked up
// from the platform tz database.
var LocalZone = time.FixedZone("IST", int(LocalOffset/time.Second))

const (
	// InstantLayout is the canonical rendering, e.g. "10-02-2026 1:19 PM".
	InstantLayout = "02-01-2006 3:04 PM"
	// DateLayout is the date-only form used by range filters.
	DateLayout = "02-01-2006"

	InstantPattern = "DD-MM-YYYY H:MM AM|PM"
	DatePattern    = "DD-MM-YYYY"
)

var (
	instantRe = regexp.MustCompile(`(?i)^(\d{2})-(\d{2})-(\d{4})\s+(\d{1,2}):(\d{2})\s+(AM|PM)$`)
	dateRe    = regexp.MustCompile(`^(\d{2})-(\d{2})-(\d{4})$`)
)

// DayRange is a whole local calendar day, from 00:00:00 to 23:59:59.
type DayRange struct {
	Start time.Time
	End   time.Time
}

// ParseLocalInstant parses "DD-MM-YYYY H:MM AM|PM" at LocalOffset.
//
// The whole string must match; components out of calendar range are
// rejected rather than normalized (31-02 is an error, not 03-03).
func ParseLocalInstant(s string) (time.Time, error) {
	m := instantRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, invalidInstant(s)
	}
	day, month, year, ok := dateFields(m[1], m[2], m[3])
	if !ok {
		return time.Time{}, invalidInstant(s)
	}
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	if hour < 1 || hour > 12 || minute > 59 {
		return time.Time{}, invalidInstant(s)
	}

	switch strings.ToUpper(m[6]) {
	case "PM":
		if hour != 12 {
			hour += 12
		}
	case "AM":
		if hour == 12 {
			hour = 0
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, LocalZone).UTC(), nil
}

// FormatLocalInstant renders t at LocalOffset using InstantLayout.
func FormatLocalInstant(t time.Time) string {
	return t.In(LocalZone).Format(InstantLayout)
}

// FormatLocalDate renders the local calendar day of t as DD-MM-YYYY.
func FormatLocalDate(t time.Time) string {
	return t.In(LocalZone).Format(DateLayout)
}

// ParseLocalDateRange parses "DD-MM-YYYY" and returns the first and last
// second of that local day.
func ParseLocalDateRange(s string) (DayRange, error) {
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return DayRange{}, invalidDate(s)
	}
	day, month, year, ok := dateFields(m[1], m[2], m[3])
	if !ok {
		return DayRange{}, invalidDate(s)
	}
	return DayRange{
		Start: time.Date(year, time.Month(month), day, 0, 0, 0, 0, LocalZone).UTC(),
		End:   time.Date(year, time.Month(month), day, 23, 59, 59, 0, LocalZone).UTC(),
	}, nil
}

func dateFields(d, m, y string) (day, month, year int, ok bool) {
	day, _ = strconv.Atoi(d)
	month, _ = strconv.Atoi(m)
	year, _ = strconv.Atoi(y)
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return 0, 0, 0, false
	}
	if day > daysIn(time.Month(month), year) {
		return 0, 0, 0, false
	}
	return day, month, year, true
}

func daysIn(m time.Month, year int) int {
	// Day 0 of the next month is the last day of m.
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func invalidInstant(s string) error {
	return Errorf(KindInvalidFormat, "invalid date-time %q: use %s", s, InstantPattern)
}

func invalidDate(s string) error {
	return Errorf(KindInvalidFormat, "invalid date %q: use %s", s, DatePattern)
}
