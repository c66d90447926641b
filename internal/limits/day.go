package limits

import "time"

// dayKeyLayout is the calendar-day identifier format used for rollover
// detection and break-glass quota accounting.
const dayKeyLayout = "2006-01-02"

// DayKey maps a timestamp to its local calendar-day identifier
// (zero-padded YYYY-MM-DD). Two timestamps share a key iff they fall on
// the same local calendar day.
func DayKey(t time.Time) string {
	return t.Format(dayKeyLayout)
}

// ParseDayKey reports whether s is a well-formed day key in loc.
func ParseDayKey(s string, loc *time.Location) bool {
	parsed, err := time.ParseInLocation(dayKeyLayout, s, loc)
	return err == nil && parsed.Format(dayKeyLayout) == s
}

// NextLocalMidnight returns the next 00:00:00.000 local time strictly
// after t. An input that is exactly midnight advances to the following
// midnight. DST transitions are not special-cased: a local "day" may be
// 23 or 25 hours long.
func NextLocalMidnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, t.Location())
}
