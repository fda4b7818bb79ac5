// Package timezone resolves IANA zone names and formats calendar times.
//
// The zone database is embedded so zone names resolve the same way on hosts
// without /usr/share/zoneinfo.
package timezone

import (
	"fmt"
	"time"

	// Embedded IANA zone database.
	_ "time/tzdata"
)

// UTC is the coordinated universal time timezone
var UTC = time.UTC

// TimezoneUTC is the UTC timezone identifier
const TimezoneUTC = "UTC"

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == TimezoneUTC {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// StartOfDay returns local midnight of t's day in tz.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// ParseDate parses "2006-01-02" as local midnight in tz.
func ParseDate(s string, tz *time.Location) (time.Time, error) {
	if tz == nil {
		tz = UTC
	}
	t, err := time.ParseInLocation("2006-01-02", s, tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// ParseDateTime accepts RFC 3339, "2006-01-02 15:04" or "2006-01-02".
// Inputs without an offset are read in tz.
func ParseDateTime(s string, tz *time.Location) (time.Time, error) {
	if tz == nil {
		tz = UTC
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, tz); err == nil {
		return t, nil
	}
	if t, err := ParseDate(s, tz); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339, \"YYYY-MM-DD HH:MM\" or \"YYYY-MM-DD\"", s)
}

// FormatEventTime formats an event range for display.
// Rules:
//   - All-day event: "2006-01-02" (or "2006-01-02 - 2006-01-04" when longer
//     than a day, with the exclusive end date shown as the last day)
//   - Same day: "2006-01-02 15:04 - 16:00"
//   - Crossing days: "2006-01-02 23:00 - 2006-01-03 01:00"
func FormatEventTime(start, end time.Time, allDay bool, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	start, end = start.In(tz), end.In(tz)

	if allDay {
		last := end.AddDate(0, 0, -1)
		if !last.After(start) {
			return start.Format("2006-01-02")
		}
		return fmt.Sprintf("%s - %s", start.Format("2006-01-02"), last.Format("2006-01-02"))
	}

	if start.Year() == end.Year() && start.YearDay() == end.YearDay() {
		return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("15:04"))
	}
	return fmt.Sprintf("%s - %s", start.Format("2006-01-02 15:04"), end.Format("2006-01-02 15:04"))
}
