// Package frequency parses recurrence frequencies (named shorthands and
// iCalendar RFC 5545 RRULE strings) and derives the spacing and default
// occurrence count the recurring selector needs.
package frequency

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
)

// Frequency is the RRULE FREQ value.
type Frequency string

const (
	Hourly  Frequency = "HOURLY"
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Named shorthands accepted by Parse.
const (
	NameDaily       = "daily"
	NameWeekdays    = "weekdays"
	NameWeekly      = "weekly"
	NameTwiceWeekly = "twice_weekly"
	NameMonthly     = "monthly"
)

// Weekday is an RRULE day code.
type Weekday string

const (
	Sunday    Weekday = "SU"
	Monday    Weekday = "MO"
	Tuesday   Weekday = "TU"
	Wednesday Weekday = "WE"
	Thursday  Weekday = "TH"
	Friday    Weekday = "FR"
	Saturday  Weekday = "SA"
)

var weekdays = map[Weekday]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

// Rule is a parsed recurrence.
type Rule struct {
	// Name is the shorthand the rule was parsed from, empty for RRULE input.
	Name       string
	Frequency  Frequency // FREQ
	Interval   int       // INTERVAL (default 1)
	Count      int       // COUNT
	Until      time.Time // UNTIL
	ByDay      []Weekday // BYDAY
	ByMonthDay []int     // BYMONTHDAY
	ByHour     []int     // BYHOUR
	// PerPeriod is how many occurrences fall in one FREQ period when BYDAY
	// does not pin them. twice_weekly is WEEKLY with PerPeriod 2.
	PerPeriod int
}

// Parse accepts either a named shorthand ("daily", "weekly", "twice_weekly",
// "weekdays", "monthly") or an RRULE such as "FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=10".
// An optional "RRULE:" prefix is ignored.
func Parse(s string) (*Rule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, schederrors.InvalidArgument("frequency is required")
	}
	if rule, ok := shorthand(strings.ToLower(s)); ok {
		return rule, nil
	}
	return parseRRule(strings.TrimPrefix(s, "RRULE:"))
}

func shorthand(name string) (*Rule, bool) {
	switch name {
	case NameDaily:
		return &Rule{Name: name, Frequency: Daily, Interval: 1, PerPeriod: 1}, true
	case NameWeekdays:
		return &Rule{
			Name:      name,
			Frequency: Daily,
			Interval:  1,
			PerPeriod: 1,
			ByDay:     []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday},
		}, true
	case NameWeekly:
		return &Rule{Name: name, Frequency: Weekly, Interval: 1, PerPeriod: 1}, true
	case NameTwiceWeekly:
		return &Rule{Name: name, Frequency: Weekly, Interval: 1, PerPeriod: 2}, true
	case NameMonthly:
		return &Rule{Name: name, Frequency: Monthly, Interval: 1, PerPeriod: 1}, true
	}
	return nil, false
}

func parseRRule(rrule string) (*Rule, error) {
	rule := &Rule{Interval: 1, PerPeriod: 1}

	for _, part := range strings.Split(rrule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(kv[0]))
		value := strings.TrimSpace(kv[1])

		var err error
		switch key {
		case "FREQ":
			rule.Frequency = Frequency(strings.ToUpper(value))
		case "INTERVAL":
			rule.Interval, err = strconv.Atoi(value)
		case "COUNT":
			rule.Count, err = strconv.Atoi(value)
		case "UNTIL":
			rule.Until, err = parseUntil(value)
		case "BYDAY":
			rule.ByDay, err = parseByDay(value)
		case "BYMONTHDAY":
			rule.ByMonthDay, err = parseIntList(value)
		case "BYHOUR":
			rule.ByHour, err = parseIntList(value)
		}
		if err != nil {
			return nil, schederrors.InvalidArgument(fmt.Sprintf("invalid %s in RRULE %q", key, rrule)).
				WithContext("cause", err.Error())
		}
	}

	switch rule.Frequency {
	case Hourly, Daily, Weekly, Monthly, Yearly:
	case "":
		return nil, schederrors.InvalidArgument(fmt.Sprintf("missing FREQ in %q", rrule))
	default:
		return nil, schederrors.InvalidArgument(fmt.Sprintf("unsupported FREQ %q", rule.Frequency))
	}
	if rule.Interval < 1 {
		rule.Interval = 1
	}
	if rule.Count < 0 {
		return nil, schederrors.InvalidArgument("COUNT must not be negative")
	}
	return rule, nil
}

func parseUntil(value string) (time.Time, error) {
	// RFC 5545 allows a UTC date-time or a plain date.
	if t, err := time.Parse("20060102T150405Z", value); err == nil {
		return t, nil
	}
	return time.Parse("20060102", value)
}

func parseByDay(value string) ([]Weekday, error) {
	parts := strings.Split(value, ",")
	days := make([]Weekday, 0, len(parts))
	for _, part := range parts {
		day := Weekday(strings.ToUpper(strings.TrimSpace(part)))
		if day == "" {
			continue
		}
		if _, ok := weekdays[day]; !ok {
			return nil, fmt.Errorf("unknown day %q", day)
		}
		days = append(days, day)
	}
	return days, nil
}

func parseIntList(value string) ([]int, error) {
	parts := strings.Split(value, ",")
	nums := make([]int, 0, len(parts))
	for _, part := range parts {
		num, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		nums = append(nums, num)
	}
	return nums, nil
}

// DaysOfWeek returns BYDAY as 0=Monday .. 6=Sunday indices, the numbering
// placement constraints use.
func (r *Rule) DaysOfWeek() []int {
	if len(r.ByDay) == 0 {
		return nil
	}
	out := make([]int, 0, len(r.ByDay))
	for _, d := range r.ByDay {
		out = append(out, (int(weekdays[d])+6)%7)
	}
	return out
}

// Label is the shorthand name when there is one, otherwise the RRULE.
func (r *Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.String()
}

// String returns the RRULE representation.
func (r *Rule) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("FREQ=%s", r.Frequency))

	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}

	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}

	if !r.Until.IsZero() {
		parts = append(parts, fmt.Sprintf("UNTIL=%s", r.Until.UTC().Format("20060102T150405Z")))
	}

	if len(r.ByDay) > 0 {
		dayStrs := make([]string, len(r.ByDay))
		for i, day := range r.ByDay {
			dayStrs[i] = string(day)
		}
		parts = append(parts, fmt.Sprintf("BYDAY=%s", strings.Join(dayStrs, ",")))
	}

	if len(r.ByMonthDay) > 0 {
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%s", intListToString(r.ByMonthDay)))
	}

	if len(r.ByHour) > 0 {
		parts = append(parts, fmt.Sprintf("BYHOUR=%s", intListToString(r.ByHour)))
	}

	return strings.Join(parts, ";")
}

func intListToString(nums []int) string {
	strs := make([]string, len(nums))
	for i, num := range nums {
		strs[i] = strconv.Itoa(num)
	}
	return strings.Join(strs, ",")
}
