package frequency

import (
	"time"

	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// dailyGap is the minimum distance between two starts of a daily series.
// Four hours of slack lets consecutive days drift between morning and
// afternoon slots.
const dailyGap = 20 * time.Hour

// Spacing constrains how close two occurrences of a series may start.
type Spacing struct {
	// MinStartGap is the minimum distance between any two starts.
	MinStartGap time.Duration
	// Period, when set, admits at most one start per calendar period
	// (ISO week for WEEKLY, month for MONTHLY, year for YEARLY).
	Period Frequency
	// Relaxable marks spacing that may be loosened when the strict pass
	// cannot reach the target count.
	Relaxable bool
	// Location is the zone calendar periods are evaluated in. Nil means UTC.
	Location *time.Location
}

// Spacing derives the spacing rule for r.
func (r *Rule) Spacing(loc *time.Location) Spacing {
	s := Spacing{Location: loc}
	n := max(r.Interval, 1)

	switch r.Frequency {
	case Hourly:
		s.MinStartGap = time.Duration(n) * time.Hour
	case Daily:
		s.MinStartGap = time.Duration(n)*24*time.Hour - 4*time.Hour
	case Weekly:
		s.Relaxable = true
		switch {
		case len(r.ByDay) > 0:
			s.MinStartGap = dailyGap
		case r.PerPeriod > 1:
			s.MinStartGap = max(time.Duration(7/r.PerPeriod-1)*24*time.Hour, dailyGap)
		default:
			s.Period = Weekly
			if n > 1 {
				s.MinStartGap = time.Duration(n-1) * 7 * 24 * time.Hour
			}
		}
	case Monthly:
		s.Period = Monthly
		s.Relaxable = true
	case Yearly:
		s.Period = Yearly
		s.Relaxable = true
	}
	return s
}

// Admits reports whether start keeps the spacing against every already
// chosen start.
func (s Spacing) Admits(chosen []time.Time, start time.Time) bool {
	loc := s.location()
	for _, c := range chosen {
		if s.MinStartGap > 0 {
			d := start.Sub(c)
			if d < 0 {
				d = -d
			}
			if d < s.MinStartGap {
				return false
			}
		}
		if s.Period != "" && samePeriod(s.Period, c.In(loc), start.In(loc)) {
			return false
		}
	}
	return true
}

// Relaxed returns the loosened spacing used by the second fill pass: at
// most one start per day. Spacing that is not relaxable is returned as is.
func (s Spacing) Relaxed() Spacing {
	if !s.Relaxable {
		return s
	}
	gap := dailyGap
	if s.MinStartGap > 0 && s.MinStartGap < gap {
		gap = s.MinStartGap
	}
	return Spacing{MinStartGap: gap, Location: s.Location}
}

func (s Spacing) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func samePeriod(p Frequency, a, b time.Time) bool {
	switch p {
	case Weekly:
		ay, aw := a.ISOWeek()
		by, bw := b.ISOWeek()
		return ay == by && aw == bw
	case Monthly:
		return a.Year() == b.Year() && a.Month() == b.Month()
	case Yearly:
		return a.Year() == b.Year()
	}
	return false
}

// TargetCount is the number of occurrences r asks for inside window: COUNT
// when set, otherwise one per matching BYDAY day, otherwise one per
// period times PerPeriod.
func (r *Rule) TargetCount(window interval.Interval, loc *time.Location) int {
	if r.Count > 0 {
		return r.Count
	}
	if len(r.ByDay) > 0 {
		return len(r.matchingDays(window, loc))
	}
	return len(r.PeriodStarts(window, loc)) * max(r.PerPeriod, 1)
}

// PeriodStarts steps through window one FREQ*INTERVAL period at a time from
// window.Start and returns each period start before window.End (and not
// after UNTIL).
func (r *Rule) PeriodStarts(window interval.Interval, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	n := max(r.Interval, 1)

	var out []time.Time
	for cur := window.Start.In(loc); cur.Before(window.End); cur = r.step(cur, n) {
		if !r.Until.IsZero() && cur.After(r.Until) {
			break
		}
		out = append(out, cur)
	}
	return out
}

func (r *Rule) step(t time.Time, n int) time.Time {
	switch r.Frequency {
	case Hourly:
		return t.Add(time.Duration(n) * time.Hour)
	case Weekly:
		return t.AddDate(0, 0, 7*n)
	case Monthly:
		return t.AddDate(0, n, 0)
	case Yearly:
		return t.AddDate(n, 0, 0)
	default:
		return t.AddDate(0, 0, n)
	}
}

// matchingDays returns the local days overlapping window whose weekday is
// in BYDAY. For WEEKLY with INTERVAL > 1 only every n-th week counts.
func (r *Rule) matchingDays(window interval.Interval, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.UTC
	}
	allowed := map[time.Weekday]bool{}
	for _, d := range r.ByDay {
		allowed[weekdays[d]] = true
	}
	n := max(r.Interval, 1)

	first := window.Start.In(loc)
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, loc)
	firstYear, firstWeek := day.ISOWeek()
	weekIndex := 0
	lastYear, lastWeek := firstYear, firstWeek

	var out []time.Time
	for ; day.Before(window.End); day = day.AddDate(0, 0, 1) {
		if y, w := day.ISOWeek(); y != lastYear || w != lastWeek {
			weekIndex++
			lastYear, lastWeek = y, w
		}
		if !r.Until.IsZero() && day.After(r.Until) {
			break
		}
		if !allowed[day.Weekday()] {
			continue
		}
		if r.Frequency == Weekly && weekIndex%n != 0 {
			continue
		}
		out = append(out, day)
	}
	return out
}
