// Package constraint turns free slots into candidate placements that satisfy
// per-item duration, buffer, weekday, time-of-day and cutoff constraints.
package constraint

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/freetime"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// preferredHourTolerance is how far (in hours) a slot start may sit from a
// preferred time of day and still match it.
const preferredHourTolerance = 1

// Constraints are the per-item placement rules.
type Constraints struct {
	MinDurationMinutes int  `json:"min_duration_minutes" yaml:"min_duration_minutes"`
	MaxDurationMinutes *int `json:"max_duration_minutes,omitempty" yaml:"max_duration_minutes,omitempty"`
	BufferMinutes      int  `json:"buffer_minutes" yaml:"buffer_minutes"`
	// DaysOfWeek uses 0=Monday .. 6=Sunday.
	DaysOfWeek []int `json:"days_of_week,omitempty" yaml:"days_of_week,omitempty"`
	// PreferredTimesOfDay holds "HH:MM" entries.
	PreferredTimesOfDay []string `json:"preferred_times_of_day,omitempty" yaml:"preferred_times_of_day,omitempty"`
	// PreferredWindows keeps only slots that overlap one of these local
	// time-of-day ranges.
	PreferredWindows []TimeWindow `json:"preferred_windows,omitempty" yaml:"preferred_windows,omitempty"`
	NotAfter         *time.Time   `json:"not_after,omitempty" yaml:"not_after,omitempty"`
	// Location is the zone in which weekday and hour are evaluated. Nil means UTC.
	Location *time.Location `json:"-" yaml:"-"`
}

// Validate checks the structural invariants of c.
func (c *Constraints) Validate() error {
	if c.MinDurationMinutes <= 0 {
		return schederrors.InvalidArgument("min duration must be positive").
			WithContext("min_duration_minutes", c.MinDurationMinutes)
	}
	if c.MaxDurationMinutes != nil && *c.MaxDurationMinutes < c.MinDurationMinutes {
		return schederrors.InvalidArgument("max duration must be >= min duration").
			WithContext("min_duration_minutes", c.MinDurationMinutes).
			WithContext("max_duration_minutes", *c.MaxDurationMinutes)
	}
	if c.BufferMinutes < 0 {
		return schederrors.InvalidArgument("buffer must not be negative").
			WithContext("buffer_minutes", c.BufferMinutes)
	}
	for _, d := range c.DaysOfWeek {
		if d < 0 || d > 6 {
			return schederrors.InvalidArgument(fmt.Sprintf("day of week %d out of range 0..6", d))
		}
	}
	for _, p := range c.PreferredTimesOfDay {
		if _, _, err := ParseTimeOfDay(p); err != nil {
			return err
		}
	}
	for _, w := range c.PreferredWindows {
		if err := w.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// TimeWindow is a same-day range of local wall-clock time, end exclusive.
type TimeWindow struct {
	StartHour   int `json:"start_hour" yaml:"start_hour"`
	StartMinute int `json:"start_minute,omitempty" yaml:"start_minute,omitempty"`
	EndHour     int `json:"end_hour" yaml:"end_hour"`
	EndMinute   int `json:"end_minute,omitempty" yaml:"end_minute,omitempty"`
}

// Validate checks the clock fields of w and that it ends after it starts.
func (w TimeWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 ||
		w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return schederrors.InvalidArgument(fmt.Sprintf("time window %s has an out-of-range field", w))
	}
	if w.EndHour*60+w.EndMinute <= w.StartHour*60+w.StartMinute {
		return schederrors.InvalidArgument(fmt.Sprintf("time window %s must end after it starts", w))
	}
	return nil
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.StartHour, w.StartMinute, w.EndHour, w.EndMinute)
}

// on returns w placed on the local calendar day of day.
func (w TimeWindow) on(day time.Time, loc *time.Location) interval.Interval {
	y, m, d := day.In(loc).Date()
	return interval.Interval{
		Start: time.Date(y, m, d, w.StartHour, w.StartMinute, 0, 0, loc),
		End:   time.Date(y, m, d, w.EndHour, w.EndMinute, 0, 0, loc),
	}
}

// WithMax returns a copy of c with MaxDurationMinutes set.
func (c Constraints) WithMax(minutes int) Constraints {
	c.MaxDurationMinutes = &minutes
	return c
}

func (c *Constraints) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, schederrors.InvalidArgument(fmt.Sprintf("time of day %q is not HH:MM", s))
	}
	hour, herr := strconv.Atoi(parts[0])
	minute, merr := strconv.Atoi(parts[1])
	if herr != nil || merr != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, schederrors.InvalidArgument(fmt.Sprintf("time of day %q is not HH:MM", s))
	}
	return hour, minute, nil
}

// MondayIndex converts a time.Weekday into the 0=Monday numbering used by
// Constraints.DaysOfWeek.
func MondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// Candidate is a placement carved out of a free slot.
type Candidate struct {
	interval.Interval
	SlotIndex int       `json:"slot_index"`
	SlotStart time.Time `json:"slot_start"`
}

// DurationMinutes returns the candidate length in whole minutes.
func (c Candidate) DurationMinutes() int {
	return interval.DurationMinutes(c.Interval)
}

// ScheduledEvent is a placement promoted to final output.
type ScheduledEvent struct {
	interval.Interval
	DurationMinutes int       `json:"duration_minutes"`
	SlotIndex       int       `json:"slot_index"`
	SlotStart       time.Time `json:"slot_start"`
}

// Schedule promotes c to an event of the given length starting at start.
// The caller guarantees that the event lies inside c.
func (c Candidate) Schedule(start time.Time, minutes int) ScheduledEvent {
	start = start.UTC()
	return ScheduledEvent{
		Interval:        interval.Interval{Start: start, End: start.Add(time.Duration(minutes) * time.Minute)},
		DurationMinutes: minutes,
		SlotIndex:       c.SlotIndex,
		SlotStart:       c.SlotStart,
	}
}

// Rejection reasons recorded in a Report.
const (
	ReasonTooShort             = "too_short"
	ReasonWrongDay             = "wrong_day"
	ReasonOutsidePreferredTime = "outside_preferred_time"
	ReasonOutsideWindow        = "outside_preferred_window"
	ReasonPastDue              = "past_due"
)

// Report summarizes one Filter run for the decision log.
type Report struct {
	SlotsIn       int            `json:"slots_in"`
	SlotsKept     int            `json:"slots_kept"`
	Candidates    int            `json:"candidates"`
	RejectReasons map[string]int `json:"reject_reasons"`
}

// Filter rejects slots that violate c and carves the remaining ones into
// back-to-back candidates separated by the buffer.
func Filter(slots []freetime.FreeSlot, c Constraints) ([]Candidate, Report) {
	report := Report{
		SlotsIn:       len(slots),
		RejectReasons: map[string]int{},
	}

	prefHours := make([]int, 0, len(c.PreferredTimesOfDay))
	for _, p := range c.PreferredTimesOfDay {
		if h, _, err := ParseTimeOfDay(p); err == nil {
			prefHours = append(prefHours, h)
		}
	}
	allowedDays := map[int]bool{}
	for _, d := range c.DaysOfWeek {
		allowedDays[d] = true
	}
	loc := c.location()

	var candidates []Candidate
	for _, slot := range slots {
		if reason := rejectReason(slot, c, allowedDays, prefHours, loc); reason != "" {
			report.RejectReasons[reason]++
			continue
		}
		report.SlotsKept++
		candidates = append(candidates, carve(slot, c)...)
	}
	report.Candidates = len(candidates)
	return candidates, report
}

func rejectReason(slot freetime.FreeSlot, c Constraints, allowedDays map[int]bool, prefHours []int, loc *time.Location) string {
	if slot.DurationMinutes() < c.MinDurationMinutes {
		return ReasonTooShort
	}
	local := slot.Start.In(loc)
	if len(allowedDays) > 0 && !allowedDays[MondayIndex(local.Weekday())] {
		return ReasonWrongDay
	}
	if len(prefHours) > 0 && !matchesPreferredHour(local.Hour(), prefHours) {
		return ReasonOutsidePreferredTime
	}
	if len(c.PreferredWindows) > 0 && !overlapsWindow(slot.Interval, c.PreferredWindows, loc) {
		return ReasonOutsideWindow
	}
	if c.NotAfter != nil && !slot.Start.Before(*c.NotAfter) {
		return ReasonPastDue
	}
	return ""
}

// matchesPreferredHour compares hours on a 24h circle, so 23:00 and 00:00
// are one hour apart.
func matchesPreferredHour(hour int, prefHours []int) bool {
	for _, p := range prefHours {
		diff := hour - p
		if diff < 0 {
			diff = -diff
		}
		if diff > 12 {
			diff = 24 - diff
		}
		if diff <= preferredHourTolerance {
			return true
		}
	}
	return false
}

// overlapsWindow reports whether slot overlaps any window on any local day
// the slot touches.
func overlapsWindow(slot interval.Interval, windows []TimeWindow, loc *time.Location) bool {
	last := slot.End.Add(-time.Nanosecond).In(loc)
	ly, lm, ld := last.Date()
	lastDay := time.Date(ly, lm, ld, 0, 0, 0, 0, loc)
	for day := slot.Start.In(loc); !day.After(lastDay.Add(24*time.Hour - time.Nanosecond)); day = day.AddDate(0, 0, 1) {
		for _, w := range windows {
			if interval.Overlaps(slot, w.on(day, loc)) {
				return true
			}
		}
	}
	return false
}

func carve(slot freetime.FreeSlot, c Constraints) []Candidate {
	var out []Candidate
	minDur := time.Duration(c.MinDurationMinutes) * time.Minute
	buffer := time.Duration(c.BufferMinutes) * time.Minute

	cursor := slot.Start
	for slot.End.Sub(cursor) >= minDur {
		remaining := slot.End.Sub(cursor)
		chunk := remaining
		if c.MaxDurationMinutes != nil {
			if maxDur := time.Duration(*c.MaxDurationMinutes) * time.Minute; maxDur < chunk {
				chunk = maxDur
			}
		}
		// Whole minutes only; a fractional tail is left unused.
		chunk = chunk.Truncate(time.Minute)
		if chunk < minDur {
			break
		}
		if c.NotAfter != nil && !cursor.Before(*c.NotAfter) {
			break
		}
		out = append(out, Candidate{
			Interval:  interval.Interval{Start: cursor, End: cursor.Add(chunk)},
			SlotIndex: slot.Index,
			SlotStart: slot.Start,
		})
		cursor = cursor.Add(chunk + buffer)
	}
	return out
}
