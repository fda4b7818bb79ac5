// Package freetime computes the free slots left in a scheduling window once a
// calendar's busy periods are removed.
package freetime

import (
	"time"

	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// BusyPeriod is calendar-occupied time that cannot host a new event.
type BusyPeriod struct {
	interval.Interval
	AllDay bool   `json:"all_day"`
	Source string `json:"source,omitempty"` // provider event ID, for diagnostics
}

// FreeSlot is a maximal free interval inside the window.
type FreeSlot struct {
	interval.Interval
	Index int `json:"index"`
}

// DurationMinutes returns the slot length in whole minutes.
func (s FreeSlot) DurationMinutes() int {
	return interval.DurationMinutes(s.Interval)
}

// AllDayPeriod builds the busy period of an all-day entry running from
// startDate up to (but excluding) endDate, each taken as local midnight in loc.
// A zero endDate means a single day.
func AllDayPeriod(startDate, endDate time.Time, loc *time.Location) (BusyPeriod, error) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, loc)
	var end time.Time
	if endDate.IsZero() {
		end = start.AddDate(0, 0, 1)
	} else {
		end = time.Date(endDate.Year(), endDate.Month(), endDate.Day(), 0, 0, 0, 0, loc)
		// Providers sometimes report a one-day entry with identical dates.
		if !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}
	}
	iv, err := interval.New(start, end)
	if err != nil {
		return BusyPeriod{}, err
	}
	return BusyPeriod{Interval: iv, AllDay: true}, nil
}

type options struct {
	minGranularity time.Duration
}

// Option configures Compute.
type Option func(*options)

// WithMinGranularity drops free slots shorter than d.
func WithMinGranularity(d time.Duration) Option {
	return func(o *options) {
		o.minGranularity = d
	}
}

// Compute returns the free slots of window, sorted by start.
//
// Busy periods are clipped to the window and swept once in start order with a
// monotonic cursor, so overlapping and unsorted input is handled in
// O(n log n).
func Compute(busy []BusyPeriod, window interval.Interval, opts ...Option) []FreeSlot {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	clipped := make([]interval.Interval, 0, len(busy))
	for _, b := range busy {
		if c, ok := interval.Clip(b.Interval, window); ok {
			clipped = append(clipped, c)
		}
	}
	interval.SortByStart(clipped)

	slots := make([]FreeSlot, 0, len(clipped)+1)
	emit := func(start, end time.Time) {
		if !end.After(start) {
			return
		}
		if o.minGranularity > 0 && end.Sub(start) < o.minGranularity {
			return
		}
		slots = append(slots, FreeSlot{
			Interval: interval.Interval{Start: start, End: end},
			Index:    len(slots),
		})
	}

	cursor := window.Start
	for _, period := range clipped {
		if cursor.Before(period.Start) {
			emit(cursor, period.Start)
		}
		if period.End.After(cursor) {
			cursor = period.End
		}
	}
	if cursor.Before(window.End) {
		emit(cursor, window.End)
	}

	return slots
}

// Summary is the aggregate of a slot list used for decision logging.
type Summary struct {
	SlotCount    int `json:"slot_count"`
	TotalMinutes int `json:"total_available_minutes"`
}

// Summarize counts slots and their total free minutes.
func Summarize(slots []FreeSlot) Summary {
	s := Summary{SlotCount: len(slots)}
	for _, slot := range slots {
		s.TotalMinutes += slot.DurationMinutes()
	}
	return s
}
