// Package interval provides half-open time interval arithmetic used by every
// scheduling stage.
package interval

import (
	"fmt"
	"sort"
	"time"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
)

// Interval is the half-open range [Start, End). Both bounds are stored in UTC.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New creates an interval, rejecting end <= start.
func New(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, schederrors.InvalidInterval(
			fmt.Sprintf("end %s must be after start %s", end.Format(time.RFC3339), start.Format(time.RFC3339)))
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// MustNew is like New but panics on malformed input. Use it for values known
// to be valid, such as test fixtures.
func MustNew(start, end time.Time) Interval {
	iv, err := New(start, end)
	if err != nil {
		panic(err)
	}
	return iv
}

// FromDuration creates [start, start+d).
func FromDuration(start time.Time, d time.Duration) (Interval, error) {
	return New(start, start.Add(d))
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// DurationMinutes returns the length of iv in whole minutes, rounded down.
func DurationMinutes(iv Interval) int {
	return int(iv.Duration() / time.Minute)
}

// Overlaps reports whether a and b share any instant.
// Touching intervals ([9,10) and [10,11)) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Clip returns the part of a that lies inside window.
// The second return value is false when they are disjoint.
func Clip(a, window Interval) (Interval, bool) {
	if !Overlaps(a, window) {
		return Interval{}, false
	}
	start := a.Start
	if window.Start.After(start) {
		start = window.Start
	}
	end := a.End
	if window.End.Before(end) {
		end = window.End
	}
	return Interval{Start: start, End: end}, true
}

// GapBetween returns [a.End, b.Start). It is only defined when b starts
// strictly after a ends.
func GapBetween(a, b Interval) (Interval, bool) {
	if !b.Start.After(a.End) {
		return Interval{}, false
	}
	return Interval{Start: a.End, End: b.Start}, true
}

// GapMinutes returns the whole minutes from prevEnd to nextStart, or 0 when
// nextStart is not after prevEnd.
func GapMinutes(prevEnd, nextStart time.Time) int {
	if !nextStart.After(prevEnd) {
		return 0
	}
	return int(nextStart.Sub(prevEnd) / time.Minute)
}

// Contains reports whether inner lies entirely inside outer.
func Contains(outer, inner Interval) bool {
	return !inner.Start.Before(outer.Start) && !inner.End.After(outer.End)
}

// SortByStart sorts intervals by start, then by end. The sort is stable so
// equal intervals keep their input order.
func SortByStart(ivs []Interval) {
	sort.SliceStable(ivs, func(i, j int) bool {
		if ivs[i].Start.Equal(ivs[j].Start) {
			return ivs[i].End.Before(ivs[j].End)
		}
		return ivs[i].Start.Before(ivs[j].Start)
	})
}

// String formats the interval for logs.
func (iv Interval) String() string {
	return fmt.Sprintf("[%s, %s)", iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
}
