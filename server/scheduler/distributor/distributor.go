// Package distributor packs a total minutes budget into discrete events
// across candidate placements.
package distributor

import (
	"fmt"
	"sort"
	"time"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// Budget is the minutes requirement of a weekly-style plan.
type Budget struct {
	TotalMinutes       int `json:"total_minutes" yaml:"total_minutes"`
	MinDurationMinutes int `json:"min_duration_minutes" yaml:"min_duration_minutes"`
	MaxDurationMinutes int `json:"max_duration_minutes" yaml:"max_duration_minutes"`
	BufferMinutes      int `json:"buffer_minutes" yaml:"buffer_minutes"`
}

// Validate checks the budget invariants.
func (b Budget) Validate() error {
	switch {
	case b.MinDurationMinutes <= 0:
		return schederrors.InvalidArgument("min duration must be positive")
	case b.MaxDurationMinutes < b.MinDurationMinutes:
		return schederrors.InvalidArgument(
			fmt.Sprintf("max duration %d must be >= min duration %d", b.MaxDurationMinutes, b.MinDurationMinutes))
	case b.BufferMinutes < 0:
		return schederrors.InvalidArgument("buffer must not be negative")
	case b.TotalMinutes < b.MinDurationMinutes:
		return schederrors.InvalidArgument(
			fmt.Sprintf("total minutes %d must be >= min duration %d", b.TotalMinutes, b.MinDurationMinutes))
	}
	return nil
}

// OptimalEventCount returns how many events of which length the budget
// ideally splits into, favoring max-length events. A leftover shorter than
// the minimum does not get its own event. (0, 0) means not even one event
// fits.
func (b Budget) OptimalEventCount() (count, minutesPerEvent int) {
	if b.MaxDurationMinutes <= 0 {
		return 0, 0
	}
	if b.TotalMinutes <= b.MaxDurationMinutes {
		if b.TotalMinutes < b.MinDurationMinutes {
			return 0, 0
		}
		return 1, b.TotalMinutes
	}
	full := b.TotalMinutes / b.MaxDurationMinutes
	if rest := b.TotalMinutes % b.MaxDurationMinutes; rest >= b.MinDurationMinutes {
		return full + 1, b.MaxDurationMinutes
	}
	return full, b.MaxDurationMinutes
}

// Distribute walks candidates chronologically and places one event at the
// start of each usable candidate until the budget is spent. A candidate is
// skipped when it starts less than the buffer after the previous event or
// when it cannot hold the minimum duration. Candidates are never split.
//
// The second return value is the part of the budget that could not be
// placed; a positive value signals insufficient capacity, not failure.
func Distribute(candidates []constraint.Candidate, b Budget) ([]constraint.ScheduledEvent, int) {
	remaining := b.TotalMinutes
	if len(candidates) == 0 || remaining <= 0 {
		return nil, max(remaining, 0)
	}

	sorted := make([]constraint.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var (
		events  []constraint.ScheduledEvent
		lastEnd time.Time
	)
	for _, c := range sorted {
		if remaining <= 0 {
			break
		}
		if !lastEnd.IsZero() {
			if c.Start.Before(lastEnd) || interval.GapMinutes(lastEnd, c.Start) < b.BufferMinutes {
				continue
			}
		}

		duration := min(b.MaxDurationMinutes, remaining, c.DurationMinutes())
		if duration < b.MinDurationMinutes {
			continue
		}

		ev := c.Schedule(c.Start, duration)
		events = append(events, ev)
		lastEnd = ev.End
		remaining -= duration
	}

	return events, remaining
}
