package selector

import (
	"sort"
	"time"

	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/frequency"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// RecurringRequest is the occurrence requirement of a repeating item.
type RecurringRequest struct {
	TargetCount        int
	MinDurationMinutes int
	BufferMinutes      int
	Spacing            frequency.Spacing
}

// RecurringSelection is the outcome of SelectRecurring.
type RecurringSelection struct {
	Events []constraint.ScheduledEvent `json:"events"`
	// Relaxed counts events added by the relaxed second pass.
	Relaxed int `json:"relaxed"`
	// Unmet is TargetCount minus the number of selected events.
	Unmet int `json:"unmet"`
}

// SelectRecurring accepts candidates in start order while they meet the
// minimum duration, keep the buffer against every accepted event and
// satisfy the spacing rule. When the spacing is relaxable and the target is
// not reached, a second pass fills from the unused candidates under the
// relaxed spacing. Events are returned sorted by start.
func SelectRecurring(candidates []constraint.Candidate, req RecurringRequest) RecurringSelection {
	if req.TargetCount <= 0 {
		return RecurringSelection{}
	}

	sorted := make([]constraint.Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	used := make([]bool, len(sorted))
	var (
		chosen []constraint.ScheduledEvent
		starts []time.Time
	)
	pass := func(spacing frequency.Spacing) int {
		added := 0
		for i, c := range sorted {
			if len(chosen) >= req.TargetCount {
				break
			}
			if used[i] || c.DurationMinutes() < req.MinDurationMinutes {
				continue
			}
			if !keepsBuffer(chosen, c.Interval, req.BufferMinutes) || !spacing.Admits(starts, c.Start) {
				continue
			}
			used[i] = true
			chosen = append(chosen, c.Schedule(c.Start, c.DurationMinutes()))
			starts = append(starts, c.Start)
			added++
		}
		return added
	}

	pass(req.Spacing)
	sel := RecurringSelection{}
	if len(chosen) < req.TargetCount && req.Spacing.Relaxable {
		sel.Relaxed = pass(req.Spacing.Relaxed())
	}

	sort.SliceStable(chosen, func(i, j int) bool {
		return chosen[i].Start.Before(chosen[j].Start)
	})
	sel.Events = chosen
	sel.Unmet = req.TargetCount - len(chosen)
	return sel
}

// keepsBuffer reports whether iv stays at least buffer minutes away from
// every event in chosen, on either side.
func keepsBuffer(chosen []constraint.ScheduledEvent, iv interval.Interval, buffer int) bool {
	for _, ev := range chosen {
		if interval.Overlaps(ev.Interval, iv) {
			return false
		}
		if !iv.Start.Before(ev.End) && interval.GapMinutes(ev.End, iv.Start) < buffer {
			return false
		}
		if !ev.Start.Before(iv.End) && interval.GapMinutes(iv.End, ev.Start) < buffer {
			return false
		}
	}
	return true
}
