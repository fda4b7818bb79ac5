package selector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/frequency"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func cand(index int, start time.Time, minutes int) constraint.Candidate {
	return constraint.Candidate{
		Interval:  interval.MustNew(start, start.Add(time.Duration(minutes)*time.Minute)),
		SlotIndex: index,
		SlotStart: start,
	}
}

func spacing(t *testing.T, name string) frequency.Spacing {
	t.Helper()
	r, err := frequency.Parse(name)
	require.NoError(t, err)
	return r.Spacing(nil)
}

func TestSelectRecurring_Daily(t *testing.T) {
	var candidates []constraint.Candidate
	for d := 0; d < 7; d++ {
		candidates = append(candidates, cand(2*d, at(d, 9, 0), 60), cand(2*d+1, at(d, 15, 0), 60))
	}

	sel := SelectRecurring(candidates, RecurringRequest{
		TargetCount:        7,
		MinDurationMinutes: 30,
		BufferMinutes:      10,
		Spacing:            spacing(t, "daily"),
	})

	require.Len(t, sel.Events, 7)
	assert.Zero(t, sel.Unmet)
	for i := 1; i < len(sel.Events); i++ {
		assert.GreaterOrEqual(t, sel.Events[i].Start.Sub(sel.Events[i-1].Start), 20*time.Hour)
	}
}

func TestSelectRecurring_DailyIsStrict(t *testing.T) {
	candidates := []constraint.Candidate{
		cand(0, at(0, 9, 0), 60),
		cand(1, at(0, 12, 0), 60),
		cand(2, at(0, 15, 0), 60),
	}

	sel := SelectRecurring(candidates, RecurringRequest{
		TargetCount:        3,
		MinDurationMinutes: 30,
		Spacing:            spacing(t, "daily"),
	})

	require.Len(t, sel.Events, 1)
	assert.Equal(t, 2, sel.Unmet)
	assert.Zero(t, sel.Relaxed)
}

func TestSelectRecurring_WeeklyPrefersDistinctWeeks(t *testing.T) {
	candidates := []constraint.Candidate{
		cand(0, at(0, 9, 0), 60),
		cand(1, at(1, 9, 0), 60),
		cand(2, at(7, 9, 0), 60),
	}

	sel := SelectRecurring(candidates, RecurringRequest{
		TargetCount:        2,
		MinDurationMinutes: 30,
		Spacing:            spacing(t, "weekly"),
	})

	require.Len(t, sel.Events, 2)
	assert.Equal(t, at(0, 9, 0), sel.Events[0].Start)
	assert.Equal(t, at(7, 9, 0), sel.Events[1].Start)
	assert.Zero(t, sel.Relaxed)
}

func TestSelectRecurring_WeeklyRelaxesWhenNeeded(t *testing.T) {
	candidates := []constraint.Candidate{
		cand(0, at(0, 9, 0), 60),
		cand(1, at(0, 11, 0), 60),
		cand(2, at(2, 9, 0), 60),
	}

	sel := SelectRecurring(candidates, RecurringRequest{
		TargetCount:        2,
		MinDurationMinutes: 30,
		Spacing:            spacing(t, "weekly"),
	})

	require.Len(t, sel.Events, 2)
	assert.Equal(t, 1, sel.Relaxed)
	assert.Equal(t, at(0, 9, 0), sel.Events[0].Start)
	assert.Equal(t, at(2, 9, 0), sel.Events[1].Start, "relaxed pass still keeps one per day")
}

func TestSelectRecurring_TwiceWeekly(t *testing.T) {
	candidates := []constraint.Candidate{
		cand(0, at(0, 9, 0), 60),
		cand(1, at(1, 9, 0), 60),
		cand(2, at(2, 10, 0), 60),
		cand(3, at(3, 9, 0), 60),
	}

	sel := SelectRecurring(candidates, RecurringRequest{
		TargetCount:        2,
		MinDurationMinutes: 30,
		Spacing:            spacing(t, "twice_weekly"),
	})

	require.Len(t, sel.Events, 2)
	assert.Equal(t, at(0, 9, 0), sel.Events[0].Start)
	assert.Equal(t, at(2, 10, 0), sel.Events[1].Start)
}

func TestSelectRecurring_BufferAndMinDuration(t *testing.T) {
	candidates := []constraint.Candidate{
		cand(0, at(0, 9, 0), 30),
		cand(1, at(0, 9, 35), 30), // 5 minutes after the first
		cand(2, at(0, 10, 0), 30),
		cand(3, at(0, 11, 0), 20), // too short
	}

	sel := SelectRecurring(candidates, RecurringRequest{
		TargetCount:        4,
		MinDurationMinutes: 30,
		BufferMinutes:      15,
	})

	require.Len(t, sel.Events, 2)
	assert.Equal(t, 0, sel.Events[0].SlotIndex)
	assert.Equal(t, 2, sel.Events[1].SlotIndex)
	assert.Equal(t, 2, sel.Unmet)
	for i := 1; i < len(sel.Events); i++ {
		assert.GreaterOrEqual(t, interval.GapMinutes(sel.Events[i-1].End, sel.Events[i].Start), 15)
	}
}

func TestSelectRecurring_ZeroTarget(t *testing.T) {
	sel := SelectRecurring([]constraint.Candidate{cand(0, at(0, 9, 0), 60)}, RecurringRequest{})
	assert.Empty(t, sel.Events)
	assert.Zero(t, sel.Unmet)
}

func TestKeepsBuffer(t *testing.T) {
	chosen := []constraint.ScheduledEvent{cand(0, at(0, 10, 0), 60).Schedule(at(0, 10, 0), 60)}

	assert.True(t, keepsBuffer(chosen, interval.MustNew(at(0, 8, 0), at(0, 9, 45)), 15))
	assert.False(t, keepsBuffer(chosen, interval.MustNew(at(0, 8, 0), at(0, 9, 50)), 15))
	assert.True(t, keepsBuffer(chosen, interval.MustNew(at(0, 11, 15), at(0, 12, 0)), 15))
	assert.False(t, keepsBuffer(chosen, interval.MustNew(at(0, 10, 30), at(0, 12, 0)), 0))
}
