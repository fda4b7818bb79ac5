package frequency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func mustParse(t *testing.T, s string) *Rule {
	t.Helper()
	r, err := Parse(s)
	require.NoError(t, err)
	return r
}

func TestSpacing_Daily(t *testing.T) {
	s := mustParse(t, "daily").Spacing(nil)
	assert.Equal(t, 20*time.Hour, s.MinStartGap)
	assert.False(t, s.Relaxable)

	chosen := []time.Time{monday.Add(9 * time.Hour)}
	assert.False(t, s.Admits(chosen, monday.Add(14*time.Hour)), "same day")
	assert.True(t, s.Admits(chosen, monday.Add(24*time.Hour+5*time.Hour)), "next morning, exactly 20h later")
	assert.False(t, s.Admits(chosen, monday.Add(24*time.Hour+4*time.Hour)))
}

func TestSpacing_WeeklyUsesISOWeek(t *testing.T) {
	s := mustParse(t, "weekly").Spacing(nil)
	assert.Equal(t, Weekly, s.Period)
	assert.True(t, s.Relaxable)

	chosen := []time.Time{monday.Add(9 * time.Hour)}
	assert.False(t, s.Admits(chosen, monday.Add(6*24*time.Hour)), "Sunday of the same ISO week")
	assert.True(t, s.Admits(chosen, monday.Add(7*24*time.Hour)), "next Monday")
}

func TestSpacing_WeeklyEvaluatesWeekInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	s := mustParse(t, "weekly").Spacing(loc)

	// Sunday 20:00 UTC is Monday 04:00 in UTC+8, a new ISO week there.
	sunday := monday.Add(6*24*time.Hour + 20*time.Hour)
	chosen := []time.Time{monday.Add(9 * time.Hour)}
	assert.True(t, s.Admits(chosen, sunday))
	assert.False(t, mustParse(t, "weekly").Spacing(nil).Admits(chosen, sunday))
}

func TestSpacing_TwiceWeekly(t *testing.T) {
	s := mustParse(t, "twice_weekly").Spacing(nil)
	assert.Equal(t, 48*time.Hour, s.MinStartGap)
	assert.True(t, s.Relaxable)

	chosen := []time.Time{monday.Add(9 * time.Hour)}
	assert.False(t, s.Admits(chosen, monday.Add(33*time.Hour)))
	assert.True(t, s.Admits(chosen, monday.Add(57*time.Hour)))
}

func TestSpacing_Relaxed(t *testing.T) {
	weekly := mustParse(t, "weekly").Spacing(nil)
	relaxed := weekly.Relaxed()
	assert.Empty(t, relaxed.Period)
	assert.Equal(t, 20*time.Hour, relaxed.MinStartGap)

	chosen := []time.Time{monday.Add(9 * time.Hour)}
	assert.True(t, relaxed.Admits(chosen, monday.Add(2*24*time.Hour)))
	assert.False(t, relaxed.Admits(chosen, monday.Add(12*time.Hour)))

	daily := mustParse(t, "daily").Spacing(nil)
	assert.Equal(t, daily, daily.Relaxed())
}

func TestTargetCount(t *testing.T) {
	week := interval.MustNew(monday, monday.AddDate(0, 0, 7))
	tenDays := interval.MustNew(monday, monday.AddDate(0, 0, 10))

	tests := []struct {
		name   string
		rule   string
		window interval.Interval
		want   int
	}{
		{"daily week", "daily", week, 7},
		{"weekly week", "weekly", week, 1},
		{"twice weekly week", "twice_weekly", week, 2},
		{"daily ten days", "daily", tenDays, 10},
		{"weekly ten days", "weekly", tenDays, 2},
		{"twice weekly ten days", "twice_weekly", tenDays, 4},
		{"weekdays", "weekdays", week, 5},
		{"byday", "FREQ=WEEKLY;BYDAY=MO,TH", tenDays, 3},
		{"count overrides", "FREQ=DAILY;COUNT=3", week, 3},
		{"until truncates", "FREQ=DAILY;UNTIL=20260304T120000Z", week, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.rule).TargetCount(tt.window, nil))
		})
	}
}

func TestPeriodStarts(t *testing.T) {
	window := interval.MustNew(monday, monday.AddDate(0, 0, 21))
	starts := mustParse(t, "FREQ=WEEKLY;INTERVAL=2").PeriodStarts(window, nil)
	require.Len(t, starts, 2)
	assert.True(t, starts[0].Equal(monday))
	assert.True(t, starts[1].Equal(monday.AddDate(0, 0, 14)))
}
