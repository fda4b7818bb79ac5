package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/slotweaver/plugin/ai"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/interval"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func cand(index int, start time.Time, minutes int) constraint.Candidate {
	return constraint.Candidate{
		Interval:  interval.MustNew(start, start.Add(time.Duration(minutes)*time.Minute)),
		SlotIndex: index,
		SlotStart: start,
	}
}

func testCandidates() []constraint.Candidate {
	return []constraint.Candidate{
		cand(0, monday.Add(7*time.Hour), 60),              // Mon 07:00
		cand(1, monday.Add(10*time.Hour), 90),             // Mon 10:00
		cand(2, monday.Add(24*time.Hour+9*time.Hour), 60), // Tue 09:00
	}
}

func TestNew(t *testing.T) {
	r, err := New(&ai.Config{Kind: ai.RankerNone})
	require.NoError(t, err)
	assert.Nil(t, r)

	r, err = New(&ai.Config{Kind: ai.RankerRules})
	require.NoError(t, err)
	assert.IsType(t, &RuleRanker{}, r)

	r, err = New(&ai.Config{
		Kind:      ai.RankerLLM,
		RateLimit: 2,
		RateBurst: 1,
		LLM:       ai.LLMConfig{Provider: "openai", APIKey: "k", BaseURL: "http://localhost"},
	})
	require.NoError(t, err)
	assert.IsType(t, &LimitedRanker{}, r)

	_, err = New(&ai.Config{Kind: ai.RankerLLM})
	assert.Error(t, err)

	_, err = New(&ai.Config{Kind: ai.RankerRules, Rule: "start_hour +"})
	assert.Error(t, err)
}

func TestExtract(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	fs := extract(testCandidates(), loc)
	require.Len(t, fs, 3)

	assert.Equal(t, 15, fs[0].StartHour)
	assert.Equal(t, 0, fs[0].Weekday)
	assert.Equal(t, 0, fs[0].MinutesFromFirst)
	assert.Equal(t, 180, fs[1].MinutesFromFirst)
	assert.Equal(t, 90, fs[1].DurationMinutes)
	assert.Equal(t, "2026-03-02T18:00:00+08:00", fs[1].Start)
	assert.Equal(t, 1, fs[2].Weekday)
}
