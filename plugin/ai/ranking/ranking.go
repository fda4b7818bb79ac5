// Package ranking provides the pluggable rankers used for one-off
// placements: a CEL rule scorer, an OpenAI-compatible LLM ranker and a
// rate-limited wrapper.
package ranking

import (
	"time"

	"github.com/hrygo/slotweaver/plugin/ai"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
)

// New builds the ranker selected by cfg. It returns nil when ranking is
// disabled, in which case the selector always uses its fallback.
func New(cfg *ai.Config) (selector.Ranker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Kind {
	case ai.RankerRules:
		rule := cfg.Rule
		if rule == "" {
			rule = DefaultRule
		}
		r, err := NewRuleRanker(rule)
		if err != nil {
			return nil, err
		}
		return r, nil
	case ai.RankerLLM:
		limiter := NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		return NewLimitedRanker(NewLLMRanker(cfg.LLM), limiter), nil
	}
	return nil, nil
}

// features are the per-candidate facts exposed to rankers.
type features struct {
	Index            int    `json:"index"`
	SlotIndex        int    `json:"slot_index"`
	Start            string `json:"start"`
	End              string `json:"end"`
	StartHour        int    `json:"-"`
	StartMinute      int    `json:"-"`
	Weekday          int    `json:"-"` // 0=Monday
	DurationMinutes  int    `json:"duration_minutes"`
	MinutesFromFirst int    `json:"-"`
}

func extract(candidates []constraint.Candidate, loc *time.Location) []features {
	if loc == nil {
		loc = time.UTC
	}
	var first time.Time
	for i, c := range candidates {
		if i == 0 || c.Start.Before(first) {
			first = c.Start
		}
	}

	out := make([]features, len(candidates))
	for i, c := range candidates {
		local := c.Start.In(loc)
		out[i] = features{
			Index:            i,
			SlotIndex:        c.SlotIndex,
			Start:            local.Format(time.RFC3339),
			End:              c.End.In(loc).Format(time.RFC3339),
			StartHour:        local.Hour(),
			StartMinute:      local.Minute(),
			Weekday:          constraint.MondayIndex(local.Weekday()),
			DurationMinutes:  c.DurationMinutes(),
			MinutesFromFirst: int(c.Start.Sub(first) / time.Minute),
		}
	}
	return out
}

// minutesToDue returns the minutes from start to the due date, or -1.
func minutesToDue(req selector.Requirement, start time.Time) int {
	if req.DueDate == nil {
		return -1
	}
	return int(req.DueDate.Sub(start) / time.Minute)
}
