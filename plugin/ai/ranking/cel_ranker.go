package ranking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
)

// DefaultRule favors morning focus hours and, for items with a due date,
// strongly prefers earlier candidates.
const DefaultRule = `(start_hour >= 9 && start_hour < 12 ? 10.0 : 0.0) - double(minutes_from_first) / (has_due ? 60.0 : 1440.0)`

// RuleRanker scores every candidate with a CEL expression and proposes the
// highest score. Ties go to the earliest candidate.
//
// Variables: index, slot_index, start_hour, start_minute, weekday
// (0=Monday), duration_minutes, minutes_from_first, required_minutes,
// minutes_to_due (-1 without due date), has_due, priority, title.
type RuleRanker struct {
	expr string
	prg  cel.Program
}

// NewRuleRanker compiles expr. The expression must evaluate to int or double.
func NewRuleRanker(expr string) (*RuleRanker, error) {
	env, err := cel.NewEnv(
		cel.Variable("index", cel.IntType),
		cel.Variable("slot_index", cel.IntType),
		cel.Variable("start_hour", cel.IntType),
		cel.Variable("start_minute", cel.IntType),
		cel.Variable("weekday", cel.IntType),
		cel.Variable("duration_minutes", cel.IntType),
		cel.Variable("minutes_from_first", cel.IntType),
		cel.Variable("required_minutes", cel.IntType),
		cel.Variable("minutes_to_due", cel.IntType),
		cel.Variable("has_due", cel.BoolType),
		cel.Variable("priority", cel.StringType),
		cel.Variable("title", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL env: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, schederrors.InvalidArgument(fmt.Sprintf("invalid ranking rule: %v", iss.Err()))
	}
	if out := ast.OutputType(); !out.IsExactType(cel.DoubleType) && !out.IsExactType(cel.IntType) {
		return nil, schederrors.InvalidArgument(fmt.Sprintf("ranking rule must return int or double, got %s", out))
	}

	prg, err := env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("build CEL program: %w", err)
	}
	return &RuleRanker{expr: expr, prg: prg}, nil
}

// Rank implements selector.Ranker.
func (r *RuleRanker) Rank(ctx context.Context, candidates []constraint.Candidate, req selector.Requirement) (*selector.Proposal, error) {
	if len(candidates) == 0 {
		return nil, schederrors.NoSlotsAvailable("nothing to rank")
	}

	best, bestScore := -1, 0.0
	for i, f := range extract(candidates, req.Location) {
		score, err := r.score(ctx, f, candidates[i], req)
		if err != nil {
			return nil, err
		}
		if best < 0 || score > bestScore ||
			(score == bestScore && candidates[i].Start.Before(candidates[best].Start)) {
			best, bestScore = i, score
		}
	}

	slog.Debug("rule ranker picked candidate",
		"index", best,
		"score", bestScore,
		"candidates", len(candidates))

	return &selector.Proposal{
		Index:     best,
		Rationale: fmt.Sprintf("highest rule score %.2f", bestScore),
	}, nil
}

func (r *RuleRanker) score(ctx context.Context, f features, c constraint.Candidate, req selector.Requirement) (float64, error) {
	due := minutesToDue(req, c.Start)
	out, _, err := r.prg.ContextEval(ctx, map[string]any{
		"index":              f.Index,
		"slot_index":         f.SlotIndex,
		"start_hour":         f.StartHour,
		"start_minute":       f.StartMinute,
		"weekday":            f.Weekday,
		"duration_minutes":   f.DurationMinutes,
		"minutes_from_first": f.MinutesFromFirst,
		"required_minutes":   req.RequiredMinutes,
		"minutes_to_due":     due,
		"has_due":            req.DueDate != nil,
		"priority":           req.Priority,
		"title":              req.Title,
	})
	if err != nil {
		return 0, fmt.Errorf("evaluate ranking rule on candidate %d: %w", f.Index, err)
	}

	switch v := out.Value().(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	}
	return 0, fmt.Errorf("ranking rule returned %T", out.Value())
}
