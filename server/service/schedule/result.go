package schedule

import (
	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
)

// Issue is one itemized warning or error of a plan.
type Issue struct {
	Code    schederrors.ErrorCode `json:"code"`
	Message string                `json:"message"`
}

// Decision is one decision-log entry.
type Decision struct {
	Step    string         `json:"step"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// DecisionLog is an append-only trace of pipeline stages.
type DecisionLog struct {
	entries []Decision
}

// Append records one stage.
func (l *DecisionLog) Append(step, message string, details map[string]any) {
	l.entries = append(l.entries, Decision{Step: step, Message: message, Details: details})
}

// Entries returns a copy of the log.
func (l *DecisionLog) Entries() []Decision {
	out := make([]Decision, len(l.entries))
	copy(out, l.entries)
	return out
}

// Result is the outcome of one Plan call.
type Result struct {
	Status Status `json:"status"`
	// Success is true unless Status is FAILED.
	Success bool `json:"success"`
	Mode    Mode `json:"mode"`

	// Events are the placements, sorted by start.
	Events []constraint.ScheduledEvent `json:"events"`
	// Created holds the receipts of events the creator accepted.
	Created []CreatedEvent `json:"created,omitempty"`

	TotalMinutesScheduled int `json:"total_minutes_scheduled"`
	RemainingMinutes      int `json:"remaining_minutes"`
	UnmetOccurrences      int `json:"unmet_occurrences"`

	// FallbackReason is set in single mode when the ranker's proposal was
	// not used.
	FallbackReason string `json:"fallback_reason,omitempty"`
	Rationale      string `json:"rationale,omitempty"`

	Warnings    []Issue    `json:"warnings,omitempty"`
	Errors      []Issue    `json:"errors,omitempty"`
	DecisionLog []Decision `json:"decision_log"`
}

func (r *Result) warn(code schederrors.ErrorCode, msg string) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: msg})
}

func (r *Result) fail(code schederrors.ErrorCode, msg string) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: msg})
}
