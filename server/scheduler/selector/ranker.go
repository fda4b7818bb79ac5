// Package selector picks final placements from candidates: a spaced set of
// occurrences for recurring items, or one placement for a one-off item.
package selector

import (
	"context"
	"time"

	"github.com/hrygo/slotweaver/server/scheduler/constraint"
)

// Requirement describes the item being placed. Rankers use it to score
// candidates; the selector only reads RequiredMinutes.
type Requirement struct {
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Priority        string            `json:"priority,omitempty"`
	DueDate         *time.Time        `json:"due_date,omitempty"`
	RequiredMinutes int               `json:"required_minutes"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	// Location is the zone rankers should read local hours in. Nil means UTC.
	Location *time.Location `json:"-"`
}

// Proposal is a ranker's pick. Offset, when set, is the proposed start
// relative to the candidate start.
type Proposal struct {
	Index     int            `json:"index"`
	Offset    *time.Duration `json:"offset,omitempty"`
	Rationale string         `json:"rationale,omitempty"`
}

// Ranker proposes one candidate for a one-off item. Proposals are untrusted
// and always validated against candidate bounds.
type Ranker interface {
	Rank(ctx context.Context, candidates []constraint.Candidate, req Requirement) (*Proposal, error)
}

// RankerFunc adapts a function to Ranker.
type RankerFunc func(ctx context.Context, candidates []constraint.Candidate, req Requirement) (*Proposal, error)

// Rank calls f.
func (f RankerFunc) Rank(ctx context.Context, candidates []constraint.Candidate, req Requirement) (*Proposal, error) {
	return f(ctx, candidates, req)
}
