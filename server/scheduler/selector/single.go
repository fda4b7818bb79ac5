package selector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/slotweaver/plugin/ai/timeout"
	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
)

// Fallback reasons reported in Selection.FallbackReason.
const (
	FallbackNoRanker        = "no_ranker"
	FallbackRankerError     = "ranker_error"
	FallbackRankerTimeout   = "ranker_timeout"
	FallbackInvalidProposal = "invalid_proposal"
)

// Selector picks one placement for a one-off item. Ranker is optional; the
// earliest-fit fallback always runs when it is absent or unusable.
type Selector struct {
	Ranker Ranker
	// MaxCorrection bounds how far a proposed start is clamped to fit its
	// candidate. Zero means timeout.MaxCorrection.
	MaxCorrection time.Duration
	// RankTimeout bounds one Rank call. Zero means timeout.RankingTimeout.
	RankTimeout time.Duration
}

// NewSelector creates a selector with default limits.
func NewSelector(ranker Ranker) *Selector {
	return &Selector{
		Ranker:        ranker,
		MaxCorrection: timeout.MaxCorrection,
		RankTimeout:   timeout.RankingTimeout,
	}
}

// Selection is the placement chosen for a one-off item.
type Selection struct {
	Event constraint.ScheduledEvent `json:"event"`
	// CandidateIndex is the position of the chosen candidate in the input.
	CandidateIndex int `json:"candidate_index"`
	// Ranked is true when the ranker's proposal was used.
	Ranked bool `json:"ranked"`
	// Correction is the signed shift applied to the proposed start.
	Correction     time.Duration `json:"correction,omitempty"`
	Rationale      string        `json:"rationale,omitempty"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	// ProposalError explains why a proposal was rejected.
	ProposalError string `json:"proposal_error,omitempty"`
}

// SelectSingle returns exactly one placement of req.RequiredMinutes. The
// ranker's proposal is used when it validates; otherwise the earliest
// candidate long enough for the requirement is used from its start.
// A NO_SLOTS_AVAILABLE error is returned only when no candidate fits.
func (s *Selector) SelectSingle(ctx context.Context, candidates []constraint.Candidate, req Requirement) (*Selection, error) {
	if req.RequiredMinutes <= 0 {
		return nil, schederrors.InvalidArgument("required duration must be positive").
			WithContext("required_minutes", req.RequiredMinutes)
	}
	fallbackIdx := earliestFit(candidates, req.RequiredMinutes)
	if fallbackIdx < 0 {
		return nil, schederrors.NoSlotsAvailable(
			fmt.Sprintf("no candidate can hold %d minutes", req.RequiredMinutes))
	}

	reason := FallbackNoRanker
	var proposalErr error
	if s.Ranker != nil {
		proposal, err := s.rank(ctx, candidates, req)
		switch {
		case err != nil && schederrors.IsCode(err, schederrors.ErrCodeTimeout):
			reason = FallbackRankerTimeout
			proposalErr = err
		case err != nil && schederrors.IsCode(err, schederrors.ErrCodeInvalidRankingProposal):
			reason = FallbackInvalidProposal
			proposalErr = err
		case err != nil:
			reason = FallbackRankerError
			proposalErr = err
		default:
			start, correction, verr := s.validate(proposal, candidates, req.RequiredMinutes)
			if verr == nil {
				c := candidates[proposal.Index]
				return &Selection{
					Event:          c.Schedule(start, req.RequiredMinutes),
					CandidateIndex: proposal.Index,
					Ranked:         true,
					Correction:     correction,
					Rationale:      proposal.Rationale,
				}, nil
			}
			reason = FallbackInvalidProposal
			proposalErr = verr
		}
		slog.Warn("ranking proposal unusable, using earliest fit",
			"reason", reason,
			"code", schederrors.GetCodeFromError(proposalErr, schederrors.ErrCodeInvalidRankingProposal),
			"error", proposalErr)
	}

	c := candidates[fallbackIdx]
	sel := &Selection{
		Event:          c.Schedule(c.Start, req.RequiredMinutes),
		CandidateIndex: fallbackIdx,
		FallbackReason: reason,
	}
	if proposalErr != nil {
		sel.ProposalError = proposalErr.Error()
	}
	return sel, nil
}

// rank calls the ranker under RankTimeout. A ranker that ignores its
// context is abandoned when the deadline passes.
func (s *Selector) rank(ctx context.Context, candidates []constraint.Candidate, req Requirement) (*Proposal, error) {
	d := s.RankTimeout
	if d <= 0 {
		d = timeout.RankingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		p   *Proposal
		err error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := s.Ranker.Rank(ctx, candidates, req)
		ch <- result{p, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			if ctx.Err() != nil {
				return nil, schederrors.Timeout("ranker")
			}
			if schederrors.IsCode(r.err, schederrors.ErrCodeInvalidRankingProposal) {
				return nil, r.err
			}
			return nil, schederrors.RankerUnavailable("ranker failed", r.err)
		}
		return r.p, nil
	case <-ctx.Done():
		return nil, schederrors.Timeout("ranker")
	}
}

// validate checks a proposal against its candidate and clamps a start that
// is off by at most MaxCorrection. It returns the usable start and the
// signed correction applied.
func (s *Selector) validate(p *Proposal, candidates []constraint.Candidate, requiredMinutes int) (time.Time, time.Duration, error) {
	if p == nil {
		return time.Time{}, 0, schederrors.InvalidRankingProposal("empty proposal")
	}
	if p.Index < 0 || p.Index >= len(candidates) {
		return time.Time{}, 0, schederrors.InvalidRankingProposal(
			fmt.Sprintf("index %d out of range [0, %d)", p.Index, len(candidates)))
	}
	c := candidates[p.Index]
	need := time.Duration(requiredMinutes) * time.Minute
	if need > c.Duration() {
		return time.Time{}, 0, schederrors.InvalidRankingProposal(
			fmt.Sprintf("candidate %d holds %d minutes, %d required", p.Index, c.DurationMinutes(), requiredMinutes))
	}

	maxCorrection := s.MaxCorrection
	if maxCorrection <= 0 {
		maxCorrection = timeout.MaxCorrection
	}

	start := c.Start
	if p.Offset != nil {
		start = c.Start.Add(*p.Offset)
	}
	proposed := start

	if under := c.Start.Sub(start); under > 0 {
		if under > maxCorrection {
			return time.Time{}, 0, schederrors.InvalidRankingProposal(
				fmt.Sprintf("start is %s before candidate %d", under, p.Index))
		}
		start = c.Start
	}
	if over := start.Add(need).Sub(c.End); over > 0 {
		if over > maxCorrection {
			return time.Time{}, 0, schederrors.InvalidRankingProposal(
				fmt.Sprintf("end is %s past candidate %d", over, p.Index))
		}
		start = start.Add(-over)
	}
	return start, start.Sub(proposed), nil
}

// earliestFit returns the index of the earliest-starting candidate that
// can hold requiredMinutes, or -1.
func earliestFit(candidates []constraint.Candidate, requiredMinutes int) int {
	best := -1
	for i, c := range candidates {
		if c.DurationMinutes() < requiredMinutes {
			continue
		}
		if best < 0 || c.Start.Before(candidates[best].Start) {
			best = i
		}
	}
	return best
}
