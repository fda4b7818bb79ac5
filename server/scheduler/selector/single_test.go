package selector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
)

func propose(index int, offset *time.Duration) Ranker {
	return RankerFunc(func(context.Context, []constraint.Candidate, Requirement) (*Proposal, error) {
		return &Proposal{Index: index, Offset: offset, Rationale: "test"}, nil
	})
}

func minutes(m int) *time.Duration {
	d := time.Duration(m) * time.Minute
	return &d
}

func singleCandidates() []constraint.Candidate {
	return []constraint.Candidate{
		cand(0, at(0, 9, 0), 20), // too short for 30 minutes
		cand(1, at(0, 10, 0), 60),
		cand(2, at(1, 14, 0), 120),
	}
}

func TestSelectSingle_NoRankerUsesEarliestFit(t *testing.T) {
	sel, err := NewSelector(nil).SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)

	assert.Equal(t, 1, sel.CandidateIndex)
	assert.Equal(t, at(0, 10, 0), sel.Event.Start)
	assert.Equal(t, 30, sel.Event.DurationMinutes)
	assert.False(t, sel.Ranked)
	assert.Equal(t, FallbackNoRanker, sel.FallbackReason)
}

func TestSelectSingle_UsesValidProposal(t *testing.T) {
	s := NewSelector(propose(2, minutes(60)))
	sel, err := s.SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)

	assert.True(t, sel.Ranked)
	assert.Equal(t, 2, sel.CandidateIndex)
	assert.Equal(t, at(1, 15, 0), sel.Event.Start)
	assert.Equal(t, at(1, 15, 30), sel.Event.End)
	assert.Zero(t, sel.Correction)
	assert.Equal(t, "test", sel.Rationale)
}

func TestSelectSingle_ClampsOverflowBackward(t *testing.T) {
	// 10:35 + 30 minutes overflows the 10:00-11:00 candidate by 5 minutes.
	s := NewSelector(propose(1, minutes(35)))
	sel, err := s.SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)

	assert.True(t, sel.Ranked)
	assert.Equal(t, at(0, 10, 30), sel.Event.Start)
	assert.Equal(t, at(0, 11, 0), sel.Event.End)
	assert.Equal(t, -5*time.Minute, sel.Correction)
}

func TestSelectSingle_ClampsUnderflowForward(t *testing.T) {
	s := NewSelector(propose(1, minutes(-10)))
	sel, err := s.SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)

	assert.True(t, sel.Ranked)
	assert.Equal(t, at(0, 10, 0), sel.Event.Start)
	assert.Equal(t, 10*time.Minute, sel.Correction)
}

func TestSelectSingle_InvalidProposalsFallBack(t *testing.T) {
	tests := []struct {
		name   string
		ranker Ranker
	}{
		{"overflow beyond correction", propose(1, minutes(50))},
		{"index out of range", propose(7, nil)},
		{"negative index", propose(-1, nil)},
		{"candidate too short", propose(0, nil)},
		{"nil proposal", RankerFunc(func(context.Context, []constraint.Candidate, Requirement) (*Proposal, error) {
			return nil, nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := NewSelector(tt.ranker).SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
			require.NoError(t, err)
			assert.False(t, sel.Ranked)
			assert.Equal(t, FallbackInvalidProposal, sel.FallbackReason)
			assert.NotEmpty(t, sel.ProposalError)
			assert.Equal(t, at(0, 10, 0), sel.Event.Start)
		})
	}
}

func TestSelectSingle_RankerErrorFallsBack(t *testing.T) {
	failing := RankerFunc(func(context.Context, []constraint.Candidate, Requirement) (*Proposal, error) {
		return nil, errors.New("upstream 500")
	})
	sel, err := NewSelector(failing).SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, FallbackRankerError, sel.FallbackReason)
	assert.Equal(t, 1, sel.CandidateIndex)
}

func TestSelectSingle_MalformedRankerAnswerIsInvalidProposal(t *testing.T) {
	malformed := RankerFunc(func(context.Context, []constraint.Candidate, Requirement) (*Proposal, error) {
		return nil, schederrors.InvalidRankingProposal(`start "noon" is not RFC3339`)
	})
	sel, err := NewSelector(malformed).SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, FallbackInvalidProposal, sel.FallbackReason)
	assert.Equal(t, 1, sel.CandidateIndex)
	assert.Contains(t, sel.ProposalError, string(schederrors.ErrCodeInvalidRankingProposal))
	assert.NotContains(t, sel.ProposalError, string(schederrors.ErrCodeRankerUnavailable))
}

func TestSelectSingle_RankerTimeoutFallsBack(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	stuck := RankerFunc(func(context.Context, []constraint.Candidate, Requirement) (*Proposal, error) {
		<-release
		return &Proposal{Index: 2}, nil
	})
	s := NewSelector(stuck)
	s.RankTimeout = 20 * time.Millisecond

	sel, err := s.SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 30})
	require.NoError(t, err)
	assert.Equal(t, FallbackRankerTimeout, sel.FallbackReason)
	assert.Equal(t, 1, sel.CandidateIndex)
}

func TestSelectSingle_NothingFits(t *testing.T) {
	_, err := NewSelector(nil).SelectSingle(context.Background(), singleCandidates(), Requirement{RequiredMinutes: 180})
	require.Error(t, err)
	assert.True(t, schederrors.IsCode(err, schederrors.ErrCodeNoSlotsAvailable))

	_, err = NewSelector(nil).SelectSingle(context.Background(), nil, Requirement{RequiredMinutes: 30})
	assert.True(t, schederrors.IsCode(err, schederrors.ErrCodeNoSlotsAvailable))
}

func TestSelectSingle_RejectsNonPositiveDuration(t *testing.T) {
	_, err := NewSelector(nil).SelectSingle(context.Background(), singleCandidates(), Requirement{})
	require.Error(t, err)
	assert.True(t, schederrors.IsCode(err, schederrors.ErrCodeInvalidArgument))
}
