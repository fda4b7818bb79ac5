package ranking

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	schederrors "github.com/hrygo/slotweaver/server/internal/errors"
	"github.com/hrygo/slotweaver/server/scheduler/constraint"
	"github.com/hrygo/slotweaver/server/scheduler/selector"
)

// defaultKey is used when a requirement names no calendar.
const defaultKey = "default"

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*rate.Limiter
	every  rate.Limit
	burst  int
}

// NewRateLimiter creates a limiter allowing perSecond requests per key with
// the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limits: make(map[string]*rate.Limiter),
		every:  rate.Every(time.Duration(float64(time.Second) / perSecond)),
		burst:  burst,
	}
}

// getLimiter gets or creates a limiter for the given key.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, ok := rl.limits[key]; ok {
		return limiter
	}

	limiter := rate.NewLimiter(rl.every, rl.burst)
	rl.limits[key] = limiter
	return limiter
}

// Wait waits for a request to be allowed.
// Returns error if the context is cancelled or its deadline cannot be met.
func (rl *RateLimiter) Wait(ctx context.Context, key string) error {
	return rl.getLimiter(key).Wait(ctx)
}

// LimitedRanker throttles calls to an inner ranker per calendar.
type LimitedRanker struct {
	inner   selector.Ranker
	limiter *RateLimiter
}

// NewLimitedRanker wraps inner with limiter.
func NewLimitedRanker(inner selector.Ranker, limiter *RateLimiter) *LimitedRanker {
	return &LimitedRanker{inner: inner, limiter: limiter}
}

// Rank implements selector.Ranker.
func (l *LimitedRanker) Rank(ctx context.Context, candidates []constraint.Candidate, req selector.Requirement) (*selector.Proposal, error) {
	key := req.Metadata["calendar_id"]
	if key == "" {
		key = defaultKey
	}
	if err := l.limiter.Wait(ctx, key); err != nil {
		return nil, schederrors.RankerUnavailable("ranker rate limited", err)
	}
	return l.inner.Rank(ctx, candidates, req)
}
