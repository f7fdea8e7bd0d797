package providers

import (
	"sync"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// call is one recorded provider invocation, kept only long enough to
// contribute to the sliding window.
type call struct {
	at     time.Time
	tokens int64
}

// Counters tracks the sliding-window requests/tokens and monotonic totals
// that make up a core.ProviderSnapshot, shared by every adapter so each
// adapter package doesn't reimplement windowing.
type Counters struct {
	mu     sync.Mutex
	window time.Duration
	calls  []call

	totalRequests int64
	totalTokens   int64

	nowFunc func() time.Time
}

// NewCounters constructs a Counters with the given sliding window (default
// 5 minutes if window <= 0).
func NewCounters(window time.Duration) *Counters {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Counters{window: window, nowFunc: time.Now}
}

// Record logs one call's token usage.
func (c *Counters) Record(tokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	c.calls = append(c.calls, call{at: now, tokens: tokens})
	c.totalRequests++
	c.totalTokens += tokens
	c.pruneLocked(now)
}

func (c *Counters) pruneLocked(now time.Time) {
	cutoff := now.Add(-c.window)
	i := 0
	for i < len(c.calls) && c.calls[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		c.calls = c.calls[i:]
	}
}

// Snapshot computes the live window sums and folds in the static fields
// (api key presence, model, endpoint) the caller supplies.
func (c *Counters) Snapshot(apiKeyPresent bool, model, endpoint string) core.ProviderSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowFunc()
	c.pruneLocked(now)
	var reqs, toks int64
	for _, ca := range c.calls {
		reqs++
		toks += ca.tokens
	}
	return core.ProviderSnapshot{
		APIKeyPresent: apiKeyPresent,
		Model:         model,
		Endpoint:      endpoint,
		Requests:      reqs,
		Tokens:        toks,
		TotalRequests: c.totalRequests,
		TotalTokens:   c.totalTokens,
	}
}
