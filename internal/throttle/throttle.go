// Package throttle implements C2: admission control over a sliding window of
// request and token budgets, grounded on internal/ratelimit/ratelimit.go's
// token-bucket-with-scheduled-eviction shape but reworked per spec.md §4.2:
// two independent sliding-window counters (requests, tokens) each with a
// scheduled decrement fired exactly W after the admission that caused it,
// rather than a periodic sweep.
package throttle

import (
	"sync"
	"time"
)

// Occupancy is the read-only snapshot exposed to callers (e.g. the badge).
type Occupancy struct {
	Requests     int64
	RequestLimit int64
	Tokens       int64
	TokenLimit   int64
}

// Decision is the result of TryAdmit.
type Decision struct {
	Admitted     bool
	RetryAfterMs int64
}

// scheduled is one pending decrement, tracked so RecordUsed can adjust the
// token contribution already scheduled for an in-flight estimate.
type scheduled struct {
	requests int64
	tokens   int64
	fireAt   time.Time
	timer    *time.Timer
}

// Throttle is the single writer of its own counters; callers only ever see
// an Occupancy snapshot, never the live counters themselves.
type Throttle struct {
	mu sync.Mutex

	window       time.Duration
	requestLimit int64
	tokenLimit   int64

	requests int64
	tokens   int64

	pending map[int64]*scheduled // keyed by a monotonically increasing admission ID
	nextID  int64

	nowFunc func() time.Time
}

// Option configures a Throttle at construction.
type Option func(*Throttle)

// WithNowFunc overrides the clock, for deterministic window tests.
func WithNowFunc(f func() time.Time) Option {
	return func(t *Throttle) { t.nowFunc = f }
}

// New constructs a Throttle. requestLimit/tokenLimit of 0 means "unlimited"
// for that dimension, per spec.md §4.2's edge case.
func New(window time.Duration, requestLimit, tokenLimit int64, opts ...Option) *Throttle {
	if window <= 0 {
		window = 60 * time.Second
	}
	t := &Throttle{
		window:       window,
		requestLimit: requestLimit,
		tokenLimit:   tokenLimit,
		pending:      make(map[int64]*scheduled),
		nowFunc:      time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// TryAdmit admits tokensEstimate iff both counters plus the new contribution
// stay within their limits. On admission it increments both counters and
// schedules a decrement at now+W. The returned admission handle is passed to
// RecordUsed to reconcile the estimate against actual usage.
func (t *Throttle) TryAdmit(tokensEstimate int64) (Decision, int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.requestLimit > 0 && t.requests+1 > t.requestLimit {
		return Decision{Admitted: false, RetryAfterMs: t.earliestRetryLocked()}, 0
	}
	if t.tokenLimit > 0 && t.tokens+tokensEstimate > t.tokenLimit {
		return Decision{Admitted: false, RetryAfterMs: t.earliestRetryLocked()}, 0
	}

	t.requests++
	t.tokens += tokensEstimate

	t.nextID++
	id := t.nextID
	s := &scheduled{requests: 1, tokens: tokensEstimate, fireAt: t.nowFunc().Add(t.window)}
	s.timer = time.AfterFunc(t.window, func() { t.decrement(id) })
	t.pending[id] = s

	return Decision{Admitted: true}, id
}

// RecordUsed reconciles the admission's estimate with the actual tokens
// used, adjusting the already-scheduled decrement in place rather than
// scheduling a second one.
func (t *Throttle) RecordUsed(id int64, tokensUsed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.pending[id]
	if !ok {
		return
	}
	delta := tokensUsed - s.tokens
	t.tokens += delta
	s.tokens = tokensUsed
}

func (t *Throttle) decrement(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.pending[id]
	if !ok {
		return
	}
	t.requests -= s.requests
	t.tokens -= s.tokens
	if t.requests < 0 {
		t.requests = 0
	}
	if t.tokens < 0 {
		t.tokens = 0
	}
	delete(t.pending, id)
}

// earliestRetryLocked returns the time until the earliest scheduled
// decrement fires, the conservative retry estimate spec.md §4.2 requires.
// Caller must hold t.mu.
func (t *Throttle) earliestRetryLocked() int64 {
	if len(t.pending) == 0 {
		return int64(t.window / time.Millisecond)
	}
	now := t.nowFunc()
	var earliest time.Time
	for _, s := range t.pending {
		if earliest.IsZero() || s.fireAt.Before(earliest) {
			earliest = s.fireAt
		}
	}
	remain := earliest.Sub(now)
	if remain < 0 {
		remain = 0
	}
	return int64(remain / time.Millisecond)
}

// Occupancy returns a snapshot of the current windowed counters.
func (t *Throttle) Occupancy() Occupancy {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Occupancy{
		Requests:     t.requests,
		RequestLimit: t.requestLimit,
		Tokens:       t.tokens,
		TokenLimit:   t.tokenLimit,
	}
}

// UpdateLimits hot-reloads the limits without resetting in-flight schedules,
// matching internal/ratelimit/ratelimit.go's UpdateLimits.
func (t *Throttle) UpdateLimits(requestLimit, tokenLimit int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requestLimit = requestLimit
	t.tokenLimit = tokenLimit
}

// Stop cancels every pending scheduled decrement. Safe to call at shutdown.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.pending {
		s.timer.Stop()
	}
	t.pending = make(map[int64]*scheduled)
}
