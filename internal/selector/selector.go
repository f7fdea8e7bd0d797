// Package selector implements C5: choosing the next provider from an
// ordered rotation using remaining-quota thresholds. Grounded on the
// top-level router/router.go's escalate (linear scan, skip on insufficient
// capacity), reworked from "scan on failure" into spec.md §4.5's
// "probe quota, advance index modulo length" algorithm.
package selector

import (
	"context"
	"sync"

	"github.com/jordanhubbard/mtcore/internal/providers"
	"github.com/jordanhubbard/mtcore/internal/throttle"
)

// Selector holds the rotation and the current index; the index persists
// across calls (single writer: the selector itself).
type Selector struct {
	mu               sync.Mutex
	rotation         []string
	index            int
	requestThreshold int64
	tokenThreshold   int64
	throttle         *throttle.Throttle
}

// Option configures a Selector at construction.
type Option func(*Selector)

// WithThrottle wires C2's admission throttle in, so Next's quota comparison
// takes the minimum of local sliding-window occupancy and reported provider
// quota, per spec.md §4.5. Without it, Next falls back to reported quota
// alone. Local occupancy is only compared for a provider whose GetQuota
// reports a quota.
func WithThrottle(t *throttle.Throttle) Option {
	return func(s *Selector) { s.throttle = t }
}

// New constructs a Selector over rotation (must be non-empty) with the
// given thresholds.
func New(rotation []string, requestThreshold, tokenThreshold int64, opts ...Option) *Selector {
	s := &Selector{
		rotation:         append([]string(nil), rotation...),
		requestThreshold: requestThreshold,
		tokenThreshold:   tokenThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Next probes the current provider's quota and advances the index modulo
// the rotation length if remaining capacity is at or below threshold in
// either dimension (taking the minimum of local window usage and reported
// quota). Quota probe errors are treated as sufficient quota. A
// single-provider rotation never switches, per spec.md §4.5.
func (s *Selector) Next(ctx context.Context, reg *providers.Registry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.rotation) == 0 {
		return "", errEmptyRotation
	}
	name := s.rotation[s.index]
	if len(s.rotation) == 1 {
		return name, nil
	}

	p, err := reg.Get(name)
	if err != nil {
		s.advanceLocked()
		return s.rotation[s.index], nil
	}

	quota, ok := p.GetQuota(ctx)
	if !ok {
		// Not reported: treated as sufficient quota, no switch.
		return name, nil
	}
	remainingRequests, remainingTokens := quota.RemainingRequests, quota.RemainingTokens
	if s.throttle != nil {
		occ := s.throttle.Occupancy()
		if occ.RequestLimit > 0 {
			localRequests := occ.RequestLimit - occ.Requests
			if remainingRequests == nil || localRequests < *remainingRequests {
				remainingRequests = &localRequests
			}
		}
		if occ.TokenLimit > 0 {
			localTokens := occ.TokenLimit - occ.Tokens
			if remainingTokens == nil || localTokens < *remainingTokens {
				remainingTokens = &localTokens
			}
		}
	}
	lowRequests := remainingRequests != nil && *remainingRequests <= s.requestThreshold
	lowTokens := remainingTokens != nil && *remainingTokens <= s.tokenThreshold
	if lowRequests || lowTokens {
		s.advanceLocked()
		return s.rotation[s.index], nil
	}
	return name, nil
}

func (s *Selector) advanceLocked() {
	s.index = (s.index + 1) % len(s.rotation)
}

// Current returns the provider name currently selected without probing quota.
func (s *Selector) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotation[s.index]
}

// Advance forces the index forward, used by the orchestrator's single
// selector-advance-and-retry on a retryable provider error (spec.md §4.7
// step 6).
func (s *Selector) Advance() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.rotation) > 1 {
		s.advanceLocked()
	}
	return s.rotation[s.index]
}

// UpdateRotation replaces the rotation list, resetting the index to 0.
func (s *Selector) UpdateRotation(rotation []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotation = append([]string(nil), rotation...)
	s.index = 0
}

type rotationError string

func (e rotationError) Error() string { return string(e) }

const errEmptyRotation = rotationError("selector: empty rotation")
