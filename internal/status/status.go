// Package status implements C9: aggregating activity into the compact
// Badge view. Grounded on internal/health/tracker.go's
// aggregation-into-derived-state pattern (recorded events folded into a
// read copy) and wired to prometheus gauges the way health.Tracker's
// WithOnUpdate wires one.
package status

import (
	"sync"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/throttle"
)

// Tracker derives Badge from recorded request lifecycle events; it is the
// single writer of its own counters.
type Tracker struct {
	mu             sync.Mutex
	active         int
	premiumActive  int
	offline        bool
	lastErrorAt    time.Time
	recentErrorWin time.Duration
	nowFunc        func() time.Time
	onUpdate       func(core.Badge)
	throttle       *throttle.Throttle
}

type Option func(*Tracker)

func WithNowFunc(f func() time.Time) Option { return func(t *Tracker) { t.nowFunc = f } }
func WithOnUpdate(f func(core.Badge)) Option { return func(t *Tracker) { t.onUpdate = f } }
func WithThrottle(th *throttle.Throttle) Option { return func(t *Tracker) { t.throttle = th } }

func New(opts ...Option) *Tracker {
	t := &Tracker{nowFunc: time.Now, recentErrorWin: 10 * time.Second}
	for _, o := range opts {
		o(t)
	}
	return t
}

// RequestStarted increments the active count, and the premium-class count
// if model is a premium model class.
func (t *Tracker) RequestStarted(model string) {
	t.mu.Lock()
	t.active++
	if core.PremiumModelClass(model) {
		t.premiumActive++
	}
	t.mu.Unlock()
	t.notify()
}

// RequestFinished decrements the active count and, on error, records the
// error time for the "recent error" status window.
func (t *Tracker) RequestFinished(model string, failed bool) {
	t.mu.Lock()
	if t.active > 0 {
		t.active--
	}
	if core.PremiumModelClass(model) && t.premiumActive > 0 {
		t.premiumActive--
	}
	if failed {
		t.lastErrorAt = t.nowFunc()
	}
	t.mu.Unlock()
	t.notify()
}

// SetOffline marks/unmarks the offline condition (e.g. from a provider's
// Network error while the host declares itself offline, per spec.md §4.7
// step 7).
func (t *Tracker) SetOffline(offline bool) {
	t.mu.Lock()
	t.offline = offline
	t.mu.Unlock()
	t.notify()
}

// Badge computes the current derived status view.
func (t *Tracker) Badge() core.Badge {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := core.Badge{
		ActiveCount: t.active,
		UsingPlus:   t.premiumActive > 0,
		Offline:     t.offline,
	}
	if !t.lastErrorAt.IsZero() {
		since := t.nowFunc().Sub(t.lastErrorAt)
		if since <= t.recentErrorWin {
			ms := since.Milliseconds()
			if ms < 1 {
				// 0 means "no recent error", so an error within the
				// current millisecond reports 1.
				ms = 1
			}
			b.LastErrorRecentMs = ms
		}
	}
	return b
}

func (t *Tracker) notify() {
	if t.onUpdate != nil {
		t.onUpdate(t.Badge())
	}
}

// Color is the badge's colour state (idle/busy/error), derived from
// occupancy and recent-error state per spec.md §4.9.
type Color string

const (
	ColorIdle  Color = "gray"
	ColorBusy  Color = "green"
	ColorError Color = "red"
)

// ColorFor derives the badge colour: error takes precedence over busy,
// which takes precedence over idle. Busy also fires on nonzero C2
// occupancy ratio, not just in-flight request count, per spec.md §4.9.
func (t *Tracker) ColorFor(b core.Badge) Color {
	if b.LastErrorRecentMs > 0 {
		return ColorError
	}
	if b.ActiveCount > 0 || t.occupancyRatio() > 0 {
		return ColorBusy
	}
	return ColorIdle
}

// occupancyRatio returns the larger of C2's request/token occupancy
// ratios, or 0 if no throttle is wired or both dimensions are unbounded.
func (t *Tracker) occupancyRatio() float64 {
	if t.throttle == nil {
		return 0
	}
	occ := t.throttle.Occupancy()
	var ratio float64
	if occ.RequestLimit > 0 {
		if r := float64(occ.Requests) / float64(occ.RequestLimit); r > ratio {
			ratio = r
		}
	}
	if occ.TokenLimit > 0 {
		if r := float64(occ.Tokens) / float64(occ.TokenLimit); r > ratio {
			ratio = r
		}
	}
	return ratio
}
