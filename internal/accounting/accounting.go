// Package accounting implements C6: per-model token/char usage recording
// and cost windows. Grounded on internal/stats/collector.go's Record/Prune/
// windowed-Aggregate shape, reworked from the teacher's [1m,5m,1h,24h]
// latency/error-rate windows to spec.md §4.6's [24h,7d,30d]+daily
// cost-table windows, and from latency aggregation to cost aggregation.
// 30-day eviction-on-write mirrors Collector.pruneLocked's cutoff-slice
// approach.
package accounting

import (
	"sort"
	"sync"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
)

const retention = 30 * 24 * time.Hour

// CostStats is the accountant's report, per spec.md §6's one-shot "usage" API.
type CostStats struct {
	PerModel map[string]map[string]float64 `json:"per_model"` // model -> window -> cost
	Total    map[string]float64            `json:"total"`     // window -> cost
	Daily    []DailyCost                   `json:"daily"`
}

type DailyCost struct {
	DateISO string  `json:"date_iso"`
	Cost    float64 `json:"cost"`
}

var windows = []struct {
	name string
	dur  time.Duration
}{
	{"24h", 24 * time.Hour},
	{"7d", 7 * 24 * time.Hour},
	{"30d", 30 * 24 * time.Hour},
}

// Accountant is the single writer of its own usage history; readers
// receive a cloned snapshot, per spec.md §5's shared-resource policy.
type Accountant struct {
	mu        sync.RWMutex
	records   []core.UsageRecord
	costTable map[string]core.CostModel
	nowFunc   func() time.Time
	onRecord  func(core.UsageRecord)
}

type Option func(*Accountant)

func WithNowFunc(f func() time.Time) Option { return func(a *Accountant) { a.nowFunc = f } }

// WithOnRecord wires a callback fired after each Record, for durable
// archival beyond the 30-day in-memory window (internal/store).
func WithOnRecord(f func(core.UsageRecord)) Option { return func(a *Accountant) { a.onRecord = f } }

func New(costTable map[string]core.CostModel, opts ...Option) *Accountant {
	a := &Accountant{costTable: costTable, nowFunc: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Seed bulk-loads records on restart (e.g. from durable storage).
func (a *Accountant) Seed(records []core.UsageRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, records...)
}

// Record appends one UsageRecord and evicts records older than 30 days
// before returning, per spec.md §4.6.
func (a *Accountant) Record(provider, model string, tokensIn, tokensOut, charsIn, charsOut int) {
	a.mu.Lock()
	now := a.nowFunc()
	rec := core.UsageRecord{
		Time: now, Provider: provider, Model: model,
		TokensIn: tokensIn, TokensOut: tokensOut, CharsIn: charsIn, CharsOut: charsOut,
	}
	a.records = append(a.records, rec)
	a.pruneLocked(now)
	cb := a.onRecord
	a.mu.Unlock()
	if cb != nil {
		cb(rec)
	}
}

func (a *Accountant) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	i := 0
	for i < len(a.records) && a.records[i].Time.Before(cutoff) {
		i++
	}
	if i > 0 {
		a.records = a.records[i:]
	}
}

// costOf returns the USD cost of one record under the configured cost table;
// unknown models contribute zero, per spec.md §4.6.
func (a *Accountant) costOf(r core.UsageRecord) float64 {
	cm, ok := a.costTable[r.Model]
	if !ok {
		return 0
	}
	return cm.Cost(r.TokensIn, r.TokensOut, r.CharsIn, r.CharsOut)
}

// CostStats computes per-model and total cost over the 24h/7d/30d windows
// plus a 30-day daily bucket, as of now.
func (a *Accountant) CostStats(now time.Time) CostStats {
	a.mu.RLock()
	records := append([]core.UsageRecord(nil), a.records...)
	a.mu.RUnlock()

	out := CostStats{
		PerModel: make(map[string]map[string]float64),
		Total:    make(map[string]float64),
	}
	for _, w := range windows {
		out.Total[w.name] = 0
	}

	for _, r := range records {
		cost := a.costOf(r)
		for _, w := range windows {
			if now.Sub(r.Time) > w.dur {
				continue
			}
			if out.PerModel[r.Model] == nil {
				out.PerModel[r.Model] = make(map[string]float64)
			}
			out.PerModel[r.Model][w.name] += cost
			out.Total[w.name] += cost
		}
	}

	out.Daily = dailyBuckets(records, now, a.costOf)
	return out
}

func dailyBuckets(records []core.UsageRecord, now time.Time, costOf func(core.UsageRecord) float64) []DailyCost {
	loc := now.Location()
	type key = string
	byDay := make(map[key]float64)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	start := midnight.AddDate(0, 0, -29)

	for _, r := range records {
		rt := r.Time.In(loc)
		if rt.Before(start) {
			continue
		}
		day := time.Date(rt.Year(), rt.Month(), rt.Day(), 0, 0, 0, 0, loc).Format("2006-01-02")
		byDay[day] += costOf(r)
	}

	out := make([]DailyCost, 0, 30)
	for i := 0; i < 30; i++ {
		d := start.AddDate(0, 0, i)
		iso := d.Format("2006-01-02")
		out = append(out, DailyCost{DateISO: iso, Cost: byDay[iso]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateISO < out[j].DateISO })
	return out
}

// RecordCount returns the number of retained usage records.
func (a *Accountant) RecordCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.records)
}
