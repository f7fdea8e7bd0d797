// Package tm implements C3: a persistent key→value translation cache with
// TTL + LRU eviction, hit/miss/eviction metrics, and optional remote
// replication. Grounded on internal/idempotency/cache.go for the TTL half
// (map + mutex + sweep) and on internal/ratelimit/ratelimit.go's
// container/list-based LRU for the LRU half; spec.md §4.3 requires TTL
// pruning to strictly precede LRU pruning and reads-on-hit to refresh ts
// (genuine LRU), which this package implements as its own merged pruning
// pass rather than either teacher source's individual discipline.
package tm

import (
	"container/list"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/kvstore"
)

// Stats mirrors spec.md §4.3's stats() contract.
type Stats struct {
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Sets         int64 `json:"sets"`
	EvictionsTTL int64 `json:"evictions_ttl"`
	EvictionsLRU int64 `json:"evictions_lru"`
	Entries      int   `json:"entries"`
}

type node struct {
	key  core.TMKey
	text string
	ts   int64 // ms since epoch
}

// Option configures a TM at construction.
type Option func(*TM)

// WithSync attaches the optional remote replication store.
func WithSync(s kvstore.Store) Option {
	return func(t *TM) { t.sync = s }
}

// WithNowFunc overrides the clock, for deterministic TTL/LRU tests.
func WithNowFunc(f func() time.Time) Option {
	return func(t *TM) { t.nowFunc = f }
}

// WithLogger overrides the logger used for swallowed storage errors.
func WithLogger(l *slog.Logger) Option {
	return func(t *TM) { t.logger = l }
}

// TM is the single writer of its own map; reads also mutate ts (genuine
// LRU), so reads are serialized the same as writes, through mu.
type TM struct {
	mu         sync.Mutex
	maxEntries int           // 0 = no cap
	ttl        time.Duration // 0 = no expiry
	syncOn     bool

	byKey map[core.TMKey]*list.Element
	order *list.List // front = most recently used

	stats Stats

	local kvstore.Store
	sync  kvstore.Store

	nowFunc func() time.Time
	logger  *slog.Logger

	persistCh chan struct{}
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New constructs a TM backed by local (required). maxEntries/ttl of 0 mean
// "no cap"/"no expiry" respectively, per spec.md §4.3's configuration.
func New(local kvstore.Store, maxEntries int, ttl time.Duration, opts ...Option) *TM {
	t := &TM{
		maxEntries: maxEntries,
		ttl:        ttl,
		byKey:      make(map[core.TMKey]*list.Element),
		order:      list.New(),
		local:      local,
		nowFunc:    time.Now,
		logger:     slog.Default(),
		persistCh:  make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	t.wg.Add(1)
	go t.persistLoop()
	return t
}

func (t *TM) nowMs() int64 { return t.nowFunc().UnixMilli() }

// Get returns the entry for key, refreshing ts on hit (genuine LRU: reads
// move the entry to the tail/front of recency order). On TTL miss it
// deletes the entry and returns (TMEntry{}, false).
func (t *TM) Get(key core.TMKey) (core.TMEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elem, ok := t.byKey[key]
	if !ok {
		t.stats.Misses++
		return core.TMEntry{}, false
	}
	n := elem.Value.(*node)
	if t.ttl > 0 && t.nowMs()-n.ts > t.ttl.Milliseconds() {
		t.removeLocked(elem)
		t.stats.EvictionsTTL++
		t.stats.Misses++
		return core.TMEntry{}, false
	}
	n.ts = t.nowMs()
	t.order.MoveToFront(elem)
	t.stats.Hits++
	return core.TMEntry{Key: n.key, Text: n.text, TS: n.ts}, true
}

// Put stores or updates {text, ts=now}, then prunes (TTL pass first, then
// LRU pass), per spec.md §4.3's invariant ordering.
func (t *TM) Put(key core.TMKey, text string) {
	t.mu.Lock()
	now := t.nowMs()
	if elem, ok := t.byKey[key]; ok {
		n := elem.Value.(*node)
		n.text = text
		n.ts = now
		t.order.MoveToFront(elem)
	} else {
		n := &node{key: key, text: text, ts: now}
		elem := t.order.PushFront(n)
		t.byKey[key] = elem
	}
	t.stats.Sets++
	t.pruneLocked()
	t.mu.Unlock()

	t.triggerPersist()
}

// pruneLocked applies the TTL pass then the LRU pass. Caller must hold t.mu.
func (t *TM) pruneLocked() {
	if t.ttl > 0 {
		now := t.nowMs()
		for e := t.order.Back(); e != nil; {
			n := e.Value.(*node)
			prev := e.Prev()
			if now-n.ts > t.ttl.Milliseconds() {
				t.removeLocked(e)
				t.stats.EvictionsTTL++
			}
			e = prev
		}
	}
	if t.maxEntries > 0 {
		for len(t.byKey) > t.maxEntries {
			back := t.order.Back()
			if back == nil {
				break
			}
			t.removeLocked(back)
			t.stats.EvictionsLRU++
		}
	}
}

// removeLocked deletes elem from both the map and the list. Caller must hold t.mu.
func (t *TM) removeLocked(elem *list.Element) {
	n := elem.Value.(*node)
	delete(t.byKey, n.key)
	t.order.Remove(elem)
}

// Stats returns a copy of the running counters, with Entries filled in live.
func (t *TM) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	s.Entries = len(t.byKey)
	return s
}

// GetAll returns every retained entry, in no particular order.
func (t *TM) GetAll() []core.TMEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]core.TMEntry, 0, len(t.byKey))
	for _, elem := range t.byKey {
		n := elem.Value.(*node)
		out = append(out, core.TMEntry{Key: n.key, Text: n.text, TS: n.ts})
	}
	return out
}

// Clear empties the TM and persists the (now empty) snapshot.
func (t *TM) Clear() {
	t.mu.Lock()
	t.byKey = make(map[core.TMKey]*list.Element)
	t.order = list.New()
	t.mu.Unlock()
	t.triggerPersist()
}

// EnableSync toggles remote replication. When turning sync on, it merges the
// remote snapshot into the local map (preferring the newer ts per key) and
// re-persists, per spec.md §4.3. Sync failures never cancel the local write.
func (t *TM) EnableSync(ctx context.Context, enabled bool) {
	t.mu.Lock()
	was := t.syncOn
	t.syncOn = enabled
	t.mu.Unlock()

	if enabled && !was && t.sync != nil {
		t.mergeFromRemote(ctx)
	}
}

func (t *TM) mergeFromRemote(ctx context.Context) {
	raw, ok, err := t.sync.Get(ctx, kvstore.KeyTMSnapshot)
	if err != nil || !ok {
		if err != nil {
			t.logger.Warn("tm: sync snapshot fetch failed", "err", err)
		}
		return
	}
	var remote []core.TMEntry
	if err := json.Unmarshal(raw, &remote); err != nil {
		t.logger.Warn("tm: sync snapshot decode failed", "err", err)
		return
	}

	t.mu.Lock()
	for _, re := range remote {
		if elem, ok := t.byKey[re.Key]; ok {
			n := elem.Value.(*node)
			if re.TS > n.ts {
				n.text = re.Text
				n.ts = re.TS
			}
			continue
		}
		n := &node{key: re.Key, text: re.Text, ts: re.TS}
		elem := t.order.PushFront(n)
		t.byKey[re.Key] = elem
	}
	t.pruneLocked()
	t.mu.Unlock()

	t.triggerPersist()
}

// triggerPersist signals the persist loop; a pending signal already queued
// means a persist is already scheduled, so the send is dropped (coalesced
// last-writer-wins, per Open Question decision 1 in DESIGN.md).
func (t *TM) triggerPersist() {
	select {
	case t.persistCh <- struct{}{}:
	default:
	}
}

func (t *TM) persistLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopCh:
			return
		case <-t.persistCh:
			t.doPersist()
		}
	}
}

func (t *TM) doPersist() {
	snapshot := t.GetAll()
	data, err := json.Marshal(snapshot)
	if err != nil {
		t.logger.Error("tm: snapshot marshal failed", "err", err)
		return
	}

	ctx := context.Background()
	if err := t.local.Set(ctx, kvstore.KeyTMSnapshot, data); err != nil {
		t.logger.Error("tm: local persist failed", "err", err)
	}

	t.mu.Lock()
	syncOn := t.syncOn
	t.mu.Unlock()
	if syncOn && t.sync != nil {
		if err := t.sync.Set(ctx, kvstore.KeyTMSnapshot, data); err != nil {
			t.logger.Warn("tm: sync persist failed", "err", err)
		}
	}
}

// Stop terminates the background persist loop.
func (t *TM) Stop() {
	close(t.stopCh)
	t.wg.Wait()
}
