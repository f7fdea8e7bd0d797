package accounting

import (
	"testing"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/stretchr/testify/require"
)

func TestCostWindows(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := now
	a := New(core.DefaultCostTable(), WithNowFunc(func() time.Time { return clock }))

	a.Record("qwenA", "qwen-mt-turbo", 10_000, 10_000, 0, 0)
	clock = clock.Add(25 * time.Hour)
	a.Record("googleA", "google-nmt", 0, 0, 10_000, 10_000)

	stats := a.CostStats(clock)

	require.InDelta(t, 0.20, stats.PerModel["google-nmt"]["24h"], 1e-4)
	require.InDelta(t, 0.2016, stats.Total["7d"], 1e-3)
}

func TestPerModelSumsEqualTotal(t *testing.T) {
	now := time.Now()
	a := New(core.DefaultCostTable(), WithNowFunc(func() time.Time { return now }))
	a.Record("qwenA", "qwen-mt-turbo", 1000, 1000, 0, 0)
	a.Record("googleA", "google-nmt", 0, 0, 1000, 1000)
	a.Record("deeplFree", "deepl-free", 0, 0, 1000, 1000)

	stats := a.CostStats(now)
	for _, w := range []string{"24h", "7d", "30d"} {
		sum := 0.0
		for _, perModel := range stats.PerModel {
			sum += perModel[w]
		}
		require.InDelta(t, stats.Total[w], sum, 1e-9)
	}
}

func TestUnknownModelContributesZero(t *testing.T) {
	now := time.Now()
	a := New(core.DefaultCostTable(), WithNowFunc(func() time.Time { return now }))
	a.Record("mystery", "unknown-model", 1000, 1000, 1000, 1000)
	stats := a.CostStats(now)
	require.Equal(t, 0.0, stats.PerModel["unknown-model"]["24h"])
}
