package tm

import (
	"testing"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/kvstore"
	"github.com/stretchr/testify/require"
)

func newTestTM(t *testing.T, maxEntries int, ttl time.Duration, clock *fakeClock) *TM {
	t.Helper()
	local, err := kvstore.NewBuntLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	tmInst := New(local, maxEntries, ttl, WithNowFunc(clock.Now))
	t.Cleanup(tmInst.Stop)
	return tmInst
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTTLEviction(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	inst := newTestTM(t, 5000, 10*time.Millisecond, clock)

	inst.Put("k1", "v1")
	clock.Advance(50 * time.Millisecond)
	inst.Put("k2", "v2")

	_, ok := inst.Get("k1")
	require.False(t, ok)

	e, ok := inst.Get("k2")
	require.True(t, ok)
	require.Equal(t, "v2", e.Text)

	require.GreaterOrEqual(t, inst.Stats().EvictionsTTL, int64(1))
}

func TestLRUEviction(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	inst := newTestTM(t, 2, 0, clock)

	inst.Put("a", "va")
	clock.Advance(time.Millisecond)
	inst.Put("b", "vb")
	clock.Advance(time.Millisecond)
	_, ok := inst.Get("a") // refreshes a
	require.True(t, ok)
	clock.Advance(time.Millisecond)
	inst.Put("c", "vc")

	ea, ok := inst.Get("a")
	require.True(t, ok)
	require.Equal(t, "va", ea.Text)

	_, ok = inst.Get("b")
	require.False(t, ok)

	ec, ok := inst.Get("c")
	require.True(t, ok)
	require.Equal(t, "vc", ec.Text)

	require.GreaterOrEqual(t, inst.Stats().EvictionsLRU, int64(1))
}

func TestMaxEntriesInvariantHoldsAtEveryObservableMoment(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	inst := newTestTM(t, 3, 0, clock)
	for i := 0; i < 50; i++ {
		clock.Advance(time.Millisecond)
		inst.Put(core.TMKey(string(rune('a'+i%26))+string(rune(i))), "v")
		require.LessOrEqual(t, inst.Stats().Entries, 3)
	}
}

func TestImportExportRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	inst := newTestTM(t, 0, 0, clock)
	inst.Put("a", "va")
	inst.Put("b", "vb")

	exported := inst.GetAll()

	inst2 := newTestTM(t, 0, 0, clock)
	for _, e := range exported {
		inst2.Put(e.Key, e.Text)
	}

	got := map[core.TMKey]string{}
	for _, e := range inst2.GetAll() {
		got[e.Key] = e.Text
	}
	want := map[core.TMKey]string{}
	for _, e := range exported {
		want[e.Key] = e.Text
	}
	require.Equal(t, want, got)
}
