package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryAdmitRespectsRequestLimit(t *testing.T) {
	th := New(time.Minute, 2, 0)
	d1, _ := th.TryAdmit(10)
	d2, _ := th.TryAdmit(10)
	d3, _ := th.TryAdmit(10)
	require.True(t, d1.Admitted)
	require.True(t, d2.Admitted)
	require.False(t, d3.Admitted)
}

func TestTryAdmitRespectsTokenLimit(t *testing.T) {
	th := New(time.Minute, 0, 100)
	d1, _ := th.TryAdmit(60)
	d2, _ := th.TryAdmit(60)
	require.True(t, d1.Admitted)
	require.False(t, d2.Admitted)
}

func TestZeroLimitIsUnlimited(t *testing.T) {
	th := New(time.Minute, 0, 0)
	for i := 0; i < 1000; i++ {
		d, _ := th.TryAdmit(1_000_000)
		require.True(t, d.Admitted)
	}
}

func TestDecrementAfterWindow(t *testing.T) {
	th := New(50*time.Millisecond, 1, 0)
	d1, _ := th.TryAdmit(1)
	require.True(t, d1.Admitted)
	occ := th.Occupancy()
	require.Equal(t, int64(1), occ.Requests)

	d2, _ := th.TryAdmit(1)
	require.False(t, d2.Admitted)

	time.Sleep(100 * time.Millisecond)
	occ = th.Occupancy()
	require.Equal(t, int64(0), occ.Requests)

	d3, _ := th.TryAdmit(1)
	require.True(t, d3.Admitted)
}

func TestRecordUsedReconciles(t *testing.T) {
	th := New(time.Minute, 0, 100)
	_, id := th.TryAdmit(50)
	require.Equal(t, int64(50), th.Occupancy().Tokens)
	th.RecordUsed(id, 30)
	require.Equal(t, int64(30), th.Occupancy().Tokens)
}

func TestUpdateLimitsPreservesInFlight(t *testing.T) {
	th := New(time.Minute, 1, 0)
	th.TryAdmit(1)
	th.UpdateLimits(5, 0)
	occ := th.Occupancy()
	require.Equal(t, int64(1), occ.Requests)
	require.Equal(t, int64(5), occ.RequestLimit)
}
