package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/mtcore/internal/throttle"
)

func TestColorForIdleWhenNoActivityAndNoOccupancy(t *testing.T) {
	tr := New()
	require.Equal(t, ColorIdle, tr.ColorFor(tr.Badge()))
}

func TestColorForBusyOnActiveCount(t *testing.T) {
	tr := New()
	tr.RequestStarted("qwen-mt-turbo")
	require.Equal(t, ColorBusy, tr.ColorFor(tr.Badge()))
}

func TestColorForBusyOnThrottleOccupancyAlone(t *testing.T) {
	th := throttle.New(time.Minute, 10, 0)
	_, _ = th.TryAdmit(0)
	tr := New(WithThrottle(th))

	require.Zero(t, tr.Badge().ActiveCount)
	require.Equal(t, ColorBusy, tr.ColorFor(tr.Badge()))
}

func TestColorForErrorTakesPrecedence(t *testing.T) {
	now := time.Now()
	tr := New(WithNowFunc(func() time.Time { return now }))
	tr.RequestStarted("qwen-mt-turbo")
	tr.RequestFinished("qwen-mt-turbo", true)
	require.Equal(t, ColorError, tr.ColorFor(tr.Badge()))
}
