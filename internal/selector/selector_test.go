package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/providers"
	"github.com/jordanhubbard/mtcore/internal/throttle"
)

type fakeProvider struct {
	name  string
	quota providers.Quota
}

func (f *fakeProvider) Name() string                      { return f.name }
func (f *fakeProvider) ApproxTokens(text string) int       { return len(text) }
func (f *fakeProvider) GetQuota(ctx context.Context) (providers.Quota, bool) { return f.quota, true }
func (f *fakeProvider) Snapshot() core.ProviderSnapshot    { return core.ProviderSnapshot{Model: f.name} }
func (f *fakeProvider) TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error) {
	return core.TranslationResult{}, nil
}
func (f *fakeProvider) TranslateStream(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	return core.TranslationResult{}, nil
}

func ptr(v int64) *int64 { return &v }

func TestNextAdvancesOnLowReportedQuota(t *testing.T) {
	reg := providers.NewRegistry()
	reg.Register(&fakeProvider{name: "a", quota: providers.Quota{RemainingRequests: ptr(1)}})
	reg.Register(&fakeProvider{name: "b", quota: providers.Quota{RemainingRequests: ptr(100)}})

	sel := New([]string{"a", "b"}, 5, 1000)
	name, err := sel.Next(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, "b", name)
}

func TestNextAdvancesOnLowLocalThrottleOccupancyEvenWhenReportedQuotaIsHigh(t *testing.T) {
	reg := providers.NewRegistry()
	reg.Register(&fakeProvider{name: "a", quota: providers.Quota{RemainingRequests: ptr(1000)}})
	reg.Register(&fakeProvider{name: "b", quota: providers.Quota{RemainingRequests: ptr(1000)}})

	th := throttle.New(time.Minute, 10, 0)
	for i := 0; i < 9; i++ {
		_, _ = th.TryAdmit(0)
	}
	// 1 request of local headroom remains, at or below requestThreshold=5.

	sel := New([]string{"a", "b"}, 5, 1000, WithThrottle(th))
	name, err := sel.Next(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, "b", name)
}

func TestNextStaysWhenBothLocalAndReportedQuotaAreHealthy(t *testing.T) {
	reg := providers.NewRegistry()
	reg.Register(&fakeProvider{name: "a", quota: providers.Quota{RemainingRequests: ptr(1000)}})
	reg.Register(&fakeProvider{name: "b", quota: providers.Quota{RemainingRequests: ptr(1000)}})

	th := throttle.New(time.Minute, 10, 0)
	sel := New([]string{"a", "b"}, 5, 1000, WithThrottle(th))
	name, err := sel.Next(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, "a", name)
}
