package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/jordanhubbard/mtcore/internal/accounting"
	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/kvstore"
	"github.com/jordanhubbard/mtcore/internal/providers"
	"github.com/jordanhubbard/mtcore/internal/selector"
	"github.com/jordanhubbard/mtcore/internal/throttle"
	"github.com/jordanhubbard/mtcore/internal/tm"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name       string
	remaining  int64
	translated string
	failOnce   bool
	failed     bool
}

func (f *fakeProvider) Name() string                { return f.name }
func (f *fakeProvider) ApproxTokens(s string) int    { return len(s) / 4 }
func (f *fakeProvider) Snapshot() core.ProviderSnapshot { return core.ProviderSnapshot{} }

func (f *fakeProvider) TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error) {
	if f.failOnce && !f.failed {
		f.failed = true
		return core.TranslationResult{}, &core.ProviderError{Kind: core.ErrServerError, StatusCode: 500}
	}
	return core.TranslationResult{Text: f.translated, Provider: f.name, Model: req.Model, TokensIn: 10, TokensOut: 10, CharsIn: len(req.Text), CharsOut: len(f.translated)}, nil
}

func (f *fakeProvider) TranslateStream(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	return f.TranslateUnary(ctx, req)
}

func (f *fakeProvider) GetQuota(ctx context.Context) (providers.Quota, bool) {
	return providers.Quota{RemainingRequests: &f.remaining}, true
}

func newTestOrchestrator(t *testing.T, reg *providers.Registry, rotation []string) *Orchestrator {
	t.Helper()
	local, err := kvstore.NewBuntLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	tmInst := tm.New(local, 0, 0)
	t.Cleanup(tmInst.Stop)
	th := throttle.New(time.Minute, 0, 0)
	sel := selector.New(rotation, 1, 1)
	acc := accounting.New(core.DefaultCostTable())
	return New(tmInst, th, sel, reg, acc)
}

func TestTranslateCacheHitSkipsProviderAndAccounting(t *testing.T) {
	reg := providers.NewRegistry()
	p := &fakeProvider{name: "qwenA", translated: "hola"}
	reg.Register(p)
	o := newTestOrchestrator(t, reg, []string{"qwenA"})

	req := core.TranslationRequest{Text: "hello", Source: "en", Target: "es", Model: "qwen-mt-turbo"}
	res, err := o.Translate(context.Background(), req, nil)
	require.NoError(t, err)
	require.Equal(t, "hola", res.Text)
	require.False(t, res.Cached)
	require.Equal(t, 1, o.accountant.RecordCount())

	res2, err := o.Translate(context.Background(), req, nil)
	require.NoError(t, err)
	require.True(t, res2.Cached)
	require.Equal(t, "hola", res2.Text)
	require.Equal(t, 1, o.accountant.RecordCount())
}

func TestProviderFailover(t *testing.T) {
	reg := providers.NewRegistry()
	a := &fakeProvider{name: "qwenA", remaining: 0, translated: "A"}
	b := &fakeProvider{name: "qwenB", remaining: 100, translated: "B"}
	reg.Register(a)
	reg.Register(b)
	o := newTestOrchestrator(t, reg, []string{"qwenA", "qwenB"})

	req := core.TranslationRequest{Text: "hello", Source: "en", Target: "es", Model: "qwen-mt-turbo"}
	res, err := o.Translate(context.Background(), req, nil)
	require.NoError(t, err)
	require.Equal(t, "B", res.Text)
	require.Equal(t, "qwenB", o.selector.Current())
}
