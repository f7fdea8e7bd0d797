// Package deepl adapts DeepL's translation API, registered twice under two
// names (deepl-pro, deepl-free) sharing this adapter family, since their
// wire protocol is identical and only their billing identity differs
// (deepl-free always costs zero, per Open Question decision 2 in
// DESIGN.md). Grounded on internal/providers/anthropic/adapter.go's
// x-api-key header auth shape.
package deepl

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/providers"
)

const defaultTimeout = 20 * time.Second

type Adapter struct {
	id       string
	apiKey   string
	baseURL  string
	free     bool
	client   *http.Client
	counters *providers.Counters
}

type Option func(*Adapter)

func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.client.Timeout = d } }

// New constructs a DeepL adapter. free marks it as the zero-cost free tier
// (deepl-free); it has no effect on the wire protocol, only on how the
// accountant prices it.
func New(id, apiKey, baseURL string, free bool, opts ...Option) *Adapter {
	a := &Adapter{
		id:       id,
		apiKey:   apiKey,
		baseURL:  baseURL,
		free:     free,
		client:   &http.Client{Timeout: defaultTimeout},
		counters: providers.NewCounters(5 * time.Minute),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Name() string                { return a.id }
func (a *Adapter) ApproxTokens(text string) int { return len(text) / 4 }

type translateRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{"Authorization": "DeepL-Auth-Key " + a.apiKey}
}

func (a *Adapter) TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error) {
	payload := translateRequest{Text: []string{req.Text}, TargetLang: req.Target}
	if req.Source != "auto" {
		payload.SourceLang = req.Source
	}
	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v2/translate", payload, a.headers())
	if err != nil {
		return core.TranslationResult{}, err
	}
	var resp translateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.TranslationResult{}, &core.ProviderError{Kind: core.ErrInternal, Body: err.Error()}
	}
	text := ""
	if len(resp.Translations) > 0 {
		text = resp.Translations[0].Text
	}
	a.counters.Record(int64(len(req.Text) + len(text)))
	return core.TranslationResult{
		Text:     text,
		Provider: a.id,
		Model:    req.Model,
		CharsIn:  len(req.Text),
		CharsOut: len(text),
	}, nil
}

func (a *Adapter) TranslateStream(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	return providers.SingleChunkStream(ctx, req, a.TranslateUnary, onChunk)
}

func (a *Adapter) GetQuota(ctx context.Context) (providers.Quota, bool) { return providers.Quota{}, false }

func (a *Adapter) Snapshot() core.ProviderSnapshot {
	return a.counters.Snapshot(a.apiKey != "", a.id, a.baseURL)
}
