// Package googlenmt adapts Google's classic Neural Machine Translation
// endpoint, char-priced per spec.md §6. Grounded on
// internal/providers/openai/adapter.go's request/response shape, retargeted
// to a translate payload; has no native streaming API, so TranslateStream
// uses providers.SingleChunkStream.
package googlenmt

import (
	"encoding/json"
	"net/http"
	"time"

	"context"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/providers"
)

const defaultTimeout = 20 * time.Second

type Adapter struct {
	id       string
	apiKey   string
	baseURL  string
	client   *http.Client
	counters *providers.Counters
}

type Option func(*Adapter)

func WithTimeout(d time.Duration) Option { return func(a *Adapter) { a.client.Timeout = d } }

func New(id, apiKey, baseURL string, opts ...Option) *Adapter {
	a := &Adapter{
		id:       id,
		apiKey:   apiKey,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: defaultTimeout},
		counters: providers.NewCounters(5 * time.Minute),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Name() string                 { return a.id }
func (a *Adapter) ApproxTokens(text string) int  { return len(text) / 4 }

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Key    string `json:"key"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (a *Adapter) TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error) {
	payload := translateRequest{Q: req.Text, Source: req.Source, Target: req.Target, Key: a.apiKey}
	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/language/translate/v2", payload, nil)
	if err != nil {
		return core.TranslationResult{}, err
	}
	var resp translateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.TranslationResult{}, &core.ProviderError{Kind: core.ErrInternal, Body: err.Error()}
	}
	text := ""
	if len(resp.Data.Translations) > 0 {
		text = resp.Data.Translations[0].TranslatedText
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
	return a.counters.Snapshot(a.apiKey != "", "google-nmt", a.baseURL)
}
