// Package googlellm adapts Google's LLM-based translation endpoint (the
// "premium" char-priced tier, per core.PremiumModelClass). Grounded on
// internal/providers/anthropic/adapter.go's Option/WithTimeout pattern and
// header-based auth shape.
package googlellm

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/providers"
)

const defaultTimeout = 30 * time.Second

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

func (a *Adapter) Name() string                { return a.id }
func (a *Adapter) ApproxTokens(text string) int { return len(text) / 4 }

type translateRequest struct {
	Contents struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

type translateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{"x-goog-api-key": a.apiKey}
}

func (a *Adapter) TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error) {
	var payload translateRequest
	payload.Contents.Parts = append(payload.Contents.Parts, struct {
		Text string `json:"text"`
	}{Text: req.Text})
	payload.SourceLanguage = req.Source
	payload.TargetLanguage = req.Target

	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v1/models/gemini-translate:generateContent", payload, a.headers())
	if err != nil {
		return core.TranslationResult{}, err
	}
	var resp translateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.TranslationResult{}, &core.ProviderError{Kind: core.ErrInternal, Body: err.Error()}
	}
	text := ""
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		text = resp.Candidates[0].Content.Parts[0].Text
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
	return a.counters.Snapshot(a.apiKey != "", "google-llm", a.baseURL)
}
