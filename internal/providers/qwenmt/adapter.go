// Package qwenmt adapts the qwen-mt-turbo provider. Grounded on
// internal/providers/openai/adapter.go's Bearer-auth JSON POST shape and its
// ClassifyError status-code switch, retargeted from chat completions to
// translation and token-priced cost accounting.
package qwenmt

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/providers"
)

const defaultTimeout = 30 * time.Second

// Adapter implements providers.Provider for qwen-mt-turbo.
type Adapter struct {
	id       string
	apiKey   string
	baseURL  string
	client   *http.Client
	counters *providers.Counters
}

// Option configures an Adapter at construction.
type Option func(*Adapter)

// WithTimeout sets the HTTP client timeout, mirroring
// internal/providers/anthropic/adapter.go's Option pattern.
func WithTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.client.Timeout = d }
}

// New constructs a qwen-mt-turbo adapter.
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

func (a *Adapter) Name() string { return a.id }

// ApproxTokens is a 4-chars-per-token heuristic, matching the teacher's
// router/router.go estimateTokens.
func (a *Adapter) ApproxTokens(text string) int { return len(text) / 4 }

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source_language"`
	Target string `json:"target_language"`
	Stream bool   `json:"stream,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	TokensIn       int    `json:"tokens_in"`
	TokensOut      int    `json:"tokens_out"`
}

func (a *Adapter) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + a.apiKey}
}

func (a *Adapter) TranslateUnary(ctx context.Context, req core.TranslationRequest) (core.TranslationResult, error) {
	payload := translateRequest{Text: req.Text, Source: req.Source, Target: req.Target}
	body, err := providers.DoRequest(ctx, a.client, a.baseURL+"/v1/translate", payload, a.headers())
	if err != nil {
		return core.TranslationResult{}, a.classify(err)
	}
	var resp translateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return core.TranslationResult{}, &core.ProviderError{Kind: core.ErrInternal, Body: err.Error()}
	}
	tokensIn := resp.TokensIn
	if tokensIn == 0 {
		tokensIn = a.ApproxTokens(req.Text)
	}
	tokensOut := resp.TokensOut
	if tokensOut == 0 {
		tokensOut = a.ApproxTokens(resp.TranslatedText)
	}
	a.counters.Record(int64(tokensIn + tokensOut))
	return core.TranslationResult{
		Text:      resp.TranslatedText,
		Provider:  a.id,
		Model:     req.Model,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CharsIn:   len(req.Text),
		CharsOut:  len(resp.TranslatedText),
	}, nil
}

type streamLine struct {
	Chunk string `json:"chunk"`
	Done  bool   `json:"done"`
	Text  string `json:"text"`
}

// TranslateStream reads newline-delimited JSON chunks from the upstream
// streaming endpoint and forwards each partial chunk through onChunk,
// accumulating into the final text, per spec.md §4.7 step 5.
func (a *Adapter) TranslateStream(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	payload := translateRequest{Text: req.Text, Source: req.Source, Target: req.Target, Stream: true}
	body, err := providers.DoStreamRequest(ctx, a.client, a.baseURL+"/v1/translate/stream", payload, a.headers())
	if err != nil {
		return core.TranslationResult{}, a.classify(err)
	}
	defer body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var sl streamLine
		if err := json.Unmarshal([]byte(line), &sl); err != nil {
			continue
		}
		if sl.Done {
			full.WriteString(sl.Text)
			break
		}
		full.WriteString(sl.Chunk)
		if onChunk != nil {
			onChunk(sl.Chunk)
		}
	}
	if err := scanner.Err(); err != nil {
		return core.TranslationResult{}, &core.ProviderError{Kind: core.ErrInternal, Body: err.Error()}
	}

	text := full.String()
	tokensIn := a.ApproxTokens(req.Text)
	tokensOut := a.ApproxTokens(text)
	a.counters.Record(int64(tokensIn + tokensOut))
	return core.TranslationResult{
		Text:      text,
		Provider:  a.id,
		Model:     req.Model,
		TokensIn:  tokensIn,
		TokensOut: tokensOut,
		CharsIn:   len(req.Text),
		CharsOut:  len(text),
	}, nil
}

func (a *Adapter) GetQuota(ctx context.Context) (providers.Quota, bool) {
	return providers.Quota{}, false
}

func (a *Adapter) Snapshot() core.ProviderSnapshot {
	return a.counters.Snapshot(a.apiKey != "", "qwen-mt-turbo", a.baseURL)
}

// classify maps a DoRequest/DoStreamRequest error into the spec.md §4.4
// ProviderError taxonomy, refining the generic status classification with
// qwen-specific context-overflow body phrasing.
func (a *Adapter) classify(err error) error {
	pe, ok := err.(*core.ProviderError)
	if !ok {
		return &core.ProviderError{Kind: core.ErrInternal, Body: err.Error()}
	}
	if pe.StatusCode == 400 && strings.Contains(pe.Body, "context_length_exceeded") {
		return &core.ProviderError{Kind: core.ErrBadRequest, StatusCode: pe.StatusCode, Body: pe.Body}
	}
	return pe
}
