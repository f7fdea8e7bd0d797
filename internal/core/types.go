// Package core holds the value types shared across mtcore's components, so
// that kvstore, tm, providers, throttle, accounting, orchestrator and channel
// all agree on one definition instead of redeclaring it.
package core

import "time"

// TranslationRequest is an immutable input to the orchestrator.
type TranslationRequest struct {
	Text         string        `json:"text"`
	Source       string        `json:"source"`
	Target       string        `json:"target"`
	Model        string        `json:"model"`
	Stream       bool          `json:"stream"`
	ProviderHint string        `json:"provider_hint,omitempty"`
	Deadline     time.Time     `json:"-"`
	DeadlineMs   int64         `json:"deadline_ms,omitempty"`
}

// DefaultDeadline returns the spec default deadline for the request's mode
// (unary: 20s, streaming: 60s) when Deadline is unset.
func (r TranslationRequest) DefaultDeadline(now time.Time) time.Time {
	if !r.Deadline.IsZero() {
		return r.Deadline
	}
	if r.Stream {
		return now.Add(60 * time.Second)
	}
	return now.Add(20 * time.Second)
}

// TranslationResult is returned on success (including TM hits).
type TranslationResult struct {
	Text       string `json:"text"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Cached     bool   `json:"cached"`
	TokensIn   int    `json:"tokens_in"`
	TokensOut  int    `json:"tokens_out"`
	CharsIn    int    `json:"chars_in"`
	CharsOut   int    `json:"chars_out"`
}

// TMKey is a fingerprint over (provider_family, source, target, normalized_text).
type TMKey string

// TMEntry is one translation-memory record.
type TMEntry struct {
	Key  TMKey  `json:"key"`
	Text string `json:"text"`
	// TS is the last-access timestamp in ms since epoch; serves both TTL and LRU.
	TS int64 `json:"ts"`
}

// ProviderSnapshot is the registry's external view of one provider's state.
type ProviderSnapshot struct {
	APIKeyPresent bool   `json:"api_key_present"`
	Model         string `json:"model"`
	Endpoint      string `json:"endpoint"`
	Requests      int64  `json:"requests"`
	Tokens        int64  `json:"tokens"`
	TotalRequests int64  `json:"total_requests"`
	TotalTokens   int64  `json:"total_tokens"`
}

// UsageRecord is one accounted usage event.
type UsageRecord struct {
	Time      time.Time `json:"time"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	CharsIn   int       `json:"chars_in"`
	CharsOut  int       `json:"chars_out"`
}

// Badge is the derived, never-persisted status view (C9).
type Badge struct {
	ActiveCount       int   `json:"active_count"`
	UsingPlus         bool  `json:"using_plus"`
	Offline           bool  `json:"offline"`
	LastErrorRecentMs int64 `json:"last_error_recent_ms"`
}

// PremiumModelClass reports whether a model ID is flagged "premium" (the
// badge surfaces a distinct glyph while any premium-class request is in flight).
func PremiumModelClass(model string) bool {
	switch model {
	case "google-llm", "deepl-pro":
		return true
	default:
		return false
	}
}
