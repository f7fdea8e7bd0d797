// Package temporal wraps C7's translate() call as an optional durable
// workflow, grounded on internal/temporal/manager.go's client-dial +
// worker-registration shape and internal/temporal/workflows.go's
// activity-sequence pattern. It is opt-in and circuit-breaker-gated: the
// caller (internal/app) falls back to direct in-process orchestration
// whenever Temporal is disabled, unreachable, or the breaker is open.
package temporal

// TranslateInput is the serializable subset of core.TranslationRequest a
// workflow/activity can carry (workflow inputs/outputs must be JSON-codable;
// Deadline/ProviderHint are flattened to concrete fields for that reason).
type TranslateInput struct {
	Text         string
	Source       string
	Target       string
	Model        string
	ProviderHint string
	DeadlineMs   int64 // absolute unix-ms deadline; 0 = use component default
}

// TranslateOutput is the serializable subset of core.TranslationResult.
type TranslateOutput struct {
	Text      string
	Provider  string
	Model     string
	Cached    bool
	TokensIn  int
	TokensOut int
	CharsIn   int
	CharsOut  int
}
