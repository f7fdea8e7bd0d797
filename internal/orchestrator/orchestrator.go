// Package orchestrator implements C7: the full translation request
// lifecycle. Grounded on internal/httpapi/handlers_chat.go's ChatHandler
// (decode -> route -> call provider -> record metrics/store -> respond,
// with streaming and non-streaming branches sharing recording logic) and on
// the top-level orchestrator/orchestrator.go for the simpler
// single-call-with-retry shape. The nine numbered steps in spec.md §4.7 are
// implemented unchanged in meaning.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/jordanhubbard/mtcore/internal/accounting"
	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/providers"
	"github.com/jordanhubbard/mtcore/internal/selector"
	"github.com/jordanhubbard/mtcore/internal/throttle"
	"github.com/jordanhubbard/mtcore/internal/tm"
)

// Orchestrator wires C3 (TM), C2 (throttle), C5 (selector) over C4
// (registry), and C6 (accountant) into the nine-step translate() sequence.
type Orchestrator struct {
	tm         *tm.TM
	throttle   *throttle.Throttle
	selector   *selector.Selector
	registry   *providers.Registry
	accountant *accounting.Accountant
	logger     *slog.Logger
	nowFunc    func() time.Time

	isOffline  func() bool
	onOffline  func(bool)
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }
func WithNowFunc(f func() time.Time) Option { return func(o *Orchestrator) { o.nowFunc = f } }

// WithOfflineProbe wires a host-offline check (an external collaborator,
// per spec.md §1's out-of-scope list) and a callback fired when a Network
// error coincides with it, per spec.md §4.7 step 7.
func WithOfflineProbe(isOffline func() bool, onOffline func(bool)) Option {
	return func(o *Orchestrator) { o.isOffline = isOffline; o.onOffline = onOffline }
}

func New(t *tm.TM, th *throttle.Throttle, sel *selector.Selector, reg *providers.Registry, acc *accounting.Accountant, opts ...Option) *Orchestrator {
	o := &Orchestrator{tm: t, throttle: th, selector: sel, registry: reg, accountant: acc, logger: slog.Default(), nowFunc: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Translate implements spec.md §4.7's nine steps.
func (o *Orchestrator) Translate(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	// Step 1: fingerprint.
	key := Fingerprint(req.Model, req)

	// Step 2: TM lookup.
	if entry, hit := o.tm.Get(key); hit {
		return core.TranslationResult{Text: entry.Text, Cached: true, Provider: "", Model: req.Model}, nil
	}

	// Step 3: provider selection.
	name, err := o.selector.Next(ctx, o.registry)
	if err != nil {
		return core.TranslationResult{}, &core.ClassifiedError{Err: err, Kind: core.ErrInternal}
	}
	p, err := o.registry.Get(name)
	if err != nil {
		return core.TranslationResult{}, &core.ClassifiedError{Err: err, Kind: core.ErrInternal}
	}

	// Step 4: throttle admission.
	estimate := int64(p.ApproxTokens(req.Text))
	decision, admissionID := o.throttle.TryAdmit(estimate)
	if !decision.Admitted {
		if !o.waitForAdmission(ctx, req, decision.RetryAfterMs) {
			return core.TranslationResult{}, o.terminalErrFor(ctx)
		}
		decision, admissionID = o.throttle.TryAdmit(estimate)
		if !decision.Admitted {
			return core.TranslationResult{}, &core.ClassifiedError{Kind: core.ErrRateLimited, RetryAfter: decision.RetryAfterMs}
		}
	}

	// Step 5/6: call provider, with at most one selector-advance retry on a
	// retryable error.
	result, callErr := o.callProvider(ctx, p, req, onChunk)
	if callErr != nil {
		classified := o.classify(callErr)
		if classified.Kind.Retryable() {
			nextName := o.selector.Advance()
			if nextName != name {
				if p2, err2 := o.registry.Get(nextName); err2 == nil {
					result, callErr = o.callProvider(ctx, p2, req, onChunk)
					if callErr == nil {
						p = p2
					}
				}
			}
		}
	}
	if callErr != nil {
		classified := o.classify(callErr)
		return core.TranslationResult{}, classified
	}

	// Step 4 reconciliation: tell the throttle the actual usage.
	o.throttle.RecordUsed(admissionID, int64(result.TokensIn+result.TokensOut))

	// Step 8: persist + account.
	o.tm.Put(key, result.Text)
	o.accountant.Record(result.Provider, req.Model, result.TokensIn, result.TokensOut, result.CharsIn, result.CharsOut)

	return result, nil
}

func (o *Orchestrator) callProvider(ctx context.Context, p providers.Provider, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	if req.Stream {
		return p.TranslateStream(ctx, req, onChunk)
	}
	return p.TranslateUnary(ctx, req)
}

// waitForAdmission suspends until the earlier of retryAfterMs elapsing,
// ctx firing, or req's deadline, per spec.md §4.7 step 4. Returns false if
// the wait ended for any reason other than the timer firing.
func (o *Orchestrator) waitForAdmission(ctx context.Context, req core.TranslationRequest, retryAfterMs int64) bool {
	deadline := req.DefaultDeadline(o.nowFunc())
	timer := time.NewTimer(time.Duration(retryAfterMs) * time.Millisecond)
	defer timer.Stop()
	deadlineTimer := time.NewTimer(time.Until(deadline))
	defer deadlineTimer.Stop()
	select {
	case <-timer.C:
		return true
	case <-deadlineTimer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) terminalErrFor(ctx context.Context) error {
	if ctx.Err() == context.Canceled {
		return &core.ClassifiedError{Kind: core.ErrCancelled}
	}
	return &core.ClassifiedError{Kind: core.ErrTimeout}
}

// classify maps a raw provider/selector error into a *core.ClassifiedError,
// applying the offline-detection rule from spec.md §4.7 step 7: a
// Network-class error (surfaced here as ErrOffline from the provider's HTTP
// transport) is only reported as the distinct Offline condition when the
// host itself is offline; otherwise it's treated as a retryable
// server-side hiccup.
func (o *Orchestrator) classify(err error) *core.ClassifiedError {
	if ce, ok := err.(*core.ClassifiedError); ok {
		return ce
	}
	pe, ok := err.(*core.ProviderError)
	if !ok {
		return &core.ClassifiedError{Err: err, Kind: core.ErrInternal}
	}
	if pe.Kind == core.ErrOffline {
		offline := o.isOffline != nil && o.isOffline()
		if offline {
			if o.onOffline != nil {
				o.onOffline(true)
			}
			return &core.ClassifiedError{Err: pe, Kind: core.ErrOffline}
		}
		return &core.ClassifiedError{Err: pe, Kind: core.ErrServerError}
	}
	return &core.ClassifiedError{Err: pe, Kind: pe.Kind, RetryAfter: pe.RetryAfter}
}
