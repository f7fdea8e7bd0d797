package temporal

import (
	"context"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// Translator is the subset of *orchestrator.Orchestrator the Translate
// activity needs; defined here (consumer side) so this package doesn't
// import internal/orchestrator's full dependency graph just to register
// an activity method, mirroring internal/router/engine.go's consumer-side
// interface idiom.
type Translator interface {
	Translate(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error)
}

// Activities holds the dependencies Temporal activities close over,
// grounded on internal/temporal/activities.go's Activities-struct-of-deps
// shape.
type Activities struct {
	orch Translator
}

func NewActivities(orch Translator) *Activities {
	return &Activities{orch: orch}
}

// Translate runs one non-streaming translate() call as a Temporal activity.
// Streaming is not durably dispatched (Temporal activity results must be a
// single serializable value), so the Temporal path only ever serves unary
// requests; internal/app keeps streaming requests on the direct in-process
// path regardless of breaker state.
func (a *Activities) Translate(ctx context.Context, in TranslateInput) (TranslateOutput, error) {
	req := core.TranslationRequest{
		Text:         in.Text,
		Source:       in.Source,
		Target:       in.Target,
		Model:        in.Model,
		ProviderHint: in.ProviderHint,
	}
	if in.DeadlineMs > 0 {
		req.Deadline = time.UnixMilli(in.DeadlineMs)
	}
	res, err := a.orch.Translate(ctx, req, nil)
	if err != nil {
		return TranslateOutput{}, err
	}
	return TranslateOutput{
		Text: res.Text, Provider: res.Provider, Model: res.Model, Cached: res.Cached,
		TokensIn: res.TokensIn, TokensOut: res.TokensOut, CharsIn: res.CharsIn, CharsOut: res.CharsOut,
	}, nil
}
