package providers

import (
	"context"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// SingleChunkStream adapts a provider that has no native streaming API
// (google-nmt, google-llm, deepl) to the translate_stream contract by
// calling unary and emitting the whole result as one chunk, so every
// adapter still satisfies Provider.TranslateStream.
func SingleChunkStream(ctx context.Context, req core.TranslationRequest, unary func(context.Context, core.TranslationRequest) (core.TranslationResult, error), onChunk func(string)) (core.TranslationResult, error) {
	res, err := unary(ctx, req)
	if err != nil {
		return core.TranslationResult{}, err
	}
	if onChunk != nil && res.Text != "" {
		onChunk(res.Text)
	}
	return res, nil
}
