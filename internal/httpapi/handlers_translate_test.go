package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/mtcore/internal/core"
)

func TestDetectLanguage(t *testing.T) {
	lang, conf := detectLanguage("你好世界")
	require.Equal(t, "zh", lang)
	require.Greater(t, conf, 0.0)

	lang, conf = detectLanguage("")
	require.Equal(t, "en", lang)
	require.Zero(t, conf)
}

func TestTranslateHandlerRejectsMissingFields(t *testing.T) {
	d := Dependencies{Dispatch: func(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
		t.Fatal("dispatch should not be called for an invalid request")
		return core.TranslationResult{}, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/v1/translate", bytes.NewBufferString(`{"text":""}`))
	rec := httptest.NewRecorder()

	TranslateHandler(d)(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateHandlerDispatchesAndReturnsResult(t *testing.T) {
	d := Dependencies{Dispatch: func(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
		require.Equal(t, "hola", req.Text)
		return core.TranslationResult{Text: "hello", Provider: "qwenmt-a", Model: "qwen-mt-turbo"}, nil
	}}
	body := `{"text":"hola","source":"es","target":"en"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/translate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	TranslateHandler(d)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"hello"`)
}

func TestTranslateHandlerMapsClassifiedErrors(t *testing.T) {
	d := Dependencies{Dispatch: func(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
		return core.TranslationResult{}, &core.ClassifiedError{Kind: core.ErrRateLimited, RetryAfter: 500}
	}}
	body := `{"text":"hi","target":"fr"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/translate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	TranslateHandler(d)(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Contains(t, rec.Body.String(), `"retry_after_ms":500`)
}
