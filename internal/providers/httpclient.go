package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jordanhubbard/mtcore/internal/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("mtcore.providers")

// DoRequest posts payload to url with headers and returns the decoded body,
// classifying a non-2xx response as a *core.ProviderError. Grounded on
// internal/providers/http.go's DoRequest: same span wiring, same
// header-propagation, same status classification shape.
func DoRequest(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "providers.http.request", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.url", url))

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &core.ProviderError{Kind: core.ErrOffline, Body: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
		return nil, classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After"), string(respBody))
	}
	return respBody, nil
}

// DoStreamRequest is DoRequest's streaming counterpart: the response body is
// returned open for the caller to read incrementally (SSE/chunked bodies
// from the upstream provider), mirroring internal/providers/http.go's
// DoStreamRequest and its span-closes-on-Close wrapper.
func DoStreamRequest(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string) (io.ReadCloser, error) {
	ctx, span := tracer.Start(ctx, "providers.http.stream", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(attribute.String("http.url", url))

	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.End()
		return nil, &core.ProviderError{Kind: core.ErrOffline, Body: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", resp.StatusCode))
		span.End()
		return nil, classifyStatus(resp.StatusCode, resp.Header.Get("Retry-After"), string(b))
	}
	return &spanCloser{ReadCloser: resp.Body, span: span}, nil
}

type spanCloser struct {
	io.ReadCloser
	span trace.Span
}

func (s *spanCloser) Close() error {
	s.span.End()
	return s.ReadCloser.Close()
}

// classifyStatus maps an HTTP status into the spec.md §4.4 ProviderError
// taxonomy; adapters that need different body-text heuristics (e.g.
// context-length phrasing) refine ClassifyError on top of this.
func classifyStatus(status int, retryAfter, body string) *core.ProviderError {
	switch {
	case status == http.StatusTooManyRequests:
		return &core.ProviderError{Kind: core.ErrRateLimited, StatusCode: status, RetryAfter: parseRetryAfterMs(retryAfter), Body: body}
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &core.ProviderError{Kind: core.ErrAuthMissing, StatusCode: status, Body: body}
	case status >= 500:
		return &core.ProviderError{Kind: core.ErrServerError, StatusCode: status, Body: body}
	case status >= 400:
		return &core.ProviderError{Kind: core.ErrBadRequest, StatusCode: status, Body: body}
	default:
		return &core.ProviderError{Kind: core.ErrInternal, StatusCode: status, Body: body}
	}
}

func parseRetryAfterMs(v string) int64 {
	if v == "" {
		return 0
	}
	var secs int64
	if _, err := fmt.Sscanf(v, "%d", &secs); err != nil {
		return 0
	}
	return secs * 1000
}
