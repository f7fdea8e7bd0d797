package httpapi

import (
	"net/http"
	"time"
	"unicode"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// errorKindOf extracts the core.ErrorKind from whichever wrapped error
// shape the orchestrator/providers returned, defaulting to ErrInternal for
// anything unrecognized, per spec.md §7's "log, surface as generic error;
// never crash" policy for Internal.
func errorKindOf(err error) (core.ErrorKind, int64) {
	switch e := err.(type) {
	case *core.ClassifiedError:
		return e.Kind, e.RetryAfter
	case *core.ProviderError:
		return e.Kind, e.RetryAfter
	default:
		return core.ErrInternal, 0
	}
}

// httpStatusFor maps spec.md §7's error taxonomy onto HTTP status codes.
func httpStatusFor(kind core.ErrorKind) int {
	switch kind {
	case core.ErrOffline:
		return http.StatusServiceUnavailable
	case core.ErrRateLimited:
		return http.StatusTooManyRequests
	case core.ErrTimeout:
		return http.StatusGatewayTimeout
	case core.ErrCancelled:
		return http.StatusRequestTimeout
	case core.ErrAuthMissing:
		return http.StatusUnauthorized
	case core.ErrBadRequest:
		return http.StatusBadRequest
	case core.ErrServerError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeTranslateError(w http.ResponseWriter, err error) {
	kind, retryAfter := errorKindOf(err)
	writeJSON(w, httpStatusFor(kind), map[string]any{
		"error":          string(kind),
		"retryable":      kind.Retryable(),
		"retry_after_ms": retryAfter,
	})
}

// TranslateRequest is the wire shape of the one-shot "translate" action
// from spec.md §6, matching core.TranslationRequest's JSON tags.
type TranslateRequest struct {
	Text         string `json:"text"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	Model        string `json:"model"`
	ProviderHint string `json:"provider_hint,omitempty"`
	DeadlineMs   int64  `json:"deadline_ms,omitempty"`
}

// TranslateHandler implements the one-shot "translate" action. Streaming
// is not offered here (spec.md §6: "convenience; not used for streaming");
// callers that need incremental chunks use the channel API instead.
func TranslateHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in TranslateRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		if in.Text == "" || in.Target == "" {
			jsonError(w, http.StatusBadRequest, "text and target are required")
			return
		}

		req := core.TranslationRequest{
			Text: in.Text, Source: in.Source, Target: in.Target,
			Model: in.Model, ProviderHint: in.ProviderHint,
		}
		if in.DeadlineMs > 0 {
			req.Deadline = time.UnixMilli(in.DeadlineMs)
		}

		result, err := d.Dispatch(r.Context(), req, nil)
		if err != nil {
			writeTranslateError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// DetectRequest is the wire shape of the "detect" action.
type DetectRequest struct {
	Text     string `json:"text"`
	Detector string `json:"detector"` // "local" | "remote"
}

// DetectResponse is the wire shape of a successful "detect" response.
type DetectResponse struct {
	Lang       string  `json:"lang"`
	Confidence float64 `json:"confidence"`
}

// DetectHandler implements the "detect" action using a trivial
// Unicode-block heuristic standing in for the real language-detector
// model, per spec.md §1's out-of-scope note ("the language detector's
// model internals"). The "remote" detector mode delegates to the same
// heuristic: no remote detection provider is in scope either.
func DetectHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in DetectRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		lang, confidence := detectLanguage(in.Text)
		writeJSON(w, http.StatusOK, DetectResponse{Lang: lang, Confidence: confidence})
	}
}

// detectLanguage classifies text by the dominant Unicode block among its
// letters. Mixed-block text yields a lower confidence; empty or
// all-common-punctuation text defaults to "en" at zero confidence.
func detectLanguage(text string) (string, float64) {
	counts := map[string]int{}
	total := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		switch {
		case unicode.Is(unicode.Han, r):
			counts["zh"]++
		case unicode.Is(unicode.Hiragana, r), unicode.Is(unicode.Katakana, r):
			counts["ja"]++
		case unicode.Is(unicode.Hangul, r):
			counts["ko"]++
		case unicode.Is(unicode.Cyrillic, r):
			counts["ru"]++
		case unicode.Is(unicode.Arabic, r):
			counts["ar"]++
		case unicode.Is(unicode.Greek, r):
			counts["el"]++
		default:
			counts["en"]++
		}
	}
	if total == 0 {
		return "en", 0
	}
	best, bestN := "en", 0
	for lang, n := range counts {
		if n > bestN {
			best, bestN = lang, n
		}
	}
	return best, float64(bestN) / float64(total)
}
