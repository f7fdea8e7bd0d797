// Package httpapi exposes spec.md §6's one-shot message API and C8's
// persistent-channel control surface over HTTP, grounded on
// internal/httpapi/routes.go's Dependencies/MountRoutes assembly pattern.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jordanhubbard/mtcore/internal/accounting"
	"github.com/jordanhubbard/mtcore/internal/channel"
	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/metrics"
	"github.com/jordanhubbard/mtcore/internal/permission"
	"github.com/jordanhubbard/mtcore/internal/providers"
	"github.com/jordanhubbard/mtcore/internal/ratelimit"
	"github.com/jordanhubbard/mtcore/internal/selector"
	"github.com/jordanhubbard/mtcore/internal/status"
	"github.com/jordanhubbard/mtcore/internal/store"
	"github.com/jordanhubbard/mtcore/internal/throttle"
	"github.com/jordanhubbard/mtcore/internal/tm"
	"github.com/jordanhubbard/mtcore/internal/vault"
)

// Dispatch runs one translate() call, honoring ctx cancellation at every
// suspension point; onChunk is nil for unary requests.
type Dispatch func(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error)

// Dependencies bundles every component the HTTP surface calls into.
type Dependencies struct {
	Dispatch   Dispatch
	Channel    *channel.Channel
	TM         *tm.TM
	Throttle   *throttle.Throttle
	Registry   *providers.Registry
	Selector   *selector.Selector
	Accountant *accounting.Accountant
	Tracker    *status.Tracker
	Permission *permission.Gate
	Metrics    *metrics.Registry
	Vault      *vault.Vault
	Store      store.Store

	Temporal bool // whether a Temporal backend is live, surfaced in /healthz

	AdminToken  string
	RateLimiter *ratelimit.Limiter
}

// maxRequestBodySize caps POST bodies, mirroring the teacher's
// bodySizeLimit middleware (10 MB).
const maxRequestBodySize = 10 << 20

func bodySizeLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost || r.Method == http.MethodPut {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func MountRoutes(r chi.Router, d Dependencies) {
	r.Get("/healthz", HealthzHandler(d))
	r.Handle("/metrics", d.Metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(bodySizeLimit(maxRequestBodySize))
		if d.RateLimiter != nil {
			r.Use(d.RateLimiter.Middleware)
		}

		r.Post("/translate", TranslateHandler(d))
		r.Post("/detect", DetectHandler(d))
		r.Get("/usage", UsageHandler(d))
		r.Get("/metrics", MetricsSnapshotHandler(d))

		r.Post("/tm/get-all", TMGetAllHandler(d))
		r.Post("/tm/clear", TMClearHandler(d))
		r.Post("/tm/import", TMImportHandler(d))
		r.Post("/tm/export", TMExportHandler(d))

		r.Post("/permissions/check", PermissionsCheckHandler(d))
		r.Post("/permissions/request", PermissionsRequestHandler(d))

		r.Get("/home/init", HomeInitHandler(d))
		r.Post("/translation-status", TranslationStatusHandler(d))
		r.Get("/status", StatusHandler(d))
		r.Post("/ensure-start", EnsureStartHandler(d))

		r.Get("/channel/{client_id}/stream", ChannelStreamHandler(d))
		r.Post("/channel/{client_id}/translate", ChannelTranslateHandler(d))
		r.Post("/channel/{client_id}/cancel", ChannelCancelHandler(d))
		r.Post("/channel/{client_id}/detect", DetectHandler(d))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
