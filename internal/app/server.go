package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.temporal.io/sdk/client"

	"github.com/jordanhubbard/mtcore/internal/accounting"
	"github.com/jordanhubbard/mtcore/internal/channel"
	"github.com/jordanhubbard/mtcore/internal/circuitbreaker"
	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/httpapi"
	"github.com/jordanhubbard/mtcore/internal/kvstore"
	"github.com/jordanhubbard/mtcore/internal/logging"
	"github.com/jordanhubbard/mtcore/internal/metrics"
	"github.com/jordanhubbard/mtcore/internal/orchestrator"
	"github.com/jordanhubbard/mtcore/internal/permission"
	"github.com/jordanhubbard/mtcore/internal/providers"
	"github.com/jordanhubbard/mtcore/internal/providers/deepl"
	"github.com/jordanhubbard/mtcore/internal/providers/googlellm"
	"github.com/jordanhubbard/mtcore/internal/providers/googlenmt"
	"github.com/jordanhubbard/mtcore/internal/providers/qwenmt"
	"github.com/jordanhubbard/mtcore/internal/ratelimit"
	"github.com/jordanhubbard/mtcore/internal/selector"
	"github.com/jordanhubbard/mtcore/internal/status"
	"github.com/jordanhubbard/mtcore/internal/store"
	temporalpkg "github.com/jordanhubbard/mtcore/internal/temporal"
	"github.com/jordanhubbard/mtcore/internal/throttle"
	"github.com/jordanhubbard/mtcore/internal/tm"
	"github.com/jordanhubbard/mtcore/internal/tracing"
	"github.com/jordanhubbard/mtcore/internal/vault"
)

// Server wires C1-C10 together behind one HTTP surface, grounded on
// internal/app/server.go's construction order (logger, tracing, chi
// router+middleware, metrics, vault, store, then domain components, then
// Temporal+breaker, then httpapi.MountRoutes).
type Server struct {
	cfg Config
	r   *chi.Mux

	logger  *slog.Logger
	vault   *vault.Vault
	localKV *kvstore.BuntLocal
	syncKV  *kvstore.HTTPSync
	db      store.Store

	tm         *tm.TM
	throttle   *throttle.Throttle
	registry   *providers.Registry
	selector   *selector.Selector
	accountant *accounting.Accountant
	orch       *orchestrator.Orchestrator
	tracker    *status.Tracker
	channel    *channel.Channel
	permission *permission.Gate
	metrics    *metrics.Registry

	temporal    *temporalpkg.Manager // nil when Temporal disabled or unreachable
	breaker     *circuitbreaker.Breaker
	rateLimiter *ratelimit.Limiter

	otelShutdown func(context.Context) error // nil when OTel disabled
	archiveStop  chan struct{}
}

func NewServer(cfg Config) (*Server, error) {
	logger := logging.Setup(cfg.LogLevel)

	otelShutdown, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.OTelEnabled,
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
	})
	if err != nil {
		return nil, fmt.Errorf("otel setup: %w", err)
	}
	if cfg.OTelEnabled {
		logger.Info("opentelemetry tracing enabled", slog.String("endpoint", cfg.OTelEndpoint))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if cfg.OTelEnabled {
		r.Use(tracing.Middleware())
	}
	corsOrigins := cfg.CORSOrigins
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	m := metrics.New()

	rl := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, time.Second)

	v, err := vault.New(cfg.VaultEnabled)
	if err != nil {
		return nil, fmt.Errorf("vault init: %w", err)
	}
	if cfg.VaultPassword != "" && cfg.VaultEnabled {
		logger.Warn("MTCORE_VAULT_PASSWORD is set: the password is visible in the process environment")
		if err := v.Unlock([]byte(cfg.VaultPassword)); err != nil {
			logger.Error("failed to auto-unlock vault", slog.String("error", err.Error()))
		} else {
			logger.Info("vault auto-unlocked from MTCORE_VAULT_PASSWORD")
		}
	}

	localKV, err := kvstore.NewBuntLocal(cfg.LocalKVPath)
	if err != nil {
		return nil, fmt.Errorf("local kv store: %w", err)
	}
	var syncKV *kvstore.HTTPSync
	if cfg.SyncURL != "" {
		syncKV = kvstore.NewHTTPSync(cfg.SyncURL, &http.Client{Timeout: 10 * time.Second}, logger)
	}

	db, err := store.NewSQLite(cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite migrate: %w", err)
	}
	logger.Info("database initialized", slog.String("dsn", cfg.DBDSN))

	tmOpts := []tm.Option{WithTMLogger(logger)}
	if cfg.TMSync && syncKV != nil {
		tmOpts = append(tmOpts, tm.WithSync(syncKV))
	}
	tm_ := tm.New(localKV, cfg.TMMaxEntries, time.Duration(cfg.TMTTLMs)*time.Millisecond, tmOpts...)
	if cfg.TMSync && syncKV != nil {
		tm_.EnableSync(context.Background(), true)
	}

	th := throttle.New(cfg.ThrottleWindow, cfg.RequestLimit, cfg.TokenLimit)

	reg := providers.NewRegistry()
	registerProviders(reg, cfg.Providers, v, time.Duration(cfg.ProviderTimeoutSecs)*time.Second, logger)

	sel := selector.New(cfg.Rotation, cfg.RequestThreshold, cfg.TokenThreshold, selector.WithThrottle(th))

	costTable := core.DefaultCostTable()
	acc := accounting.New(costTable, accounting.WithOnRecord(func(r core.UsageRecord) {
		cm := costTable[r.Model]
		go func() {
			err := db.LogUsage(context.Background(), store.UsageRecord{
				Timestamp: r.Time, Provider: r.Provider, Model: r.Model,
				TokensIn: r.TokensIn, TokensOut: r.TokensOut, CharsIn: r.CharsIn, CharsOut: r.CharsOut,
				CostUSD: cm.Cost(r.TokensIn, r.TokensOut, r.CharsIn, r.CharsOut),
			})
			if err != nil {
				logger.Warn("failed to archive usage record", slog.String("error", err.Error()))
			}
		}()
	}))
	if records, err := db.ListUsage(context.Background(), time.Now().Add(-30*24*time.Hour), 100000); err != nil {
		logger.Warn("failed to seed accountant from store", slog.String("error", err.Error()))
	} else {
		acc.Seed(toUsageRecords(records))
	}

	tracker := status.New(status.WithThrottle(th), status.WithOnUpdate(func(b core.Badge) {
		m.BadgeActiveCount.Set(float64(b.ActiveCount))
		switch {
		case b.LastErrorRecentMs > 0:
			m.BadgeColorState.Set(2)
		case b.ActiveCount > 0:
			m.BadgeColorState.Set(1)
		default:
			m.BadgeColorState.Set(0)
		}
	}))

	orch := orchestrator.New(tm_, th, sel, reg, acc,
		orchestrator.WithLogger(logger),
		orchestrator.WithOfflineProbe(func() bool { return false }, tracker.SetOffline),
	)

	ch := channel.New(
		channel.WithLifecycleHooks(tracker.RequestStarted, tracker.RequestFinished),
		channel.WithLogger(logger),
	)

	perm := permission.New(cfg.AutoTranslate, permission.WithEnsureStart(func(clientID string) error {
		ch.Attach(clientID, 64)
		return nil
	}))

	s := &Server{
		cfg: cfg, r: r, logger: logger, vault: v,
		localKV: localKV, syncKV: syncKV, db: db,
		tm: tm_, throttle: th, registry: reg, selector: sel, accountant: acc,
		orch: orch, tracker: tracker, channel: ch, permission: perm, metrics: m,
		otelShutdown: otelShutdown, rateLimiter: rl,
		archiveStop: make(chan struct{}),
	}

	go s.runTMSnapshotArchival()

	s.breaker = circuitbreaker.New(
		circuitbreaker.WithThreshold(3),
		circuitbreaker.WithCooldown(30*time.Second),
		circuitbreaker.WithOnStateChange(func(from, to circuitbreaker.State) {
			logger.Warn("temporal circuit breaker state change",
				slog.String("from", from.String()), slog.String("to", to.String()))
			m.TemporalCircuitState.Set(float64(to))
		}),
	)

	if cfg.TemporalEnabled {
		acts := temporalpkg.NewActivities(orch)
		tmgr, err := temporalpkg.New(temporalpkg.Config{
			HostPort: cfg.TemporalHostPort, Namespace: cfg.TemporalNamespace, TaskQueue: cfg.TemporalTaskQueue,
		}, acts)
		if err != nil {
			logger.Error("failed to initialize temporal", slog.String("error", err.Error()))
		} else if err := tmgr.Start(); err != nil {
			logger.Error("failed to start temporal worker", slog.String("error", err.Error()))
			tmgr.Stop()
		} else {
			s.temporal = tmgr
			m.TemporalUp.Set(1)
			logger.Info("temporal workflow engine started",
				slog.String("host", cfg.TemporalHostPort), slog.String("task_queue", cfg.TemporalTaskQueue))
		}
	}

	deps := httpapi.Dependencies{
		Dispatch:     s.dispatchTranslate,
		Channel:      ch,
		TM:           tm_,
		Throttle:     th,
		Registry:     reg,
		Selector:     sel,
		Accountant:   acc,
		Tracker:      tracker,
		Permission:   perm,
		Metrics:      m,
		Vault:        v,
		Store:        db,
		Temporal:     s.temporal != nil,
		AdminToken:   cfg.AdminToken,
		RateLimiter:  rl,
	}
	httpapi.MountRoutes(r, deps)

	return s, nil
}

// WithTMLogger adapts a *slog.Logger into a tm.Option without importing
// log/slog twice under two names; kept local since tm.WithLogger is the
// only TM option this package uses directly by name.
func WithTMLogger(l *slog.Logger) tm.Option { return tm.WithLogger(l) }

func toUsageRecords(recs []store.UsageRecord) []core.UsageRecord {
	out := make([]core.UsageRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, core.UsageRecord{
			Time: r.Timestamp, Provider: r.Provider, Model: r.Model,
			TokensIn: r.TokensIn, TokensOut: r.TokensOut, CharsIn: r.CharsIn, CharsOut: r.CharsOut,
		})
	}
	return out
}

// registerProviders constructs one adapter per configured entry. deepl's
// pro/free variants share one HTTP surface but are registered as distinct
// names so selector rotation and cost accounting see them as separate
// provider identities, per DESIGN.md's Open Question 3 decision.
func registerProviders(reg *providers.Registry, pcs []ProviderConfig, v *vault.Vault, timeout time.Duration, logger *slog.Logger) {
	for _, pc := range pcs {
		key := resolveAPIKey(v, pc.Name, pc.APIKey, logger)
		switch pc.Kind {
		case "qwenmt":
			reg.Register(qwenmt.New(pc.Name, key, pc.BaseURL, qwenmt.WithTimeout(timeout)))
		case "googlenmt":
			reg.Register(googlenmt.New(pc.Name, key, pc.BaseURL, googlenmt.WithTimeout(timeout)))
		case "googlellm":
			reg.Register(googlellm.New(pc.Name, key, pc.BaseURL, googlellm.WithTimeout(timeout)))
		case "deepl":
			reg.Register(deepl.New(pc.Name, key, pc.BaseURL, pc.Free, deepl.WithTimeout(timeout)))
		default:
			logger.Warn("unknown provider kind, skipping", slog.String("kind", pc.Kind), slog.String("name", pc.Name))
		}
	}
}

// resolveAPIKey round-trips a plaintext key through the vault (Set then
// Get) so it only ever lives in memory decrypted, matching the teacher's
// vault-backed credential storage; a locked or disabled vault leaves the
// key as given.
func resolveAPIKey(v *vault.Vault, name, plain string, logger *slog.Logger) string {
	if plain == "" || v.IsLocked() {
		return plain
	}
	if err := v.Set(name, plain); err != nil {
		logger.Warn("vault: failed to store provider key", slog.String("provider", name), slog.String("error", err.Error()))
		return plain
	}
	stored, err := v.Get(name)
	if err != nil {
		logger.Warn("vault: failed to retrieve provider key", slog.String("provider", name), slog.String("error", err.Error()))
		return plain
	}
	return stored
}

// dispatchTranslate is the single entry point every HTTP handler and the
// channel use to run a translate() call. Streaming requests always take
// the direct in-process path (a Temporal activity result must be one
// serializable value, so it cannot carry incremental chunks); unary
// requests are dispatched through Temporal when enabled, reachable, and
// the breaker is closed, with fallback to direct orchestration otherwise,
// grounded on internal/app/server.go's Temporal-dispatch-with-fallback
// wiring in ChatHandler.
func (s *Server) dispatchTranslate(ctx context.Context, req core.TranslationRequest, onChunk func(string)) (core.TranslationResult, error) {
	if req.Stream || s.temporal == nil || !s.breaker.Allow() {
		return s.orch.Translate(ctx, req, onChunk)
	}

	in := temporalpkg.TranslateInput{
		Text: req.Text, Source: req.Source, Target: req.Target,
		Model: req.Model, ProviderHint: req.ProviderHint,
	}
	if !req.Deadline.IsZero() {
		in.DeadlineMs = req.Deadline.UnixMilli()
	}

	run, err := s.temporal.Client().ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		TaskQueue: s.temporal.TaskQueue(),
	}, temporalpkg.TranslateWorkflow, in)
	if err != nil {
		s.breaker.RecordFailure()
		s.metrics.TemporalFallbackTotal.Inc()
		s.logger.Warn("temporal dispatch failed, falling back to direct orchestration", slog.String("error", err.Error()))
		return s.orch.Translate(ctx, req, onChunk)
	}

	var out temporalpkg.TranslateOutput
	if err := run.Get(ctx, &out); err != nil {
		s.breaker.RecordFailure()
		s.metrics.TemporalFallbackTotal.Inc()
		s.logger.Warn("temporal workflow failed, falling back to direct orchestration", slog.String("error", err.Error()))
		return s.orch.Translate(ctx, req, onChunk)
	}
	s.breaker.RecordSuccess()
	return core.TranslationResult{
		Text: out.Text, Provider: out.Provider, Model: out.Model, Cached: out.Cached,
		TokensIn: out.TokensIn, TokensOut: out.TokensOut, CharsIn: out.CharsIn, CharsOut: out.CharsOut,
	}, nil
}

func (s *Server) Router() http.Handler { return s.r }

// runTMSnapshotArchival periodically persists the translation memory's
// occupancy counters to the durable store, giving the "metrics" one-shot
// API's tm/cache fields a historical trail beyond the live in-process
// counters, mirroring the teacher's periodic-snapshot background loops.
func (s *Server) runTMSnapshotArchival() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.archiveStop:
			return
		case <-ticker.C:
			st := s.tm.Stats()
			err := s.db.SaveTMSnapshot(context.Background(), store.TMSnapshot{
				Timestamp: time.Now(), Entries: st.Entries, Hits: st.Hits, Misses: st.Misses,
			})
			if err != nil {
				s.logger.Warn("failed to archive tm snapshot", slog.String("error", err.Error()))
			}
		}
	}
}

// Close drains background resources in reverse dependency order.
func (s *Server) Close() error {
	close(s.archiveStop)
	if s.temporal != nil {
		s.temporal.Stop()
	}
	s.tm.Stop()
	s.throttle.Stop()
	s.rateLimiter.Stop()
	if err := s.localKV.Close(); err != nil {
		s.logger.Warn("local kv close error", slog.String("error", err.Error()))
	}
	if s.otelShutdown != nil {
		if err := s.otelShutdown(context.Background()); err != nil {
			s.logger.Warn("otel shutdown error", slog.String("error", err.Error()))
		}
	}
	return s.db.Close()
}
