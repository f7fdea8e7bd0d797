// Package metrics exposes mtcore's Prometheus registry, grounded on
// internal/metrics/metrics.go's New()/Handler() shape — a fresh
// prometheus.NewRegistry() with every metric registered via MustRegister —
// retargeted from request-routing metrics to this domain's occupancy, TM,
// cost and badge-state metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	TranslationsTotal *prometheus.CounterVec
	TranslationLatencyMs *prometheus.HistogramVec
	CostUSD           *prometheus.CounterVec

	ThrottleDeniedTotal prometheus.Counter
	OccupancyRequests   prometheus.Gauge
	OccupancyTokens     prometheus.Gauge

	TMHitsTotal      prometheus.Counter
	TMMissesTotal    prometheus.Counter
	TMEvictionsTotal *prometheus.CounterVec // label: reason=ttl|lru
	TMEntries        prometheus.Gauge

	BadgeActiveCount prometheus.Gauge
	BadgeColorState  prometheus.Gauge // 0=idle,1=busy,2=error

	TemporalUp            prometheus.Gauge
	TemporalCircuitState  prometheus.Gauge // 0=closed, 1=open, 2=half-open
	TemporalFallbackTotal prometheus.Counter
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	m := &Registry{
		reg: reg,
		TranslationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtcore_translations_total",
			Help: "Total translation requests, by provider/model/status",
		}, []string{"provider", "model", "status"}),
		TranslationLatencyMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mtcore_translation_latency_ms",
			Help:    "Translation request latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}, []string{"provider", "model"}),
		CostUSD: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtcore_cost_usd_total",
			Help: "Estimated USD cost of translations",
		}, []string{"model", "provider"}),
		ThrottleDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtcore_throttle_denied_total",
			Help: "Total admission requests denied by the throttle",
		}),
		OccupancyRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_occupancy_requests",
			Help: "Current windowed request count",
		}),
		OccupancyTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_occupancy_tokens",
			Help: "Current windowed token count",
		}),
		TMHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtcore_tm_hits_total",
			Help: "Total translation-memory hits",
		}),
		TMMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtcore_tm_misses_total",
			Help: "Total translation-memory misses",
		}),
		TMEvictionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mtcore_tm_evictions_total",
			Help: "Total translation-memory evictions, by reason",
		}, []string{"reason"}),
		TMEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_tm_entries",
			Help: "Current translation-memory entry count",
		}),
		BadgeActiveCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_badge_active_count",
			Help: "Current in-flight translation request count",
		}),
		BadgeColorState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_badge_color_state",
			Help: "Badge colour state (0=idle,1=busy,2=error)",
		}),
		TemporalUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_temporal_up",
			Help: "Whether the Temporal workflow engine is connected (1=up, 0=down/disabled)",
		}),
		TemporalCircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mtcore_temporal_circuit_state",
			Help: "Temporal circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		TemporalFallbackTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mtcore_temporal_fallback_total",
			Help: "Total translate() calls that fell back to direct orchestration due to circuit breaker",
		}),
	}
	reg.MustRegister(
		m.TranslationsTotal, m.TranslationLatencyMs, m.CostUSD,
		m.ThrottleDeniedTotal, m.OccupancyRequests, m.OccupancyTokens,
		m.TMHitsTotal, m.TMMissesTotal, m.TMEvictionsTotal, m.TMEntries,
		m.BadgeActiveCount, m.BadgeColorState,
		m.TemporalUp, m.TemporalCircuitState, m.TemporalFallbackTotal,
	)
	return m
}

func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
