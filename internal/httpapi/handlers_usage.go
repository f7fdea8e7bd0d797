package httpapi

import (
	"net/http"
	"time"

	"github.com/jordanhubbard/mtcore/internal/core"
)

// UsageResponse is the wire shape of the one-shot "usage" action: throttle
// occupancy plus per-model usage/cost stats, per spec.md §6.
type UsageResponse struct {
	Occupancy interface{}           `json:"occupancy"`
	Usage     interface{}           `json:"usage"`
}

func UsageHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, UsageResponse{
			Occupancy: d.Throttle.Occupancy(),
			Usage:     d.Accountant.CostStats(time.Now()),
		})
	}
}

// MetricsSnapshotResponse is the wire shape of the one-shot "metrics"
// action: a structured-cloneable bundle of usage, TM ("cache"), provider and
// status state, per spec.md §6.
type MetricsSnapshotResponse struct {
	Usage     interface{}            `json:"usage"`
	Cache     interface{}            `json:"cache"`
	TM        interface{}            `json:"tm"`
	Providers []core.ProviderSnapshot `json:"providers"`
	Status    core.Badge             `json:"status"`
}

func MetricsSnapshotHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, MetricsSnapshotResponse{
			Usage:     d.Accountant.CostStats(time.Now()),
			Cache:     d.TM.Stats(),
			TM:        map[string]int{"entries": len(d.TM.GetAll())},
			Providers: providerSnapshots(d),
			Status:    d.Tracker.Badge(),
		})
	}
}

func providerSnapshots(d Dependencies) []core.ProviderSnapshot {
	names := d.Registry.List()
	out := make([]core.ProviderSnapshot, 0, len(names))
	for _, name := range names {
		p, err := d.Registry.Get(name)
		if err != nil {
			continue
		}
		out = append(out, p.Snapshot())
	}
	return out
}

// HomeInitResponse is the wire shape of the "home:init" action: a
// sanitised provider + usage snapshot for the extension's home view.
type HomeInitResponse struct {
	Providers []core.ProviderSnapshot `json:"providers"`
	Usage     interface{}            `json:"usage"`
	Status    core.Badge             `json:"status"`
}

func HomeInitHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HomeInitResponse{
			Providers: providerSnapshots(d),
			Usage:     d.Accountant.CostStats(time.Now()),
			Status:    d.Tracker.Badge(),
		})
	}
}

// HealthzHandler reports whether the service can actually route requests:
// at least one provider registered and reachable via the registry.
func HealthzHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := d.Registry.List()
		if len(names) == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy", "providers": 0,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "ok", "providers": len(names), "temporal": d.Temporal,
		})
	}
}
