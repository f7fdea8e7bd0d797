package httpapi

import (
	"net/http"

	"github.com/jordanhubbard/mtcore/internal/permission"
)

// StatusHandler implements "get-status": the current derived Badge view.
func StatusHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := d.Tracker.Badge()
		writeJSON(w, http.StatusOK, map[string]any{
			"badge": b,
			"color": d.Tracker.ColorFor(b),
		})
	}
}

type translationStatusRequest struct {
	Status string `json:"status"`
}

// TranslationStatusHandler implements "translation-status": the DOM
// walker (out of scope per spec.md §1) reports its current per-tab phase;
// this core has no per-tab state of its own to update, so the call is
// only acknowledged.
func TranslationStatusHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in translationStatusRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

type ensureStartRequest struct {
	TabID string `json:"tabId"`
	URL   string `json:"url"`
}

// EnsureStartHandler implements "ensure-start": triggers auto-inject for
// tabID iff the tab's origin already has a permission grant and
// auto-translate is enabled, per spec.md §4.10.
func EnsureStartHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ensureStartRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		pattern, err := permission.OriginPattern(in.URL)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		started, err := d.Permission.EnsureStarted(in.TabID, pattern)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": started})
	}
}
