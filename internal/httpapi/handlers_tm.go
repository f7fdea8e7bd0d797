package httpapi

import (
	"net/http"

	"github.com/jordanhubbard/mtcore/internal/core"
)

func TMGetAllHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"entries": d.TM.GetAll()})
	}
}

func TMClearHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.TM.Clear()
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// tmImportRequest is the wire shape of "tm-import": a raw entry snapshot,
// the same shape "tm-export" and the persisted local[qwen-tm] layout use.
type tmImportRequest struct {
	Entries []core.TMEntry `json:"entries"`
}

func TMImportHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in tmImportRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		for _, e := range in.Entries {
			d.TM.Put(e.Key, e.Text)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func TMExportHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"entries": d.TM.GetAll()})
	}
}
