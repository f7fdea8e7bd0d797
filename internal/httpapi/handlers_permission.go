package httpapi

import (
	"net/http"
	"time"

	"github.com/jordanhubbard/mtcore/internal/permission"
	"github.com/jordanhubbard/mtcore/internal/store"
)

func auditRecord(pattern string, granted bool) store.PermissionAudit {
	return store.PermissionAudit{Timestamp: time.Now(), Pattern: pattern, Granted: granted}
}

type originRequest struct {
	Origin  string `json:"origin"`
	Granted bool   `json:"granted"`
}

type originResponse struct {
	Granted bool   `json:"granted"`
	Origin  string `json:"origin"`
	Error   string `json:"error,omitempty"`
}

// PermissionsCheckHandler implements "permissions-check": resolves origin
// to a pattern and reports whether it has already been granted. An
// ineligible scheme (anything but http/https/file) is reported as ungranted
// rather than a request error, since the client can't do anything about it.
func PermissionsCheckHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in originRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		pattern, err := permission.OriginPattern(in.Origin)
		if err != nil {
			writeJSON(w, http.StatusOK, originResponse{Granted: false, Origin: in.Origin, Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, originResponse{Granted: d.Permission.HasPermission(pattern), Origin: in.Origin})
	}
}

// PermissionsRequestHandler implements "permissions-request": records the
// grant/deny decision for origin's pattern.
func PermissionsRequestHandler(d Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in originRequest
		if err := decodeJSON(r, &in); err != nil {
			jsonError(w, http.StatusBadRequest, "bad json")
			return
		}
		pattern, err := permission.OriginPattern(in.Origin)
		if err != nil {
			writeJSON(w, http.StatusOK, originResponse{Granted: false, Origin: in.Origin, Error: err.Error()})
			return
		}
		d.Permission.RequestPermission(pattern, in.Granted)
		if d.Store != nil {
			_ = d.Store.LogPermissionAudit(r.Context(), auditRecord(pattern, in.Granted))
		}
		writeJSON(w, http.StatusOK, originResponse{Granted: in.Granted, Origin: in.Origin})
	}
}
