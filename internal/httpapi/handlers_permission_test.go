package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/mtcore/internal/permission"
)

func TestPermissionsCheckAndRequestHandlers(t *testing.T) {
	gate := permission.New(false)
	d := Dependencies{Permission: gate}

	checkBody := `{"origin":"https://example.com/some/page"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/permissions/check", bytes.NewBufferString(checkBody))
	rec := httptest.NewRecorder()
	PermissionsCheckHandler(d)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"granted":false`)

	grantBody := `{"origin":"https://example.com/some/page","granted":true}`
	req = httptest.NewRequest(http.MethodPost, "/v1/permissions/request", bytes.NewBufferString(grantBody))
	rec = httptest.NewRecorder()
	PermissionsRequestHandler(d)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/permissions/check", bytes.NewBufferString(checkBody))
	rec = httptest.NewRecorder()
	PermissionsCheckHandler(d)(rec, req)
	require.Contains(t, rec.Body.String(), `"granted":true`)
}

func TestPermissionsCheckHandlerIneligibleScheme(t *testing.T) {
	gate := permission.New(false)
	d := Dependencies{Permission: gate}

	body := `{"origin":"ftp://example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/permissions/check", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	PermissionsCheckHandler(d)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"granted":false`)
	require.Contains(t, rec.Body.String(), `"error"`)
}
