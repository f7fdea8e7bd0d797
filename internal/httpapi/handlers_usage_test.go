package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/mtcore/internal/providers"
)

func TestHealthzHandlerReportsUnhealthyWithNoProviders(t *testing.T) {
	d := Dependencies{Registry: providers.NewRegistry()}
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	HealthzHandler(d)(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
