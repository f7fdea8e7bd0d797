package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jordanhubbard/mtcore/internal/core"
	"github.com/jordanhubbard/mtcore/internal/kvstore"
	"github.com/jordanhubbard/mtcore/internal/tm"
)

func newTestTM(t *testing.T) *tm.TM {
	t.Helper()
	local, err := kvstore.NewBuntLocal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	inst := tm.New(local, 100, time.Hour)
	t.Cleanup(inst.Stop)
	return inst
}

func TestTMGetAllAndClearHandlers(t *testing.T) {
	tmInst := newTestTM(t)
	tmInst.Put("k1", "hola")
	d := Dependencies{TM: tmInst}

	req := httptest.NewRequest(http.MethodPost, "/v1/tm/get-all", nil)
	rec := httptest.NewRecorder()
	TMGetAllHandler(d)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "hola")

	req = httptest.NewRequest(http.MethodPost, "/v1/tm/clear", nil)
	rec = httptest.NewRecorder()
	TMClearHandler(d)(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, tmInst.GetAll())
}

func TestTMImportHandler(t *testing.T) {
	tmInst := newTestTM(t)
	d := Dependencies{TM: tmInst}

	payload, err := json.Marshal(tmImportRequest{Entries: []core.TMEntry{
		{Key: "a", Text: "hello"},
		{Key: "b", Text: "world"},
	}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/tm/import", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	TMImportHandler(d)(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, tmInst.GetAll(), 2)
}
