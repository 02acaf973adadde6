package adminserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weinshel/hallucinator/internal/querycache"
)

type fakeController struct {
	stats     querycache.Stats
	cleared   bool
	negsClear bool
	names     []string
}

func (f *fakeController) CacheStats() querycache.Stats { return f.stats }
func (f *fakeController) ClearCache(ctx context.Context) error {
	f.cleared = true
	return nil
}
func (f *fakeController) ClearNegativeCache(ctx context.Context) error {
	f.negsClear = true
	return nil
}
func (f *fakeController) BackendNames() []string { return f.names }

func TestHealthzReportsBackends(t *testing.T) {
	ctrl := &fakeController{names: []string{"CrossRef", "arXiv"}}
	srv := &server{ctrl: ctrl, router: mux.NewRouter()}
	srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CrossRef")
}

func TestCacheClearInvokesController(t *testing.T) {
	ctrl := &fakeController{}
	srv := &server{ctrl: ctrl, router: mux.NewRouter()}
	srv.routes()

	req := httptest.NewRequest(http.MethodDelete, "/cache", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, ctrl.cleared)
}

func TestCacheStatsReturnsControllerValue(t *testing.T) {
	ctrl := &fakeController{stats: querycache.Stats{L1KeysAdded: 7, HasL2: true}}
	srv := &server{ctrl: ctrl, router: mux.NewRouter()}
	srv.routes()

	req := httptest.NewRequest(http.MethodGet, "/cache/stats", nil)
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"L1KeysAdded":7`)
}
