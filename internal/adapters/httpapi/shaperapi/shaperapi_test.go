package shaperapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/snokvist/fpvcore/internal/core/services/shaper"
	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trafficctrl.conf")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestConfigRoundTrip(t *testing.T) {
	path := writeConf(t, "[general]\nwlan = wlan0\n")
	sh := shaper.New(shaper.DefaultConfig(), nil, nil, nil, nil)
	s := New(sh, path)
	r := NewRouter(s)

	body := []byte("[general]\nwlan = wlan1\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/config", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, s.ReloadRequested())

	req = httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, body, w.Body.Bytes())
}

func TestSetThenGet(t *testing.T) {
	path := writeConf(t, "[general]\nwlan = wlan0\n")
	sh := shaper.New(shaper.DefaultConfig(), nil, nil, nil, nil)
	s := New(sh, path)
	r := NewRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/set?key=general.wlan&value=wlan1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/get?key=general.wlan", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "wlan1")
}

func TestResponsesCarryNoCacheHeaders(t *testing.T) {
	path := writeConf(t, "[general]\nwlan = wlan0\n")
	sh := shaper.New(shaper.DefaultConfig(), nil, nil, nil, nil)
	s := New(sh, path)
	r := NewRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, "close", w.Header().Get("Connection"))
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestGetMissingKeyReturnsJSONError(t *testing.T) {
	path := writeConf(t, "[general]\nwlan = wlan0\n")
	sh := shaper.New(shaper.DefaultConfig(), nil, nil, nil, nil)
	s := New(sh, path)
	r := NewRouter(s)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/get?key=general.missing", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":404,"message":"key not found"}`, w.Body.String())
}

func TestActionReloadSetsFlag(t *testing.T) {
	path := writeConf(t, "[general]\nwlan = wlan0\n")
	sh := shaper.New(shaper.DefaultConfig(), nil, nil, nil, nil)
	s := New(sh, path)
	r := NewRouter(s)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/action/reload", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, s.ReloadRequested())
	s.ClearReload()
	require.False(t, s.ReloadRequested())
}
