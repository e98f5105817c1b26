package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, srv *httptest.Server, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRouter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.png"), []byte("png"), 0o644))

	srv := httptest.NewServer(NewRouter(Options{
		StaticDir: dir,
		Status: func() StatusResponse {
			return StatusResponse{Status: "running", Feed: "ws", SecondaryMinPrice: 10, Channels: map[string]string{"discord": "ready"}}
		},
	}))
	defer srv.Close()

	resp, body := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	resp, body = get(t, srv, "/static/abc.png")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "png", body)

	resp, _ = get(t, srv, "/static/missing.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = get(t, srv, "/status")
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	var status StatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "ready", status.Channels["discord"])

	resp, body = get(t, srv, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "solana_sales_bot_")
}

func TestRouter_NoStaticDir(t *testing.T) {
	srv := httptest.NewServer(NewRouter(Options{}))
	defer srv.Close()

	resp, _ := get(t, srv, "/static/abc.png")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = get(t, srv, "/status")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
