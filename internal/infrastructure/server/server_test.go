package server

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AppFeed/backend/internal/infrastructure/logging"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	cfg.Sandbox.PoolSize = 1
	if mutate != nil {
		mutate(cfg)
	}

	srv, err := NewServerWithLogger(cfg, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestNewServerSeedsFeed(t *testing.T) {
	srv := newTestServer(t, nil)

	stats := srv.SeedStats()
	assert.Equal(t, 4, stats.Users)
	assert.Equal(t, 4, stats.Apps)

	req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool             `json:"success"`
		Apps    []map[string]any `json:"apps"`
	}
	require.NoError(t, sonic.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Apps, 4)
}

func TestSeedDisabled(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) { cfg.Seed.Enabled = false })
	assert.Zero(t, srv.SeedStats().Apps)
}

func TestSeedDir(t *testing.T) {
	dir := t.TempDir()
	appDir := filepath.Join(dir, "hello")
	require.NoError(t, os.MkdirAll(appDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "app.yaml"), []byte(`
id: hello-world
owner: user2
title: Hello World
html: "<h1>Hello</h1>"
css: "h1 { color: teal; }"
js: "console.log('hi');"
`), 0o644))

	srv := newTestServer(t, func(cfg *config.Config) { cfg.Seed.Dir = dir })
	assert.Equal(t, 5, srv.SeedStats().Apps)

	req := httptest.NewRequest(http.MethodGet, "/api/apps/hello-world", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResponsesAreCompressed(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/apps", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tip Calculator")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = "0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNewServerRejectsBadStorage(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = "postgres"
	_, err := NewServerWithLogger(cfg, logging.NewNop())
	assert.Error(t, err)
}
