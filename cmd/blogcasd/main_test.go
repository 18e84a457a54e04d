package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/blogcas/config"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Log:    config.LogConfig{Backend: "slog", Level: "error"},
		Store:  config.StoreConfig{Backend: "memory"},
		Notify: config.NotifyConfig{Sink: "none"},
		Server: config.ServerConfig{Metrics: true},
	}
	require.NoError(t, cfg.Adjust())
	return cfg
}

func TestBuildServesAPIAndMetrics(t *testing.T) {
	a, err := build(context.Background(), memoryConfig(t))
	require.NoError(t, err)
	defer a.close()

	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	a.handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestBuildEveryLogger(t *testing.T) {
	for _, backend := range []string{"zap", "logrus", "slog", "zerolog"} {
		t.Run(backend, func(t *testing.T) {
			cfg := memoryConfig(t)
			cfg.Log.Backend = backend
			cfg.Cache.Provider = "bigcache"
			a, err := build(context.Background(), cfg)
			require.NoError(t, err)
			a.close()
		})
	}
}

func TestConfigCommandPrintsYAML(t *testing.T) {
	p := filepath.Join(t.TempDir(), "blogcas.yaml")
	require.NoError(t, os.WriteFile(p, []byte("server:\n  addr: \":9999\"\nstore:\n  backend: memory\n"), 0o600))

	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "--config", p})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), ":9999")
	assert.Contains(t, out.String(), "backend: memory")
}
