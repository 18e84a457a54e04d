package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "blogcas.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.Shutdown.D())
	assert.Equal(t, "zap", cfg.Log.Backend)
	assert.Equal(t, "ristretto", cfg.Cache.Provider)
	assert.Equal(t, "local", cfg.Cache.GenStore)
	assert.Equal(t, SizeBytes(8<<20), cfg.Cache.MaxDecode)
	assert.Equal(t, "pebble", cfg.Store.Backend)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
}

func TestLoadYAML(t *testing.T) {
	p := writeFile(t, `
server:
  addr: ":9000"
  read_timeout: 3
  shutdown_grace: 2s
  rate_limit:
    rps: 5
log:
  backend: logrus
  level: debug
cache:
  provider: bigcache
  codec: cbor
  max_decode: 1MiB
  bigcache:
    life_window: 30m
store:
  backend: memory
notify:
  sink: none
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout.D())
	assert.Equal(t, 2*time.Second, cfg.Server.Shutdown.D())
	assert.Equal(t, 10, cfg.Server.Rate.Burst)
	assert.Equal(t, "logrus", cfg.Log.Backend)
	assert.Equal(t, "bigcache", cfg.Cache.Provider)
	assert.Equal(t, "cbor", cfg.Cache.Codec)
	assert.Equal(t, SizeBytes(1<<20), cfg.Cache.MaxDecode)
	assert.Equal(t, 30*time.Minute, cfg.Cache.Bigcache.LifeWindow)
	assert.Equal(t, "memory", cfg.Store.Backend)
}

func TestEnvOverridesFile(t *testing.T) {
	p := writeFile(t, "server:\n  addr: \":9000\"\n")
	t.Setenv("BLOGCAS_ADDR", ":7000")
	t.Setenv("BLOGCAS_CACHE_GENSTORE", "redis")
	t.Setenv("BLOGCAS_REDIS_ADDRS", "a:6379, b:6379")
	t.Setenv("BLOGCAS_CACHE_MAX_DECODE", "64KB")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "redis", cfg.Cache.GenStore)
	assert.Equal(t, []string{"a:6379", "b:6379"}, cfg.Redis.Addrs)
	assert.Equal(t, SizeBytes(64000), cfg.Cache.MaxDecode)
	assert.True(t, cfg.NeedsRedis())
}

func TestBadEnvValues(t *testing.T) {
	env := map[string]string{
		"BLOGCAS_RATE_BURST":     "lots",
		"BLOGCAS_CACHE_DISABLED": "maybe",
	}
	cfg := &Config{}
	err := cfg.applyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BLOGCAS_RATE_BURST")
	assert.Contains(t, err.Error(), "BLOGCAS_CACHE_DISABLED")
}

func TestAdjustRejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"provider", func(c *Config) { c.Cache.Provider = "memcached" }, "cache.provider"},
		{"redis addrs", func(c *Config) { c.Notify.Sink = "redis" }, "redis.addrs"},
		{"firestore project", func(c *Config) { c.Store.Backend = "firestore" }, "project_id"},
		{"log backend", func(c *Config) { c.Log.Backend = "glog" }, "log.backend"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &Config{}
			tc.mut(c)
			err := c.Adjust()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseSize(t *testing.T) {
	v, err := parseSize("2048")
	require.NoError(t, err)
	assert.Equal(t, SizeBytes(2048), v)

	_, err = parseSize("a lot")
	assert.Error(t, err)
	assert.Equal(t, "1.0 MiB", SizeBytes(1<<20).String())
}
