// Package config loads blogcasd settings from YAML, .env and BLOGCAS_*
// environment variables, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "BLOGCAS_"

// Load reads path (optional; "" skips the file), then .env, then the
// environment, and finally fills defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: %w", err)
		default:
			if err := yaml.Unmarshal(b, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	// a missing .env is fine; Load never overrides variables already set
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Adjust(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	dur := func(name string, dst *Duration) {
		if v, ok := lookup(envPrefix + name); ok {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}

	str("ADDR", &c.Server.Addr)
	dur("SHUTDOWN_GRACE", &c.Server.Shutdown)
	if v, ok := lookup(envPrefix + "RATE_RPS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sRATE_RPS: %w", envPrefix, err))
		} else {
			c.Server.Rate.RPS = f
		}
	}
	num("RATE_BURST", &c.Server.Rate.Burst)

	str("LOG_BACKEND", &c.Log.Backend)
	str("LOG_LEVEL", &c.Log.Level)

	flag("CACHE_DISABLED", &c.Cache.Disabled)
	str("CACHE_NAMESPACE", &c.Cache.Namespace)
	str("CACHE_PROVIDER", &c.Cache.Provider)
	str("CACHE_GENSTORE", &c.Cache.GenStore)
	str("CACHE_CODEC", &c.Cache.Codec)
	flag("CACHE_SINGLEFLIGHT", &c.Cache.SingleFlight)
	if v, ok := lookup(envPrefix + "CACHE_MAX_DECODE"); ok {
		s, err := parseSize(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sCACHE_MAX_DECODE: %w", envPrefix, err))
		} else {
			c.Cache.MaxDecode = s
		}
	}

	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_PATH", &c.Store.Path)
	str("FIRESTORE_PROJECT", &c.Store.Firestore.ProjectID)
	str("FIRESTORE_PREFIX", &c.Store.Firestore.Prefix)

	str("NOTIFY_SINK", &c.Notify.Sink)
	str("NOTIFY_CODEC", &c.Notify.Codec)

	if v, ok := lookup(envPrefix + "REDIS_ADDRS"); ok {
		c.Redis.Addrs = splitList(v)
	}
	str("REDIS_PASSWORD", &c.Redis.Password)
	num("REDIS_DB", &c.Redis.DB)

	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func oneOf(field, v string, allowed ...string) error {
	if slices.Contains(allowed, v) {
		return nil
	}
	return fmt.Errorf("config: %s must be one of %s, got %q", field, strings.Join(allowed, "|"), v)
}

func orDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// Adjust fills defaults and rejects inconsistent settings.
func (c *Config) Adjust() error {
	orDefault(&c.Server.Addr, ":8080")
	orDefault(&c.Server.ReadTimeout, Duration(10*time.Second))
	orDefault(&c.Server.WriteTimeout, Duration(10*time.Second))
	orDefault(&c.Server.Shutdown, Duration(15*time.Second))
	if c.Server.Rate.RPS > 0 {
		orDefault(&c.Server.Rate.Burst, 10)
	}

	orDefault(&c.Log.Backend, "zap")
	orDefault(&c.Log.Level, "info")

	orDefault(&c.Cache.Namespace, "blog")
	orDefault(&c.Cache.Provider, "ristretto")
	orDefault(&c.Cache.GenStore, "local")
	orDefault(&c.Cache.GenTTL, Duration(24*time.Hour))
	orDefault(&c.Cache.Codec, "json")
	orDefault(&c.Cache.MaxDecode, SizeBytes(8<<20))
	orDefault(&c.Cache.Ristretto.NumCounters, int64(1e6))
	orDefault(&c.Cache.Ristretto.MaxCost, int64(256<<20))
	orDefault(&c.Cache.Ristretto.BufferItems, int64(64))
	orDefault(&c.Cache.Bigcache.LifeWindow, 4*time.Hour)

	orDefault(&c.Store.Backend, "pebble")
	orDefault(&c.Store.Path, "./data/blog")
	orDefault(&c.Store.Codec, "msgpack")

	orDefault(&c.Notify.Sink, "log")
	orDefault(&c.Notify.Codec, "json")
	orDefault(&c.Notify.Prefix, "blog:")
	orDefault(&c.Notify.Timeout, Duration(5*time.Second))
	orDefault(&c.Notify.Queue.Workers, 2)
	orDefault(&c.Notify.Queue.Size, 1024)

	orDefault(&c.Views.Workers, 2)
	orDefault(&c.Views.Size, 4096)

	errs := []error{
		oneOf("log.backend", c.Log.Backend, "zap", "logrus", "slog", "zerolog"),
		oneOf("cache.provider", c.Cache.Provider, "ristretto", "bigcache", "redis"),
		oneOf("cache.genstore", c.Cache.GenStore, "local", "redis"),
		oneOf("cache.codec", c.Cache.Codec, "json", "msgpack", "cbor"),
		oneOf("store.backend", c.Store.Backend, "memory", "pebble", "firestore"),
		oneOf("store.codec", c.Store.Codec, "json", "msgpack", "cbor"),
		oneOf("notify.sink", c.Notify.Sink, "log", "redis", "none"),
		oneOf("notify.codec", c.Notify.Codec, "json", "msgpack", "cbor", "protobuf"),
	}
	if c.NeedsRedis() && len(c.Redis.Addrs) == 0 {
		errs = append(errs, errors.New("config: redis.addrs is required by the selected provider, genstore or sink"))
	}
	if c.Store.Backend == "firestore" && c.Store.Firestore.ProjectID == "" {
		errs = append(errs, errors.New("config: store.firestore.project_id is required"))
	}
	return errors.Join(errs...)
}

// NeedsRedis reports whether any component is configured to use redis.
func (c *Config) NeedsRedis() bool {
	return c.Cache.Provider == "redis" || c.Cache.GenStore == "redis" || c.Notify.Sink == "redis"
}
