package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	gfs "cloud.google.com/go/firestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/blogcas"
	"github.com/unkn0wn-root/blogcas/config"
	"github.com/unkn0wn-root/blogcas/genstore"
	hasync "github.com/unkn0wn-root/blogcas/hooks/async"
	"github.com/unkn0wn-root/blogcas/httpapi"
	logrusadapter "github.com/unkn0wn-root/blogcas/log/logrus"
	slogadapter "github.com/unkn0wn-root/blogcas/log/slog"
	zapadapter "github.com/unkn0wn-root/blogcas/log/zap"
	zerologadapter "github.com/unkn0wn-root/blogcas/log/zerolog"
	"github.com/unkn0wn-root/blogcas/metrics"
	"github.com/unkn0wn-root/blogcas/notify"
	notifyredis "github.com/unkn0wn-root/blogcas/notify/redis"
	"github.com/unkn0wn-root/blogcas/provider"
	"github.com/unkn0wn-root/blogcas/provider/bigcache"
	redisprovider "github.com/unkn0wn-root/blogcas/provider/redis"
	"github.com/unkn0wn-root/blogcas/provider/ristretto"
	"github.com/unkn0wn-root/blogcas/service"
	"github.com/unkn0wn-root/blogcas/sloghooks"
	"github.com/unkn0wn-root/blogcas/store"
	"github.com/unkn0wn-root/blogcas/store/firestore"
	"github.com/unkn0wn-root/blogcas/store/pebble"
)

type app struct {
	log     blogcas.Logger
	handler http.Handler
	closers []func()
}

// close runs the closers in reverse order of construction.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) onClose(f func()) { a.closers = append(a.closers, f) }

func newLogger(cfg config.LogConfig) (blogcas.Logger, func(), error) {
	switch cfg.Backend {
	case "logrus":
		l, err := logrusadapter.New(cfg.Level)
		return l, func() {}, err
	case "slog":
		return slogadapter.New(cfg.Level), func() {}, nil
	case "zerolog":
		l, err := zerologadapter.New(cfg.Level)
		return l, func() {}, err
	default:
		l, err := zapadapter.New(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Sync() }, nil
	}
}

func build(ctx context.Context, cfg *config.Config) (a *app, err error) {
	log, syncLog, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	a = &app{log: log}
	a.onClose(syncLog)
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var rdb goredis.UniversalClient
	if cfg.NeedsRedis() {
		rdb = goredis.NewUniversalClient(&goredis.UniversalOptions{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.onClose(func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			// the cache degrades to misses; the sink logs failures
			log.Warn("redis_unreachable", blogcas.Fields{"addrs": cfg.Redis.Addrs, "err": err})
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg, cfg.Cache.Namespace)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	cache, err := newCache(cfg, rdb, m, a)
	if err != nil {
		return nil, err
	}

	st, err := newStore(ctx, cfg, log, a)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { _ = st.Close() })

	sink, err := newSink(cfg, rdb, log, m)
	if err != nil {
		return nil, err
	}
	a.onClose(sink.Close)

	svc, err := service.New(service.Deps{
		Store:       st,
		Cache:       cache,
		Sink:        sink,
		Codec:       cfg.Cache.Codec,
		MaxDecode:   int(cfg.Cache.MaxDecode),
		Logger:      log,
		Metrics:     m,
		ViewWorkers: cfg.Views.Workers,
		ViewQueue:   cfg.Views.Size,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(svc.Close)

	opts := httpapi.Options{Logger: log, RPS: cfg.Server.Rate.RPS, Burst: cfg.Server.Rate.Burst}
	if cfg.Server.Metrics {
		opts.Extra = map[string]http.Handler{"/metrics": promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	}
	a.handler = httpapi.New(svc, opts)
	return a, nil
}

func newCache(cfg *config.Config, rdb goredis.UniversalClient, m *metrics.Metrics, a *app) (blogcas.Cache, error) {
	var (
		p   provider.Provider
		err error
	)
	switch cfg.Cache.Provider {
	case "bigcache":
		p, err = bigcache.New(cfg.Cache.Bigcache)
	case "redis":
		p, err = redisprovider.New(redisprovider.Config{Client: rdb})
	default:
		p, err = ristretto.New(cfg.Cache.Ristretto)
	}
	if err != nil {
		return nil, fmt.Errorf("cache provider %s: %w", cfg.Cache.Provider, err)
	}

	var gs genstore.GenStore
	if cfg.Cache.GenStore == "redis" {
		gs = genstore.NewRedis(rdb, cfg.Cache.Namespace, cfg.Cache.GenTTL.D())
	}

	hooks := blogcas.MultiHooks{m}
	if cfg.Cache.LogEvery > 0 {
		sl := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		hooks = append(hooks, sloghooks.New(sl, sloghooks.Options{
			SelfHealEvery: cfg.Cache.LogEvery,
			LookupEvery:   cfg.Cache.LogEvery,
		}))
	}
	ah := hasync.New(hooks, 1, 4096)
	a.onClose(ah.Close)

	c, err := blogcas.New(blogcas.Options{
		Namespace:    cfg.Cache.Namespace,
		Provider:     p,
		GenStore:     gs,
		Logger:       a.log,
		Hooks:        ah,
		DefaultTTL:   cfg.Cache.DefaultTTL.D(),
		SingleFlight: cfg.Cache.SingleFlight,
		Disabled:     cfg.Cache.Disabled,
	})
	if err != nil {
		_ = p.Close(context.Background())
		return nil, err
	}
	a.onClose(func() { _ = c.Close(context.Background()) })
	return c, nil
}

func newStore(ctx context.Context, cfg *config.Config, log blogcas.Logger, a *app) (store.Store, error) {
	switch cfg.Store.Backend {
	case "memory":
		return pebble.Open(pebble.Options{Codec: cfg.Store.Codec, Logger: log})
	case "firestore":
		client, err := gfs.NewClient(ctx, cfg.Store.Firestore.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		a.onClose(func() { _ = client.Close() })
		return firestore.New(client, cfg.Store.Firestore, log)
	default:
		return pebble.Open(pebble.Options{Path: cfg.Store.Path, Codec: cfg.Store.Codec, Logger: log})
	}
}

func newSink(cfg *config.Config, rdb goredis.UniversalClient, log blogcas.Logger, m *metrics.Metrics) (*notify.Async, error) {
	var inner notify.Sink
	switch cfg.Notify.Sink {
	case "redis":
		s, err := notifyredis.New(rdb, cfg.Notify.Prefix, cfg.Notify.Codec)
		if err != nil {
			return nil, fmt.Errorf("notify: %w", err)
		}
		inner = s
	case "none":
		inner = notify.Nop{}
	default:
		inner = notify.LogSink{Log: log}
	}
	return notify.NewAsync(inner, notify.AsyncOptions{
		Workers: cfg.Notify.Queue.Workers,
		Queue:   cfg.Notify.Queue.Size,
		Timeout: cfg.Notify.Timeout.D(),
		Logger:  log,
		OnDrop:  func() { m.Dropped("events") },
	}), nil
}
