package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/blogcas/provider/bigcache"
	"github.com/unkn0wn-root/blogcas/provider/ristretto"
	"github.com/unkn0wn-root/blogcas/store/firestore"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Cache  CacheConfig  `yaml:"cache"`
	Store  StoreConfig  `yaml:"store"`
	Notify NotifyConfig `yaml:"notify"`
	Views  QueueConfig  `yaml:"views"`
	Redis  RedisConfig  `yaml:"redis"`
}

type ServerConfig struct {
	Addr         string    `yaml:"addr"`
	ReadTimeout  Duration  `yaml:"read_timeout"`
	WriteTimeout Duration  `yaml:"write_timeout"`
	Shutdown     Duration  `yaml:"shutdown_grace"`
	Metrics      bool      `yaml:"metrics"`
	Rate         RateLimit `yaml:"rate_limit"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"` // 0 disables
	Burst int     `yaml:"burst"`
}

type LogConfig struct {
	Backend string `yaml:"backend"` // zap | logrus | slog | zerolog
	Level   string `yaml:"level"`
}

type CacheConfig struct {
	Disabled     bool      `yaml:"disabled"`
	Namespace    string    `yaml:"namespace"`
	Provider     string    `yaml:"provider"` // ristretto | bigcache | redis
	GenStore     string    `yaml:"genstore"` // local | redis
	GenTTL       Duration  `yaml:"gen_ttl"`
	SingleFlight bool      `yaml:"singleflight"`
	Codec        string    `yaml:"codec"` // json | msgpack | cbor
	MaxDecode    SizeBytes `yaml:"max_decode"`
	DefaultTTL   Duration  `yaml:"default_ttl"`

	Ristretto ristretto.Config `yaml:"ristretto"`
	Bigcache  bigcache.Config  `yaml:"bigcache"`

	// LogEvery samples cache events into the log; 0 logs none.
	LogEvery uint64 `yaml:"log_every"`
}

type StoreConfig struct {
	Backend   string           `yaml:"backend"` // memory | pebble | firestore
	Path      string           `yaml:"path"`
	Codec     string           `yaml:"codec"`
	Firestore firestore.Config `yaml:"firestore"`
}

type NotifyConfig struct {
	Sink    string      `yaml:"sink"`  // log | redis | none
	Codec   string      `yaml:"codec"` // json | msgpack | cbor | protobuf
	Prefix  string      `yaml:"prefix"`
	Timeout Duration    `yaml:"timeout"`
	Queue   QueueConfig `yaml:"queue"`
}

type QueueConfig struct {
	Workers int `yaml:"workers"`
	Size    int `yaml:"size"`
}

type RedisConfig struct {
	Addrs    []string `yaml:"addrs"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
}

// SizeBytes accepts "1MiB", "64KB" or a plain integer.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func parseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

func (s SizeBytes) MarshalYAML() (any, error) { return s.String(), nil }

// Duration accepts "100ms" or a plain number of seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(n * float64(time.Second)), nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration value: %q", raw)
	}
	return Duration(v), nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }
