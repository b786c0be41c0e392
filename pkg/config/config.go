// Package config loads the glucifer configuration file.
//
// The file is TOML at $XDG_CONFIG_HOME/glucifer/config.toml (falling back
// to ~/.config/glucifer/config.toml). Every key is optional:
//
//	[viewer]
//	bin_path = "/opt/lavavu/bin"
//	port = 9999
//	quality = 90
//	retry_delay = "1s"
//
//	[store]
//	tmpdir = "/scratch/vis"
//	fallback_to_last = true
//	split = false
//
//	[cache]
//	dir = "~/.cache/glucifer/exports"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[archive]
//	mongo_uri = "mongodb://localhost:27017"
//	database = "glucifer"
//	collection = "figures"
//
//	[server]
//	addr = ":8080"
//
// Command-line flags override file values.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

// FileName is the config file name inside the config directory.
const FileName = "config.toml"

// Config is the whole configuration file.
type Config struct {
	Viewer  ViewerConfig  `toml:"viewer"`
	Store   StoreConfig   `toml:"store"`
	Cache   CacheConfig   `toml:"cache"`
	Archive ArchiveConfig `toml:"archive"`
	Server  ServerConfig  `toml:"server"`
}

type ViewerConfig struct {
	BinPath    string   `toml:"bin_path"`
	Port       int      `toml:"port"`
	Quality    int      `toml:"quality"`
	RetryDelay Duration `toml:"retry_delay"`
}

type StoreConfig struct {
	TmpDir         string `toml:"tmpdir"`
	FallbackToLast bool   `toml:"fallback_to_last"`
	Split          bool   `toml:"split"`
}

type CacheConfig struct {
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

type ArchiveConfig struct {
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a string such as "1s".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the configuration used when no file exists.
func Default() Config {
	tmp := os.Getenv("TMPDIR")
	if tmp == "" {
		tmp = "/tmp"
	}
	return Config{
		Viewer: ViewerConfig{
			Port:       9999,
			Quality:    90,
			RetryDelay: Duration{time.Second},
		},
		Store: StoreConfig{
			TmpDir:         tmp,
			FallbackToLast: true,
		},
		Cache: CacheConfig{
			TTL: Duration{24 * time.Hour},
		},
		Archive: ArchiveConfig{
			Database:   "glucifer",
			Collection: "figures",
		},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Dir returns the glucifer config directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "glucifer"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "glucifer"), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads path on top of [Default]. A missing file is not an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses TOML on top of [Default] and validates the result.
// Unknown keys are rejected.
func Decode(data []byte) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidArgument, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, errors.New(errors.ErrCodeInvalidArgument, "unknown config key %q", undecoded[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Viewer.Port < 1 || c.Viewer.Port > 65535:
		return errors.New(errors.ErrCodeInvalidArgument, "viewer.port %d out of range", c.Viewer.Port)
	case c.Viewer.Quality < 1 || c.Viewer.Quality > 100:
		return errors.New(errors.ErrCodeInvalidArgument, "viewer.quality %d out of range [1,100]", c.Viewer.Quality)
	case c.Viewer.RetryDelay.Duration < 0:
		return errors.New(errors.ErrCodeInvalidArgument, "viewer.retry_delay cannot be negative")
	case c.Cache.TTL.Duration < 0:
		return errors.New(errors.ErrCodeInvalidArgument, "cache.ttl cannot be negative")
	}
	return nil
}

// Encode renders c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
