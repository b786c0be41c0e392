package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

func TestDecode(t *testing.T) {
	cfg, err := Decode([]byte(`
[viewer]
bin_path = "/opt/lavavu"
port = 8000
retry_delay = "250ms"

[store]
fallback_to_last = false

[cache]
redis_addr = "localhost:6379"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Viewer.BinPath != "/opt/lavavu" || cfg.Viewer.Port != 8000 {
		t.Errorf("viewer = %+v", cfg.Viewer)
	}
	if cfg.Viewer.Quality != 90 {
		t.Errorf("quality = %d, want default 90", cfg.Viewer.Quality)
	}
	if cfg.Viewer.RetryDelay.Duration != 250*time.Millisecond {
		t.Errorf("retry_delay = %v", cfg.Viewer.RetryDelay)
	}
	if cfg.Store.FallbackToLast {
		t.Error("fallback_to_last should be overridden")
	}
	if cfg.Cache.TTL.Duration != 24*time.Hour {
		t.Errorf("ttl = %v, want default", cfg.Cache.TTL)
	}
	if cfg.Archive.Collection != "figures" || cfg.Server.Addr != ":8080" {
		t.Errorf("defaults lost: %+v %+v", cfg.Archive, cfg.Server)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		toml string
	}{
		{"syntax", "[viewer"},
		{"unknown key", "[viewer]\ncolour = 1"},
		{"bad duration", "[viewer]\nretry_delay = \"soon\""},
		{"port range", "[viewer]\nport = 70000"},
		{"quality range", "[viewer]\nquality = 0"},
		{"negative ttl", "[cache]\nttl = \"-1h\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.toml))
			if !errors.Is(err, errors.ErrCodeInvalidArgument) {
				t.Errorf("err = %v, want INVALID_ARGUMENT", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Viewer.Port != Default().Viewer.Port {
		t.Errorf("missing file should yield defaults")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Viewer.BinPath = "/usr/local/bin"
	data, err := cfg.Encode()
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	p, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if p != filepath.Join("/xdg", "glucifer", FileName) {
		t.Errorf("Path = %s", p)
	}
}
