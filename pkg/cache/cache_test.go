package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chronictectonic/underworld2/pkg/observability"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "key")
	if err != nil || hit || data != nil {
		t.Errorf("Get = %q, %v, %v; want miss", data, hit, err)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(filepath.Join(t.TempDir(), "exports"))
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, _ := c.Get(ctx, "missing"); hit {
		t.Error("empty cache should miss")
	}
	if err := c.Set(ctx, "png", []byte("image"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, "png")
	if err != nil || !hit || string(data) != "image" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "stale", []byte("old"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "stale"); hit {
		t.Error("expired entry should miss")
	}
	if _, err := os.Stat(c.path("stale")); !os.IsNotExist(err) {
		t.Error("expired entry should be removed")
	}

	if err := os.WriteFile(c.path("png"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "png"); hit {
		t.Error("corrupt entry should miss")
	}

	if err := c.Delete(ctx, "never-set"); err != nil {
		t.Errorf("Delete missing: %v", err)
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, []byte(k), 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(c.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("entries after Clear = %d, want 0", len(entries))
	}
}

func TestHash(t *testing.T) {
	if Hash([]byte("hello")) != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if Hash([]byte("hello")) == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if n := len(Hash([]byte("hello"))); n != 64 {
		t.Errorf("Hash length should be 64, got %d", n)
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()
	base := ImageKeyOpts{Step: 10, Width: 640, Height: 480, Quality: 2}

	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"same inputs", k.ImageKey("h", base), k.ImageKey("h", base), true},
		{"different state", k.ImageKey("h1", base), k.ImageKey("h2", base), false},
		{"different step", k.ImageKey("h", base), k.ImageKey("h", ImageKeyOpts{Step: 11, Width: 640, Height: 480, Quality: 2}), false},
		{"different script", k.ImageKey("h", base), k.ImageKey("h", ImageKeyOpts{Step: 10, Width: 640, Height: 480, Quality: 2, Script: []string{"rotate x 90"}}), false},
		{"image vs webgl", k.ImageKey("h", ImageKeyOpts{Step: 1}), k.WebGLKey("h", WebGLKeyOpts{Step: 1}), false},
	}
	for _, tt := range tests {
		if got := tt.a == tt.b; got != tt.same {
			t.Errorf("%s: equal = %v, want %v", tt.name, got, tt.same)
		}
	}
	if key := k.WebGLKey("h", WebGLKeyOpts{}); key[:6] != "webgl:" {
		t.Errorf("WebGLKey prefix: %s", key)
	}
}

func TestScopedKeyer(t *testing.T) {
	inner := NewDefaultKeyer()
	scoped := NewScopedKeyer(inner, "run42:")

	opts := ImageKeyOpts{Width: 640}
	if got, want := scoped.ImageKey("h", opts), "run42:"+inner.ImageKey("h", opts); got != want {
		t.Errorf("ImageKey = %s, want %s", got, want)
	}
	if got := NewScopedKeyer(nil, "p:").WebGLKey("h", WebGLKeyOpts{}); got != "p:"+inner.WebGLKey("h", WebGLKeyOpts{}) {
		t.Errorf("nil inner keyer: %s", got)
	}
}

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestFetch(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	fill := func(context.Context) ([]byte, error) {
		calls++
		return []byte("png"), nil
	}

	for range 2 {
		data, err := Fetch(ctx, c, KeyTypeImage, "k", time.Hour, fill)
		if err != nil || string(data) != "png" {
			t.Fatalf("Fetch = %q, %v", data, err)
		}
	}
	if calls != 1 {
		t.Errorf("fill calls = %d, want 1", calls)
	}
	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks = %d hits %d misses %d sets", hooks.hits, hooks.misses, hooks.sets)
	}

	boom := errors.New("engine down")
	_, err = Fetch(ctx, c, KeyTypeWebGL, "w", time.Hour, func(context.Context) ([]byte, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if _, hit, _ := c.Get(ctx, "w"); hit {
		t.Error("failed fill should not be cached")
	}
}
