package engine

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

// fakeEngine records its arguments and stdin next to itself and writes the
// last command verb into the requested output file.
const fakeEngine = `#!/bin/sh
dir=$(dirname "$0")
echo "$@" > "$dir/args"
: > "$dir/stdin"
while read -r verb rest; do
	echo "$verb $rest" >> "$dir/stdin"
	case "$verb" in
	image|export) printf '%s' "$verb" > "$rest" ;;
	fail) echo "render failed" >&2; exit 3 ;;
	esac
done
`

func installFake(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake engine is a shell script")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ExecutableName), []byte(fakeEngine), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(data))
}

func TestLocate(t *testing.T) {
	dir := installFake(t)
	b, err := Locate(dir)
	if err != nil {
		t.Fatal(err)
	}
	if b.Path() != filepath.Join(dir, ExecutableName) {
		t.Errorf("Path = %s", b.Path())
	}

	_, err = Locate(t.TempDir())
	if !errors.Is(err, errors.ErrCodeEngineUnavailable) {
		t.Errorf("empty dir err = %v, want ENGINE_UNAVAILABLE", err)
	}
}

func TestBinaryImage(t *testing.T) {
	dir := installFake(t)
	b, err := Locate(dir)
	if err != nil {
		t.Fatal(err)
	}
	data, err := b.Image(context.Background(), ImageRequest{
		Database: "run.gldb",
		Figure:   "Figure_1",
		Step:     10,
		Width:    800,
		Height:   600,
		Quality:  2,
		Script:   []string{"rotate x 30", "zoom 0.5"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "image" {
		t.Errorf("output = %q", data)
	}
	if got, want := readFile(t, filepath.Join(dir, "args")), "-10 -h -q2 -x800,600 run.gldb"; got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
	lines := strings.Split(readFile(t, filepath.Join(dir, "stdin")), "\n")
	want := []string{"figure Figure_1", "rotate x 30", "zoom 0.5"}
	if len(lines) != 5 {
		t.Fatalf("stdin = %q", lines)
	}
	for i, w := range want {
		if strings.TrimSpace(lines[i]) != w {
			t.Errorf("stdin[%d] = %q, want %q", i, lines[i], w)
		}
	}
	if !strings.HasPrefix(lines[3], "image ") || strings.TrimSpace(lines[4]) != "quit" {
		t.Errorf("tail = %q", lines[3:])
	}
}

func TestBinaryWebGL(t *testing.T) {
	dir := installFake(t)
	b, _ := Locate(dir)
	data, err := b.WebGL(context.Background(), ExportRequest{Database: "run.gldb"})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "export" {
		t.Errorf("output = %q", data)
	}
	if got := readFile(t, filepath.Join(dir, "args")); got != "-0 -h run.gldb" {
		t.Errorf("args = %q", got)
	}
}

func TestBinaryErrors(t *testing.T) {
	dir := installFake(t)
	b, _ := Locate(dir)
	ctx := context.Background()

	_, err := b.Image(ctx, ImageRequest{Database: "run.gldb", Script: []string{"fail"}})
	if !errors.Is(err, errors.ErrCodeEngineFailed) || !strings.Contains(err.Error(), "render failed") {
		t.Errorf("failing engine err = %v", err)
	}

	_, err = b.Image(ctx, ImageRequest{})
	if !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Errorf("no database err = %v", err)
	}

	_ = b.Close()
	_, err = b.WebGL(ctx, ExportRequest{Database: "run.gldb"})
	if !errors.Is(err, errors.ErrCodeEngineUnavailable) {
		t.Errorf("closed engine err = %v", err)
	}
}
