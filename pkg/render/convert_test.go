package render

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

// fakeConverter installs a shell script named rsvg-convert on PATH that
// echoes its arguments.
func fakeConverter(t *testing.T, script string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake converter is a shell script")
	}
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, Converter), []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
}

func TestConvertArgs(t *testing.T) {
	fakeConverter(t, `echo "$@"`+"\n")
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() ([]byte, error)
		want string
	}{
		{"pdf", func() ([]byte, error) { return ToPDF(ctx, []byte("<svg/>")) }, "-f pdf\n"},
		{"png scaled", func() ([]byte, error) { return ToPNG(ctx, []byte("<svg/>"), 2) }, "-f png -z 2.00\n"},
		{"png default scale", func() ([]byte, error) { return ToPNG(ctx, []byte("<svg/>"), 0) }, "-f png -z 1.00\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if err != nil || string(got) != tt.want {
				t.Errorf("got %q, %v; want %q", got, err, tt.want)
			}
		})
	}
}

func TestConvertFailure(t *testing.T) {
	fakeConverter(t, "echo 'bad svg' >&2\nexit 1\n")
	_, err := ToPDF(context.Background(), []byte("<svg"))
	if !errors.Is(err, errors.ErrCodeEngineFailed) {
		t.Errorf("err = %v, want ENGINE_FAILED", err)
	}
}

func TestConverterMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	_, err := ToPNG(context.Background(), []byte("<svg/>"), 1)
	if !errors.Is(err, errors.ErrCodeEngineUnavailable) {
		t.Errorf("err = %v, want ENGINE_UNAVAILABLE", err)
	}
}
