package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chronictectonic/underworld2/pkg/errors"
)

// ExecutableName is the engine binary looked up by [Locate].
const ExecutableName = "LavaVu"

// Binary runs one engine process per request. Commands are written to the
// process's standard input, one per line, ending with "quit":
//
//	figure <name>
//	<script commands...>
//	image <output>      (or: export <output>)
//	quit
type Binary struct {
	path string

	mu     sync.Mutex
	closed bool
}

var _ Engine = (*Binary)(nil)

// Locate finds the engine executable in binDir, or on PATH when binDir is
// empty. A missing executable is reported as ENGINE_UNAVAILABLE.
func Locate(binDir string) (*Binary, error) {
	if binDir == "" {
		path, err := exec.LookPath(ExecutableName)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEngineUnavailable, err,
				"%s not found on PATH; set [viewer] bin_path in the config", ExecutableName)
		}
		return &Binary{path: path}, nil
	}
	path := filepath.Join(binDir, ExecutableName)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Mode()&0o111 == 0 {
		return nil, errors.New(errors.ErrCodeEngineUnavailable,
			"rendering engine does not appear to exist at %s; perhaps it was not compiled", path)
	}
	return &Binary{path: path}, nil
}

// Path returns the executable path.
func (b *Binary) Path() string { return b.path }

// Image renders req.Figure to PNG.
func (b *Binary) Image(ctx context.Context, req ImageRequest) ([]byte, error) {
	args := []string{stepArg(req.Step), "-h"}
	if req.Quality > 0 {
		args = append(args, "-q"+strconv.Itoa(req.Quality))
	}
	if req.Width > 0 && req.Height > 0 {
		args = append(args, fmt.Sprintf("-x%d,%d", req.Width, req.Height))
	}
	return b.run(ctx, req.Database, args, req.Figure, req.Script, "image", ".png")
}

// WebGL exports req.Figure as the engine's JSON scene.
func (b *Binary) WebGL(ctx context.Context, req ExportRequest) ([]byte, error) {
	return b.run(ctx, req.Database, []string{stepArg(req.Step), "-h"}, req.Figure, req.Script, "export", ".json")
}

// Close marks the engine unusable. Requests do not outlive their call, so
// there is no process to stop.
func (b *Binary) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *Binary) run(ctx context.Context, database string, args []string, figure string, script []string, verb, ext string) ([]byte, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, errors.New(errors.ErrCodeEngineUnavailable, "engine closed")
	}
	if database == "" {
		return nil, errors.New(errors.ErrCodeInvalidArgument, "no database to render")
	}

	dir, err := os.MkdirTemp("", "glucifer-engine-")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "create output dir")
	}
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "out"+ext)

	var in strings.Builder
	if figure != "" {
		fmt.Fprintf(&in, "figure %s\n", figure)
	}
	for _, cmd := range script {
		in.WriteString(cmd)
		in.WriteByte('\n')
	}
	fmt.Fprintf(&in, "%s %s\nquit\n", verb, out)

	cmd := exec.CommandContext(ctx, b.path, append(args, database)...)
	cmd.Stdin = strings.NewReader(in.String())
	var errBuf bytes.Buffer
	cmd.Stdout = &errBuf
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "%s %s: %s", ExecutableName, verb, strings.TrimSpace(errBuf.String()))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeEngineFailed, err, "%s %s produced no output", ExecutableName, verb)
	}
	return data, nil
}

// stepArg is the engine's timestep selector, e.g. "-10".
func stepArg(step int) string { return "-" + strconv.Itoa(step) }
