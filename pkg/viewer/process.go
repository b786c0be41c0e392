package viewer

import (
	"context"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/chronictectonic/underworld2/pkg/errors"
	"github.com/chronictectonic/underworld2/pkg/observability"
)

// Config describes how to launch a viewer.
type Config struct {
	Bin     string   // viewer executable
	Step    int      // initial timestep
	Port    int      // command channel port, DefaultPort when zero
	Quality int      // image quality, DefaultQuality when zero
	Args    []string // extra arguments appended after the database

	Logger  *log.Logger
	Options []ClientOption
}

func (c Config) withDefaults() Config {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.Quality <= 0 {
		c.Quality = DefaultQuality
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard)
	}
	return c
}

// Args returns the command line for a viewer of database:
// -<step> -p<port> -q<quality> <database> [args...].
func Args(database string, cfg Config) []string {
	cfg = cfg.withDefaults()
	args := []string{
		"-" + strconv.Itoa(cfg.Step),
		"-p" + strconv.Itoa(cfg.Port),
		"-q" + strconv.Itoa(cfg.Quality),
		database,
	}
	return append(args, cfg.Args...)
}

// Process is a running viewer owned by the caller.
type Process struct {
	database string
	cmd      *exec.Cmd
	client   *Client
	logger   *log.Logger

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

// Launch starts a viewer for database in the background.
func Launch(ctx context.Context, database string, cfg Config) (*Process, error) {
	cfg = cfg.withDefaults()
	if err := errors.ValidateFilename(database); err != nil {
		return nil, err
	}
	if cfg.Bin == "" {
		return nil, errors.New(errors.ErrCodeEngineUnavailable, "no viewer executable configured")
	}

	cmd := exec.Command(cfg.Bin, Args(database, cfg)...)
	if err := cmd.Start(); err != nil {
		err = errors.Wrap(errors.ErrCodeViewerFailed, err, "start viewer")
		observability.Viewer().OnLaunch(ctx, database, err)
		return nil, err
	}
	observability.Viewer().OnLaunch(ctx, database, nil)
	cfg.Logger.Debug("viewer started", "pid", cmd.Process.Pid, "port", cfg.Port, "database", database)

	opts := append([]ClientOption{WithLogger(cfg.Logger)}, cfg.Options...)
	p := &Process{
		database: database,
		cmd:      cmd,
		client:   NewClient(cfg.Port, opts...),
		logger:   cfg.Logger,
		done:     make(chan struct{}),
	}
	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	return p, nil
}

// Client returns the command channel of p.
func (p *Process) Client() *Client { return p.client }

// Database returns the database p was launched with.
func (p *Process) Database() string { return p.database }

// Running reports whether the process has not exited.
func (p *Process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed when the process exits.
func (p *Process) Done() <-chan struct{} { return p.done }

// Close asks the viewer to quit, kills it and reaps it. It is safe to call
// more than once. A failed quit command is logged, not returned.
func (p *Process) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		if p.Running() {
			if _, err := p.client.Send(ctx, "quit"); err != nil {
				p.logger.Warn("viewer did not accept quit", "err", err)
			}
			_ = p.cmd.Process.Kill()
		}
		<-p.done
		observability.Viewer().OnClose(ctx, nil)
		p.logger.Debug("viewer stopped", "database", p.database)
	})
	return nil
}

// Run launches a viewer, calls fn and always closes the viewer.
func Run(ctx context.Context, database string, cfg Config, fn func(*Process) error) (err error) {
	p, err := Launch(ctx, database, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := p.Close(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()
	return fn(p)
}
