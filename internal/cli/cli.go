// Package cli implements the glucifer command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/buildinfo"
	"github.com/chronictectonic/underworld2/pkg/cache"
	"github.com/chronictectonic/underworld2/pkg/config"
	"github.com/chronictectonic/underworld2/pkg/glucifer"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "glucifer"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	noCache    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "glucifer inspects and renders saved visualization databases",
		Long: `glucifer works with the figure databases written by simulation runs:
it lists saved figures, re-renders them with property overrides, drives the
interactive viewer and serves figures over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/glucifer/config.toml)")
	root.PersistentFlags().BoolVar(&c.noCache, "no-cache", false, "disable the export cache")

	root.AddCommand(c.figuresCommand())
	root.AddCommand(c.showCommand())
	root.AddCommand(c.backupCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.viewerCommand())
	root.AddCommand(c.archiveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Config & Stores
// =============================================================================

// loadConfig reads the config file named by --config, or the default one.
func (c *CLI) loadConfig() (config.Config, error) {
	path := c.configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return config.Default(), nil
		}
		path = p
	}
	return config.Load(path)
}

// newCache opens the export cache selected by cfg: Redis when an address is
// configured, the file cache otherwise.
func (c *CLI) newCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if c.noCache {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.RedisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.Cache.RedisAddr, Prefix: appName + ":"})
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		c.Logger.Warn("export cache disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// session bundles a viewer over a saved database with the cache it uses.
type session struct {
	*glucifer.Viewer
	cache cache.Cache
}

func (s *session) Close(ctx context.Context) error {
	err := s.Viewer.Close(ctx)
	if cerr := s.cache.Close(); err == nil {
		err = cerr
	}
	return err
}

// openDatabase opens a saved database with the configured store options.
func (c *CLI) openDatabase(ctx context.Context, path string, extra ...glucifer.StoreOption) (*session, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	ch, err := c.newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts := glucifer.ConfigOptions(cfg)
	opts = append(opts,
		glucifer.WithLogger(c.Logger),
		glucifer.WithCache(ch, nil, cfg.Cache.TTL.Duration),
	)
	v, err := glucifer.NewViewer(ctx, path, append(opts, extra...)...)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &session{Viewer: v, cache: ch}, nil
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the export cache directory: the configured one, or
// $XDG_CACHE_HOME/glucifer/exports.
func cacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return expandHome(cfg.Cache.Dir)
	}
	return cache.DefaultDir()
}

// expandHome replaces a leading "~/" with the user's home directory.
func expandHome(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, rest), nil
}
