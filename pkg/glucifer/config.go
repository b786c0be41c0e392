package glucifer

import (
	"github.com/chronictectonic/underworld2/pkg/config"
	"github.com/chronictectonic/underworld2/pkg/httputil"
	"github.com/chronictectonic/underworld2/pkg/viewer"
)

// ConfigOptions translates the [store] and [viewer] config sections into
// store options. Cache and archive sections need connections and are wired
// by the caller.
func ConfigOptions(cfg config.Config) []StoreOption {
	opts := []StoreOption{
		WithFallbackToLast(cfg.Store.FallbackToLast),
		WithSplit(cfg.Store.Split),
		WithViewerConfig(viewer.Config{
			Port:    cfg.Viewer.Port,
			Quality: cfg.Viewer.Quality,
			Options: []viewer.ClientOption{
				viewer.WithRetryPolicy(httputil.Once(cfg.Viewer.RetryDelay.Duration)),
			},
		}),
	}
	if cfg.Viewer.BinPath != "" {
		opts = append(opts, WithBinPath(cfg.Viewer.BinPath))
	}
	if cfg.Store.TmpDir != "" {
		opts = append(opts, WithTmpDir(cfg.Store.TmpDir))
	}
	return opts
}
