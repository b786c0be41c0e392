package cli

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/internal/server"
	"github.com/chronictectonic/underworld2/pkg/observability"
)

// serveCommand creates the "serve" command exposing a database over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve <database>",
		Short: "Serve saved figures, exports and metrics over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, path, addr string) error {
	if addr == "" {
		cfg, err := c.loadConfig()
		if err != nil {
			return err
		}
		addr = cfg.Server.Addr
	}

	observability.Install(observability.NewPrometheusHooks(prometheus.DefaultRegisterer))
	defer observability.Reset()

	s, err := c.openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))

	printSuccess("Serving %d figure(s) from %s", s.Len(), path)
	printDetail("http://%s/figures", displayAddr(addr))
	return server.New(s.Viewer,
		server.WithLogger(c.Logger),
		server.WithGatherer(prometheus.DefaultGatherer),
	).ListenAndServe(ctx, addr)
}

// displayAddr makes ":8080" clickable as "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
