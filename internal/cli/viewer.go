package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/httputil"
	"github.com/chronictectonic/underworld2/pkg/viewer"
)

// viewerCommand creates the "viewer" command group driving the external
// interactive viewer.
func (c *CLI) viewerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "viewer",
		Short: "Launch and control the interactive viewer",
	}

	cmd.AddCommand(c.viewerOpenCommand())
	cmd.AddCommand(c.viewerSendCommand())
	cmd.AddCommand(c.viewerQuitCommand())

	return cmd
}

// viewerOpenCommand creates "viewer open": launch the viewer on a database
// and keep it running until interrupted or closed.
func (c *CLI) viewerOpenCommand() *cobra.Command {
	var (
		watch bool
		step  int
	)

	cmd := &cobra.Command{
		Use:   "open <database> [viewer args...]",
		Short: "Launch the viewer on a database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runViewerOpen(cmd.Context(), args[0], args[1:], step, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the viewer whenever the database changes")
	cmd.Flags().IntVar(&step, "step", 0, "initial timestep")

	return cmd
}

func (c *CLI) runViewerOpen(ctx context.Context, path string, extra []string, step int, watch bool) error {
	s, err := c.openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close(context.WithoutCancel(ctx))
	s.SetStep(step)

	spin := newSpinner(ctx, "Launching viewer...")
	spin.Start()
	p, err := s.Store().OpenViewer(ctx, extra...)
	if err != nil {
		spin.StopWithError("Viewer failed to start")
		return err
	}
	spin.StopWithSuccess("Viewer running")
	printDetail("Database: %s", p.Database())
	printNextStep("Send a command", appName+" viewer send rotate x 30")

	if watch {
		wctx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			<-p.Done()
			cancel()
		}()
		printInfo("Watching %s", p.Database())
		if err := viewer.Watch(wctx, p.Database(), p.Client()); err != nil && ctx.Err() == nil && p.Running() {
			return err
		}
		return nil
	}

	select {
	case <-p.Done():
		printInfo("Viewer exited")
	case <-ctx.Done():
	}
	return nil
}

// viewerClient builds a client for the viewer listening on port.
func (c *CLI) viewerClient(port int) (*viewer.Client, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if port == 0 {
		port = cfg.Viewer.Port
	}
	return viewer.NewClient(port,
		viewer.WithLogger(c.Logger),
		viewer.WithRetryPolicy(httputil.Once(cfg.Viewer.RetryDelay.Duration)),
	), nil
}

// viewerSendCommand creates "viewer send": run one command on a running viewer.
func (c *CLI) viewerSendCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "send <command...>",
		Short: "Send a command to a running viewer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.viewerClient(port)
			if err != nil {
				return err
			}
			resp, err := client.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(resp) > 0 {
				fmt.Fprintln(out, strings.TrimRight(string(resp), "\n"))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "viewer port (default from config, 9999)")

	return cmd
}

// viewerQuitCommand creates "viewer quit".
func (c *CLI) viewerQuitCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "quit",
		Short: "Ask a running viewer to exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := c.viewerClient(port)
			if err != nil {
				return err
			}
			if _, err := client.Send(cmd.Context(), "quit"); err != nil {
				return err
			}
			printSuccess("Viewer closed")
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "viewer port (default from config, 9999)")

	return cmd
}
