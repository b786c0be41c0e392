package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/drawing"
	"github.com/chronictectonic/underworld2/pkg/glucifer"
	"github.com/chronictectonic/underworld2/pkg/property"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// showOpts holds the flags of the show command.
type showOpts struct {
	output  string   // output file, or directory with --all
	format  string   // "image" or "webgl"
	width   int      // image width, engine default when zero
	height  int      // image height, engine default when zero
	step    int      // timestep to render
	set     []string // figure property overrides "key=value"
	objects []string // objects to show, every saved object when empty
	script  []string // engine commands run before export
	all     bool     // export every saved figure
}

// showCommand creates the "show" command re-rendering saved figures.
func (c *CLI) showCommand() *cobra.Command {
	var opts showOpts

	cmd := &cobra.Command{
		Use:   "show <database> [figure]",
		Short: "Render a saved figure to an image or WebGL scene",
		Long: `Render a saved figure through the engine. The figure is reconciled against
the database first: --object limits the visible objects, --set overrides
figure properties. Without a figure name the first saved figure is used.`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: c.completeFigures,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			if !cmd.Flags().Changed("step") {
				opts.step = -1
			}
			return c.runShow(cmd.Context(), args[0], name, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file, or directory with --all (default: figure name)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(glucifer.FormatImage), "output format: image, webgl")
	cmd.Flags().IntVar(&opts.width, "width", 0, "image width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "image height in pixels")
	cmd.Flags().IntVar(&opts.step, "step", 0, "timestep to render (default: current)")
	cmd.Flags().StringArrayVar(&opts.set, "set", nil, "figure property override key=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.objects, "object", nil, "show only this object (repeatable)")
	cmd.Flags().StringArrayVar(&opts.script, "script", nil, "engine command to run before export (repeatable)")
	cmd.Flags().BoolVar(&opts.all, "all", false, "export every saved figure")

	return cmd
}

// parseOverrides turns "key=value" assignments into properties.
func parseOverrides(assignments []string) (property.Props, error) {
	p := property.Props{}
	for _, a := range assignments {
		k, v, err := property.ParseAssignment(a)
		if err != nil {
			return nil, err
		}
		p.Set(k, v)
	}
	return p, nil
}

func (c *CLI) runShow(ctx context.Context, path, name string, opts showOpts) error {
	format, err := glucifer.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	overrides, err := parseOverrides(opts.set)
	if err != nil {
		return err
	}
	if opts.all && opts.output != "" {
		if err := os.MkdirAll(opts.output, 0o750); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	s, err := c.openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close(ctx)
	if opts.step >= 0 {
		s.SetStep(opts.step)
	}

	var figs []*glucifer.Figure
	if opts.all {
		figs = s.Figures()
	} else {
		f, err := figureOrNext(s.Viewer, name)
		if err != nil {
			return err
		}
		figs = []*glucifer.Figure{f}
	}

	prog := newProgress(c.Logger)
	for _, f := range figs {
		if err := configureFigure(f, overrides, opts); err != nil {
			return err
		}
		target := outputPath(f.Name(), opts)
		spin := newSpinner(ctx, fmt.Sprintf("Rendering %s...", f.Name()))
		spin.Start()
		written, err := f.Save(ctx, target, glucifer.WithFormat(format), glucifer.WithSize(opts.width, opts.height))
		if err != nil {
			spin.StopWithError(fmt.Sprintf("Failed to render %s", f.Name()))
			return err
		}
		if written == "" {
			spin.StopWithError(fmt.Sprintf("Failed to render %s", f.Name()))
			return fmt.Errorf("render %s: engine unavailable or failed, see log", f.Name())
		}
		spin.StopWithSuccess(fmt.Sprintf("Rendered %s", f.Name()))
		printFile(written)
	}
	prog.done(fmt.Sprintf("Rendered %d figure(s)", len(figs)))
	return nil
}

// configureFigure applies the property overrides, object selection and
// script to a saved figure.
func configureFigure(f *glucifer.Figure, overrides property.Props, opts showOpts) error {
	if len(overrides) > 0 {
		f.SetProperties(overrides)
	}
	if len(opts.objects) > 0 {
		f.ClearObjects()
		for _, n := range opts.objects {
			if err := f.Append(drawing.FromDescriptor(state.Descriptor{Name: n})); err != nil {
				return err
			}
		}
	}
	if len(opts.script) > 0 {
		f.Script()
		f.Script(opts.script...)
	}
	return nil
}

// outputPath picks the export filename for a figure.
func outputPath(figure string, opts showOpts) string {
	switch {
	case opts.output == "":
		return figure
	case opts.all:
		return filepath.Join(opts.output, figure)
	default:
		return opts.output
	}
}
