package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/render"
	"github.com/chronictectonic/underworld2/pkg/render/scenegraph"
)

// graphOpts holds the flags of the graph command.
type graphOpts struct {
	output     string // output file, stdout for dot when empty
	format     string // dot, svg, png or pdf
	figure     string // limit to one figure
	detailed   bool   // list object properties
	hideHidden bool   // omit hidden objects
}

// validGraphFormats is the set of supported graph output formats.
var validGraphFormats = map[string]bool{"dot": true, "svg": true, "png": true, "pdf": true}

// graphCommand creates the "graph" command drawing the scene graph.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph <database>",
		Short: "Draw the saved figures and their objects as a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.format = strings.ToLower(opts.format)
			if !validGraphFormats[opts.format] {
				return fmt.Errorf("invalid format: %s (must be 'dot', 'svg', 'png', or 'pdf')", opts.format)
			}
			return c.runGraph(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: <database>.<format>, stdout for dot)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "svg", "output format: dot, svg, png, pdf")
	cmd.Flags().StringVar(&opts.figure, "figure", "", "only draw this figure")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list object properties")
	cmd.Flags().BoolVar(&opts.hideHidden, "hide-hidden", false, "omit hidden objects")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, path string, opts graphOpts) error {
	s, err := c.openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	doc, err := s.Store().Figures(ctx)
	if err != nil {
		return err
	}
	if opts.figure != "" && doc.Index(opts.figure) < 0 {
		return fmt.Errorf("no saved figure %q", opts.figure)
	}

	dot := scenegraph.ToDOT(doc, scenegraph.Options{
		Figure:     opts.figure,
		Detailed:   opts.detailed,
		HideHidden: opts.hideHidden,
	})
	data, err := graphBytes(ctx, dot, opts.format)
	if err != nil {
		return err
	}

	if opts.output == "" && opts.format == "dot" {
		_, err := out.Write(data)
		return err
	}
	target := opts.output
	if target == "" {
		target = strings.TrimSuffix(s.Store().Filename(), ".gldb") + "." + opts.format
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return err
	}
	printSuccess("Scene graph written")
	printFile(target)
	return nil
}

// graphBytes renders dot in the requested format.
func graphBytes(ctx context.Context, dot, format string) ([]byte, error) {
	if format == "dot" {
		return []byte(dot), nil
	}
	svg, err := scenegraph.RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	switch format {
	case "png":
		return render.ToPNG(ctx, svg, 2)
	case "pdf":
		return render.ToPDF(ctx, svg)
	default:
		return svg, nil
	}
}
