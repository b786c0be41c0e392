package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/glucifer"
)

// figuresCommand creates the "figures" command listing saved figures.
func (c *CLI) figuresCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "figures <database>",
		Short: "List the figures saved in a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFigures(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runFigures(ctx context.Context, path string) error {
	s, err := c.openDatabase(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	doc, err := s.Store().Figures(ctx)
	if err != nil {
		return err
	}
	steps, err := s.Steps(ctx)
	if err != nil {
		return err
	}

	printKeyValue("Database", s.Store().Filename())
	printKeyValue("Timesteps", formatSteps(steps))
	if len(doc) == 0 {
		printWarning("No figures saved")
		return nil
	}
	for _, fs := range doc {
		title := fs.Properties.GetString("title", "")
		if title != "" {
			printInfo("%s %s", StyleTitle.Render(fs.Figure), StyleDim.Render(title))
		} else {
			printInfo("%s", StyleTitle.Render(fs.Figure))
		}
		var visible, hidden []string
		for _, d := range fs.Objects {
			if d.Visible {
				visible = append(visible, d.Name)
			} else {
				hidden = append(hidden, d.Name)
			}
		}
		printObjects(visible, hidden)
	}
	printNextStep("Render one", fmt.Sprintf("%s show %s %s", appName, path, doc[0].Figure))
	return nil
}

// formatSteps abbreviates long step lists to "first … last (n steps)".
func formatSteps(steps []int) string {
	switch {
	case len(steps) == 0:
		return "none"
	case len(steps) <= 5:
		parts := make([]string, len(steps))
		for i, s := range steps {
			parts[i] = fmt.Sprint(s)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%d … %d (%d steps)", steps[0], steps[len(steps)-1], len(steps))
	}
}

// figureOrNext returns the named figure, or the first saved one.
func figureOrNext(v *glucifer.Viewer, name string) (*glucifer.Figure, error) {
	if name != "" {
		return v.Figure(name)
	}
	if f := v.Next(); f != nil {
		return f, nil
	}
	return nil, fmt.Errorf("%s has no saved figures", v.Store().Filename())
}
