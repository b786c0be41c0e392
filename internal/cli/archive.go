package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chronictectonic/underworld2/pkg/archive"
	"github.com/chronictectonic/underworld2/pkg/glucifer"
	"github.com/chronictectonic/underworld2/pkg/state"
)

// archiveCommand creates the "archive" command group sharing figure state
// through MongoDB.
func (c *CLI) archiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Push and pull figure state to the shared archive",
	}

	cmd.AddCommand(c.archivePushCommand())
	cmd.AddCommand(c.archivePullCommand())
	cmd.AddCommand(c.archiveListCommand())

	return cmd
}

// openArchive connects to the configured archive.
func (c *CLI) openArchive(ctx context.Context) (*archive.Archive, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Archive.MongoURI == "" {
		return nil, fmt.Errorf("no archive configured: set [archive] mongo_uri in the config file")
	}
	return archive.Open(ctx, archive.Config{
		URI:        cfg.Archive.MongoURI,
		Database:   cfg.Archive.Database,
		Collection: cfg.Archive.Collection,
	})
}

// runName defaults an archive entry name to the database's base name.
func runName(name, path string) string {
	if name != "" {
		return name
	}
	base := path[strings.LastIndexAny(path, `/\`)+1:]
	return strings.TrimSuffix(strings.TrimSuffix(base, ".gldb"), ".db")
}

func (c *CLI) archivePushCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "push <database>",
		Short: "Upload a database's figure state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openDatabase(ctx, args[0])
			if err != nil {
				return err
			}
			defer s.Close(ctx)
			doc, err := s.Store().Figures(ctx)
			if err != nil {
				return err
			}

			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			run := runName(name, args[0])
			if err := a.Push(ctx, run, doc); err != nil {
				return err
			}
			printSuccess("Pushed %d figure(s) as %s", len(doc), run)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "archive entry name (default: database base name)")

	return cmd
}

func (c *CLI) archivePullCommand() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "pull <database>",
		Short: "Write archived figure state into a database",
		Long: `Write archived figure state into a database, creating it when missing.
The pulled state replaces every figure in the database.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			run := runName(name, args[0])
			doc, err := a.Pull(ctx, run)
			if err != nil {
				return err
			}
			written, err := writeDocument(ctx, args[0], doc)
			if err != nil {
				return err
			}
			printSuccess("Pulled %d figure(s) from %s", len(doc), run)
			printFile(written)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "archive entry name (default: database base name)")

	return cmd
}

// writeDocument commits doc to the database at path through a live state
// store backed by the archive document.
func writeDocument(ctx context.Context, path string, doc state.Document) (string, error) {
	s, err := glucifer.NewStore(ctx, path, glucifer.WithRank(0))
	if err != nil {
		return "", err
	}
	defer s.Close(ctx)
	if err := s.Replace(ctx, doc); err != nil {
		return "", err
	}
	return s.Path(), nil
}

func (c *CLI) archiveListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)
			names, err := a.List(ctx)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				printInfo("Archive is empty")
				return nil
			}
			for _, n := range names {
				e, err := a.Stat(ctx, n)
				if err != nil {
					return err
				}
				printInfo("%s %s", StyleTitle.Render(e.Name), StyleDim.Render(e.UpdatedAt.Format("2006-01-02 15:04")))
				printDetail("%s", strings.Join(e.Figures, ", "))
			}
			return nil
		},
	}
}
