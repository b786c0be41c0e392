package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// backupCommand creates the "backup" command copying a database.
func (c *CLI) backupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backup <database> <destination>",
		Short: "Write a consistent copy of a database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBackup(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *CLI) runBackup(ctx context.Context, src, dst string) error {
	s, err := c.openDatabase(ctx, src)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	prog := newProgress(c.Logger)
	written, err := s.Store().Save(ctx, dst)
	if err != nil {
		return err
	}
	prog.done("Backup written")
	printSuccess("Copied %d figure(s)", s.Len())
	printFile(written)
	return nil
}
