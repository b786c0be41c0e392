package viewer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadDelay coalesces bursts of database writes into one reload.
const ReloadDelay = 250 * time.Millisecond

// Watch sends "reload" to c whenever database changes on disk, until ctx is
// done. Failed reloads are logged and watching continues.
func Watch(ctx context.Context, database string, c *Client) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	target, err := filepath.Abs(database)
	if err != nil {
		return err
	}
	// SQLite may replace the file, so watch the directory.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(ReloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(ReloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", "database", database, "err", err)
		case <-timer.C:
			if _, err := c.Send(ctx, "reload"); err != nil {
				c.logger.Warn("reload failed", "database", database, "err", err)
			}
		}
	}
}
