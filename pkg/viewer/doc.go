// Package viewer launches and drives the external interactive viewer.
//
// The viewer is a separate process serving a local HTTP command channel.
// [Launch] starts it against a visualization database, [Client.Send] issues
// commands, and [Process.Close] shuts it down with "quit" followed by a
// forced kill. [Run] scopes a process to a function call:
//
//	err := viewer.Run(ctx, "run.gldb", viewer.Config{Bin: bin}, func(p *viewer.Process) error {
//	    _, err := p.Client().Send(ctx, "rotate y 45")
//	    return err
//	})
//
// Commands that fail are retried once after one second; a second failure is
// returned to the caller.
package viewer
