package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print local document changes as they happen",
	Long: `Prints one line per document added, updated or deleted in the local store
until interrupted.

With store.backend = "files" writes made by another replisync process, such
as a running daemon, are reported too. Other backends only report changes
made by this process.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, _, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	if rt.NewWatcher == nil {
		return errors.New("database watcher not configured")
	}

	cmd.Println("Watching local store (Ctrl+C to stop)")
	w := rt.NewWatcher(func(line string) { cmd.Println(line) })
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
