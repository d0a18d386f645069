package cli

import (
	"github.com/spf13/cobra"
)

var continuousCmd = &cobra.Command{
	Use:   "continuous",
	Short: "Stay connected and pull changes as they happen",
	Long: `Starts a continuous pull and prints its status until interrupted.

The job reconnects with backoff while the gateway is offline. Press Ctrl+C
to stop it.`,
	Args: cobra.NoArgs,
	RunE: runContinuous,
}

func init() {
	rootCmd.AddCommand(continuousCmd)
}

func runContinuous(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, settings, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	coord := rt.Coordinator
	events := coord.SubscribeContinuous(ctx)
	coord.SetContinuous(true)
	defer coord.SetContinuous(false)

	cmd.Printf("Continuous sync with %s (Ctrl+C to stop)\n", settings.Gateway.Host)

	// The stream closes when ctx is cancelled.
	for ev := range events {
		if ev.Attempt == 0 {
			continue
		}
		cmd.Println(formatEvent(ev))
	}
	cmd.Println("Stopping continuous sync.")
	return nil
}
