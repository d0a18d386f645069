package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
)

var syncTimeout time.Duration

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull changes from the gateway once",
	Long: `Runs a one-shot pull from the configured gateway and waits for it to finish.

Progress is printed as the replication engine reports it. The command fails
if the job stops with an error or the gateway is offline.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().DurationVar(&syncTimeout, "timeout", 10*time.Minute, "give up after this long")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, settings, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	cmd.Printf("Synchronising from %s...\n", settings.Gateway.Host)

	if syncTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, syncTimeout)
		defer timeoutCancel()
	}

	final, err := syncOnce(ctx, cmd, rt.Coordinator)
	if err != nil {
		return err
	}
	cmd.Printf("Sync complete: %s changes applied.\n", final.Status.Progress)
	return nil
}

// syncOnce requests a sync and follows the one-shot stream until the lane
// is idle again. It returns the last event seen.
func syncOnce(ctx context.Context, cmd *cobra.Command, coord driving.SyncCoordinator) (domain.StatusEvent, error) {
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := coord.Subscribe(subCtx)

	coord.RequestSync()

	var last domain.StatusEvent
	for {
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("sync did not finish: %w", ctx.Err())
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return last, fmt.Errorf("sync did not finish: %w", ctx.Err())
				}
				return last, errors.New("status stream closed")
			}
			if ev.Attempt == 0 {
				// Replay of the value seeded before any attempt.
				continue
			}
			last = ev
			cmd.Println(formatEvent(ev))

			if !ev.Status.Activity.IsTerminal() || coord.State() != domain.SyncIdle {
				continue
			}
			if ev.Status.Err != nil {
				return last, fmt.Errorf("sync failed: %w", ev.Status.Err)
			}
			if ev.Status.Activity == domain.ActivityOffline {
				return last, errors.New("sync failed: gateway offline")
			}
			return last, nil
		}
	}
}

// formatEvent renders a status event as a single progress line.
func formatEvent(ev domain.StatusEvent) string {
	line := fmt.Sprintf("[attempt %d] %-10s %s", ev.Attempt, ev.Status.Activity, ev.Status.Progress)
	if ev.Status.Err != nil {
		line += "  error: " + ev.Status.Err.Error()
	}
	return line
}
