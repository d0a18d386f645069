package cli

import (
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/logger"
)

var daemonContinuous bool

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run scheduled syncs in the background",
	Long: `Runs until interrupted, requesting a one-shot sync every sync.interval_minutes.

With --continuous a continuous job runs alongside the schedule. Local store
changes and replication status are logged; set log.file to keep a rotated
copy on disk.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().BoolVar(&daemonContinuous, "continuous", false, "also run a continuous job")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, settings, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	// A daemon's log is its only output.
	logger.SetVerbose(true)
	if settings.LogFile != "" {
		if err := logger.SetLogFile(settings.LogFile); err != nil {
			return err
		}
		defer func() {
			if err := logger.Close(); err != nil {
				cmd.PrintErrf("closing log file: %v\n", err)
			}
		}()
	}

	logger.Section("Daemon")
	logger.Info("Gateway %s, sync every %s", settings.Gateway.Host, settings.SyncInterval)

	var wg sync.WaitGroup
	goLog := func(lane string, events <-chan domain.StatusEvent) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				if ev.Attempt == 0 {
					continue
				}
				logger.Info("%s %s", lane, formatEvent(ev))
			}
		}()
	}
	goLog("one-shot", rt.Coordinator.Subscribe(ctx))
	goLog("continuous", rt.Coordinator.SubscribeContinuous(ctx))

	if rt.NewWatcher != nil {
		w := rt.NewWatcher(nil)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("database watcher: %v", err)
			}
		}()
	}

	if daemonContinuous {
		rt.Coordinator.SetContinuous(true)
		defer rt.Coordinator.SetContinuous(false)
	}

	if rt.Scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rt.Scheduler.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("scheduler stopped: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	if rt.Scheduler != nil {
		if err := rt.Scheduler.Stop(); err != nil {
			logger.Warn("scheduler stop: %v", err)
		}
	}
	wg.Wait()
	return nil
}
