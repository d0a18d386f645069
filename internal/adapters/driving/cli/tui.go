package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/adapters/driving/tui"
	"github.com/custodia-labs/replisync/internal/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive status view",
	Long: `Launch a live view of both replication lanes and local store changes.

The scheduler runs while the view is open.

Controls:
  s/Enter - Request a one-shot sync
  c       - Start or stop the continuous job
  r       - Refresh engine status
  ?       - Toggle help
  q       - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, settings, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	// Log lines would corrupt the alternate screen.
	logger.SetVerbose(false)

	if rt.Scheduler != nil {
		go func() {
			if err := rt.Scheduler.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := rt.Scheduler.Stop(); err != nil {
				logger.Warn("scheduler stop error: %v", err)
			}
		}()
	}

	ports := &tui.Ports{
		Coordinator: rt.Coordinator,
		Gateway:     settings.Gateway.Host,
	}
	if rt.NewWatcher != nil {
		lines := make(chan string, 64)
		ports.Changes = lines
		w := rt.NewWatcher(func(line string) {
			select {
			case lines <- line:
			default:
			}
		})
		go func() { _ = w.Run(ctx) }()
	}

	app, err := tui.NewApp(ports)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
