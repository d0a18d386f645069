// Package cli provides the cobra command tree for replisync.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
	"github.com/custodia-labs/replisync/internal/logger"
)

// version is set at build time with -ldflags "-X ...cli.version=...".
var version = "dev"

// Watcher consumes the local store mutation feed until ctx ends.
type Watcher interface {
	Run(ctx context.Context) error
}

// Runtime holds the services a replication command needs.
type Runtime struct {
	Coordinator driving.SyncCoordinator
	Scheduler   driving.Scheduler
	Tokens      driven.AccessTokenProvider
	Documents   driven.DocumentStore

	// NewWatcher creates a database watcher writing lines to emit.
	NewWatcher func(emit func(string)) Watcher

	// Close releases stores and engine handles.
	Close func() error
}

// RuntimeFactory builds a Runtime from validated settings.
type RuntimeFactory func(ctx context.Context, settings *domain.AppSettings) (*Runtime, error)

// Bootstrap builds the settings service and runtime factory once flags are
// parsed. The config directory is empty when --config-dir is not set.
type Bootstrap func(configDir string) (driving.SettingsService, RuntimeFactory, error)

var (
	verbose   bool
	configDir string

	bootstrap       Bootstrap
	settingsService driving.SettingsService
	runtimeFactory  RuntimeFactory
)

var rootCmd = &cobra.Command{
	Use:   "replisync",
	Short: "Pull documents from a sync gateway",
	Long: `replisync keeps a local document store in step with a remote sync gateway.

One-shot syncs are serialised: a request made while a sync runs queues exactly
one follow-up. A continuous job can run alongside and stays connected until
stopped.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print lifecycle diagnostics to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.replisync)")
}

// SetBootstrap sets how services are built for commands.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if bootstrap == nil || settingsService != nil {
		return nil
	}
	settings, factory, err := bootstrap(configDir)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	settingsService = settings
	runtimeFactory = factory
	return nil
}

// openRuntime validates the settings and builds the runtime.
func openRuntime(ctx context.Context) (*Runtime, *domain.AppSettings, error) {
	if settingsService == nil || runtimeFactory == nil {
		return nil, nil, errors.New("replication services not configured")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		if errors.Is(err, domain.ErrGatewayNotConfigured) {
			return nil, nil, fmt.Errorf("%w (run 'replisync config gateway <host>')", err)
		}
		return nil, nil, err
	}
	rt, err := runtimeFactory(ctx, settings)
	if err != nil {
		return nil, nil, err
	}
	return rt, settings, nil
}

// closeRuntime releases the runtime, logging failures.
func closeRuntime(rt *Runtime) {
	if rt == nil || rt.Close == nil {
		return
	}
	if err := rt.Close(); err != nil {
		logger.Warn("shutdown: %v", err)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
