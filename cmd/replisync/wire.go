package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/replisync/internal/adapters/driven/auth"
	"github.com/custodia-labs/replisync/internal/adapters/driven/certs"
	"github.com/custodia-labs/replisync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/replisync/internal/adapters/driven/gateway"
	"github.com/custodia-labs/replisync/internal/adapters/driven/replicator"
	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/files"
	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/replisync/internal/adapters/driving/cli"
	"github.com/custodia-labs/replisync/internal/adapters/driving/oauth"
	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
	"github.com/custodia-labs/replisync/internal/core/services"
	"github.com/custodia-labs/replisync/internal/logger"
)

// bootstrap opens config.toml and returns a factory that builds the
// runtime from it. State lives under <configDir>/data unless store.dir is set.
func bootstrap(configDir string) (driving.SettingsService, cli.RuntimeFactory, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving config directory: %w", err)
		}
		configDir = dir
	}

	store, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, nil, err
	}
	dataDir := filepath.Join(configDir, "data")
	svc := services.NewSettingsService(store)

	factory := func(ctx context.Context, settings *domain.AppSettings) (*cli.Runtime, error) {
		return newRuntime(ctx, settings, svc.GetSchedulerConfig(), dataDir, oauth.Flow{}.Authorize)
	}
	return svc, factory, nil
}

// newRuntime wires stores, auth and the replication engine for settings.
// Tokens and scheduler state always live in SQLite; store.backend only
// selects where documents and checkpoints go.
func newRuntime(
	_ context.Context,
	settings *domain.AppSettings,
	schedCfg domain.SchedulerConfig,
	defaultDataDir string,
	authorize auth.AuthorizeFunc,
) (*cli.Runtime, error) {
	dataDir := settings.Store.Dir
	if dataDir == "" {
		dataDir = defaultDataDir
	}

	state, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	closers := []func() error{state.Close}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	var (
		docs        driven.DocumentStore
		checkpoints driven.CheckpointStore
	)
	switch settings.Store.Backend {
	case domain.StoreBackendMemory:
		mem := memory.NewDocumentStore()
		closers = append(closers, mem.Close)
		docs, checkpoints = mem, memory.NewCheckpointStore()
	case domain.StoreBackendFiles:
		dir, err := files.NewStore(filepath.Join(dataDir, "documents"))
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		closers = append(closers, dir.Close)
		docs, checkpoints = dir, dir.CheckpointStore()
	default:
		docs, checkpoints = state.DocumentStore(), state.CheckpointStore()
	}

	provider, err := auth.NewProvider(settings.Auth.Method, auth.Options{
		Token:     settings.Auth.Token,
		OAuth:     settings.OAuth,
		Tokens:    state.TokenStore(),
		Authorize: authorize,
	})
	if err != nil {
		_ = closeAll()
		return nil, err
	}

	coordinator := services.NewSyncCoordinator(
		settings.Gateway,
		provider,
		gateway.NewSessionExchanger(),
		certs.NewLoaderFor(settings.CertsDir),
		replicator.NewFactory(docs, checkpoints),
	)
	// The coordinator stops its jobs before the stores close.
	closers = append(closers, coordinator.Close)

	rt := &cli.Runtime{
		Coordinator: coordinator,
		Tokens:      provider,
		Documents:   docs,
		NewWatcher: func(emit func(string)) cli.Watcher {
			if emit == nil {
				emit = func(line string) { logger.Info("%s", line) }
			}
			return services.NewDatabaseWatcher(docs, emit)
		},
		Close: closeAll,
	}

	if schedCfg.Enabled {
		rt.Scheduler = services.NewScheduler(schedCfg, state.SchedulerStore(), coordinator)
	}

	return rt, nil
}
