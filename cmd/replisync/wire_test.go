package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/replisync/internal/core/domain"
)

func testSettings(backend domain.StoreBackend) *domain.AppSettings {
	s := domain.DefaultAppSettings()
	s.Gateway.Host = "gw.example.com/db"
	s.Auth.Token = "token"
	s.Store.Backend = backend
	return &s
}

func TestNewRuntime_Backends(t *testing.T) {
	for _, backend := range []domain.StoreBackend{
		domain.StoreBackendSQLite,
		domain.StoreBackendMemory,
		domain.StoreBackendFiles,
	} {
		t.Run(string(backend), func(t *testing.T) {
			dir := t.TempDir()

			rt, err := newRuntime(context.Background(), testSettings(backend),
				domain.DefaultSchedulerConfig(), dir, nil)
			require.NoError(t, err)

			assert.NotNil(t, rt.Coordinator)
			assert.NotNil(t, rt.Scheduler)
			assert.Equal(t, domain.AuthMethodStatic, rt.Tokens.AuthMethod())
			assert.NotNil(t, rt.NewWatcher(nil))
			assert.Equal(t, domain.SyncIdle, rt.Coordinator.State())
			summary, err := rt.Scheduler.Summary(context.Background())
			require.NoError(t, err)
			assert.Nil(t, summary, "schedule is stored once the daemon starts")
			require.NoError(t, rt.Close())

			assert.FileExists(t, filepath.Join(dir, sqlite.DatabaseName))
			if backend == domain.StoreBackendFiles {
				assert.DirExists(t, filepath.Join(dir, "documents"))
			}
		})
	}
}

func TestNewRuntime_StoreDirOverridesDefault(t *testing.T) {
	def, custom := t.TempDir(), t.TempDir()
	settings := testSettings(domain.StoreBackendSQLite)
	settings.Store.Dir = custom

	rt, err := newRuntime(context.Background(), settings, domain.DefaultSchedulerConfig(), def, nil)
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	assert.FileExists(t, filepath.Join(custom, sqlite.DatabaseName))
	assert.NoFileExists(t, filepath.Join(def, sqlite.DatabaseName))
}

func TestNewRuntime_SchedulerDisabled(t *testing.T) {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = false

	rt, err := newRuntime(context.Background(), testSettings(domain.StoreBackendMemory), cfg, t.TempDir(), nil)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Scheduler)
}

func TestNewRuntime_OAuthNeedsClient(t *testing.T) {
	settings := testSettings(domain.StoreBackendMemory)
	settings.Auth.Method = domain.AuthMethodOAuth

	_, err := newRuntime(context.Background(), settings, domain.DefaultSchedulerConfig(), t.TempDir(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBootstrap(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"),
		[]byte("[gateway]\nhost = \"gw.example.com/db\"\n\n[scheduler]\nenabled = false\n"), 0o600))

	svc, factory, err := bootstrap(dir)
	require.NoError(t, err)

	settings, err := svc.Get()
	require.NoError(t, err)
	assert.Equal(t, "gw.example.com/db", settings.Gateway.Host)

	settings.Store.Backend = domain.StoreBackendMemory
	rt, err := factory(context.Background(), settings)
	require.NoError(t, err)
	defer rt.Close()

	assert.Nil(t, rt.Scheduler)
	assert.FileExists(t, filepath.Join(dir, "data", sqlite.DatabaseName))
}
