package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("gateway.host", "sync.example.com/db"))
	require.NoError(t, store.Set("sync.interval_minutes", 10))
	require.NoError(t, store.Set("scheduler.enabled", true))
	require.NoError(t, store.Set("oauth.scopes", []string{"openid", "offline_access"}))

	assert.Equal(t, "sync.example.com/db", store.GetString("gateway.host"))
	assert.Equal(t, 10, store.GetInt("sync.interval_minutes"))
	assert.True(t, store.GetBool("scheduler.enabled"))
	assert.Equal(t, []string{"openid", "offline_access"}, store.GetStringSlice("oauth.scopes"))
}

func TestConfigStore_Missing(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("gateway.host")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("gateway.host"))
	assert.Zero(t, store.GetInt("sync.interval_minutes"))
	assert.False(t, store.GetBool("scheduler.enabled"))
	assert.Nil(t, store.GetStringSlice("oauth.scopes"))
}

func TestConfigStore_WrongType(t *testing.T) {
	store := NewConfigStoreFrom(map[string]any{"k": 42})
	assert.Empty(t, store.GetString("k"))
	assert.False(t, store.GetBool("k"))
	assert.Equal(t, 42, store.GetInt("k"))
}

func TestConfigStore_SeedIsCopied(t *testing.T) {
	seed := map[string]any{"auth.method": "static"}
	store := NewConfigStoreFrom(seed)
	seed["auth.method"] = "oauth"

	assert.Equal(t, "static", store.GetString("auth.method"))
}

func TestConfigStore_NoOps(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key.%d", n), n)
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key.%d", n))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key.%d", i)))
	}
}
