package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

func TestSessionTokenCache_ExchangesOnce(t *testing.T) {
	provider := &mockTokenProvider{token: "access"}
	exchanger := newMockExchanger()
	cache := NewSessionTokenCache(provider, exchanger)

	first, err := cache.GetCredential(context.Background(), "https://gw/db")
	require.NoError(t, err)
	second, err := cache.GetCredential(context.Background(), "https://gw/db")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, "https://gw/db", exchanger.lastURL)
	assert.Equal(t, "access", exchanger.lastTok)
	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, 1, exchanger.callCount())

	cached, ok := cache.cached()
	assert.True(t, ok)
	assert.Same(t, first, cached)
}

func TestSessionTokenCache_ConcurrentFirstCallers(t *testing.T) {
	provider := &mockTokenProvider{token: "access", delay: 20 * time.Millisecond}
	exchanger := newMockExchanger()
	cache := NewSessionTokenCache(provider, exchanger)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetCredential(context.Background(), "https://gw/db")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, provider.callCount())
	assert.Equal(t, 1, exchanger.callCount())
}

func TestSessionTokenCache_Failures(t *testing.T) {
	boom := errors.New("idp unreachable")
	tests := []struct {
		name      string
		provider  *mockTokenProvider
		exchanger *mockExchanger
		want      error
	}{
		{"provider error", &mockTokenProvider{err: boom}, newMockExchanger(), domain.ErrNoAccessToken},
		{"empty token", &mockTokenProvider{}, newMockExchanger(), domain.ErrNoAccessToken},
		{
			"exchange rejected",
			&mockTokenProvider{token: "t"},
			&mockExchanger{err: domain.ErrSessionRequestFailed},
			domain.ErrSessionRequestFailed,
		},
		{"no credential", &mockTokenProvider{token: "t"}, &mockExchanger{}, domain.ErrMissingSessionCookie},
		{
			"empty session id",
			&mockTokenProvider{token: "t"},
			&mockExchanger{cred: &domain.SessionCredential{}},
			domain.ErrMissingSessionCookie,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := NewSessionTokenCache(tt.provider, tt.exchanger)
			_, err := cache.GetCredential(context.Background(), "https://gw/db")
			assert.ErrorIs(t, err, tt.want)

			_, ok := cache.cached()
			assert.False(t, ok, "failures are not cached")
		})
	}
}

func TestSessionTokenCache_ProviderErrorKeepsCause(t *testing.T) {
	boom := errors.New("user cancelled")
	cache := NewSessionTokenCache(&mockTokenProvider{err: boom}, newMockExchanger())

	_, err := cache.GetCredential(context.Background(), "https://gw/db")
	assert.ErrorIs(t, err, domain.ErrNoAccessToken)
	assert.ErrorIs(t, err, boom)
}

func TestSessionTokenCache_RetriesAfterFailure(t *testing.T) {
	provider := &mockTokenProvider{}
	cache := NewSessionTokenCache(provider, newMockExchanger())

	_, err := cache.GetCredential(context.Background(), "https://gw/db")
	require.ErrorIs(t, err, domain.ErrNoAccessToken)

	provider.mu.Lock()
	provider.token = "now-available"
	provider.mu.Unlock()

	cred, err := cache.GetCredential(context.Background(), "https://gw/db")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", cred.SessionID)
}

func TestSessionTokenCache_NilCollaborators(t *testing.T) {
	_, err := NewSessionTokenCache(nil, newMockExchanger()).GetCredential(context.Background(), "u")
	assert.ErrorIs(t, err, domain.ErrNoAccessToken)

	_, err = NewSessionTokenCache(&mockTokenProvider{token: "t"}, nil).GetCredential(context.Background(), "u")
	assert.ErrorIs(t, err, domain.ErrSessionRequestFailed)
}
