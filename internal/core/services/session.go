package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

// SessionTokenCache lazily obtains a gateway session credential and keeps it
// for the lifetime of its owner.
//
// The cached credential is never refreshed. A session that expires on the
// gateway stays cached until the owning coordinator is recreated.
type SessionTokenCache struct {
	provider  driven.AccessTokenProvider
	exchanger driven.SessionExchanger

	mu   sync.Mutex
	cred *domain.SessionCredential
}

// NewSessionTokenCache creates an empty credential cache.
func NewSessionTokenCache(provider driven.AccessTokenProvider, exchanger driven.SessionExchanger) *SessionTokenCache {
	return &SessionTokenCache{
		provider:  provider,
		exchanger: exchanger,
	}
}

// GetCredential returns the cached credential, creating it on first use.
// Concurrent first callers share a single exchange.
func (c *SessionTokenCache) GetCredential(ctx context.Context, baseURL string) (*domain.SessionCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cred != nil {
		return c.cred, nil
	}

	if c.provider == nil {
		return nil, domain.ErrNoAccessToken
	}
	accessToken, err := c.provider.GetAccessToken(ctx)
	if err != nil {
		logger.Warn("access token (%s): %v", c.provider.AuthMethod(), err)
		return nil, fmt.Errorf("%w: %w", domain.ErrNoAccessToken, err)
	}
	if accessToken == "" {
		return nil, domain.ErrNoAccessToken
	}

	if c.exchanger == nil {
		return nil, fmt.Errorf("%w: session exchanger not configured", domain.ErrSessionRequestFailed)
	}
	cred, err := c.exchanger.Exchange(ctx, baseURL, accessToken)
	if err != nil {
		return nil, err
	}
	if cred == nil || cred.SessionID == "" {
		return nil, domain.ErrMissingSessionCookie
	}

	logger.Debug("Session created for %s", baseURL)
	c.cred = cred
	return c.cred, nil
}

// cached returns the cached credential without creating one.
func (c *SessionTokenCache) cached() (*domain.SessionCredential, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cred, c.cred != nil
}
