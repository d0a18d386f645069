package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

// Ensure OAuthProvider implements the AccessTokenProvider interface.
var _ driven.AccessTokenProvider = (*OAuthProvider)(nil)

// AuthorizeFunc runs an interactive authorisation-code flow and returns
// the issued token. The config may be modified (for example its
// RedirectURL) by the implementation.
type AuthorizeFunc func(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)

// OAuthProvider supplies identity-provider access tokens from an OAuth2
// client. A stored token is refreshed silently; when none is usable the
// interactive flow runs, if one is configured.
type OAuthProvider struct {
	config    oauth2.Config
	store     driven.TokenStore
	authorize AuthorizeFunc

	mu     sync.Mutex
	source oauth2.TokenSource
	saved  string
}

// NewOAuthProvider creates a provider. authorize may be nil, in which case
// only stored tokens are used.
func NewOAuthProvider(cfg domain.OAuthConfig, store driven.TokenStore, authorize AuthorizeFunc) *OAuthProvider {
	return &OAuthProvider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		store:     store,
		authorize: authorize,
	}
}

// GetAccessToken returns a valid access token, refreshing or authorising
// as needed. Refreshed tokens are written back to the store.
func (p *OAuthProvider) GetAccessToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.source == nil {
		if err := p.initSource(ctx); err != nil {
			return "", err
		}
	}

	tok, err := p.source.Token()
	if err != nil {
		// The refresh token was rejected or revoked.
		logger.Warn("OAuth token refresh failed: %v", err)
		if p.authorize == nil {
			return "", fmt.Errorf("refreshing OAuth token: %w", err)
		}
		if err := p.runAuthorize(ctx); err != nil {
			return "", err
		}
		if tok, err = p.source.Token(); err != nil {
			return "", fmt.Errorf("OAuth token: %w", err)
		}
	}

	if err := p.persist(ctx, tok); err != nil {
		logger.Warn("Failed to store OAuth token: %v", err)
	}
	return tok.AccessToken, nil
}

// AuthMethod returns AuthMethodOAuth.
func (p *OAuthProvider) AuthMethod() domain.AuthMethod {
	return domain.AuthMethodOAuth
}

// initSource builds the token source from the stored token or, failing
// that, the interactive flow.
func (p *OAuthProvider) initSource(ctx context.Context) error {
	stored, err := p.store.GetToken(ctx, p.config.ClientID)
	switch {
	case err == nil && (stored.RefreshToken != "" || !stored.IsExpired()):
		p.setSource(ctx, fromDomain(stored))
		p.saved = stored.AccessToken
		return nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("loading OAuth token: %w", err)
	}

	if p.authorize == nil {
		return domain.ErrNoAccessToken
	}
	return p.runAuthorize(ctx)
}

func (p *OAuthProvider) runAuthorize(ctx context.Context) error {
	cfg := p.config
	tok, err := p.authorize(ctx, &cfg)
	if err != nil {
		return fmt.Errorf("OAuth authorisation: %w", err)
	}
	if tok == nil || tok.AccessToken == "" {
		return domain.ErrNoAccessToken
	}
	p.setSource(ctx, tok)
	return nil
}

func (p *OAuthProvider) setSource(ctx context.Context, tok *oauth2.Token) {
	// Refreshes may happen long after the first caller's context ends.
	base := context.WithoutCancel(ctx)
	p.source = oauth2.ReuseTokenSource(tok, p.config.TokenSource(base, tok))
}

func (p *OAuthProvider) persist(ctx context.Context, tok *oauth2.Token) error {
	if tok.AccessToken == p.saved {
		return nil
	}
	if err := p.store.SaveToken(ctx, p.config.ClientID, toDomain(tok)); err != nil {
		return err
	}
	p.saved = tok.AccessToken
	return nil
}

func fromDomain(t *domain.OAuthToken) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

func toDomain(t *oauth2.Token) domain.OAuthToken {
	return domain.OAuthToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}
