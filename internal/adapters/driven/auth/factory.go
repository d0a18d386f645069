package auth

import (
	"fmt"
	"os"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
)

// TokenEnvVar overrides the configured static token when set.
const TokenEnvVar = "REPLISYNC_ACCESS_TOKEN"

// Options carries what the providers need.
type Options struct {
	// Token is the configured static token.
	Token string
	// OAuth holds the identity provider client settings.
	OAuth domain.OAuthConfig
	// Tokens persists OAuth tokens between runs.
	Tokens driven.TokenStore
	// Authorize runs the interactive OAuth flow; nil disables it.
	Authorize AuthorizeFunc
}

// NewProvider creates the AccessTokenProvider for an auth method.
// An empty method selects static.
func NewProvider(method domain.AuthMethod, opts Options) (driven.AccessTokenProvider, error) {
	switch method {
	case "", domain.AuthMethodStatic:
		token := opts.Token
		if env := os.Getenv(TokenEnvVar); env != "" {
			token = env
		}
		return NewStaticProvider(token), nil

	case domain.AuthMethodPrompt:
		return NewPromptProvider(), nil

	case domain.AuthMethodOAuth:
		if !opts.OAuth.IsConfigured() {
			return nil, fmt.Errorf("%w: oauth.client_id, oauth.auth_url and oauth.token_url are required",
				domain.ErrInvalidInput)
		}
		if opts.Tokens == nil {
			return nil, fmt.Errorf("%w: oauth requires a token store", domain.ErrInvalidInput)
		}
		return NewOAuthProvider(opts.OAuth, opts.Tokens, opts.Authorize), nil

	default:
		return nil, fmt.Errorf("%w: unknown auth method %q", domain.ErrInvalidInput, method)
	}
}
