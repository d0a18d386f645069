package driven

import (
	"context"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

// AccessTokenProvider acquires the long-lived identity-provider access token.
//
// Implementations may show interactive UI (a browser consent page or a
// terminal prompt) and must be safe to call from a background goroutine.
type AccessTokenProvider interface {
	// GetAccessToken returns an access token.
	// An empty token with a nil error means no token is available.
	GetAccessToken(ctx context.Context) (string, error)

	// AuthMethod returns how the token is acquired.
	AuthMethod() domain.AuthMethod
}

// SessionExchanger trades an access token for a gateway session.
type SessionExchanger interface {
	// Exchange issues POST {baseURL}/_session with the access token as a
	// bearer credential and returns the session cookie as a credential.
	Exchange(ctx context.Context, baseURL, accessToken string) (*domain.SessionCredential, error)
}
