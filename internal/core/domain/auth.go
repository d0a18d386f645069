package domain

import "time"

// AuthMethod selects how the identity-provider access token is acquired.
type AuthMethod string

const (
	// AuthMethodStatic uses a configured access token.
	AuthMethodStatic AuthMethod = "static"
	// AuthMethodPrompt asks for an access token on the terminal.
	AuthMethodPrompt AuthMethod = "prompt"
	// AuthMethodOAuth runs an OAuth2 authorisation-code flow with refresh.
	AuthMethodOAuth AuthMethod = "oauth"
)

// OAuthToken represents stored OAuth credentials.
type OAuthToken struct {
	// AccessToken is the bearer token for API access.
	AccessToken string `json:"access_token"`
	// RefreshToken is used to obtain new access tokens.
	RefreshToken string `json:"refresh_token,omitempty"`
	// TokenType is typically "Bearer".
	TokenType string `json:"token_type"`
	// Expiry is when the access token expires.
	Expiry time.Time `json:"expiry,omitempty"`
}

// IsExpired returns true if the token has expired.
func (t *OAuthToken) IsExpired() bool {
	if t.Expiry.IsZero() {
		return false
	}
	return time.Now().After(t.Expiry)
}

// OAuthConfig holds the identity provider's OAuth client settings.
type OAuthConfig struct {
	// ClientID is the OAuth client ID registered with the identity provider.
	ClientID string
	// ClientSecret is optional for public clients using PKCE.
	ClientSecret string
	// Scopes are the OAuth scopes to request.
	Scopes []string
	// AuthURL is the authorisation endpoint.
	AuthURL string
	// TokenURL is the token exchange endpoint.
	TokenURL string
}

// IsConfigured reports whether enough settings exist to run the flow.
func (c OAuthConfig) IsConfigured() bool {
	return c.ClientID != "" && c.AuthURL != "" && c.TokenURL != ""
}
