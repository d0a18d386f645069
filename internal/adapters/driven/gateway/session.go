// Package gateway exchanges identity-provider access tokens for Sync Gateway sessions.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driven"
	"github.com/custodia-labs/replisync/internal/logger"
)

// Ensure SessionExchanger implements the interface.
var _ driven.SessionExchanger = (*SessionExchanger)(nil)

// DefaultExchangeRate limits session requests to one every two seconds
// with a small burst, so a misbehaving caller cannot hammer the gateway.
const (
	DefaultExchangeRate  = rate.Limit(0.5)
	DefaultExchangeBurst = 3
)

// SessionExchanger creates gateway sessions with POST {base}/_session.
type SessionExchanger struct {
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a SessionExchanger.
type Option func(*SessionExchanger)

// WithHTTPClient sets the HTTP client. A cookie jar is added if the client has none.
func WithHTTPClient(c *http.Client) Option {
	return func(e *SessionExchanger) {
		e.client = c
	}
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(e *SessionExchanger) {
		e.limiter = rate.NewLimiter(r, burst)
	}
}

// NewSessionExchanger creates an exchanger with a cookie-receiving HTTP client.
func NewSessionExchanger(opts ...Option) *SessionExchanger {
	e := &SessionExchanger{
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(DefaultExchangeRate, DefaultExchangeBurst),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client.Jar == nil {
		// cookiejar.New only fails when given a broken PublicSuffixList.
		jar, _ := cookiejar.New(nil)
		e.client.Jar = jar
	}
	return e
}

// Exchange issues the session request and extracts the SyncGatewaySession cookie.
func (e *SessionExchanger) Exchange(
	ctx context.Context,
	baseURL, accessToken string,
) (*domain.SessionCredential, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionRequestFailed, err)
	}

	sessionURL := strings.TrimSuffix(baseURL, "/") + "/_session"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrSessionRequestFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSessionRequestFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		logger.Debug("Session request to %s returned %d", sessionURL, resp.StatusCode)
		return nil, fmt.Errorf("%w: status %d", domain.ErrSessionRequestFailed, resp.StatusCode)
	}

	cookie := e.sessionCookie(resp, sessionURL)
	if cookie == nil || cookie.Value == "" {
		return nil, domain.ErrMissingSessionCookie
	}

	return &domain.SessionCredential{
		SessionID:  cookie.Value,
		CookieName: cookie.Name,
		BaseURL:    baseURL,
		Expires:    cookie.Expires,
	}, nil
}

// sessionCookie finds the session cookie in the response, falling back to
// the jar for cookies set on an earlier redirect hop.
func (e *SessionExchanger) sessionCookie(resp *http.Response, sessionURL string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == domain.SessionCookieName {
			return c
		}
	}

	u, err := url.Parse(sessionURL)
	if err != nil || e.client.Jar == nil {
		return nil
	}
	for _, c := range e.client.Jar.Cookies(u) {
		if c.Name == domain.SessionCookieName {
			return c
		}
	}
	return nil
}
