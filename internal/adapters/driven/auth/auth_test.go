package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/replisync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/replisync/internal/core/domain"
)

// ==================== Static ====================

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider("  abc \n")
	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)
	assert.Equal(t, domain.AuthMethodStatic, p.AuthMethod())
}

func TestNewProvider_StaticEnvOverride(t *testing.T) {
	t.Setenv(TokenEnvVar, "from-env")

	p, err := NewProvider(domain.AuthMethodStatic, Options{Token: "from-config"})
	require.NoError(t, err)
	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "from-env", tok)
}

func TestNewProvider_DefaultIsStatic(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	p, err := NewProvider("", Options{Token: "cfg"})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodStatic, p.AuthMethod())
}

func TestNewProvider_Errors(t *testing.T) {
	_, err := NewProvider("carrier-pigeon", Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewProvider(domain.AuthMethodOAuth, Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = NewProvider(domain.AuthMethodOAuth, Options{OAuth: domain.OAuthConfig{
		ClientID: "c", AuthURL: "https://idp/auth", TokenURL: "https://idp/token",
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewProvider_Prompt(t *testing.T) {
	p, err := NewProvider(domain.AuthMethodPrompt, Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.AuthMethodPrompt, p.AuthMethod())
}

// ==================== Prompt ====================

func TestPromptProvider_AsksOnce(t *testing.T) {
	var out bytes.Buffer
	p := newPromptProviderFrom(strings.NewReader("secret-token\nignored\n"), &out)

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := p.GetAccessToken(context.Background())
			assert.NoError(t, err)
			results[i] = tok
		}(i)
	}
	wg.Wait()

	for _, tok := range results {
		assert.Equal(t, "secret-token", tok)
	}
	assert.Equal(t, 1, strings.Count(out.String(), "access token:"))
}

func TestPromptProvider_NoTrailingNewline(t *testing.T) {
	p := newPromptProviderFrom(strings.NewReader("tok"), &bytes.Buffer{})
	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)
}

func TestPromptProvider_EmptyInput(t *testing.T) {
	p := newPromptProviderFrom(strings.NewReader(""), &bytes.Buffer{})
	_, err := p.GetAccessToken(context.Background())
	assert.Error(t, err)
}

func TestPromptProvider_CancelledContext(t *testing.T) {
	p := newPromptProviderFrom(strings.NewReader("tok\n"), &bytes.Buffer{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.GetAccessToken(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// ==================== OAuth ====================

// tokenServer is a minimal OAuth2 token endpoint.
type tokenServer struct {
	*httptest.Server
	refreshes atomic.Int32
	reject    atomic.Bool
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("grant_type") != "refresh_token" {
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
			return
		}
		if ts.reject.Load() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		n := ts.refreshes.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"access_token":"refreshed-%d","token_type":"Bearer","expires_in":3600,"refresh_token":"r2"}`, n)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func oauthConfig(ts *tokenServer) domain.OAuthConfig {
	return domain.OAuthConfig{
		ClientID: "replisync",
		AuthURL:  ts.URL + "/auth",
		TokenURL: ts.URL + "/token",
	}
}

func TestOAuthProvider_UsesValidStoredToken(t *testing.T) {
	ts := newTokenServer(t)
	store := memory.NewTokenStore()
	require.NoError(t, store.SaveToken(context.Background(), "replisync", domain.OAuthToken{
		AccessToken:  "stored",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(time.Hour),
	}))

	p := NewOAuthProvider(oauthConfig(ts), store, nil)
	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "stored", tok)
	assert.Equal(t, int32(0), ts.refreshes.Load())
	assert.Equal(t, domain.AuthMethodOAuth, p.AuthMethod())
}

func TestOAuthProvider_RefreshesExpiredToken(t *testing.T) {
	ts := newTokenServer(t)
	store := memory.NewTokenStore()
	require.NoError(t, store.SaveToken(context.Background(), "replisync", domain.OAuthToken{
		AccessToken:  "old",
		RefreshToken: "r1",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	p := NewOAuthProvider(oauthConfig(ts), store, nil)
	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", tok)

	saved, err := store.GetToken(context.Background(), "replisync")
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", saved.AccessToken)
	assert.Equal(t, "r2", saved.RefreshToken)

	// Still valid, no second refresh.
	tok, err = p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", tok)
	assert.Equal(t, int32(1), ts.refreshes.Load())
}

func TestOAuthProvider_NoTokenNoAuthorizer(t *testing.T) {
	ts := newTokenServer(t)
	p := NewOAuthProvider(oauthConfig(ts), memory.NewTokenStore(), nil)

	_, err := p.GetAccessToken(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoAccessToken)
}

func TestOAuthProvider_InteractiveFlow(t *testing.T) {
	ts := newTokenServer(t)
	store := memory.NewTokenStore()
	var calls int
	authorize := func(_ context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
		calls++
		assert.Equal(t, "replisync", cfg.ClientID)
		return &oauth2.Token{AccessToken: "interactive", RefreshToken: "r1", Expiry: time.Now().Add(time.Hour)}, nil
	}

	p := NewOAuthProvider(oauthConfig(ts), store, authorize)
	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "interactive", tok)
	assert.Equal(t, 1, calls)

	saved, err := store.GetToken(context.Background(), "replisync")
	require.NoError(t, err)
	assert.Equal(t, "interactive", saved.AccessToken)
}

func TestOAuthProvider_RevokedRefreshFallsBackToAuthorize(t *testing.T) {
	ts := newTokenServer(t)
	ts.reject.Store(true)
	store := memory.NewTokenStore()
	require.NoError(t, store.SaveToken(context.Background(), "replisync", domain.OAuthToken{
		AccessToken:  "old",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}))

	authorize := func(context.Context, *oauth2.Config) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "fresh", Expiry: time.Now().Add(time.Hour)}, nil
	}
	p := NewOAuthProvider(oauthConfig(ts), store, authorize)

	tok, err := p.GetAccessToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}

func TestOAuthProvider_AuthorizeError(t *testing.T) {
	ts := newTokenServer(t)
	boom := errors.New("user closed browser")
	p := NewOAuthProvider(oauthConfig(ts), memory.NewTokenStore(),
		func(context.Context, *oauth2.Config) (*oauth2.Token, error) { return nil, boom })

	_, err := p.GetAccessToken(context.Background())
	assert.ErrorIs(t, err, boom)
}
