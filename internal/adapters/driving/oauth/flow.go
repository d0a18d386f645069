package oauth

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/replisync/internal/logger"
)

// DefaultTimeout bounds how long the flow waits for the browser callback.
const DefaultTimeout = 5 * time.Minute

// Flow runs the authorisation-code flow with PKCE through a loopback
// callback server.
type Flow struct {
	// Open shows the authorisation URL to the user. Defaults to OpenBrowser.
	Open func(url string) error
	// Timeout bounds the wait for the callback. Defaults to DefaultTimeout.
	Timeout time.Duration
	// StartPort and EndPort bound the loopback port. Zero picks any free port.
	StartPort, EndPort int
	// Out receives the sign-in instructions. Defaults to os.Stderr.
	Out io.Writer
}

// Authorize sends the user to the identity provider and exchanges the
// returned code for a token. cfg.RedirectURL is set to the loopback address.
func (f Flow) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	port := 0
	if f.StartPort > 0 {
		p, err := FindAvailablePort(f.StartPort, f.EndPort)
		if err != nil {
			return nil, err
		}
		port = p
	}

	state, err := NewState()
	if err != nil {
		return nil, err
	}

	server := NewCallbackServer(port, state)
	if err := server.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if err := server.Stop(); err != nil {
			logger.Debug("callback server shutdown: %v", err)
		}
	}()

	cfg.RedirectURL = server.RedirectURI()
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	open := f.Open
	if open == nil {
		open = OpenBrowser
	}
	out := f.Out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Sign in to continue:\n  %s\n", authURL)
	if err := open(authURL); err != nil {
		logger.Warn("Could not open browser: %v", err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	code, err := server.WaitForCode(waitCtx)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}
