package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the identity provider",
	Long: `Acquires an access token with the configured auth method and stores it.

With auth.method = oauth a browser window opens for sign-in; the resulting
refresh token is kept so later syncs run unattended.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	rt, _, err := openRuntime(ctx)
	if err != nil {
		return err
	}
	defer closeRuntime(rt)

	if rt.Tokens == nil {
		return fmt.Errorf("%w: no access token provider", domain.ErrNoAccessToken)
	}

	ctx, timeoutCancel := context.WithTimeout(ctx, 10*time.Minute)
	defer timeoutCancel()

	token, err := rt.Tokens.GetAccessToken(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if token == "" {
		return domain.ErrNoAccessToken
	}
	cmd.Printf("Signed in (%s).\n", rt.Tokens.AuthMethod())
	return nil
}
