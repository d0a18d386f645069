package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/core/domain"
)

var errNoSettings = errors.New("settings service not configured")

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change configuration",
	Long: `View and change the settings stored in config.toml.

Settings not covered by a subcommand can be edited in the file directly.`,
	RunE: runStatus,
}

var configGatewayCmd = &cobra.Command{
	Use:   "gateway <host> [cert-name]",
	Short: "Set the gateway host and pinned certificate",
	Long: `Sets the gateway host, including the database path, for example
"sync.example.com/travel". The optional cert-name selects the pinned
certificate, read from certs.dir or the bundled set.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigGateway,
}

var (
	authToken     string
	oauthClientID string
	oauthSecret   string
	oauthAuthURL  string
	oauthTokenURL string
	oauthScopes   []string
)

var configAuthCmd = &cobra.Command{
	Use:   "auth <static|prompt|oauth>",
	Short: "Choose how access tokens are acquired",
	Long: `Selects the access-token method.

  static  - a fixed token from --token or REPLISYNC_ACCESS_TOKEN
  prompt  - ask on the terminal
  oauth   - OAuth2 with refresh; run 'replisync login' to sign in`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"static", "prompt", "oauth"},
	RunE:      runConfigAuth,
}

var configStoreCmd = &cobra.Command{
	Use:   "store <sqlite|memory|files> [dir]",
	Short: "Choose the local document store",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConfigStore,
}

func init() {
	configAuthCmd.Flags().StringVar(&authToken, "token", "", "static access token")
	configAuthCmd.Flags().StringVar(&oauthClientID, "client-id", "", "OAuth client ID")
	configAuthCmd.Flags().StringVar(&oauthSecret, "client-secret", "", "OAuth client secret (optional with PKCE)")
	configAuthCmd.Flags().StringVar(&oauthAuthURL, "auth-url", "", "OAuth authorisation endpoint")
	configAuthCmd.Flags().StringVar(&oauthTokenURL, "token-url", "", "OAuth token endpoint")
	configAuthCmd.Flags().StringSliceVar(&oauthScopes, "scopes", nil, "OAuth scopes")

	configCmd.AddCommand(configGatewayCmd)
	configCmd.AddCommand(configAuthCmd)
	configCmd.AddCommand(configStoreCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGateway(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	host := strings.TrimPrefix(strings.TrimPrefix(args[0], "https://"), "wss://")
	certName := ""
	if len(args) > 1 {
		certName = args[1]
	}
	if err := settingsService.SetGateway(host, certName); err != nil {
		return fmt.Errorf("failed to set gateway: %w", err)
	}
	cmd.Printf("Gateway set to %s\n", host)
	return nil
}

func runConfigAuth(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	method := domain.AuthMethod(args[0])

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Auth.Method = method
	if authToken != "" {
		settings.Auth.Token = authToken
	}
	if cmd.Flags().Changed("client-id") {
		settings.OAuth.ClientID = oauthClientID
	}
	if oauthSecret != "" {
		settings.OAuth.ClientSecret = oauthSecret
	}
	if cmd.Flags().Changed("auth-url") {
		settings.OAuth.AuthURL = oauthAuthURL
	}
	if cmd.Flags().Changed("token-url") {
		settings.OAuth.TokenURL = oauthTokenURL
	}
	if cmd.Flags().Changed("scopes") {
		settings.OAuth.Scopes = oauthScopes
	}

	if !method.IsValid() {
		return fmt.Errorf("%w: unknown auth method %q", domain.ErrInvalidInput, method)
	}
	if method == domain.AuthMethodOAuth && !settings.OAuth.IsConfigured() {
		return fmt.Errorf("%w: --client-id, --auth-url and --token-url are required for oauth",
			domain.ErrInvalidInput)
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Auth method set to %s\n", method)
	return nil
}

func runConfigStore(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	backend := domain.StoreBackend(args[0])
	if !backend.IsValid() {
		return fmt.Errorf("%w: unknown store backend %q", domain.ErrInvalidInput, backend)
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	settings.Store.Backend = backend
	if len(args) > 1 {
		settings.Store.Dir = args[1]
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	cmd.Printf("Store backend set to %s\n", backend)
	return nil
}
