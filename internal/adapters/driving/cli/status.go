package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/replisync/internal/core/domain"
	"github.com/custodia-labs/replisync/internal/core/ports/driving"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and replication status",
	Long: `Shows the configured gateway, authentication and store, and whether the
configuration is complete enough to replicate. When the configuration is
ready, the periodic sync schedule and its request history are shown too.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNoSettings
	}
	settings, err := settingsService.Get()
	if err != nil {
		return err
	}

	printSettings(cmd, settings)

	if err := settings.Validate(); err != nil {
		cmd.Printf("Status: not ready (%v)\n", err)
		return nil
	}
	cmd.Println("Status: ready")

	if runtimeFactory == nil {
		return nil
	}
	rt, err := runtimeFactory(cmd.Context(), settings)
	if err != nil {
		cmd.Printf("Schedule: unavailable (%v)\n", err)
		return nil
	}
	defer closeRuntime(rt)
	printSchedule(cmd, rt.Scheduler)
	return nil
}

func printSchedule(cmd *cobra.Command, scheduler driving.Scheduler) {
	cmd.Println()
	cmd.Println("[Schedule]")
	if scheduler == nil {
		cmd.Println("  Disabled")
		return
	}
	summary, err := scheduler.Summary(cmd.Context())
	if err != nil {
		cmd.Printf("  Unavailable: %v\n", err)
		return
	}
	if summary == nil {
		cmd.Println("  Not started yet (run 'replisync daemon')")
		return
	}

	cmd.Printf("  Interval: %s\n", summary.Task.Interval)
	if !summary.Task.NextRun.IsZero() {
		cmd.Printf("  Next request: %s\n", summary.Task.NextRun.Local().Format(time.RFC3339))
	}
	if summary.Requests == 0 {
		cmd.Println("  Requests: none yet")
		return
	}
	cmd.Printf("  Requests: %d (%d failed)\n", summary.Requests, summary.Failures)
	cmd.Printf("  Last request: %s, attempt %d\n",
		summary.LastRequest.Local().Format(time.RFC3339), summary.LastAttempt)
	if summary.FailureStreak > 0 {
		cmd.Printf("  Failing: last %d requests (%s)\n", summary.FailureStreak, orNotSet(summary.Task.LastError))
	}
}

func printSettings(cmd *cobra.Command, s *domain.AppSettings) {
	cmd.Println("[Gateway]")
	cmd.Printf("  Host: %s\n", orNotSet(s.Gateway.Host))
	cmd.Printf("  Certificate: %s\n", orNotSet(s.Gateway.CertName))
	if s.CertsDir != "" {
		cmd.Printf("  Certificates dir: %s\n", s.CertsDir)
	}
	cmd.Println()

	cmd.Println("[Auth]")
	cmd.Printf("  Method: %s\n", s.Auth.Method)
	switch s.Auth.Method {
	case domain.AuthMethodStatic:
		if s.Auth.Token != "" {
			cmd.Printf("  Token: %s\n", maskSecret(s.Auth.Token))
		} else {
			cmd.Println("  Token: (not set)")
		}
	case domain.AuthMethodOAuth:
		cmd.Printf("  Client ID: %s\n", orNotSet(s.OAuth.ClientID))
		cmd.Printf("  Token URL: %s\n", orNotSet(s.OAuth.TokenURL))
	}
	cmd.Println()

	cmd.Println("[Store]")
	cmd.Printf("  Backend: %s\n", s.Store.Backend)
	if s.Store.Dir != "" {
		cmd.Printf("  Dir: %s\n", s.Store.Dir)
	}
	cmd.Printf("  Sync interval: %s\n", s.SyncInterval)
	if s.LogFile != "" {
		cmd.Printf("  Log file: %s\n", s.LogFile)
	}
	cmd.Println()
}

func orNotSet(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// maskSecret shows only the last four characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
