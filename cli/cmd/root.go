package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"deadman/cli/api"
)

var (
	apiURL   string
	apiToken string
	userID   string
	client   *api.Client
)

var rootCmd = &cobra.Command{
	Use:   "deadman",
	Short: "Operator CLI for the deadman heartbeat monitor",
	Long: `deadman watches for the pings your cron jobs send and raises the alarm when one goes quiet.

List checks, inspect pings and alerts, pause noisy jobs, preview cron schedules
and watch live events from the terminal.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		client = api.New(apiURL, apiToken)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("DEADMAN_URL", "http://localhost:8800"), "deadman API URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("DEADMAN_API_TOKEN"), "bearer token for the management API")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", os.Getenv("DEADMAN_USER"), "account whose checks to show")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requireUser() error {
	if userID == "" {
		return fmt.Errorf("no account selected: pass --user or set DEADMAN_USER")
	}
	return nil
}
