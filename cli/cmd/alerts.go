package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deadman/cli/style"
)

var alertsLimit int

var alertsCmd = &cobra.Command{
	Use:   "alerts <check-id>",
	Short: "Show the notification history of a check",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlerts,
}

func init() {
	alertsCmd.Flags().IntVarP(&alertsLimit, "limit", "n", 20, "number of alerts to show")
	rootCmd.AddCommand(alertsCmd)
}

func runAlerts(cmd *cobra.Command, args []string) error {
	alerts, err := client.ListAlerts(args[0], alertsLimit)
	if err != nil {
		return fmt.Errorf("failed to fetch alerts: %w", err)
	}
	if len(alerts) == 0 {
		fmt.Println(style.DimText.Render("No alerts sent for this check."))
		return nil
	}

	fmt.Println(style.TableHeader.Render(fmt.Sprintf(
		"  %-20s %-9s %-8s %-8s %-32s %-6s %s",
		"WHEN", "EVENT", "KIND", "STATUS", "TARGET", "TRIES", "NEXT RETRY",
	)))

	now := time.Now()
	for _, a := range alerts {
		next := "-"
		if a.NextRetryAt != nil {
			next = until(a.NextRetryAt, now)
		}
		event := padRight(a.Type, 9)
		if a.Type == "down" {
			event = style.Unhealthy.Render(event)
		} else {
			event = style.Healthy.Render(event)
		}
		fmt.Printf("  %-20s %s %-8s %s %-32s %-6d %s\n",
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			event,
			a.Kind,
			style.StatusText(padRight(a.Status, 8)),
			truncate(a.Target, 32),
			a.RetryCount,
			next,
		)
		if a.Error != nil && *a.Error != "" {
			fmt.Printf("  %s\n", style.DimText.Render("  ↳ "+*a.Error))
		}
	}
	fmt.Println()

	return nil
}
