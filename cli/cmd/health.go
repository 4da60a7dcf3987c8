package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deadman/cli/style"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check health of the server and its backing services",
	Aliases: []string{"doctor", "h"},
	RunE:    runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	h, err := client.Health()
	if err != nil {
		fmt.Println(style.ErrorBox.Render("Cannot reach deadman API at " + apiURL))
		return err
	}

	fmt.Println(style.Banner.Render("☠ DEADMAN HEALTH"))

	serviceNames := map[string]string{
		"postgres": "PostgreSQL",
		"cache":    "Redis cache",
		"smtp":     "SMTP relay",
	}

	for _, svc := range h.Services {
		name := serviceNames[svc.Name]
		if name == "" {
			name = svc.Name
		}

		var label string
		switch {
		case svc.Healthy:
			label = style.Healthy.Render("up") + style.DimText.Render(fmt.Sprintf(" %dms", svc.LatencyMs))
		case svc.Optional:
			label = style.Warning.Render("degraded")
		default:
			label = style.Unhealthy.Render("down")
		}
		if svc.Error != "" {
			label += "  " + style.DimText.Render(svc.Error)
		}

		fmt.Printf("  %s  %-14s %s\n", style.HealthDot(svc.Healthy), style.Bold.Render(name), label)
	}

	fmt.Println()
	if h.UptimeSeconds > 0 {
		uptime := (time.Duration(h.UptimeSeconds) * time.Second).String()
		fmt.Printf("  %s %s\n", style.Key.Render("Uptime"), style.Val.Render(uptime))
	}

	if h.Status == "healthy" {
		fmt.Println(style.SuccessBox.Render("All required services healthy"))
	} else {
		fmt.Println(style.ErrorBox.Render("Server is degraded: pings are still accepted but sweeps may stall"))
	}

	return nil
}
