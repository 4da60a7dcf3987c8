package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"deadman/cli/api"
	"deadman/cli/style"
)

var checksCmd = &cobra.Command{
	Use:     "checks [id]",
	Short:   "List checks for an account, or show one check in detail",
	Aliases: []string{"ls", "status"},
	Args:    cobra.MaximumNArgs(1),
	RunE:    runChecks,
}

func init() {
	rootCmd.AddCommand(checksCmd)
}

func runChecks(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showCheckDetail(args[0])
	}
	return showAllChecks()
}

func showAllChecks() error {
	if err := requireUser(); err != nil {
		return err
	}
	checks, err := client.ListChecks(userID)
	if err != nil {
		return fmt.Errorf("failed to fetch checks: %w", err)
	}

	if len(checks) == 0 {
		fmt.Println(style.DimText.Render("No checks yet. Create one through the API and point your job at /ping/<id>."))
		return nil
	}

	down := 0
	for _, c := range checks {
		if c.Status == "down" {
			down++
		}
	}
	summary := fmt.Sprintf("  %d check(s)", len(checks))
	if down > 0 {
		summary += fmt.Sprintf(", %d down", down)
	}
	fmt.Println(style.Banner.Render("☠ DEADMAN") + style.Subtitle.Render(summary))

	header := fmt.Sprintf(
		"  %-2s  %-36s  %-24s %-8s %-10s %-14s %s",
		"", "ID", "NAME", "STATUS", "PERIOD", "LAST PING", "NEXT",
	)
	fmt.Println(style.TableHeader.Render(header))

	now := time.Now()
	for _, c := range checks {
		printCheckRow(c, now)
	}
	fmt.Println()

	return nil
}

func printCheckRow(c api.Check, now time.Time) {
	name := c.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("  %s  %s  %s %s %s %s %s\n",
		style.CheckDot(c.Status),
		style.DimText.Render(padRight(c.ID, 36)),
		style.Bold.Render(padRight(truncate(name, 24), 24)),
		style.StatusText(padRight(c.Status, 8)),
		padRight(formatPeriod(c.Period), 10),
		padRight(ago(c.LastPingAt, now), 14),
		until(c.NextExpectedAt, now),
	)
}

func showCheckDetail(id string) error {
	c, err := client.GetCheck(id)
	if err != nil {
		return fmt.Errorf("failed to fetch check: %w", err)
	}

	now := time.Now()
	fmt.Println(style.Banner.Render("☠ " + strings.ToUpper(orDefault(c.Name, c.ID))))

	kv := func(k, v string) {
		fmt.Printf("  %s %s\n", style.Key.Render(k), style.Val.Render(v))
	}
	fmt.Printf("  %s %s %s\n", style.Key.Render("Status"), style.CheckDot(c.Status), style.StatusText(c.Status))
	kv("ID", c.ID)
	kv("Ping URL", strings.TrimRight(apiURL, "/")+"/ping/"+c.ID)
	kv("Period", formatPeriod(c.Period))
	kv("Grace", formatPeriod(c.Grace))
	if c.CronExpression != "" {
		kv("Cron", c.CronExpression)
	}
	kv("Last ping", ago(c.LastPingAt, now))
	kv("Next expected", until(c.NextExpectedAt, now))
	kv("Pings", fmt.Sprintf("%d", c.PingCount))
	kv("Alerts", fmt.Sprintf("%d", c.AlertCount))
	if c.GroupName != "" {
		kv("Group", c.GroupName)
	}
	if len(c.Tags) > 0 {
		fmt.Printf("  %s %s\n", style.Key.Render("Tags"), style.TagBadge.Render(strings.Join(c.Tags, " ")))
	}
	if c.MaintSchedule != "" {
		kv("Maintenance", c.MaintSchedule)
	}

	pings, err := client.ListPings(c.ID, 10)
	if err != nil {
		return fmt.Errorf("failed to fetch pings: %w", err)
	}
	fmt.Println()
	fmt.Println(style.TableHeader.Render(fmt.Sprintf("  %-8s %-20s %-16s %s", "TYPE", "WHEN", "SOURCE", "DURATION")))
	if len(pings) == 0 {
		fmt.Println(style.DimText.Render("  no pings received"))
	}
	for _, p := range pings {
		duration := "-"
		if p.DurationMs != nil {
			duration = (time.Duration(*p.DurationMs) * time.Millisecond).String()
		}
		typ := padRight(p.Type, 8)
		switch p.Type {
		case "fail":
			typ = style.Unhealthy.Render(typ)
		case "start":
			typ = style.Accent.Render(typ)
		default:
			typ = style.Healthy.Render(typ)
		}
		fmt.Printf("  %s %-20s %-16s %s\n", typ, p.CreatedAt.Local().Format("2006-01-02 15:04:05"), p.SourceIP, duration)
	}
	fmt.Println()

	return nil
}

func formatPeriod(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return (time.Duration(seconds) * time.Second).String()
}

func ago(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return now.Sub(*t).Round(time.Second).String() + " ago"
}

func until(t *time.Time, now time.Time) string {
	if t == nil {
		return "-"
	}
	d := t.Sub(now).Round(time.Second)
	if d < 0 {
		return style.Unhealthy.Render("overdue " + (-d).String())
	}
	return "in " + d.String()
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
