package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"deadman/cli/style"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the server's background jobs",
	RunE:  runJobs,
}

var jobsTriggerCmd = &cobra.Command{
	Use:   "trigger <name>",
	Short: "Run a background job (sweep, retry) immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.TriggerJob(args[0]); err != nil {
			fmt.Println(style.ErrorBox.Render("Trigger failed: " + err.Error()))
			return err
		}
		fmt.Println(style.SuccessBox.Render("✓ " + args[0] + " triggered"))
		return nil
	},
}

func init() {
	jobsCmd.AddCommand(jobsTriggerCmd)
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	jobs, err := client.ListJobs()
	if err != nil {
		return fmt.Errorf("failed to fetch jobs: %w", err)
	}

	fmt.Println(style.TableHeader.Render(fmt.Sprintf(
		"  %-2s  %-10s %-18s %-8s %-14s %s", "", "JOB", "SCHEDULE", "RUNS", "LAST RUN", "NEXT RUN",
	)))

	now := time.Now()
	for _, j := range jobs {
		fmt.Printf("  %s  %s %-18s %-8d %-14s %s\n",
			style.HealthDot(j.LastError == ""),
			style.Bold.Render(padRight(j.Name, 10)),
			j.Schedule,
			j.Runs,
			ago(j.LastRunAt, now),
			until(j.NextRunAt, now),
		)
		if j.LastError != "" {
			fmt.Printf("      %s\n", style.Unhealthy.Render(j.LastError))
		}
	}
	fmt.Println()

	return nil
}
