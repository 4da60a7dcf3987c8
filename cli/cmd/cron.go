package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"deadman/cli/style"
)

var cronCmd = &cobra.Command{
	Use:   "cron <expression>",
	Short: "Preview the period and grace a cron expression maps to",
	Long: `Ask the server how it would interpret a cron expression.

Quote the expression so the shell passes it as one argument:

  deadman cron "*/15 * * * *"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCron,
}

func init() {
	rootCmd.AddCommand(cronCmd)
}

func runCron(cmd *cobra.Command, args []string) error {
	expr := strings.Join(args, " ")
	res, err := client.ParseCron(expr)
	if err != nil {
		return err
	}

	if !res.Valid {
		fmt.Println(style.ErrorBox.Render(fmt.Sprintf("✗ %q: %s", expr, res.Error)))
		return fmt.Errorf("invalid cron expression")
	}

	fmt.Printf("  %s %s\n", style.Key.Render("Expression"), style.Val.Render(res.NormalizedExpression))
	fmt.Printf("  %s %s\n", style.Key.Render("Schedule"), style.Val.Render(res.Description))
	fmt.Printf("  %s %s\n", style.Key.Render("Period"), style.Val.Render(formatPeriod(res.PeriodSeconds)))
	fmt.Printf("  %s %s\n", style.Key.Render("Grace"), style.Val.Render(formatPeriod(res.GraceSeconds)))
	return nil
}
