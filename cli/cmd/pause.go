package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"deadman/cli/style"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <check-id>",
	Short: "Stop monitoring a check until it is resumed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.Pause(args[0])
		if err != nil {
			fmt.Println(style.ErrorBox.Render("Pause failed: " + err.Error()))
			return err
		}
		fmt.Println(style.SuccessBox.Render(fmt.Sprintf("⏸ %s %s", args[0], c.Status)))
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <check-id>",
	Short: "Resume a paused check; it waits for its next ping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := client.Resume(args[0])
		if err != nil {
			fmt.Println(style.ErrorBox.Render("Resume failed: " + err.Error()))
			return err
		}
		fmt.Println(style.SuccessBox.Render(fmt.Sprintf("▶ %s resumed, now %s until its next ping", args[0], c.Status)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
}
