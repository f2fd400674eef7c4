package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cleanupMaxAgeDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove discoveries older than the retention window",
	Long: `Delete discoveries whose discovery time is older than the retention
window. The configured cleanup.max_age_days applies unless --max-age-days
overrides it. Running cleanup twice in a row removes nothing the second
time.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		days := app.cfg.Cleanup.MaxAgeDays
		if cleanupMaxAgeDays > 0 {
			days = cleanupMaxAgeDays
		}

		removed, err := app.store.CleanupOld(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cleanup failed: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s removed %d discoveries older than %d days\n", green("✓"), removed, days)
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupMaxAgeDays, "max-age-days", 0, "override the configured retention window")
}
