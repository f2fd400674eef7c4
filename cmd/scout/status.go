package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openonco/scout/internal/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show queue counts and per-source crawl health",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s\n\n", cyan("=== Scout Status ==="))

		queue, err := app.store.QueueStatus()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s\n", yellow("Queue:"))
		fmt.Printf("  Total:    %d\n", queue.Total)
		fmt.Printf("  Pending:  %d\n", queue.Pending)
		fmt.Printf("  Reviewed: %d\n\n", queue.Reviewed)

		fmt.Printf("%s\n", yellow("Source health:"))
		snapshot := app.health.Snapshot()
		for _, source := range types.AllSources() {
			rec, exists := snapshot[source]
			if !exists {
				fmt.Printf("  %s %-20s %s\n", gray("○"), source, gray("never run"))
				continue
			}

			icon := green("●")
			if rec.ErrorCount > 0 && (rec.LastSuccess == nil ||
				(rec.LastError != nil && rec.LastError.After(*rec.LastSuccess))) {
				icon = red("●")
			}

			fmt.Printf("  %s %-20s %d ok, %d errors", icon, source, rec.SuccessCount, rec.ErrorCount)
			if rec.LastSuccess != nil {
				fmt.Printf(", last success %s ago", time.Since(*rec.LastSuccess).Round(time.Minute))
			}
			fmt.Println()
			if rec.LastErrorMessage != "" {
				fmt.Printf("      %s\n", gray("last error: "+rec.LastErrorMessage))
			}
		}
		fmt.Println()
	},
}
