package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openonco/scout/internal/types"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [source...]",
	Short: "Run crawlers and queue new discoveries",
	Long: `Run crawlers immediately, outside any schedule.

With no arguments, every enabled source runs sequentially. Naming sources
runs exactly those, whether enabled or not.

Known sources: coverage-registry, vendor, payer, literature, preprint,
device-approval.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		var results []*types.CrawlResult
		if len(args) == 0 {
			for _, c := range app.registry.Enabled() {
				results = append(results, app.runner.Run(ctx, c))
			}
		} else {
			for _, arg := range args {
				source := types.Source(arg)
				if !types.ValidSource(source) {
					fmt.Fprintf(os.Stderr, "Error: unknown source %q\n", arg)
					os.Exit(1)
				}
				c, exists := app.registry.Get(source)
				if !exists {
					fmt.Fprintf(os.Stderr, "Error: no crawler for source %q\n", arg)
					os.Exit(1)
				}
				results = append(results, app.runner.Run(ctx, c))
			}
		}

		failed := 0
		totalAdded := 0
		for _, r := range results {
			if r.Success {
				fmt.Printf("%s %s\n", green("✓"), r.Summary())
				totalAdded += r.Added
			} else {
				fmt.Printf("%s %s\n", red("✗"), r.Summary())
				failed++
			}
		}

		fmt.Printf("\n%d new discoveries queued\n", totalAdded)
		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d crawls failed\n", failed, len(results))
			os.Exit(1)
		}
	},
}
