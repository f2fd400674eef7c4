package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openonco/scout/internal/archive"
)

var (
	runSkipTriage bool
	runSkipEmail  bool
	runSkipExport bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once: crawl, triage, digest, export",
	Long: `Run every pipeline stage in order: crawl all enabled sources,
triage new discoveries, send the digest, and export the queue.

Stages can be skipped individually. A failed stage is reported and the
remaining stages still run; the exit code is non-zero when anything failed.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		stageFailed := false

		// Stage 1: crawl
		fmt.Printf("%s\n", cyan("=== Crawl ==="))
		totalAdded := 0
		for _, c := range app.registry.Enabled() {
			result := app.runner.Run(ctx, c)
			if result.Success {
				fmt.Printf("%s %s\n", green("✓"), result.Summary())
				totalAdded += result.Added
			} else {
				fmt.Printf("%s %s\n", red("✗"), result.Summary())
				stageFailed = true
			}
		}
		fmt.Printf("%d new discoveries queued\n\n", totalAdded)

		// Stage 2: triage
		fmt.Printf("%s\n", cyan("=== Triage ==="))
		if runSkipTriage {
			fmt.Printf("%s skipped\n\n", gray("○"))
		} else if enricher, err := app.newEnricher(); err != nil {
			fmt.Printf("%s unavailable: %v\n\n", gray("○"), err)
		} else if result, err := enricher.TriagePending(ctx); err != nil {
			fmt.Printf("%s failed: %v\n\n", red("✗"), err)
			stageFailed = true
		} else {
			fmt.Printf("%s %d enriched, %d failed, %d skipped\n\n",
				green("✓"), result.Enriched, result.Failed, result.Skipped)
		}

		// Stage 3: digest
		fmt.Printf("%s\n", cyan("=== Digest ==="))
		if runSkipEmail {
			fmt.Printf("%s skipped\n\n", gray("○"))
		} else if d, _, sent, err := app.newDispatcher().Dispatch(ctx); err != nil {
			fmt.Printf("%s failed: %v\n\n", red("✗"), err)
			stageFailed = true
		} else if sent {
			fmt.Printf("%s sent with %d pending items\n\n", green("✓"), d.Pending())
		} else {
			fmt.Printf("%s suppressed below notify threshold\n\n", gray("○"))
		}

		// Stage 4: export
		fmt.Printf("%s\n", cyan("=== Export ==="))
		if runSkipExport {
			fmt.Printf("%s skipped\n", gray("○"))
		} else if result, err := archive.NewExporter(app.store, app.cfg.ExportDir, app.logger).Export(ctx); err != nil {
			fmt.Printf("%s failed: %v\n", red("✗"), err)
			stageFailed = true
		} else {
			fmt.Printf("%s %d discoveries to %s\n", green("✓"), result.Count, result.JSONPath)
		}

		if stageFailed {
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().BoolVar(&runSkipTriage, "skip-triage", false, "skip the model triage stage")
	runCmd.Flags().BoolVar(&runSkipEmail, "skip-email", false, "skip digest delivery")
	runCmd.Flags().BoolVar(&runSkipExport, "skip-export", false, "skip the export stage")
}
