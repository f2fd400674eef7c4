package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Run model triage over pending discoveries",
	Long: `Send each pending discovery without an extraction to the language
model and attach the structured result to its metadata.

Requires ANTHROPIC_API_KEY. Individual failures are logged and counted but
do not abort the batch.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		enricher, err := app.newEnricher()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		result, err := enricher.TriagePending(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: triage failed: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("%s %d enriched, %d skipped (already done)\n",
			green("✓"), result.Enriched, result.Skipped)
		if result.Failed > 0 {
			fmt.Printf("%s %d items failed and remain untriaged\n", yellow("⚠"), result.Failed)
		}
	},
}
