package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openonco/scout/internal/archive"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the queue to dated JSON and the SQLite archive",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		exporter := archive.NewExporter(app.store, app.cfg.ExportDir, app.logger)
		result, err := exporter.Export(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: export failed: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s exported %d discoveries\n", green("✓"), result.Count)
		fmt.Printf("  JSON:   %s\n", result.JSONPath)
		fmt.Printf("  SQLite: %s\n", result.DBPath)
	},
}
