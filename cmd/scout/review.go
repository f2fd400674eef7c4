package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openonco/scout/internal/store"
)

var reviewList bool

var reviewCmd = &cobra.Command{
	Use:   "review [id...]",
	Short: "List pending discoveries or mark them reviewed",
	Long: `With --list (or no arguments), show the pending queue. With IDs,
mark each one reviewed.

Review is one-way: a reviewed discovery cannot return to pending, and
reviewing it again is an error.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if reviewList || len(args) == 0 {
			listPending(app)
			return
		}

		green := color.New(color.FgGreen).SprintFunc()
		failed := 0
		for _, id := range args {
			switch err := app.store.MarkReviewed(id); {
			case err == nil:
				fmt.Printf("%s %s reviewed\n", green("✓"), id)
			case errors.Is(err, store.ErrNotFound):
				fmt.Fprintf(os.Stderr, "Error: %s: not found\n", id)
				failed++
			case errors.Is(err, store.ErrAlreadyReviewed):
				fmt.Fprintf(os.Stderr, "Error: %s: already reviewed\n", id)
				failed++
			default:
				fmt.Fprintf(os.Stderr, "Error: %s: %v\n", id, err)
				failed++
			}
		}
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func listPending(app *app) {
	pending, err := app.store.GetUnreviewed()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(pending) == 0 {
		fmt.Println("No pending discoveries.")
		return
	}

	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("%d pending:\n\n", len(pending))
	for _, d := range pending {
		fmt.Printf("%s  [%s/%s] %s\n", yellow(d.ID), d.Source, d.Relevance, d.Title)
		if d.URL != "" {
			fmt.Printf("%s    %s\n", gray(" "), gray(d.URL))
		}
	}
}

func init() {
	reviewCmd.Flags().BoolVar(&reviewList, "list", false, "list pending discoveries")
}
