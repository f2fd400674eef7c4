package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openonco/scout/internal/digest"
)

var digestDryRun bool

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Build and send the review digest",
	Long: `Assemble the pending queue into a digest grouped by priority and
source, and email it to the configured recipients.

With --dry-run the digest is printed instead of sent; the minimum-notify
threshold is ignored in that mode.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dispatcher := app.newDispatcher()

		if digestDryRun {
			d, err := dispatcher.Build()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(digest.RenderText(d))
			return
		}

		d, id, sent, err := dispatcher.Dispatch(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		green := color.New(color.FgGreen).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if sent {
			fmt.Printf("%s digest sent: %d pending items (message %s)\n", green("✓"), d.Pending(), id)
		} else {
			fmt.Printf("%s digest suppressed: %d pending, below notify threshold\n", gray("○"), d.Pending())
		}
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestDryRun, "dry-run", false, "print the digest instead of sending it")
}
