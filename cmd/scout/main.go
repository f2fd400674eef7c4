// Command scout runs the discovery pipeline for oncology diagnostic tests:
// it crawls external sources, queues findings for human review, triages them
// with a language model, and delivers review digests.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environments set variables directly.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
