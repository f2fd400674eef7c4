package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openonco/scout/internal/scheduler"
	"github.com/openonco/scout/internal/types"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the pipeline on its configured schedules",
	Long: `Run continuously, firing each source's crawl on its cron schedule,
the digest dispatch on its own schedule, and periodic queue cleanup.

A crawl that queues new discoveries triggers an immediate digest dispatch;
the minimum-notify threshold still applies. Stops cleanly on SIGINT or
SIGTERM, waiting for in-flight jobs.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		crons := make(map[types.Source]string)
		for _, source := range types.AllSources() {
			if spec := app.cfg.Source(source).Cron; spec != "" {
				crons[source] = spec
			}
		}

		svc := scheduler.NewService(app.registry, app.runner, app.newDispatcher(), app.store, scheduler.Config{
			CrawlerCrons: crons,
			DigestCron:   app.cfg.Digest.Cron,
			CleanupCron:  app.cfg.Cleanup.Cron,
			Retention:    time.Duration(app.cfg.Cleanup.MaxAgeDays) * 24 * time.Hour,
		}, app.logger)

		if err := svc.Schedule(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		svc.Start()
		status := svc.Status()
		app.logger.Info("daemon running", zap.Int("jobs", len(status.ActiveJobs)))

		fmt.Printf("scout daemon running with %d scheduled jobs:\n", len(status.ActiveJobs))
		for _, job := range status.ActiveJobs {
			fmt.Printf("  %-28s %s (next %s)\n", job.Key, job.Spec, job.Next.Format("2006-01-02 15:04"))
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		app.logger.Info("shutting down", zap.String("signal", sig.String()))
		fmt.Println("\nshutting down, waiting for running jobs...")
		svc.Stop()
	},
}
