package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/openonco/scout/internal/config"
	"github.com/openonco/scout/internal/crawler"
	"github.com/openonco/scout/internal/digest"
	"github.com/openonco/scout/internal/enrich"
	"github.com/openonco/scout/internal/health"
	"github.com/openonco/scout/internal/mail"
	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "scout",
	Short: "Discovery pipeline for oncology diagnostic tests",
	Long: `Scout monitors external sources for new molecular cancer diagnostic
tests and coverage changes: Medicare coverage determinations, vendor
announcements, payer policies, literature, preprints, and FDA device
decisions.

Findings land in a durable review queue, get triaged by a language model,
and reach reviewers as a periodic email digest.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $SCOUT_CONFIG, then built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(reviewCmd)
}

// app bundles the wired pipeline components every command needs.
type app struct {
	cfg      *config.Config
	store    *store.JSONStore
	health   *health.Tracker
	registry *crawler.Registry
	runner   *crawler.Runner
	logger   *zap.Logger
}

// newApp loads config and wires the store, health tracker, and crawler
// registry.
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s, err := store.OpenJSON(cfg.DiscoveriesPath())
	if err != nil {
		return nil, err
	}
	h, err := health.NewTracker(cfg.HealthPath())
	if err != nil {
		return nil, err
	}

	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		store:    s,
		health:   h,
		registry: registry,
		runner:   crawler.NewRunner(s, h, logger),
		logger:   logger,
	}, nil
}

func newLogger() (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// buildRegistry constructs one crawler per known source from config.
// Disabled sources still register so they can be triggered explicitly.
func buildRegistry(cfg *config.Config, logger *zap.Logger) (*crawler.Registry, error) {
	registry := crawler.NewRegistry()

	options := func(s types.Source) crawler.Options {
		src := cfg.Source(s)
		return crawler.Options{
			Enabled:      src.Enabled,
			RateLimit:    src.RateLimit,
			BaseURL:      src.BaseURL,
			LookbackDays: src.LookbackDays,
		}
	}

	crawlers := []crawler.Crawler{
		crawler.NewCoverageCrawler(options(types.SourceCoverageRegistry), logger),
		crawler.NewVendorCrawler(options(types.SourceVendor), nil, logger),
		crawler.NewPayerCrawler(options(types.SourcePayer), nil, logger),
		crawler.NewLiteratureCrawler(options(types.SourceLiterature), logger),
		crawler.NewPreprintCrawler(options(types.SourcePreprint), logger),
		crawler.NewDeviceCrawler(options(types.SourceDeviceApproval), logger),
	}
	for _, c := range crawlers {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// newDispatcher wires the digest dispatcher. Delivery requires a Resend key
// and recipients; without them the dispatcher can still build digests but
// sending fails.
func (a *app) newDispatcher() *digest.Dispatcher {
	var mailer digest.Mailer
	if key := os.Getenv("RESEND_API_KEY"); key != "" {
		m, err := mail.NewResendMailer(key, a.logger)
		if err == nil {
			mailer = m
		}
	}

	return digest.NewDispatcher(a.store, a.health, mailer, nil, digest.Options{
		From:      a.cfg.Digest.From,
		To:        a.cfg.Digest.To,
		MinNotify: a.cfg.Digest.MinNotify,
	}, a.logger)
}

// newEnricher wires the triage stage. Returns an error when enrichment is
// disabled or the API key is missing.
func (a *app) newEnricher() (*enrich.Enricher, error) {
	if !a.cfg.Enrichment.Enabled {
		return nil, fmt.Errorf("enrichment is disabled in config")
	}
	return enrich.NewEnricher(a.store, enrich.Config{
		Model:         a.cfg.Enrichment.Model,
		MaxConcurrent: int64(a.cfg.Enrichment.MaxConcurrent),
	}, a.logger)
}
