// Package enrich runs the triage stage: each pending discovery is sent to a
// language model that extracts structured test details, and the extraction
// is attached to the discovery's metadata.
package enrich

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"
)

const (
	defaultModel         = "claude-3-5-haiku-latest"
	defaultMaxConcurrent = 3
	defaultMaxTokens     = 1024
	callTimeout          = 60 * time.Second
)

// Result summarizes one triage batch.
type Result struct {
	Processed int
	Enriched  int
	Failed    int
	Skipped   int // already enriched
}

// Enricher extracts structured details from pending discoveries.
type Enricher struct {
	client        anthropic.Client
	store         store.Store
	model         string
	maxConcurrent int64
	logger        *zap.Logger

	// complete is the model call, overridable in tests.
	complete func(ctx context.Context, prompt string) (string, error)
}

// Config configures the enricher. APIKey falls back to the environment.
type Config struct {
	APIKey        string
	Model         string
	MaxConcurrent int64
}

// NewEnricher creates an enricher over the given store.
func NewEnricher(s store.Store, cfg Config, logger *zap.Logger) (*Enricher, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Enricher{
		client:        anthropic.NewClient(option.WithAPIKey(apiKey)),
		store:         s,
		model:         model,
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("enrich"),
	}
	e.complete = e.callModel
	return e, nil
}

// TriagePending enriches every pending discovery that has no extraction yet.
// Calls run concurrently up to the configured limit. A failed item is logged
// and counted; it never fails the batch.
func (e *Enricher) TriagePending(ctx context.Context) (Result, error) {
	pending, err := e.store.GetUnreviewed()
	if err != nil {
		return Result{}, fmt.Errorf("reading pending discoveries: %w", err)
	}

	var result Result
	sem := semaphore.NewWeighted(e.maxConcurrent)

	type outcome struct {
		enriched bool
		failed   bool
	}
	outcomes := make(chan outcome, len(pending))
	launched := 0

	for _, item := range pending {
		if _, done := item.Metadata["enrichment"]; done {
			result.Skipped++
			continue
		}
		result.Processed++

		if err := sem.Acquire(ctx, 1); err != nil {
			return result, err
		}
		launched++

		go func(d types.Discovery) {
			defer sem.Release(1)

			if err := e.enrichOne(ctx, d); err != nil {
				e.logger.Warn("enrichment failed",
					zap.String("id", d.ID),
					zap.String("title", d.Title),
					zap.Error(err))
				outcomes <- outcome{failed: true}
				return
			}
			outcomes <- outcome{enriched: true}
		}(item)
	}

	for i := 0; i < launched; i++ {
		o := <-outcomes
		if o.enriched {
			result.Enriched++
		}
		if o.failed {
			result.Failed++
		}
	}

	return result, nil
}

func (e *Enricher) enrichOne(ctx context.Context, d types.Discovery) error {
	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	text, err := e.complete(callCtx, buildExtractionPrompt(d))
	if err != nil {
		return fmt.Errorf("model call: %w", err)
	}

	enrichment, err := parseEnrichment(text)
	if err != nil {
		return fmt.Errorf("parsing extraction: %w", err)
	}

	if err := e.store.SetEnrichment(d.ID, enrichment); err != nil {
		return fmt.Errorf("saving extraction: %w", err)
	}
	return nil
}

func (e *Enricher) callModel(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// buildExtractionPrompt asks for a single JSON object describing the test
// behind a discovery.
func buildExtractionPrompt(d types.Discovery) string {
	meta := ""
	for k, v := range d.Metadata {
		if k == "enrichment" {
			continue
		}
		meta += fmt.Sprintf("  %s: %v\n", k, v)
	}

	return fmt.Sprintf(`You are screening signals about molecular cancer diagnostic tests (liquid biopsy, ctDNA, MRD monitoring, early detection, tumor profiling).

Signal:
Source: %s
Type: %s
Title: %s
Summary: %s
URL: %s
Metadata:
%s
Extract the following as a single JSON object, no prose:
{
  "is_new_test": bool,        // a commercially available diagnostic test not previously known
  "is_new_indication": bool,  // an existing test expanding to a new cancer type or use
  "is_relevant": bool,        // worth a human reviewer's time at all
  "relevance_reason": "one sentence",
  "test_name": "name or empty",
  "company": "developer or empty",
  "cancer_types": ["..."],
  "methodology": "e.g. ctDNA NGS panel, methylation, protein markers, or empty",
  "category": "MRD, ECD, TRM, or TDS, or empty",
  "fda_status": "approved, cleared, breakthrough designation, LDT, or empty",
  "notes": "anything a reviewer should know, or empty",
  "confidence": 0.0 to 1.0
}

Respond with only the JSON object.`,
		d.Source, d.Type, d.Title, d.Summary, d.URL, meta)
}
