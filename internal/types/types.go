package types

import (
	"fmt"
	"time"
)

// Source identifies an external data source monitored by the pipeline.
type Source string

const (
	SourceCoverageRegistry Source = "coverage-registry"
	SourceVendor           Source = "vendor"
	SourcePayer            Source = "payer"
	SourceLiterature       Source = "literature"
	SourcePreprint         Source = "preprint"
	SourceDeviceApproval   Source = "device-approval"
)

// AllSources lists every known source in a stable order.
// Crawl iteration and status output follow this order.
func AllSources() []Source {
	return []Source{
		SourceCoverageRegistry,
		SourceVendor,
		SourcePayer,
		SourceLiterature,
		SourcePreprint,
		SourceDeviceApproval,
	}
}

// ValidSource reports whether s is one of the known sources.
func ValidSource(s Source) bool {
	for _, known := range AllSources() {
		if s == known {
			return true
		}
	}
	return false
}

// Relevance is the coarse priority tier assigned by keyword classification.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// ReviewStatus tracks the human-review lifecycle of a discovery.
// The only transition is pending → reviewed; there is no path back.
type ReviewStatus string

const (
	StatusPending  ReviewStatus = "pending"
	StatusReviewed ReviewStatus = "reviewed"
)

// Discovery is one normalized external signal awaiting human review.
type Discovery struct {
	ID     string `json:"id"`
	Source Source `json:"source"`

	// Type is a free-form categorical tag, e.g. "coverage_change",
	// "fda_approval", "publication".
	Type string `json:"type"`

	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`

	// URL is the canonical link for this item. Together with Source it
	// forms the cross-run dedup key; discoveries without a URL are exempt
	// from that rule.
	URL string `json:"url,omitempty"`

	Relevance Relevance `json:"relevance"`

	// Metadata holds the source-specific payload: document id, contractor,
	// DOI, PMID, k-number, and similar identifiers.
	Metadata map[string]any `json:"metadata,omitempty"`

	DiscoveredAt time.Time    `json:"discoveredAt"`
	Status       ReviewStatus `json:"status"`
	ReviewedAt   *time.Time   `json:"reviewedAt,omitempty"`
}

// Candidate is a discovery as produced by a crawler, before the store
// assigns an ID, timestamp, and review status.
type Candidate struct {
	Type      string
	Title     string
	Summary   string
	URL       string
	Relevance Relevance
	Metadata  map[string]any
}

// HealthRecord holds rolling success/error counters for one source.
// It is created lazily on the first run and never deleted.
type HealthRecord struct {
	LastSuccess      *time.Time `json:"lastSuccess,omitempty"`
	LastError        *time.Time `json:"lastError,omitempty"`
	SuccessCount     int        `json:"successCount"`
	ErrorCount       int        `json:"errorCount"`
	LastErrorMessage string     `json:"lastErrorMessage,omitempty"`
}

// CrawlResult is the uniform envelope the crawler runner produces for every
// run, successful or not. It is never persisted.
type CrawlResult struct {
	Source   Source
	Success  bool
	Found    int // items emitted by the crawler
	Added    int // items actually inserted (found minus duplicates)
	Duration time.Duration
	Err      string // error message when Success is false
}

// Summary returns a one-line human-readable description of the result.
func (r *CrawlResult) Summary() string {
	if !r.Success {
		return fmt.Sprintf("%s: failed after %v: %s", r.Source, r.Duration.Round(time.Millisecond), r.Err)
	}
	return fmt.Sprintf("%s: found %d, added %d in %v", r.Source, r.Found, r.Added, r.Duration.Round(time.Millisecond))
}

// Enrichment is the structured extraction produced by the triage stage.
// It lives inside Discovery.Metadata under the "enrichment" key.
type Enrichment struct {
	IsNewTest       bool     `json:"is_new_test"`
	IsNewIndication bool     `json:"is_new_indication"`
	IsRelevant      bool     `json:"is_relevant"`
	RelevanceReason string   `json:"relevance_reason,omitempty"`
	TestName        string   `json:"test_name,omitempty"`
	Company         string   `json:"company,omitempty"`
	CancerTypes     []string `json:"cancer_types,omitempty"`
	Methodology     string   `json:"methodology,omitempty"`
	Category        string   `json:"category,omitempty"` // MRD, ECD, TRM, or TDS
	FDAStatus       string   `json:"fda_status,omitempty"`
	Notes           string   `json:"notes,omitempty"`
	Confidence      float64  `json:"confidence"`
}
