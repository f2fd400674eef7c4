package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openonco/scout/internal/types"
)

func TestCoverageCrawlerMapsDocuments(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		keyword := r.URL.Query().Get("keyword")
		if keyword != "liquid biopsy" {
			json.NewEncoder(w).Encode(coverageSearchResponse{})
			return
		}
		json.NewEncoder(w).Encode(coverageSearchResponse{Results: []coverageDocument{
			{LCDID: "L1", Version: 1, Title: "MolDX: Signatera coverage", Summary: "ctDNA MRD coverage", Contractor: "Palmetto"},
			{LCDID: "L1", Version: 1, Title: "MolDX: Signatera coverage", Summary: "duplicate row"},
			{LCDID: "L2", Version: 3, Title: "Routine chemistry panel", Summary: ""},
			{LCDID: "L3", Version: 2, Title: ""}, // no title, dropped
		}})
	}))
	defer server.Close()

	c := NewCoverageCrawler(Options{Enabled: true, BaseURL: server.URL, RateLimit: 1000}, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if requests != len(defaultCoverageKeywords) {
		t.Errorf("issued %d requests, want one per keyword (%d)", requests, len(defaultCoverageKeywords))
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2 (within-run dedup + title drop): %+v", len(cands), cands)
	}

	got := cands[0]
	if got.Relevance != types.RelevanceHigh {
		t.Errorf("MolDX/Signatera item relevance = %s, want high", got.Relevance)
	}
	if got.Type != "coverage_change" {
		t.Errorf("type = %q", got.Type)
	}
	if got.Metadata["documentId"] != "L1" || got.Metadata["version"] != 1 {
		t.Errorf("metadata = %+v", got.Metadata)
	}
	if got.URL != "https://www.cms.gov/medicare-coverage-database/view/lcd.aspx?lcdid=L1&ver=1" {
		t.Errorf("derived URL = %q", got.URL)
	}

	// Low-tier items are kept and tagged for this source.
	if cands[1].Relevance == types.RelevanceHigh {
		t.Errorf("routine panel classified high: %+v", cands[1])
	}
}

func TestCoverageCrawlerPartialResults(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(coverageSearchResponse{Results: []coverageDocument{
			{LCDID: "L9", Version: 1, Title: "Liquid biopsy panel determination"},
		}})
	}))
	defer server.Close()

	c := NewCoverageCrawler(Options{Enabled: true, BaseURL: server.URL, RateLimit: 1000}, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl must not fail on a single bad request: %v", err)
	}
	if requests != len(defaultCoverageKeywords) {
		t.Errorf("loop stopped early: %d requests", requests)
	}
	if len(cands) != 1 {
		t.Errorf("got %d candidates, want 1 from surviving requests", len(cands))
	}
}

func TestCoverageCrawlerUnknownIdentifier(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("keyword") != "liquid biopsy" {
			json.NewEncoder(w).Encode(coverageSearchResponse{})
			return
		}
		json.NewEncoder(w).Encode(coverageSearchResponse{Results: []coverageDocument{
			{Title: "First unidentified item"},
			{Title: "Second unidentified item"},
		}})
	}))
	defer server.Close()

	c := NewCoverageCrawler(Options{Enabled: true, BaseURL: server.URL, RateLimit: 1000}, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	// Both items fall back to the "unknown"+version-1 dedup key, so they
	// collide. Documented limitation, not corrected here.
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1 (unknown-id collision)", len(cands))
	}
	if cands[0].Metadata["documentId"] != "unknown" || cands[0].Metadata["version"] != 1 {
		t.Errorf("metadata = %+v", cands[0].Metadata)
	}
}
