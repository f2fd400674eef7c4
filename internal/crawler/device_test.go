package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDeviceCrawlerQueriesBothIndexes(t *testing.T) {
	var endpoints []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoints = append(endpoints, r.URL.Path)
		switch {
		case strings.Contains(r.URL.Path, "510k"):
			json.NewEncoder(w).Encode(deviceSearchResponse{Results: []deviceRecord{
				{KNumber: "K261234", DeviceName: "Liquid Biopsy ctDNA Panel", Applicant: "Acme Dx", DecisionDate: "2026-08-01"},
				{DeviceName: ""}, // no name, dropped
			}})
		case strings.Contains(r.URL.Path, "pma"):
			json.NewEncoder(w).Encode(deviceSearchResponse{Results: []deviceRecord{
				{PMANumber: "P260042", TradeName: "OncoScreen CDx", DeviceName: "NGS companion diagnostic", Applicant: "Beta Bio", DecisionDate: "2026-08-10"},
			}})
		}
	}))
	defer server.Close()

	c := NewDeviceCrawler(Options{Enabled: true, BaseURL: server.URL, RateLimit: 1000}, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	if len(endpoints) != 2 {
		t.Fatalf("queried %d endpoints, want 2: %v", len(endpoints), endpoints)
	}
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(cands), cands)
	}

	clearance := cands[0]
	if clearance.Type != "fda_clearance" {
		t.Errorf("type = %q", clearance.Type)
	}
	if clearance.Metadata["kNumber"] != "K261234" {
		t.Errorf("metadata = %+v", clearance.Metadata)
	}
	if !strings.Contains(clearance.URL, "pmn.cfm?ID=K261234") {
		t.Errorf("clearance URL = %q", clearance.URL)
	}

	approval := cands[1]
	if approval.Type != "fda_approval" {
		t.Errorf("type = %q", approval.Type)
	}
	// Trade name preferred over device name.
	if approval.Title != "OncoScreen CDx" {
		t.Errorf("title = %q", approval.Title)
	}
	if approval.Metadata["pmaNumber"] != "P260042" {
		t.Errorf("metadata = %+v", approval.Metadata)
	}
}

func TestDeviceCrawlerIsolatesEndpointFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "510k") {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(deviceSearchResponse{Results: []deviceRecord{
			{PMANumber: "P260001", TradeName: "Tumor Profiling Assay"},
		}})
	}))
	defer server.Close()

	c := NewDeviceCrawler(Options{Enabled: true, BaseURL: server.URL, RateLimit: 1000}, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("one failed index must not fail the crawl: %v", err)
	}
	if len(cands) != 1 || cands[0].Type != "fda_approval" {
		t.Errorf("got %+v, want the surviving approval", cands)
	}
}

func TestDeviceCrawlerFallbackTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "510k") {
			json.NewEncoder(w).Encode(deviceSearchResponse{})
			return
		}
		json.NewEncoder(w).Encode(deviceSearchResponse{Results: []deviceRecord{
			{PMANumber: "P260099", DeviceName: "Cancer screening device"}, // no trade name
			{PMANumber: "P260100"},                                       // no name at all, dropped
		}})
	}))
	defer server.Close()

	c := NewDeviceCrawler(Options{Enabled: true, BaseURL: server.URL, RateLimit: 1000}, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	if cands[0].Title != "Cancer screening device" {
		t.Errorf("title = %q, want device name fallback", cands[0].Title)
	}
}
