package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openonco/scout/internal/types"
)

const vendorFeedTemplate = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Press Releases</title>
%s
</channel></rss>`

func feedItem(title, link, guid, pubDate string) string {
	return fmt.Sprintf(`<item>
<title>%s</title>
<link>%s</link>
<guid>%s</guid>
<pubDate>%s</pubDate>
<description>press release</description>
</item>`, title, link, guid, pubDate)
}

func TestVendorCrawlerFeed(t *testing.T) {
	recent := time.Now().Add(-24 * time.Hour).Format(time.RFC1123Z)
	stale := time.Now().Add(-90 * 24 * time.Hour).Format(time.RFC1123Z)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, vendorFeedTemplate,
			feedItem("Acme launches new ctDNA assay", "https://acme.test/a", "g1", recent)+
				feedItem("Acme launches new ctDNA assay", "https://acme.test/a", "g1", recent)+ // duplicate GUID
				feedItem("Quarterly earnings call", "https://acme.test/b", "g2", recent)+
				feedItem("Old launch news", "https://acme.test/c", "g3", stale))
	}))
	defer server.Close()

	vendors := []Vendor{{Name: "Acme Dx", Newsroom: server.URL, FeedURL: server.URL + "/feed"}}
	c := NewVendorCrawler(Options{Enabled: true, RateLimit: 1000}, vendors, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	// Duplicate GUID collapses; the stale item falls outside the window.
	if len(cands) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(cands), cands)
	}

	launch := cands[0]
	if launch.Title != "Acme launches new ctDNA assay" {
		t.Errorf("title = %q", launch.Title)
	}
	if launch.Type != "announcement" {
		t.Errorf("type = %q", launch.Type)
	}
	if launch.Metadata["vendor"] != "Acme Dx" {
		t.Errorf("metadata = %+v", launch.Metadata)
	}

	// Earnings call is kept but not classified high.
	if cands[1].Relevance == types.RelevanceHigh {
		t.Errorf("earnings item classified high: %+v", cands[1])
	}
}

func TestVendorCrawlerNewsroomScrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<h1>Beta Bio announces FDA clearance of its liquid biopsy test</h1>
<p>The new test is now available nationwide.</p>
</body></html>`)
	}))
	defer server.Close()

	vendors := []Vendor{{Name: "Beta Bio", Newsroom: server.URL}}
	c := NewVendorCrawler(Options{Enabled: true, RateLimit: 1000}, vendors, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("got %d candidates, want 1", len(cands))
	}
	got := cands[0]
	if got.Title != "Potential announcement - Beta Bio" {
		t.Errorf("title = %q", got.Title)
	}
	if got.URL != server.URL {
		t.Errorf("URL = %q", got.URL)
	}
	if got.Summary != "Beta Bio announces FDA clearance of its liquid biopsy test" {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestVendorCrawlerQuietNewsroomEmitsNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>About our company</h1><p>History and leadership.</p></body></html>`)
	}))
	defer server.Close()

	vendors := []Vendor{{Name: "Quiet Co", Newsroom: server.URL}}
	c := NewVendorCrawler(Options{Enabled: true, RateLimit: 1000}, vendors, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(cands) != 0 {
		t.Errorf("got %d candidates, want 0: %+v", len(cands), cands)
	}
}

func TestVendorCrawlerFailedVendorIsSkipped(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h1>Gamma launches new assay</h1></body></html>`)
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer bad.Close()

	vendors := []Vendor{
		{Name: "Broken", Newsroom: bad.URL},
		{Name: "Gamma", Newsroom: good.URL},
	}
	c := NewVendorCrawler(Options{Enabled: true, RateLimit: 1000}, vendors, nil)

	cands, err := c.Crawl(context.Background())
	if err != nil {
		t.Fatalf("one failed vendor must not fail the crawl: %v", err)
	}
	if len(cands) != 1 || cands[0].Metadata["vendor"] != "Gamma" {
		t.Errorf("got %+v, want only the surviving vendor", cands)
	}
}
