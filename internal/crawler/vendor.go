package crawler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/relevance"
	"github.com/openonco/scout/internal/types"
)

// Vendor is one monitored test developer. FeedURL is preferred when set;
// otherwise the newsroom page is scraped directly.
type Vendor struct {
	Name     string `yaml:"name"`
	Newsroom string `yaml:"newsroom"`
	FeedURL  string `yaml:"feed_url,omitempty"`
}

// DefaultVendors is the built-in watchlist of test developers.
func DefaultVendors() []Vendor {
	return []Vendor{
		{Name: "Guardant Health", Newsroom: "https://guardanthealth.com/news/", FeedURL: "https://guardanthealth.com/feed/"},
		{Name: "Natera", Newsroom: "https://www.natera.com/company/news/"},
		{Name: "Exact Sciences", Newsroom: "https://www.exactsciences.com/newsroom"},
		{Name: "Grail", Newsroom: "https://grail.com/press-releases/", FeedURL: "https://grail.com/feed/"},
		{Name: "Foundation Medicine", Newsroom: "https://www.foundationmedicine.com/press-releases"},
		{Name: "Tempus", Newsroom: "https://www.tempus.com/news/"},
		{Name: "Caris Life Sciences", Newsroom: "https://www.carislifesciences.com/news/"},
		{Name: "Myriad Genetics", Newsroom: "https://myriad.com/news-events/"},
		{Name: "NeoGenomics", Newsroom: "https://neogenomics.com/news"},
		{Name: "Adaptive Biotechnologies", Newsroom: "https://www.adaptivebiotech.com/news-events/"},
	}
}

// launchIndicators are page-level signals that a newsroom is announcing a
// product rather than routine corporate news.
var launchIndicators = []string{
	"launch", "introduce", "announce", "now available",
	"fda clear", "fda approv", "510(k)", "pma approv",
	"new test", "new assay", "commercial availability",
}

// VendorCrawler monitors vendor newsrooms and press-release feeds. All
// relevance tiers are kept and tagged.
type VendorCrawler struct {
	enabled  bool
	vendors  []Vendor
	client   *http.Client
	limiter  *rate.Limiter
	parser   *gofeed.Parser
	tables   relevance.TierTables
	lookback time.Duration
	logger   *zap.Logger

	now func() time.Time // test hook
}

// NewVendorCrawler creates the vendor crawler over the given watchlist.
// A nil watchlist uses DefaultVendors.
func NewVendorCrawler(opts Options, vendors []Vendor, logger *zap.Logger) *VendorCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vendors == nil {
		vendors = DefaultVendors()
	}
	return &VendorCrawler{
		enabled:  opts.Enabled,
		vendors:  vendors,
		client:   &http.Client{Timeout: 20 * time.Second},
		limiter:  opts.limiter(0.5),
		parser:   gofeed.NewParser(),
		tables:   relevance.DefaultTables(types.SourceVendor),
		lookback: time.Duration(opts.lookback(30)) * 24 * time.Hour,
		logger:   logger.Named("vendor"),
		now:      time.Now,
	}
}

func (c *VendorCrawler) Name() string          { return "vendor" }
func (c *VendorCrawler) Source() types.Source  { return types.SourceVendor }
func (c *VendorCrawler) Enabled() bool         { return c.enabled }
func (c *VendorCrawler) RateLimit() rate.Limit { return c.limiter.Limit() }

// Crawl visits each vendor in watchlist order. One vendor's failure is
// logged and skipped.
func (c *VendorCrawler) Crawl(ctx context.Context) ([]types.Candidate, error) {
	var cands []types.Candidate
	seen := make(map[string]bool)

	for _, vendor := range c.vendors {
		var (
			items []types.Candidate
			err   error
		)
		if vendor.FeedURL != "" {
			items, err = c.crawlFeed(ctx, vendor, seen)
		} else {
			items, err = c.scrapeNewsroom(ctx, vendor, seen)
		}
		if err != nil {
			c.logger.Warn("vendor check failed", zap.String("vendor", vendor.Name), zap.Error(err))
			continue
		}
		cands = append(cands, items...)
	}

	return cands, nil
}

// crawlFeed reads the vendor's press-release feed and emits one candidate
// per item inside the lookback window.
func (c *VendorCrawler) crawlFeed(ctx context.Context, vendor Vendor, seen map[string]bool) ([]types.Candidate, error) {
	body, err := get(ctx, c.client, c.limiter, vendor.FeedURL)
	if err != nil {
		return nil, err
	}

	feed, err := c.parser.ParseString(string(body))
	if err != nil {
		return nil, err
	}

	cutoff := c.now().Add(-c.lookback)

	var cands []types.Candidate
	for _, item := range feed.Items {
		if item.Title == "" {
			continue
		}
		if item.PublishedParsed != nil && item.PublishedParsed.Before(cutoff) {
			continue
		}

		key := item.GUID
		if key == "" {
			key = item.Link
		}
		if key == "" {
			key = "unknown:1"
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		tier := relevance.Classify(relevance.FieldText(item.Title, item.Description), c.tables)

		cands = append(cands, types.Candidate{
			Type:      "announcement",
			Title:     item.Title,
			Summary:   strings.TrimSpace(item.Description),
			URL:       item.Link,
			Relevance: tier,
			Metadata: map[string]any{
				"vendor": vendor.Name,
				"guid":   item.GUID,
			},
		})
	}

	return cands, nil
}

// scrapeNewsroom fetches the newsroom page and emits a single candidate when
// the page carries launch-indicator language.
func (c *VendorCrawler) scrapeNewsroom(ctx context.Context, vendor Vendor, seen map[string]bool) ([]types.Candidate, error) {
	body, err := get(ctx, c.client, c.limiter, vendor.Newsroom)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	text := strings.ToLower(doc.Text())
	if !containsAny(text, launchIndicators) {
		return nil, nil
	}

	if seen[vendor.Newsroom] {
		return nil, nil
	}
	seen[vendor.Newsroom] = true

	tier := relevance.Classify(text, c.tables)

	return []types.Candidate{{
		Type:      "update",
		Title:     "Potential announcement - " + vendor.Name,
		Summary:   headline(doc),
		URL:       vendor.Newsroom,
		Relevance: tier,
		Metadata: map[string]any{
			"vendor": vendor.Name,
		},
	}}, nil
}

// headline pulls the first h1/h2 text from the page as a short summary.
func headline(doc *goquery.Document) string {
	h := strings.TrimSpace(doc.Find("h1, h2").First().Text())
	if len(h) > 200 {
		h = h[:200]
	}
	return h
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
