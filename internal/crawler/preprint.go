package crawler

import (
	"context"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/relevance"
	"github.com/openonco/scout/internal/types"
)

const (
	defaultPreprintBaseURL = "https://api.medrxiv.org"
	preprintDOIURL         = "https://doi.org/%s"

	// preprintPageSize is the fixed page size of the listing API; the
	// cursor advances by this amount per page.
	preprintPageSize = 100

	// preprintMaxPages caps cursor advancement so a misbehaving upstream
	// cannot keep the crawl alive forever.
	preprintMaxPages = 10
)

// PreprintCrawler pages through the preprint listing API for a date window.
// Items classified low are dropped.
type PreprintCrawler struct {
	enabled  bool
	baseURL  string
	server   string
	client   *http.Client
	limiter  *rate.Limiter
	tables   relevance.TierTables
	lookback time.Duration
	logger   *zap.Logger

	now func() time.Time // test hook
}

// NewPreprintCrawler creates the preprint crawler.
func NewPreprintCrawler(opts Options, logger *zap.Logger) *PreprintCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultPreprintBaseURL
	}
	return &PreprintCrawler{
		enabled:  opts.Enabled,
		baseURL:  baseURL,
		server:   "medrxiv",
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  opts.limiter(1),
		tables:   relevance.DefaultTables(types.SourcePreprint),
		lookback: time.Duration(opts.lookback(14)) * 24 * time.Hour,
		logger:   logger.Named("preprint"),
		now:      time.Now,
	}
}

func (c *PreprintCrawler) Name() string          { return "preprint" }
func (c *PreprintCrawler) Source() types.Source  { return types.SourcePreprint }
func (c *PreprintCrawler) Enabled() bool         { return c.enabled }
func (c *PreprintCrawler) RateLimit() rate.Limit { return c.limiter.Limit() }

type preprintListing struct {
	Collection []preprintEntry `json:"collection"`
	Messages   []struct {
		Count int `json:"count"`
		Total int `json:"total"`
	} `json:"messages"`
}

type preprintEntry struct {
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Version  string `json:"version"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

// Crawl pages through the listing for the lookback window. Pagination stops
// when a page comes back short, the upstream total is reached, or the page
// cap is hit, whichever comes first. A failed page is logged and skipped;
// the cursor still advances so one bad page cannot stall the walk.
func (c *PreprintCrawler) Crawl(ctx context.Context) ([]types.Candidate, error) {
	now := c.now()
	from := now.Add(-c.lookback).Format("2006-01-02")
	to := now.Format("2006-01-02")

	var cands []types.Candidate
	seen := make(map[string]bool)

	cursor := 0
	for page := 0; page < preprintMaxPages; page++ {
		pageURL := fmt.Sprintf("%s/details/%s/%s/%s/%d", c.baseURL, c.server, from, to, cursor)

		var listing preprintListing
		if err := getJSON(ctx, c.client, c.limiter, pageURL, &listing); err != nil {
			c.logger.Warn("listing page failed", zap.Int("cursor", cursor), zap.Error(err))
			cursor += preprintPageSize
			continue
		}

		for _, entry := range listing.Collection {
			if cand, ok := c.mapEntry(entry, seen); ok {
				cands = append(cands, cand)
			}
		}

		cursor += preprintPageSize
		if len(listing.Collection) < preprintPageSize {
			break
		}
		if len(listing.Messages) > 0 && cursor >= listing.Messages[0].Total {
			break
		}
	}

	return cands, nil
}

func (c *PreprintCrawler) mapEntry(entry preprintEntry, seen map[string]bool) (types.Candidate, bool) {
	if entry.Title == "" {
		return types.Candidate{}, false
	}

	doi := entry.DOI
	if doi == "" {
		doi = "unknown"
	}
	version := entry.Version
	if version == "" {
		version = "1"
	}

	key := doi + ":" + version
	if seen[key] {
		return types.Candidate{}, false
	}
	seen[key] = true

	tier := relevance.Classify(relevance.FieldText(entry.Title, entry.Abstract, entry.Category), c.tables)
	if tier == types.RelevanceLow {
		return types.Candidate{}, false
	}

	return types.Candidate{
		Type:      "preprint",
		Title:     entry.Title,
		Summary:   truncate(entry.Abstract, 500),
		URL:       fmt.Sprintf(preprintDOIURL, doi),
		Relevance: tier,
		Metadata: map[string]any{
			"doi":      doi,
			"version":  version,
			"date":     entry.Date,
			"category": entry.Category,
		},
	}, true
}

// truncate cuts s to at most max bytes without splitting a multi-byte rune,
// backing off to the nearest valid UTF-8 boundary.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for i := 0; i < utf8.UTFMax && len(cut) > 0; i++ {
		if utf8.ValidString(cut) {
			return cut
		}
		cut = cut[:len(cut)-1]
	}
	return cut
}
