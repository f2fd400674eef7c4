package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/relevance"
	"github.com/openonco/scout/internal/types"
)

const (
	defaultLiteratureBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	literatureArticleURL     = "https://pubmed.ncbi.nlm.nih.gov/%s/"
	literatureMaxResults     = 50
)

// defaultLiteratureTerms are the search queries issued against the
// literature index, one esearch/esummary pair each.
var defaultLiteratureTerms = []string{
	"liquid biopsy cancer detection",
	"ctDNA cancer test",
	"circulating tumor DNA assay",
	"minimal residual disease test",
	"multi-cancer early detection",
	"MRD monitoring",
}

// LiteratureCrawler searches the literature index for clinical validation
// studies. Items classified low are dropped.
type LiteratureCrawler struct {
	enabled  bool
	baseURL  string
	terms    []string
	client   *http.Client
	limiter  *rate.Limiter
	tables   relevance.TierTables
	lookback time.Duration
	logger   *zap.Logger

	now func() time.Time // test hook
}

// NewLiteratureCrawler creates the literature crawler.
func NewLiteratureCrawler(opts Options, logger *zap.Logger) *LiteratureCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultLiteratureBaseURL
	}
	return &LiteratureCrawler{
		enabled:  opts.Enabled,
		baseURL:  baseURL,
		terms:    defaultLiteratureTerms,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  opts.limiter(2.5), // NCBI allows 3 req/s without an API key
		tables:   relevance.DefaultTables(types.SourceLiterature),
		lookback: time.Duration(opts.lookback(30)) * 24 * time.Hour,
		logger:   logger.Named("literature"),
		now:      time.Now,
	}
}

func (c *LiteratureCrawler) Name() string          { return "literature" }
func (c *LiteratureCrawler) Source() types.Source  { return types.SourceLiterature }
func (c *LiteratureCrawler) Enabled() bool         { return c.enabled }
func (c *LiteratureCrawler) RateLimit() rate.Limit { return c.limiter.Limit() }

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// esummaryResponse keys articles by PMID, but the same object also carries a
// "uids" array. Entries stay raw so that array cannot break decoding; they
// are unmarshaled per PMID.
type esummaryResponse struct {
	Result map[string]json.RawMessage `json:"result"`
}

type esummaryArticle struct {
	Title   string `json:"title"`
	Source  string `json:"source"` // journal abbreviation
	PubDate string `json:"pubdate"`
}

// Crawl runs a two-phase esearch → esummary flow per search term. A failed
// term is logged and skipped.
func (c *LiteratureCrawler) Crawl(ctx context.Context) ([]types.Candidate, error) {
	var cands []types.Candidate
	seen := make(map[string]bool)

	for _, term := range c.terms {
		items, err := c.searchTerm(ctx, term, seen)
		if err != nil {
			c.logger.Warn("term search failed", zap.String("term", term), zap.Error(err))
			continue
		}
		cands = append(cands, items...)
	}

	return cands, nil
}

func (c *LiteratureCrawler) searchTerm(ctx context.Context, term string, seen map[string]bool) ([]types.Candidate, error) {
	now := c.now()
	since := now.Add(-c.lookback)

	fullTerm := fmt.Sprintf(
		`%s AND (clinical validation OR commercial OR FDA OR diagnostic accuracy) AND ("%s"[Date - Publication] : "%s"[Date - Publication])`,
		term, since.Format("2006/01/02"), now.Format("2006/01/02"))

	searchURL := fmt.Sprintf("%s/esearch.fcgi?db=pubmed&retmode=json&sort=date&retmax=%d&term=%s",
		c.baseURL, literatureMaxResults, url.QueryEscape(fullTerm))

	var search esearchResponse
	if err := getJSON(ctx, c.client, c.limiter, searchURL, &search); err != nil {
		return nil, err
	}
	if len(search.Result.IDList) == 0 {
		return nil, nil
	}

	summaryURL := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&retmode=json&id=%s",
		c.baseURL, strings.Join(search.Result.IDList, ","))

	var summary esummaryResponse
	if err := getJSON(ctx, c.client, c.limiter, summaryURL, &summary); err != nil {
		return nil, err
	}

	var cands []types.Candidate
	for _, pmid := range search.Result.IDList {
		raw, ok := summary.Result[pmid]
		if !ok || pmid == "uids" {
			continue
		}
		var article esummaryArticle
		if err := json.Unmarshal(raw, &article); err != nil {
			c.logger.Warn("malformed summary entry", zap.String("pmid", pmid), zap.Error(err))
			continue
		}
		if article.Title == "" {
			continue
		}
		if seen[pmid] {
			continue
		}
		seen[pmid] = true

		tier := relevance.Classify(relevance.FieldText(article.Title, article.Source), c.tables)
		if tier == types.RelevanceLow {
			continue
		}

		cands = append(cands, types.Candidate{
			Type:      "publication",
			Title:     article.Title,
			URL:       fmt.Sprintf(literatureArticleURL, pmid),
			Relevance: tier,
			Metadata: map[string]any{
				"pmid":    pmid,
				"journal": article.Source,
				"pubDate": article.PubDate,
				"term":    term,
			},
		})
	}

	return cands, nil
}
