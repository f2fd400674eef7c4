package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/relevance"
	"github.com/openonco/scout/internal/types"
)

// Payer is one monitored commercial payer policy index.
type Payer struct {
	Name      string `yaml:"name"`
	PolicyURL string `yaml:"policy_url"`
}

// DefaultPayers is the built-in list of payer policy pages.
func DefaultPayers() []Payer {
	return []Payer{
		{Name: "UnitedHealthcare", PolicyURL: "https://www.uhcprovider.com/en/policies-protocols/commercial-policies/commercial-medical-drug-policies.html"},
		{Name: "Aetna", PolicyURL: "https://www.aetna.com/health-care-professionals/clinical-policy-bulletins/medical-clinical-policy-bulletins.html"},
		{Name: "Cigna", PolicyURL: "https://static.cigna.com/assets/chcp/resourceLibrary/coveragePolicies/medical_a-z.html"},
	}
}

// policyLinkKeywords mark links worth surfacing from a payer policy index.
var policyLinkKeywords = []string{
	"tumor", "oncology", "cancer", "molecular", "genetic", "genomic",
	"liquid biopsy", "ctdna", "circulating",
}

// PayerCrawler scrapes payer policy index pages for oncology diagnostic
// policy links. All relevance tiers are kept and tagged.
type PayerCrawler struct {
	enabled bool
	payers  []Payer
	client  *http.Client
	limiter *rate.Limiter
	tables  relevance.TierTables
	logger  *zap.Logger
}

// NewPayerCrawler creates the payer crawler over the given list.
// A nil list uses DefaultPayers.
func NewPayerCrawler(opts Options, payers []Payer, logger *zap.Logger) *PayerCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if payers == nil {
		payers = DefaultPayers()
	}
	return &PayerCrawler{
		enabled: opts.Enabled,
		payers:  payers,
		client:  &http.Client{Timeout: 20 * time.Second},
		limiter: opts.limiter(0.5),
		tables:  relevance.DefaultTables(types.SourcePayer),
		logger:  logger.Named("payer"),
	}
}

func (c *PayerCrawler) Name() string          { return "payer" }
func (c *PayerCrawler) Source() types.Source  { return types.SourcePayer }
func (c *PayerCrawler) Enabled() bool         { return c.enabled }
func (c *PayerCrawler) RateLimit() rate.Limit { return c.limiter.Limit() }

// Crawl scrapes each payer's policy index in order; a failed page is logged
// and skipped.
func (c *PayerCrawler) Crawl(ctx context.Context) ([]types.Candidate, error) {
	var cands []types.Candidate
	seen := make(map[string]bool)

	for _, payer := range c.payers {
		items, err := c.scrapePolicies(ctx, payer, seen)
		if err != nil {
			c.logger.Warn("payer scrape failed", zap.String("payer", payer.Name), zap.Error(err))
			continue
		}
		cands = append(cands, items...)
	}

	return cands, nil
}

func (c *PayerCrawler) scrapePolicies(ctx context.Context, payer Payer, seen map[string]bool) ([]types.Candidate, error) {
	body, err := get(ctx, c.client, c.limiter, payer.PolicyURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(payer.PolicyURL)
	if err != nil {
		return nil, err
	}

	var cands []types.Candidate
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			return
		}
		if !containsAny(strings.ToLower(title), policyLinkKeywords) {
			return
		}

		href, _ := sel.Attr("href")
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		absolute := base.ResolveReference(ref).String()

		if seen[absolute] {
			return
		}
		seen[absolute] = true

		tier := relevance.Classify(title, c.tables)

		cands = append(cands, types.Candidate{
			Type:      "policy_update",
			Title:     title,
			URL:       absolute,
			Relevance: tier,
			Metadata: map[string]any{
				"payer": payer.Name,
			},
		})
	})

	return cands, nil
}
