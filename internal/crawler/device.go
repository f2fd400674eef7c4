package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/relevance"
	"github.com/openonco/scout/internal/types"
)

const (
	defaultDeviceBaseURL = "https://api.fda.gov/device"

	deviceClearanceURL = "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpmn/pmn.cfm?ID=%s"
	deviceApprovalURL  = "https://www.accessdata.fda.gov/scripts/cdrh/cfdocs/cfpma/pma.cfm?id=%s"

	deviceResultLimit = 100
)

// DeviceCrawler searches the device-clearance and device-approval indexes
// for recent oncology diagnostic decisions. Both endpoints are queried; a
// failure on one is isolated from the other. All tiers are kept and tagged.
type DeviceCrawler struct {
	enabled  bool
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	tables   relevance.TierTables
	lookback time.Duration
	logger   *zap.Logger

	now func() time.Time // test hook
}

// NewDeviceCrawler creates the device-approval crawler.
func NewDeviceCrawler(opts Options, logger *zap.Logger) *DeviceCrawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultDeviceBaseURL
	}
	return &DeviceCrawler{
		enabled:  opts.Enabled,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  opts.limiter(1),
		tables:   relevance.DefaultTables(types.SourceDeviceApproval),
		lookback: time.Duration(opts.lookback(30)) * 24 * time.Hour,
		logger:   logger.Named("device"),
		now:      time.Now,
	}
}

func (c *DeviceCrawler) Name() string          { return "device-approval" }
func (c *DeviceCrawler) Source() types.Source  { return types.SourceDeviceApproval }
func (c *DeviceCrawler) Enabled() bool         { return c.enabled }
func (c *DeviceCrawler) RateLimit() rate.Limit { return c.limiter.Limit() }

type deviceSearchResponse struct {
	Results []deviceRecord `json:"results"`
}

type deviceRecord struct {
	KNumber      string `json:"k_number"`
	PMANumber    string `json:"pma_number"`
	DeviceName   string `json:"device_name"`
	TradeName    string `json:"trade_name"`
	Applicant    string `json:"applicant"`
	DecisionDate string `json:"decision_date"`
	Statement    string `json:"statement_or_summary"`
}

// Crawl queries the 510(k) clearance index then the PMA approval index.
// Each request failure is logged and skipped (partial-result policy).
func (c *DeviceCrawler) Crawl(ctx context.Context) ([]types.Candidate, error) {
	var cands []types.Candidate
	seen := make(map[string]bool)

	since := c.now().Add(-c.lookback).Format("20060102")

	clearances, err := c.search(ctx, "510k.json", fmt.Sprintf(
		`decision_date:[%s TO *] AND (device_name:"cancer" OR device_name:"tumor" OR device_name:"oncology" OR statement_or_summary:"liquid biopsy" OR statement_or_summary:"ctDNA" OR statement_or_summary:"cancer")`,
		since))
	if err != nil {
		c.logger.Warn("clearance search failed", zap.Error(err))
	} else {
		for _, rec := range clearances {
			if cand, ok := c.mapClearance(rec, seen); ok {
				cands = append(cands, cand)
			}
		}
	}

	approvals, err := c.search(ctx, "pma.json", fmt.Sprintf(
		`decision_date:[%s TO *] AND (advisory_committee:"clinical chemistry" OR advisory_committee:"pathology")`,
		since))
	if err != nil {
		c.logger.Warn("approval search failed", zap.Error(err))
	} else {
		for _, rec := range approvals {
			if cand, ok := c.mapApproval(rec, seen); ok {
				cands = append(cands, cand)
			}
		}
	}

	return cands, nil
}

func (c *DeviceCrawler) search(ctx context.Context, endpoint, query string) ([]deviceRecord, error) {
	searchURL := fmt.Sprintf("%s/%s?search=%s&limit=%d",
		c.baseURL, endpoint, url.QueryEscape(query), deviceResultLimit)

	var resp deviceSearchResponse
	if err := getJSON(ctx, c.client, c.limiter, searchURL, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *DeviceCrawler) mapClearance(rec deviceRecord, seen map[string]bool) (types.Candidate, bool) {
	if rec.DeviceName == "" {
		return types.Candidate{}, false
	}

	id := rec.KNumber
	if id == "" {
		id = "unknown"
	}
	key := "510k:" + id + ":1"
	if seen[key] {
		return types.Candidate{}, false
	}
	seen[key] = true

	tier := relevance.Classify(relevance.FieldText(rec.DeviceName, rec.Statement), c.tables)

	return types.Candidate{
		Type:      "fda_clearance",
		Title:     rec.DeviceName,
		Summary:   truncate(rec.Statement, 500),
		URL:       fmt.Sprintf(deviceClearanceURL, id),
		Relevance: tier,
		Metadata: map[string]any{
			"kNumber":      id,
			"applicant":    rec.Applicant,
			"decisionDate": rec.DecisionDate,
		},
	}, true
}

func (c *DeviceCrawler) mapApproval(rec deviceRecord, seen map[string]bool) (types.Candidate, bool) {
	title := rec.TradeName
	if title == "" {
		title = rec.DeviceName
	}
	if title == "" {
		return types.Candidate{}, false
	}

	id := rec.PMANumber
	if id == "" {
		id = "unknown"
	}
	key := "pma:" + id + ":1"
	if seen[key] {
		return types.Candidate{}, false
	}
	seen[key] = true

	tier := relevance.Classify(relevance.FieldText(title, rec.Statement), c.tables)

	return types.Candidate{
		Type:      "fda_approval",
		Title:     title,
		Summary:   truncate(rec.Statement, 500),
		URL:       fmt.Sprintf(deviceApprovalURL, id),
		Relevance: tier,
		Metadata: map[string]any{
			"pmaNumber":    id,
			"applicant":    rec.Applicant,
			"decisionDate": rec.DecisionDate,
		},
	}, true
}
