package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/openonco/scout/internal/crawler"
	"github.com/openonco/scout/internal/digest"
	"github.com/openonco/scout/internal/health"
	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubCrawler struct {
	source  types.Source
	enabled bool
	crawled *[]types.Source
	err     error
}

func (c *stubCrawler) Name() string          { return string(c.source) }
func (c *stubCrawler) Source() types.Source  { return c.source }
func (c *stubCrawler) Enabled() bool         { return c.enabled }
func (c *stubCrawler) RateLimit() rate.Limit { return rate.Limit(1) }
func (c *stubCrawler) Crawl(context.Context) ([]types.Candidate, error) {
	if c.crawled != nil {
		*c.crawled = append(*c.crawled, c.source)
	}
	if c.err != nil {
		return nil, c.err
	}
	return []types.Candidate{{
		Type: "update", Title: "item from " + string(c.source),
		URL: "https://" + string(c.source), Relevance: types.RelevanceMedium,
	}}, nil
}

func newServiceFixture(t *testing.T, cfg Config, crawlers ...crawler.Crawler) *Service {
	t.Helper()
	dir := t.TempDir()

	s, err := store.OpenJSON(filepath.Join(dir, "discoveries.json"))
	require.NoError(t, err)
	h, err := health.NewTracker(filepath.Join(dir, "health.json"))
	require.NoError(t, err)

	reg := crawler.NewRegistry()
	for _, c := range crawlers {
		require.NoError(t, reg.Register(c))
	}

	return NewService(reg, crawler.NewRunner(s, h, nil), nil, s, cfg, nil)
}

func TestScheduleRegistersExpectedJobKeys(t *testing.T) {
	svc := newServiceFixture(t, Config{
		CrawlerCrons: map[types.Source]string{
			types.SourceVendor: "0 6 * * *",
			types.SourcePayer:  "30 6 * * *",
		},
		CleanupCron: "0 3 * * 0",
		Retention:   30 * 24 * time.Hour,
	},
		&stubCrawler{source: types.SourceVendor, enabled: true},
		&stubCrawler{source: types.SourcePayer, enabled: true},
		&stubCrawler{source: types.SourceLiterature, enabled: false}, // disabled, not scheduled
	)

	require.NoError(t, svc.Schedule())

	status := svc.Status()
	assert.False(t, status.Running)

	var keys []string
	for _, job := range status.ActiveJobs {
		keys = append(keys, job.Key)
	}
	assert.Equal(t, []string{"cleanup", "crawler:payer", "crawler:vendor"}, keys)
}

func TestScheduleRejectsBadCronSpec(t *testing.T) {
	svc := newServiceFixture(t, Config{
		CrawlerCrons: map[types.Source]string{types.SourceVendor: "not a cron spec"},
	}, &stubCrawler{source: types.SourceVendor, enabled: true})

	assert.Error(t, svc.Schedule())
}

func TestStartStopLifecycle(t *testing.T) {
	svc := newServiceFixture(t, Config{
		CrawlerCrons: map[types.Source]string{types.SourceVendor: "0 6 * * *"},
	}, &stubCrawler{source: types.SourceVendor, enabled: true})

	require.NoError(t, svc.Schedule())

	svc.Start()
	status := svc.Status()
	assert.True(t, status.Running)
	require.Len(t, status.ActiveJobs, 1)
	assert.False(t, status.ActiveJobs[0].Next.IsZero(), "running jobs expose their next fire time")

	svc.Stop()
	stopped := svc.Status()
	assert.False(t, stopped.Running)
	assert.Empty(t, stopped.ActiveJobs, "stop unregisters all jobs")

	// Stop again is a no-op.
	svc.Stop()
}

func TestRunAllCrawlersNowIsSequentialInRegistrationOrder(t *testing.T) {
	var order []types.Source
	svc := newServiceFixture(t, Config{},
		&stubCrawler{source: types.SourceCoverageRegistry, enabled: true, crawled: &order},
		&stubCrawler{source: types.SourceVendor, enabled: true, crawled: &order},
		&stubCrawler{source: types.SourceLiterature, enabled: true, crawled: &order, err: errors.New("down")},
		&stubCrawler{source: types.SourcePreprint, enabled: true, crawled: &order},
	)

	results := svc.RunAllCrawlersNow(context.Background())

	require.Len(t, results, 4)
	assert.Equal(t, []types.Source{
		types.SourceCoverageRegistry, types.SourceVendor,
		types.SourceLiterature, types.SourcePreprint,
	}, order)

	// The failing crawler yields a failure result without stopping the sweep.
	assert.True(t, results[0].Success)
	assert.False(t, results[2].Success)
	assert.True(t, results[3].Success)
}

func TestTriggerCrawler(t *testing.T) {
	svc := newServiceFixture(t, Config{},
		&stubCrawler{source: types.SourceVendor, enabled: true})

	result, err := svc.TriggerCrawler(context.Background(), types.SourceVendor)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Added)

	_, err = svc.TriggerCrawler(context.Background(), types.SourceDeviceApproval)
	assert.Error(t, err)
}

type captureMailer struct {
	sent int
}

func (m *captureMailer) Send(context.Context, digest.Message) (string, error) {
	m.sent++
	return "msg-1", nil
}

func TestScheduledCrawlDispatchesDigestEvenWithoutNewItems(t *testing.T) {
	dir := t.TempDir()

	s, err := store.OpenJSON(filepath.Join(dir, "discoveries.json"))
	require.NoError(t, err)
	h, err := health.NewTracker(filepath.Join(dir, "health.json"))
	require.NoError(t, err)

	// An item is already pending, e.g. from a run whose delivery failed.
	_, err = s.AddDiscovery(types.SourceVendor, types.Candidate{
		Type: "update", Title: "item from vendor",
		URL: "https://vendor", Relevance: types.RelevanceMedium,
	})
	require.NoError(t, err)

	mailer := &captureMailer{}
	dispatcher := digest.NewDispatcher(s, h, mailer, nil, digest.Options{
		MinNotify: 1, To: []string{"ops@example.com"},
	}, nil)

	reg := crawler.NewRegistry()
	c := &stubCrawler{source: types.SourceVendor, enabled: true}
	require.NoError(t, reg.Register(c))

	svc := NewService(reg, crawler.NewRunner(s, h, nil), dispatcher, s, Config{}, nil)

	// The crawl finds only the duplicate (Added == 0) but the pending item
	// still goes out.
	svc.scheduledCrawl(c)
	assert.Equal(t, 1, mailer.sent)

	// A failed crawl does not dispatch.
	failing := &stubCrawler{source: types.SourcePayer, enabled: true, err: errors.New("down")}
	require.NoError(t, reg.Register(failing))
	svc.scheduledCrawl(failing)
	assert.Equal(t, 1, mailer.sent)
}

func TestTriggerDigestWithoutDispatcher(t *testing.T) {
	svc := newServiceFixture(t, Config{})

	_, _, err := svc.TriggerDigest(context.Background())
	assert.Error(t, err)
}

func TestAddJobReplacesExistingKey(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.AddJob("digest", "0 7 * * *", func() {}))
	require.NoError(t, s.AddJob("digest", "0 8 * * *", func() {}))

	status := s.Status()
	require.Len(t, status.ActiveJobs, 1)
	assert.Equal(t, "0 8 * * *", status.ActiveJobs[0].Spec)

	s.RemoveJob("digest")
	assert.Empty(t, s.Status().ActiveJobs)
}
