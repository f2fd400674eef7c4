// Package digest assembles and dispatches the periodic review digest: the
// pending queue grouped by priority bucket and source, plus crawl health.
package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openonco/scout/internal/health"
	"github.com/openonco/scout/internal/store"
	"github.com/openonco/scout/internal/types"
)

// Bucket is a digest priority tier. Buckets order the digest; they are
// coarser than per-item relevance.
type Bucket string

const (
	BucketHigh   Bucket = "high"
	BucketMedium Bucket = "medium"
	BucketLow    Bucket = "low"
)

// bucketOrder fixes section ordering in rendered output.
var bucketOrder = []Bucket{BucketHigh, BucketMedium, BucketLow}

// InferBucket assigns a discovery to a digest bucket. Regulatory decisions
// and high-relevance items are always urgent; everything else from a known
// source lands in the medium bucket regardless of its item-level tier, so
// low-relevance items from monitored sources still surface for review.
func InferBucket(d types.Discovery) Bucket {
	if d.Source == types.SourceDeviceApproval || d.Relevance == types.RelevanceHigh {
		return BucketHigh
	}
	switch d.Source {
	case types.SourceCoverageRegistry, types.SourceVendor, types.SourcePayer,
		types.SourceLiterature, types.SourcePreprint:
		return BucketMedium
	}
	return BucketLow
}

// Group is the pending items of one source within a bucket.
type Group struct {
	Source types.Source
	Items  []types.Discovery
}

// Section is one priority bucket of the digest.
type Section struct {
	Bucket Bucket
	Groups []Group
}

// Count returns the number of items across the section's groups.
func (s Section) Count() int {
	n := 0
	for _, g := range s.Groups {
		n += len(g.Items)
	}
	return n
}

// Digest is one assembled review digest, ready to render.
type Digest struct {
	GeneratedAt time.Time
	Queue       store.QueueStatus
	Health      map[types.Source]types.HealthRecord
	Sections    []Section
}

// Pending returns the total number of pending items in the digest.
func (d *Digest) Pending() int {
	n := 0
	for _, s := range d.Sections {
		n += s.Count()
	}
	return n
}

// Message is one outbound digest email.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Mailer delivers a rendered digest and returns the provider message ID.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// Renderer turns a digest into subject and body content.
type Renderer interface {
	Subject(d *Digest) string
	HTML(d *Digest) string
	Text(d *Digest) string
}

// Options configures digest dispatch.
type Options struct {
	From string
	To   []string

	// MinNotify suppresses delivery when fewer pending items exist. Zero
	// means always send.
	MinNotify int
}

// Dispatcher builds digests from the queue and health state and sends them.
type Dispatcher struct {
	store    store.Store
	health   *health.Tracker
	renderer Renderer
	mailer   Mailer
	opts     Options
	logger   *zap.Logger

	now func() time.Time // test hook
}

// NewDispatcher creates a dispatcher. A nil renderer uses the built-in one;
// a nil logger discards output. The mailer may be nil when only Build is
// used.
func NewDispatcher(s store.Store, h *health.Tracker, mailer Mailer, renderer Renderer, opts Options, logger *zap.Logger) *Dispatcher {
	if renderer == nil {
		renderer = defaultRenderer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:    s,
		health:   h,
		renderer: renderer,
		mailer:   mailer,
		opts:     opts,
		logger:   logger.Named("digest"),
		now:      time.Now,
	}
}

// Build assembles the digest from current queue and health state. Within a
// bucket, groups follow the canonical source order; items within a group
// keep insertion order.
func (d *Dispatcher) Build() (*Digest, error) {
	status, err := d.store.QueueStatus()
	if err != nil {
		return nil, fmt.Errorf("reading queue status: %w", err)
	}

	pending, err := d.store.GetUnreviewed()
	if err != nil {
		return nil, fmt.Errorf("reading pending discoveries: %w", err)
	}

	byBucket := make(map[Bucket]map[types.Source][]types.Discovery)
	for _, item := range pending {
		bucket := InferBucket(item)
		if byBucket[bucket] == nil {
			byBucket[bucket] = make(map[types.Source][]types.Discovery)
		}
		byBucket[bucket][item.Source] = append(byBucket[bucket][item.Source], item)
	}

	digest := &Digest{
		GeneratedAt: d.now(),
		Queue:       status,
	}
	if d.health != nil {
		digest.Health = d.health.Snapshot()
	}

	for _, bucket := range bucketOrder {
		groups := byBucket[bucket]
		if len(groups) == 0 {
			continue
		}
		section := Section{Bucket: bucket}
		for _, source := range orderedSources(groups) {
			section.Groups = append(section.Groups, Group{
				Source: source,
				Items:  groups[source],
			})
		}
		digest.Sections = append(digest.Sections, section)
	}

	return digest, nil
}

// Dispatch builds the digest and sends it when the pending count meets the
// notification threshold. It returns the digest, the provider message ID
// (empty when delivery was suppressed), and whether a send happened.
func (d *Dispatcher) Dispatch(ctx context.Context) (*Digest, string, bool, error) {
	digest, err := d.Build()
	if err != nil {
		return nil, "", false, err
	}

	pending := digest.Pending()
	if pending < d.opts.MinNotify {
		d.logger.Info("digest suppressed below notify threshold",
			zap.Int("pending", pending),
			zap.Int("minNotify", d.opts.MinNotify))
		return digest, "", false, nil
	}
	if d.mailer == nil {
		return digest, "", false, fmt.Errorf("no mailer configured")
	}

	msg := Message{
		From:    d.opts.From,
		To:      d.opts.To,
		Subject: d.renderer.Subject(digest),
		HTML:    d.renderer.HTML(digest),
		Text:    d.renderer.Text(digest),
	}

	id, err := d.mailer.Send(ctx, msg)
	if err != nil {
		return digest, "", false, fmt.Errorf("sending digest: %w", err)
	}

	d.logger.Info("digest sent",
		zap.Int("pending", pending),
		zap.String("messageId", id))
	return digest, id, true, nil
}

// orderedSources returns the map's keys in canonical source order, with any
// unknown sources appended alphabetically.
func orderedSources(groups map[types.Source][]types.Discovery) []types.Source {
	var out []types.Source
	known := make(map[types.Source]bool)
	for _, s := range types.AllSources() {
		known[s] = true
		if _, ok := groups[s]; ok {
			out = append(out, s)
		}
	}

	var extra []types.Source
	for s := range groups {
		if !known[s] {
			extra = append(extra, s)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}
