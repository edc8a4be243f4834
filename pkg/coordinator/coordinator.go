// Package coordinator implements the user-facing cache actions on top of
// the store, the batch submitter and the sitemap fetcher.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prerender-tools/cachectl/pkg/batch"
	"github.com/prerender-tools/cachectl/pkg/journal"
	"github.com/prerender-tools/cachectl/pkg/metrics"
	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/prerender"
	"github.com/prerender-tools/cachectl/pkg/sitemap"
	"github.com/prerender-tools/cachectl/pkg/telemetry"
)

// ErrNoURLs is returned when an action is given nothing to submit.
var ErrNoURLs = errors.New("no URLs given")

// Store is the remote cache store.
type Store interface {
	FetchSnapshot(ctx context.Context) (models.Snapshot, error)
	Delete(ctx context.Context, pageURL string) error
}

// Submitter submits URLs in every variant.
type Submitter interface {
	SubmitAll(ctx context.Context, urls []string) models.BatchReport
}

// SitemapFetcher retrieves sitemap documents.
type SitemapFetcher interface {
	Fetch(ctx context.Context, sitemapURL string) ([]byte, error)
}

// Coordinator runs one user action at a time to completion. It holds no
// state between actions: every action reads the store afresh.
type Coordinator struct {
	store     Store
	submitter Submitter
	sitemaps  SitemapFetcher
	recorder  batch.Recorder
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithRecorder journals every delete attempt to rec.
func WithRecorder(rec batch.Recorder) Option {
	return func(c *Coordinator) { c.recorder = rec }
}

// WithMetrics reports sitemap dedup counts to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

// New creates a Coordinator.
func New(store Store, submitter Submitter, sitemaps SitemapFetcher, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		submitter: submitter,
		sitemaps:  sitemaps,
		log:       slog.Default().With("component", "coordinator"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Snapshot returns a fresh view of the store.
func (c *Coordinator) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return c.store.FetchSnapshot(ctx)
}

// SubmitURL submits a single URL in both variants.
func (c *Coordinator) SubmitURL(ctx context.Context, pageURL string) (models.SubmissionResult, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return models.SubmissionResult{}, ErrNoURLs
	}
	ctx, end := c.begin(ctx, models.ActionSubmit)
	defer end(nil)

	report := c.submitter.SubmitAll(ctx, []string{pageURL})
	return report.Results[0], nil
}

// SubmitBulk submits every non-blank line of text. Duplicate lines are
// submitted once per occurrence.
func (c *Coordinator) SubmitBulk(ctx context.Context, text string) (models.BatchReport, error) {
	urls := batch.ParseURLList(text)
	if len(urls) == 0 {
		return models.BatchReport{}, ErrNoURLs
	}
	ctx, end := c.begin(ctx, models.ActionBulk)
	defer end(nil)

	return c.submitter.SubmitAll(ctx, urls), nil
}

// CacheSitemap submits the sitemap's URLs that have no entry in the store.
// A sitemap that cannot be fetched or a snapshot that cannot be read aborts
// the action before anything is submitted.
func (c *Coordinator) CacheSitemap(ctx context.Context, sitemapURL string) (rep models.SitemapReport, err error) {
	sitemapURL = strings.TrimSpace(sitemapURL)
	if sitemapURL == "" {
		return rep, ErrNoURLs
	}
	ctx, end := c.begin(ctx, models.ActionSitemap)
	defer func() { end(err) }()

	doc, err := c.sitemaps.Fetch(ctx, sitemapURL)
	if err != nil {
		return rep, err
	}
	snap, err := c.store.FetchSnapshot(ctx)
	if err != nil {
		return rep, fmt.Errorf("read cache before sitemap diff: %w", err)
	}

	locs := sitemap.ExtractLocs(doc)
	pending := sitemap.Diff(doc, snap.URLSet())
	rep.Candidates = len(locs)
	rep.Skipped = len(locs) - len(pending)
	c.metrics.ObserveSitemapSkipped(rep.Skipped)
	c.log.Info("sitemap diffed", "sitemap", sitemapURL, "candidates", rep.Candidates, "skipped", rep.Skipped)

	rep.Batch = c.submitter.SubmitAll(ctx, pending)
	return rep, nil
}

// Delete removes every variant of pageURL from the store.
func (c *Coordinator) Delete(ctx context.Context, pageURL string) (err error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return ErrNoURLs
	}
	ctx, end := c.begin(ctx, models.ActionDelete)
	defer func() { end(err) }()
	return c.delete(ctx, pageURL)
}

// Refresh deletes pageURL and resubmits it. Nothing is submitted unless the
// delete succeeded. A failed resubmission is reported in the result and
// does not restore the deleted entry.
func (c *Coordinator) Refresh(ctx context.Context, pageURL string) (rep models.RefreshReport, err error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return rep, ErrNoURLs
	}
	rep.URL = pageURL
	ctx, end := c.begin(ctx, models.ActionRefresh)
	defer func() { end(err) }()

	if err := c.delete(ctx, pageURL); err != nil {
		return rep, fmt.Errorf("delete before refresh: %w", err)
	}
	report := c.submitter.SubmitAll(ctx, []string{pageURL})
	rep.Submission = report.Results[0]
	return rep, nil
}

// ClearAll deletes every URL in the store, continuing past failures. Only
// a failure to read the store is returned as an error; delete failures are
// listed in the report.
func (c *Coordinator) ClearAll(ctx context.Context) (rep models.ClearReport, err error) {
	ctx, end := c.begin(ctx, models.ActionClear)
	defer func() { end(err) }()

	snap, err := c.store.FetchSnapshot(ctx)
	if err != nil {
		return rep, err
	}
	rep.Attempted = snap.Len()
	for _, u := range snap.URLs {
		if err := c.delete(ctx, u); err != nil {
			rep.Failures = append(rep.Failures, models.DeleteFailure{URL: u, Detail: err.Error()})
		}
	}
	c.log.Info("cache cleared", "attempted", rep.Attempted, "failed", len(rep.Failures))
	return rep, nil
}

func (c *Coordinator) delete(ctx context.Context, pageURL string) error {
	start := time.Now()
	err := c.store.Delete(ctx, pageURL)

	entry := models.JournalEntry{
		Action:    journal.ActionFrom(ctx),
		Operation: models.OpDelete,
		URL:       pageURL,
		OK:        err == nil,
		LatencyMs: time.Since(start).Milliseconds(),
		CreatedAt: time.Now().UTC(),
	}
	if err != nil {
		entry.Detail = err.Error()
		entry.StatusCode = statusOf(err)
		c.log.Warn("delete failed", "url", pageURL, "error", err)
	}
	if c.recorder != nil {
		if jerr := c.recorder.Log(ctx, entry); jerr != nil {
			c.log.Warn("journal write failed", "url", pageURL, "error", jerr)
		}
	}
	return err
}

func statusOf(err error) int {
	var se *prerender.StoreError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	var me *prerender.MalformedResponseError
	if errors.As(err, &me) {
		return me.StatusCode
	}
	return 0
}

// begin tags ctx with the action and opens a span covering it.
func (c *Coordinator) begin(ctx context.Context, a models.Action) (context.Context, func(error)) {
	ctx = journal.WithAction(ctx, a)
	ctx, span := telemetry.Tracer().Start(ctx, "cachectl."+string(a))
	span.SetAttributes(attribute.String("cachectl.action", string(a)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
