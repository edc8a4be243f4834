// Package batch fans URL lists out to both cache variants.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/prerender-tools/cachectl/pkg/journal"
	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/prerender"
)

// VariantSubmitter requests a recache of one URL under one variant.
type VariantSubmitter interface {
	Submit(ctx context.Context, pageURL string, v models.Variant) error
}

// Recorder stores the outcome of each store call.
type Recorder interface {
	Log(ctx context.Context, e models.JournalEntry) error
}

// Submitter submits URLs in every variant with partial-failure semantics:
// a failing URL or variant never stops the rest of the batch.
type Submitter struct {
	client      VariantSubmitter
	concurrency int
	recorder    Recorder
	log         *slog.Logger
}

// New creates a Submitter running at most concurrency URLs at once.
// rec may be nil.
func New(client VariantSubmitter, concurrency int, rec Recorder) *Submitter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Submitter{
		client:      client,
		concurrency: concurrency,
		recorder:    rec,
		log:         slog.Default().With("component", "batch"),
	}
}

// SubmitAll submits every URL in both variants and returns one result per
// input URL, in input order. Duplicates are submitted again.
func (s *Submitter) SubmitAll(ctx context.Context, urls []string) models.BatchReport {
	results := make([]models.SubmissionResult, len(urls))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = s.submitOne(ctx, u)
			return nil
		})
	}
	_ = g.Wait()

	report := models.BatchReport{Results: results}
	s.log.Info("batch submitted",
		"action", journal.ActionFrom(ctx),
		"urls", report.Total(),
		"failed", len(report.Failed()),
	)
	return report
}

// submitOne tries desktop then mobile. Each variant is attempted regardless
// of the other's outcome.
func (s *Submitter) submitOne(ctx context.Context, pageURL string) models.SubmissionResult {
	res := models.SubmissionResult{URL: pageURL}
	for _, v := range models.Variants {
		start := time.Now()
		err := s.client.Submit(ctx, pageURL, v)
		elapsed := time.Since(start)

		entry := models.JournalEntry{
			Action:    journal.ActionFrom(ctx),
			Operation: models.OpRecache,
			URL:       pageURL,
			Variant:   v,
			OK:        err == nil,
			LatencyMs: elapsed.Milliseconds(),
			CreatedAt: time.Now().UTC(),
		}
		if err != nil {
			f := failureOf(v, err)
			entry.StatusCode = f.StatusCode
			entry.Detail = f.Detail
			res.VariantErrors = append(res.VariantErrors, f)
			s.log.Warn("recache failed", "url", pageURL, "variant", v, "error", f.Detail)
		}
		s.record(ctx, entry)
	}
	return res
}

func (s *Submitter) record(ctx context.Context, e models.JournalEntry) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Log(ctx, e); err != nil {
		s.log.Warn("journal write failed", "url", e.URL, "error", err)
	}
}

func failureOf(v models.Variant, err error) models.VariantFailure {
	var ve *prerender.VariantError
	if errors.As(err, &ve) {
		return ve.Failure()
	}
	return models.VariantFailure{Variant: v, Detail: err.Error()}
}

// ParseURLList splits newline-delimited input into URLs. Lines are trimmed
// and blank lines dropped; duplicates are kept.
func ParseURLList(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			out = append(out, u)
		}
	}
	return out
}
