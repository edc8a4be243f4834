// Package report renders action results as plain text for the CLI and the
// MCP tools.
package report

import (
	"fmt"
	"strings"

	"github.com/prerender-tools/cachectl/pkg/models"
)

const timeLayout = "2006-01-02 15:04:05"

// Snapshot formats a snapshot as a table, one row per cached variant.
func Snapshot(s models.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cached URLs (%d)\n", s.Len())
	if s.Len() == 0 {
		b.WriteString("No cached items found.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%-60s %-8s %6s %-20s %-20s\n",
		"URL", "VARIANT", "STATUS", "CACHED AT", "EXPIRES AT")
	b.WriteString(strings.Repeat("-", 118) + "\n")
	for _, u := range s.URLs {
		for _, e := range s.Entries[u] {
			fmt.Fprintf(&b, "%-60s %-8s %6d %-20s %-20s\n",
				u, e.Variant, e.StatusCode, e.CachedAt, e.ExpiresAt)
		}
	}
	return b.String()
}

// Submission formats the result of submitting one URL.
func Submission(r models.SubmissionResult) string {
	if r.OK() {
		return fmt.Sprintf("Submitted %s for caching (desktop & mobile).\n", r.URL)
	}
	return fmt.Sprintf("Errors for %s: %s\n", r.URL, joinFailures(r.VariantErrors))
}

// Batch formats a batch report as "N of M succeeded" plus one line per
// failed URL.
func Batch(r models.BatchReport) string {
	failed := r.Failed()
	if len(failed) == 0 {
		return fmt.Sprintf("All %d URLs submitted for caching (desktop & mobile).\n", r.Total())
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d URLs submitted. Some URLs failed to cache:\n", r.Succeeded(), r.Total())
	for _, res := range failed {
		fmt.Fprintf(&b, "  %s: %s\n", res.URL, joinFailures(res.VariantErrors))
	}
	return b.String()
}

// Sitemap formats the outcome of caching a sitemap.
func Sitemap(r models.SitemapReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sitemap listed %d URLs, %d already cached.\n", r.Candidates, r.Skipped)
	if r.Batch.Total() == 0 {
		b.WriteString("Nothing to submit.\n")
		return b.String()
	}
	b.WriteString(Batch(r.Batch))
	return b.String()
}

// Refresh formats the outcome of a refresh.
func Refresh(r models.RefreshReport) string {
	if r.Submission.OK() {
		return fmt.Sprintf("Cache refresh initiated for %s.\n", r.URL)
	}
	return fmt.Sprintf("Deleted %s but resubmission failed: %s\n", r.URL, joinFailures(r.Submission.VariantErrors))
}

// Clear formats a clear-all report.
func Clear(r models.ClearReport) string {
	if len(r.Failures) == 0 {
		return fmt.Sprintf("All cache entries cleared (%d URLs).\n", r.Attempted)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d URLs cleared. Some caches could not be cleared:\n", r.Deleted(), r.Attempted)
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  %s: %s\n", f.URL, f.Detail)
	}
	return b.String()
}

// JournalEntries formats journal entries as a table.
func JournalEntries(entries []models.JournalEntry) string {
	if len(entries) == 0 {
		return "No journal entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-8s %-8s %-8s %-4s %6s %8s  %s\n",
		"TIME", "ACTION", "OP", "VARIANT", "OK", "STATUS", "LATENCY", "URL")
	b.WriteString(strings.Repeat("-", 110) + "\n")
	for _, e := range entries {
		ok := "yes"
		if !e.OK {
			ok = "no"
		}
		variant := string(e.Variant)
		if variant == "" {
			variant = "all"
		}
		fmt.Fprintf(&b, "%-20s %-8s %-8s %-8s %-4s %6d %6dms  %s\n",
			e.CreatedAt.Format(timeLayout), e.Action, e.Operation, variant, ok,
			e.StatusCode, e.LatencyMs, e.URL)
		if e.Detail != "" && !e.OK {
			fmt.Fprintf(&b, "%20s %s\n", "", e.Detail)
		}
	}
	return b.String()
}

// JournalStats formats per-day journal statistics.
func JournalStats(stats []models.JournalStat) string {
	if len(stats) == 0 {
		return "No journal stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %-12s %8s %8s\n", "ACTION", "DAY", "OK", "FAILED")
	b.WriteString(strings.Repeat("-", 41) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-10s %-12s %8d %8d\n", s.Action, s.Day, s.Succeeded, s.Failed)
	}
	return b.String()
}

func joinFailures(fs []models.VariantFailure) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return strings.Join(parts, ", ")
}
