package models

import (
	"fmt"
	"strings"
	"time"
)

// Variant identifies one of the independently cached renderings of a URL.
type Variant string

const (
	VariantDesktop Variant = "desktop"
	VariantMobile  Variant = "mobile"
)

// Variants lists every variant in submission order.
var Variants = []Variant{VariantDesktop, VariantMobile}

// ParseVariant converts a user-supplied name into a Variant.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(strings.ToLower(strings.TrimSpace(s))); v {
	case VariantDesktop, VariantMobile:
		return v, nil
	default:
		return "", fmt.Errorf("unknown variant %q (want desktop or mobile)", s)
	}
}

// Label returns the capitalised variant name used in failure messages.
func (v Variant) Label() string {
	switch v {
	case VariantDesktop:
		return "Desktop"
	case VariantMobile:
		return "Mobile"
	}
	return string(v)
}

// CacheEntry is one rendered variant of a URL as reported by the store.
type CacheEntry struct {
	URL        string    `json:"url"`
	Variant    Variant   `json:"variant"`
	StatusCode int       `json:"status_code"`
	CachedAt   Timestamp `json:"cached_at"`
	ExpiresAt  Timestamp `json:"expires_at"`
}

// Timestamp keeps the store's raw value next to the parsed time so that
// values the parser does not understand can still be displayed.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// String formats the timestamp for display, falling back to the raw value.
func (t Timestamp) String() string {
	if t.Time.IsZero() {
		return t.Raw
	}
	return t.Time.Format("2006-01-02 15:04:05")
}

// Snapshot is a point-in-time view of the store grouped by URL.
// URLs keeps the order in which each URL first appeared in the listing.
type Snapshot struct {
	URLs    []string
	Entries map[string][]CacheEntry
}

// NewSnapshot groups entries by URL, preserving first-appearance order.
func NewSnapshot(entries []CacheEntry) Snapshot {
	s := Snapshot{Entries: make(map[string][]CacheEntry)}
	for _, e := range entries {
		if _, ok := s.Entries[e.URL]; !ok {
			s.URLs = append(s.URLs, e.URL)
		}
		s.Entries[e.URL] = append(s.Entries[e.URL], e)
	}
	return s
}

// Len returns the number of distinct URLs.
func (s Snapshot) Len() int { return len(s.URLs) }

// Contains reports whether url has at least one entry, regardless of
// variant or expiry.
func (s Snapshot) Contains(url string) bool {
	return len(s.Entries[url]) > 0
}

// URLSet returns the set of cached URLs.
func (s Snapshot) URLSet() map[string]struct{} {
	out := make(map[string]struct{}, len(s.URLs))
	for _, u := range s.URLs {
		out[u] = struct{}{}
	}
	return out
}

// Filter narrows the snapshot to URLs containing search (case-insensitive)
// and to entries of the given variant. An empty variant keeps all variants.
// URLs left without entries are dropped.
func (s Snapshot) Filter(variant Variant, search string) Snapshot {
	needle := strings.ToLower(search)
	out := Snapshot{Entries: make(map[string][]CacheEntry)}
	for _, u := range s.URLs {
		if needle != "" && !strings.Contains(strings.ToLower(u), needle) {
			continue
		}
		var kept []CacheEntry
		for _, e := range s.Entries[u] {
			if variant != "" && e.Variant != variant {
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			continue
		}
		out.URLs = append(out.URLs, u)
		out.Entries[u] = kept
	}
	return out
}

// VariantFailure describes one failed (url, variant) submission.
type VariantFailure struct {
	Variant    Variant `json:"variant"`
	StatusCode int     `json:"status_code,omitempty"`
	Detail     string  `json:"detail"`
}

// String renders the failure as "Desktop: 503".
func (f VariantFailure) String() string {
	return f.Variant.Label() + ": " + f.Detail
}

// SubmissionResult is the outcome of submitting one URL in every variant.
// An empty VariantErrors means full success.
type SubmissionResult struct {
	URL           string           `json:"url"`
	VariantErrors []VariantFailure `json:"variant_errors,omitempty"`
}

// OK reports whether every variant was accepted.
func (r SubmissionResult) OK() bool { return len(r.VariantErrors) == 0 }

// BatchReport holds one result per submitted URL, in input order.
type BatchReport struct {
	Results []SubmissionResult `json:"results"`
}

// Total returns the number of URLs processed.
func (r BatchReport) Total() int { return len(r.Results) }

// Failed returns the results with at least one variant error.
func (r BatchReport) Failed() []SubmissionResult {
	var out []SubmissionResult
	for _, res := range r.Results {
		if !res.OK() {
			out = append(out, res)
		}
	}
	return out
}

// Succeeded returns the number of fully successful URLs.
func (r BatchReport) Succeeded() int {
	return r.Total() - len(r.Failed())
}

// DeleteFailure describes one URL the store did not delete.
type DeleteFailure struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

// ClearReport aggregates a clear-all run.
type ClearReport struct {
	Attempted int             `json:"attempted"`
	Failures  []DeleteFailure `json:"failures,omitempty"`
}

// Deleted returns the number of URLs removed.
func (r ClearReport) Deleted() int { return r.Attempted - len(r.Failures) }

// SitemapReport is the outcome of caching the uncached URLs of a sitemap.
type SitemapReport struct {
	Candidates int         `json:"candidates"`
	Skipped    int         `json:"skipped"`
	Batch      BatchReport `json:"batch"`
}

// RefreshReport is the outcome of a delete followed by resubmission.
type RefreshReport struct {
	URL        string           `json:"url"`
	Submission SubmissionResult `json:"submission"`
}
