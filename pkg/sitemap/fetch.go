// Package sitemap fetches sitemap documents and works out which of their
// URLs are not cached yet.
package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/prerender-tools/cachectl/pkg/config"
	"github.com/prerender-tools/cachectl/pkg/telemetry"
)

// maxSitemapBytes is the protocol's limit for an uncompressed sitemap.
const maxSitemapBytes = 50 << 20

// FetchError reports that the sitemap document could not be retrieved.
// Parse problems are never a FetchError.
type FetchError struct {
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *FetchError) Error() string {
	msg := "fetch sitemap " + e.URL
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
		if e.Body != "" {
			msg += ": " + e.Body
		}
		return msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Cause }

// Fetcher downloads sitemap documents.
type Fetcher struct {
	http       *http.Client
	maxErrBody int64
	log        *slog.Logger
}

// NewFetcher creates a Fetcher. Error bodies are captured up to
// cfg.HTTP.MaxBodyBytes.
func NewFetcher(cfg *config.Config, hc *http.Client) *Fetcher {
	return &Fetcher{
		http:       hc,
		maxErrBody: cfg.HTTP.MaxBodyBytes,
		log:        slog.Default().With("component", "sitemap"),
	}
}

// Fetch returns the sitemap body at sitemapURL, gunzipped when it is
// compressed. Any network failure or non-2xx status is a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "sitemap.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("sitemap.url", sitemapURL))

	body, err := f.fetch(ctx, sitemapURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("sitemap.bytes", len(body)))
	f.log.Debug("fetched sitemap", "url", sitemapURL, "bytes", len(body))
	return body, nil
}

func (f *Fetcher) fetch(ctx context.Context, sitemapURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, nil)
	if err != nil {
		return nil, &FetchError{URL: sitemapURL, Cause: err}
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &FetchError{URL: sitemapURL, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, f.maxErrBody))
		return nil, &FetchError{
			URL:        sitemapURL,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
			Cause:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
	if err != nil {
		return nil, &FetchError{URL: sitemapURL, Cause: err}
	}
	return gunzip(sitemapURL, body), nil
}

// gunzip decompresses .gz sitemaps. Servers may already have applied
// Content-Encoding, so a body that fails to decompress is returned as is.
func gunzip(sitemapURL string, body []byte) []byte {
	isGzip := strings.HasSuffix(strings.ToLower(sitemapURL), ".gz") ||
		(len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b)
	if !isGzip {
		return body
	}
	gz, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return body
	}
	defer gz.Close()
	unzipped, err := io.ReadAll(io.LimitReader(gz, maxSitemapBytes))
	if err != nil {
		return body
	}
	return unzipped
}
