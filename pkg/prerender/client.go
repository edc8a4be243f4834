// Package prerender talks to the remote page-rendering cache: recache
// requests per variant, the cache listing, and deletes.
package prerender

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/prerender-tools/cachectl/pkg/config"
	"github.com/prerender-tools/cachectl/pkg/metrics"
	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/telemetry"
)

// ErrInvalidVariant is returned for a variant with no configured identity.
var ErrInvalidVariant = errors.New("invalid variant")

// NewHTTPClient returns the client shared by every store call. The timeout
// bounds each request end to end.
func NewHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout}
}

// Client issues recache requests for a single URL under one variant identity.
type Client struct {
	baseURL string
	agents  config.UserAgentConfig
	http    *http.Client
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewClient creates a Client. m may be nil.
func NewClient(cfg *config.Config, hc *http.Client, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		agents:  cfg.UserAgents,
		http:    hc,
		metrics: m,
		log:     slog.Default().With("component", "prerender"),
	}
}

// RecacheURL returns the address that triggers rendering of pageURL.
func (c *Client) RecacheURL(pageURL string) string {
	return c.baseURL + "/" + pageURL
}

// Submit asks the store to (re)render pageURL for variant v. Only HTTP 200
// counts as accepted; anything else, including transport failures, is
// returned as a *VariantError.
func (c *Client) Submit(ctx context.Context, pageURL string, v models.Variant) error {
	ctx, span := telemetry.Tracer().Start(ctx, "prerender.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("cache.url", pageURL), attribute.String("cache.variant", string(v)))

	start := time.Now()
	err := c.submit(ctx, pageURL, v)
	elapsed := time.Since(start)
	c.metrics.ObserveSubmission(v, err == nil, elapsed)

	if err != nil {
		failSpan(span, err)
		c.log.Debug("recache failed", "url", pageURL, "variant", v, "error", err, "elapsed", elapsed)
		return err
	}
	c.log.Debug("recache accepted", "url", pageURL, "variant", v, "elapsed", elapsed)
	return nil
}

func (c *Client) submit(ctx context.Context, pageURL string, v models.Variant) error {
	ua, ok := c.agents.For(v)
	if !ok {
		return &VariantError{URL: pageURL, Variant: v, Cause: fmt.Errorf("%w: %q", ErrInvalidVariant, v)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.RecacheURL(pageURL), nil)
	if err != nil {
		return &VariantError{URL: pageURL, Variant: v, Cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.http.Do(req)
	if err != nil {
		return &VariantError{URL: pageURL, Variant: v, Cause: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &VariantError{
			URL:        pageURL,
			Variant:    v,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
	return nil
}
