package prerender

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prerender-tools/cachectl/pkg/config"
	"github.com/prerender-tools/cachectl/pkg/metrics"
	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/telemetry"
)

// maxStoreBody caps how much of a store response is read. Store bodies are
// small JSON documents; this only guards against a misbehaving endpoint.
const maxStoreBody = 32 << 20

// Store reads and deletes entries through the cache store's API. It keeps
// no local copy: every call goes to the store.
type Store struct {
	apiBase string
	http    *http.Client
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewStore creates a Store. m may be nil.
func NewStore(cfg *config.Config, hc *http.Client, m *metrics.Metrics) *Store {
	return &Store{
		apiBase: cfg.APIBase,
		http:    hc,
		metrics: m,
		log:     slog.Default().With("component", "store"),
	}
}

// FetchSnapshot downloads the full listing and groups it by URL.
func (s *Store) FetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "store.FetchSnapshot")
	defer span.End()

	start := time.Now()
	snap, err := s.fetchSnapshot(ctx)
	s.metrics.ObserveSnapshot(err == nil, snap.Len(), time.Since(start))
	if err != nil {
		failSpan(span, err)
		return models.Snapshot{}, err
	}
	span.SetAttributes(attribute.Int("cache.urls", snap.Len()))
	s.log.Debug("fetched snapshot", "urls", snap.Len(), "elapsed", time.Since(start))
	return snap, nil
}

func (s *Store) fetchSnapshot(ctx context.Context) (models.Snapshot, error) {
	status, body, err := s.do(ctx, http.MethodGet, s.apiBase)
	if err != nil {
		return models.Snapshot{}, &StoreError{Op: "list", StatusCode: status, Cause: err}
	}

	entries, storeMsg, err := decodeList(body)
	if err != nil {
		return models.Snapshot{}, &MalformedResponseError{Op: "list", StatusCode: status, Body: string(body), Cause: err}
	}
	if storeMsg != "" {
		return models.Snapshot{}, &StoreError{Op: "list", StatusCode: status, Message: storeMsg}
	}
	return models.NewSnapshot(entries), nil
}

// Delete removes every variant of pageURL. The store has no per-variant
// delete. A body that is not the expected JSON is returned as a
// *MalformedResponseError carrying the raw body.
func (s *Store) Delete(ctx context.Context, pageURL string) error {
	ctx, span := telemetry.Tracer().Start(ctx, "store.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("cache.url", pageURL))

	start := time.Now()
	err := s.delete(ctx, pageURL)
	s.metrics.ObserveDelete(err == nil, time.Since(start))
	if err != nil {
		failSpan(span, err)
		s.log.Debug("delete failed", "url", pageURL, "error", err)
		return err
	}
	s.log.Debug("deleted", "url", pageURL)
	return nil
}

func (s *Store) delete(ctx context.Context, pageURL string) error {
	target := s.apiBase + "?" + url.Values{"url": {pageURL}}.Encode()
	status, body, err := s.do(ctx, http.MethodDelete, target)
	if err != nil {
		return &StoreError{Op: "delete", URL: pageURL, StatusCode: status, Cause: err}
	}

	storeMsg, err := decodeDelete(body)
	if err != nil {
		return &MalformedResponseError{Op: "delete", URL: pageURL, StatusCode: status, Body: string(body), Cause: err}
	}
	if storeMsg != "" {
		return &StoreError{Op: "delete", URL: pageURL, StatusCode: status, Message: storeMsg}
	}
	return nil
}

// do performs one request and returns the status and full body. The status
// is zero when no response was received.
func (s *Store) do(ctx context.Context, method, target string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStoreBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
