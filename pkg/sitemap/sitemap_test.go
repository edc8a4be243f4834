package sitemap

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prerender-tools/cachectl/pkg/config"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://site.test/a</loc></url>
  <url><loc>https://site.test/b</loc></url>
  <url><loc>https://site.test/c</loc></url>
</urlset>`

func TestDiffSubtractsCached(t *testing.T) {
	got := Diff([]byte(sample), map[string]struct{}{"https://site.test/b": {}})
	assert.Equal(t, []string{"https://site.test/a", "https://site.test/c"}, got)
}

func TestDiffAllCached(t *testing.T) {
	cached := map[string]struct{}{
		"https://site.test/a": {},
		"https://site.test/b": {},
		"https://site.test/c": {},
	}
	assert.Empty(t, Diff([]byte(sample), cached))
}

func TestDiffKeepsSitemapDuplicates(t *testing.T) {
	doc := `<urlset><url><loc>https://x.test/</loc></url><url><loc>https://x.test/</loc></url></urlset>`
	assert.Equal(t, []string{"https://x.test/", "https://x.test/"}, Diff([]byte(doc), nil))
}

func TestExtractLocsToleratesMalformedXML(t *testing.T) {
	doc := `<urlset><url><loc>https://a.test/</loc><lastmod>2024</url>
<<garbage>> <url><loc>
    https://b.test/?q=1&amp;r=2
  </loc></url><loc></loc><unclosed`
	assert.Equal(t, []string{"https://a.test/", "https://b.test/?q=1&r=2"}, ExtractLocs([]byte(doc)))
}

func TestExtractLocsUnwrapsCDATA(t *testing.T) {
	doc := `<urlset>
<url><loc><![CDATA[https://a.test/?q=1&r=2]]></loc></url>
<url><loc>
  <![CDATA[ https://b.test/x&amp;y ]]>
</loc></url>
<url><loc><![CDATA[]]></loc></url>
</urlset>`
	assert.Equal(t, []string{"https://a.test/?q=1&r=2", "https://b.test/x&amp;y"}, ExtractLocs([]byte(doc)))
}

func TestExtractLocsEmpty(t *testing.T) {
	assert.Empty(t, ExtractLocs([]byte("not a sitemap")))
}

func newFetcher() *Fetcher {
	cfg := config.Default()
	return NewFetcher(cfg, &http.Client{Timeout: cfg.HTTP.Timeout})
}

func TestFetchPlain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	body, err := newFetcher().Fetch(context.Background(), srv.URL+"/sitemap.xml")
	require.NoError(t, err)
	assert.Len(t, ExtractLocs(body), 3)
}

func TestFetchGzip(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte(sample))
	require.NoError(t, gz.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	body, err := newFetcher().Fetch(context.Background(), srv.URL+"/sitemap.xml.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://site.test/a", "https://site.test/b", "https://site.test/c"}, ExtractLocs(body))
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(strings.Repeat("x", 10000)))
	}))
	defer srv.Close()

	_, err := newFetcher().Fetch(context.Background(), srv.URL+"/missing.xml")

	var fe *FetchError
	require.True(t, errors.As(err, &fe), "expected *FetchError, got %v", err)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Len(t, fe.Body, 4096)
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newFetcher().Fetch(context.Background(), url+"/sitemap.xml")

	var fe *FetchError
	require.True(t, errors.As(err, &fe), "expected *FetchError, got %v", err)
	assert.Zero(t, fe.StatusCode)
	assert.NotNil(t, fe.Cause)
}
