package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prerender-tools/cachectl/pkg/journal"
	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/prerender"
)

type call struct {
	url     string
	variant models.Variant
}

type fakeClient struct {
	mu    sync.Mutex
	calls []call
	fail  map[call]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{fail: map[call]int{}}
}

func (f *fakeClient) failWith(url string, v models.Variant, status int) {
	f.fail[call{url, v}] = status
}

func (f *fakeClient) Submit(_ context.Context, pageURL string, v models.Variant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := call{pageURL, v}
	f.calls = append(f.calls, c)
	if status, ok := f.fail[c]; ok {
		if status == 0 {
			return errors.New("connection refused")
		}
		return &prerender.VariantError{URL: pageURL, Variant: v, StatusCode: status, Cause: fmt.Errorf("unexpected status %d", status)}
	}
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []models.JournalEntry
	err     error
}

func (r *fakeRecorder) Log(_ context.Context, e models.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func TestSubmitAllBothVariantsAttemptedWhenOneFails(t *testing.T) {
	client := newFakeClient()
	client.failWith("https://a.test/", models.VariantDesktop, 503)

	report := New(client, 1, nil).SubmitAll(context.Background(), []string{"https://a.test/"})

	assert.Equal(t, []call{
		{"https://a.test/", models.VariantDesktop},
		{"https://a.test/", models.VariantMobile},
	}, client.calls)
	require.Len(t, report.Results, 1)
	require.Len(t, report.Results[0].VariantErrors, 1)
	assert.Equal(t, "Desktop: 503", report.Results[0].VariantErrors[0].String())
}

func TestSubmitAllBothVariantsFail(t *testing.T) {
	client := newFakeClient()
	client.failWith("https://a.test/", models.VariantDesktop, 503)
	client.failWith("https://a.test/", models.VariantMobile, 0)

	report := New(client, 1, nil).SubmitAll(context.Background(), []string{"https://a.test/"})

	require.Len(t, report.Results[0].VariantErrors, 2)
	assert.Equal(t, "Desktop: 503", report.Results[0].VariantErrors[0].String())
	assert.Equal(t, "Mobile: connection refused", report.Results[0].VariantErrors[1].String())
}

func TestSubmitAllIsolatesFailures(t *testing.T) {
	client := newFakeClient()
	var urls []string
	for i := range 20 {
		urls = append(urls, fmt.Sprintf("https://site.test/%d", i))
	}
	failing := map[string]bool{urls[3]: true, urls[7]: true, urls[19]: true}
	for u := range failing {
		client.failWith(u, models.VariantMobile, 500)
	}

	report := New(client, 5, nil).SubmitAll(context.Background(), urls)

	require.Equal(t, len(urls), report.Total())
	assert.Len(t, report.Failed(), len(failing))
	assert.Equal(t, len(urls)-len(failing), report.Succeeded())
	for i, res := range report.Results {
		assert.Equal(t, urls[i], res.URL, "result %d out of order", i)
		assert.Equal(t, failing[res.URL], !res.OK(), "url %s", res.URL)
	}
	assert.Len(t, client.calls, 2*len(urls))
}

func TestSubmitAllSequentialOrder(t *testing.T) {
	client := newFakeClient()
	urls := []string{"https://a.test/", "https://b.test/", "https://c.test/"}

	New(client, 1, nil).SubmitAll(context.Background(), urls)

	var want []call
	for _, u := range urls {
		want = append(want, call{u, models.VariantDesktop}, call{u, models.VariantMobile})
	}
	assert.Equal(t, want, client.calls)
}

func TestSubmitAllResubmitsDuplicates(t *testing.T) {
	client := newFakeClient()

	report := New(client, 2, nil).SubmitAll(context.Background(), []string{"https://a.test/", "https://a.test/"})

	assert.Equal(t, 2, report.Total())
	assert.Len(t, client.calls, 4)
}

func TestSubmitAllEmpty(t *testing.T) {
	report := New(newFakeClient(), 4, nil).SubmitAll(context.Background(), nil)
	assert.Equal(t, 0, report.Total())
	assert.Empty(t, report.Failed())
}

func TestSubmitAllJournalsEachVariant(t *testing.T) {
	client := newFakeClient()
	client.failWith("https://a.test/", models.VariantMobile, 404)
	rec := &fakeRecorder{}

	ctx := journal.WithAction(context.Background(), models.ActionSitemap)
	New(client, 1, rec).SubmitAll(ctx, []string{"https://a.test/"})

	require.Len(t, rec.entries, 2)
	for _, e := range rec.entries {
		assert.Equal(t, models.ActionSitemap, e.Action)
		assert.Equal(t, models.OpRecache, e.Operation)
		assert.Equal(t, "https://a.test/", e.URL)
	}
	assert.True(t, rec.entries[0].OK)
	assert.False(t, rec.entries[1].OK)
	assert.Equal(t, 404, rec.entries[1].StatusCode)
}

func TestSubmitAllIgnoresJournalErrors(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}

	report := New(newFakeClient(), 1, rec).SubmitAll(context.Background(), []string{"https://a.test/"})

	assert.Empty(t, report.Failed())
	assert.Len(t, rec.entries, 2)
}

func TestNewClampsConcurrency(t *testing.T) {
	assert.Equal(t, 1, New(newFakeClient(), 0, nil).concurrency)
}

func TestParseURLList(t *testing.T) {
	in := "https://a.test/\n\n  https://b.test/  \r\n\t\nhttps://a.test/\n"
	assert.Equal(t, []string{"https://a.test/", "https://b.test/", "https://a.test/"}, ParseURLList(in))
	assert.Empty(t, ParseURLList(" \n \n"))
}
