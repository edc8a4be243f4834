package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prerender-tools/cachectl/pkg/models"
)

func tempCfg(t *testing.T) models.JournalConfig {
	t.Helper()
	return models.JournalConfig{
		Enabled:       true,
		DBPath:        filepath.Join(t.TempDir(), "journal_test.db"),
		RetentionDays: 30,
	}
}

func mustNew(t *testing.T, cfg models.JournalConfig) *Journal {
	t.Helper()
	j, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func recache(url string, v models.Variant, ok bool) models.JournalEntry {
	e := models.JournalEntry{
		Action:    models.ActionBulk,
		Operation: models.OpRecache,
		URL:       url,
		Variant:   v,
		OK:        ok,
		LatencyMs: 42,
		CreatedAt: time.Now().UTC(),
	}
	if !ok {
		e.StatusCode = 503
		e.Detail = "503"
	}
	return e
}

func TestLogAndQuery(t *testing.T) {
	j := mustNew(t, tempCfg(t))
	ctx := context.Background()

	require.NoError(t, j.Log(ctx, recache("https://a.test/", models.VariantDesktop, true)))
	require.NoError(t, j.Log(ctx, recache("https://a.test/", models.VariantMobile, false)))

	entries, err := j.Query(ctx, models.JournalQueryOpts{})
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.VariantMobile, entries[0].Variant, "newest entry first")
	assert.False(t, entries[0].OK)
	assert.Equal(t, 503, entries[0].StatusCode)
	assert.Equal(t, "503", entries[0].Detail)
	assert.Equal(t, models.ActionBulk, entries[1].Action)
	assert.Equal(t, models.OpRecache, entries[1].Operation)
	assert.WithinDuration(t, time.Now(), entries[1].CreatedAt, time.Minute)
}

func TestQueryFilters(t *testing.T) {
	j := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = j.Log(ctx, recache("https://shop.test/a", models.VariantDesktop, true))
	_ = j.Log(ctx, recache("https://blog.test/b", models.VariantDesktop, false))
	_ = j.Log(ctx, models.JournalEntry{
		Action:    models.ActionDelete,
		Operation: models.OpDelete,
		URL:       "https://Shop.test/c",
		OK:        true,
	})

	entries, err := j.Query(ctx, models.JournalQueryOpts{URLContain: "shop"})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, _ = j.Query(ctx, models.JournalQueryOpts{FailedOnly: true})
	require.Len(t, entries, 1)
	assert.Equal(t, "https://blog.test/b", entries[0].URL)

	entries, _ = j.Query(ctx, models.JournalQueryOpts{Action: models.ActionDelete})
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Variant)

	entries, _ = j.Query(ctx, models.JournalQueryOpts{Limit: 1})
	assert.Len(t, entries, 1)

	entries, _ = j.Query(ctx, models.JournalQueryOpts{Since: time.Now().Add(time.Hour)})
	assert.Empty(t, entries)
}

func TestStats(t *testing.T) {
	j := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = j.Log(ctx, recache("https://a.test/", models.VariantDesktop, true))
	_ = j.Log(ctx, recache("https://a.test/", models.VariantMobile, false))
	_ = j.Log(ctx, recache("https://b.test/", models.VariantDesktop, true))

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, models.ActionBulk, stats[0].Action)
	assert.Equal(t, 2, stats[0].Succeeded)
	assert.Equal(t, 1, stats[0].Failed)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), stats[0].Day)
}

func TestStatsGroupsByDay(t *testing.T) {
	j := mustNew(t, tempCfg(t))
	ctx := context.Background()

	old := recache("https://a.test/", models.VariantDesktop, true)
	old.CreatedAt = time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	_ = j.Log(ctx, old)
	_ = j.Log(ctx, recache("https://a.test/", models.VariantDesktop, true))

	stats, err := j.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	days := []string{stats[0].Day, stats[1].Day}
	assert.Contains(t, days, "2026-03-14")
	assert.Contains(t, days, time.Now().UTC().Format("2006-01-02"))
}

func TestCleanup(t *testing.T) {
	j := mustNew(t, tempCfg(t))
	ctx := context.Background()

	old := recache("https://old.test/", models.VariantDesktop, true)
	old.CreatedAt = time.Now().UTC().AddDate(0, 0, -60)
	_ = j.Log(ctx, old)
	_ = j.Log(ctx, recache("https://new.test/", models.VariantDesktop, true))

	n, err := j.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, _ := j.Query(ctx, models.JournalQueryOpts{})
	require.Len(t, entries, 1)
	assert.Equal(t, "https://new.test/", entries[0].URL)
}

func TestCleanupKeepsEverythingWithoutRetention(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0
	j := mustNew(t, cfg)
	ctx := context.Background()

	old := recache("https://old.test/", models.VariantDesktop, true)
	old.CreatedAt = time.Now().UTC().AddDate(-1, 0, 0)
	_ = j.Log(ctx, old)

	n, err := j.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNilJournalIsNoop(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Log(context.Background(), recache("https://a.test/", models.VariantDesktop, true)))
	assert.NoError(t, j.Close())
}

func TestActionContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, models.ActionSubmit, ActionFrom(ctx))
	assert.Equal(t, models.ActionRefresh, ActionFrom(WithAction(ctx, models.ActionRefresh)))
}
