package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prerender-tools/cachectl/pkg/batch"
	"github.com/prerender-tools/cachectl/pkg/config"
	"github.com/prerender-tools/cachectl/pkg/coordinator"
	"github.com/prerender-tools/cachectl/pkg/journal"
	"github.com/prerender-tools/cachectl/pkg/logger"
	"github.com/prerender-tools/cachectl/pkg/metrics"
	"github.com/prerender-tools/cachectl/pkg/prerender"
	"github.com/prerender-tools/cachectl/pkg/sitemap"
	"github.com/prerender-tools/cachectl/pkg/telemetry"
)

// app holds everything a command needs. Close must be called once the
// command is done.
type app struct {
	cfg      *config.Config
	coord    *coordinator.Coordinator
	journal  *journal.Journal
	metrics  *metrics.Metrics
	shutdown func(context.Context) error
}

func openApp(ctx context.Context, configPath string) (*app, error) {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logger.Init(os.Stderr, level, cfg.Log.Format)

	shutdown, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("set up tracing: %w", err)
	}

	a := &app{
		cfg:      cfg,
		metrics:  metrics.New(),
		shutdown: shutdown,
	}

	var rec batch.Recorder
	if cfg.Journal.Enabled {
		j, err := journal.New(cfg.Journal)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.journal = j
		rec = j
	}

	hc := prerender.NewHTTPClient(cfg)
	a.coord = coordinator.New(
		prerender.NewStore(cfg, hc, a.metrics),
		batch.New(prerender.NewClient(cfg, hc, a.metrics), cfg.Batch.Concurrency, rec),
		sitemap.NewFetcher(cfg, hc),
		coordinator.WithRecorder(rec),
		coordinator.WithMetrics(a.metrics),
	)
	return a, nil
}

// Close exports metrics, closes the journal and flushes traces.
func (a *app) Close() {
	if err := a.metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		slog.Warn("write metrics textfile", "path", a.cfg.Metrics.Textfile, "error", err)
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			slog.Warn("close journal", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("flush traces", "error", err)
	}
}
