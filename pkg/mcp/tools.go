package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prerender-tools/cachectl/pkg/models"
	"github.com/prerender-tools/cachectl/pkg/report"
)

// Tool argument structs.

type urlArgs struct {
	URL string `json:"url"`
}

type listArgs struct {
	Variant string `json:"variant"`
	Search  string `json:"search"`
}

type bulkArgs struct {
	URLs string `json:"urls"`
}

type sitemapArgs struct {
	SitemapURL string `json:"sitemap_url"`
}

type clearArgs struct {
	Confirm bool `json:"confirm"`
}

type historyArgs struct {
	Action     string `json:"action"`
	URL        string `json:"url"`
	FailedOnly bool   `json:"failed_only"`
	Since      string `json:"since"`
	Stats      bool   `json:"stats"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"cache_list":    handleList,
	"cache_submit":  handleSubmit,
	"cache_bulk":    handleBulk,
	"cache_sitemap": handleSitemap,
	"cache_delete":  handleDelete,
	"cache_refresh": handleRefresh,
	"cache_clear":   handleClear,
	"cache_history": handleHistory,
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func urlSchema(desc string) map[string]any {
	return map[string]any{
		"type":       "object",
		"required":   []string{"url"},
		"properties": map[string]any{"url": stringProp(desc)},
	}
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []Tool{
	{
		Name:        "cache_list",
		Description: "List cached URLs with their desktop and mobile entries, optionally filtered by variant and URL substring.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"variant": map[string]any{
					"type":        "string",
					"enum":        []string{"all", "desktop", "mobile"},
					"description": "Only show this variant (optional, defaults to all)",
				},
				"search": stringProp("Case-insensitive URL substring (optional)"),
			},
		},
	},
	{
		Name:        "cache_submit",
		Description: "Submit one URL for caching in both desktop and mobile variants.",
		InputSchema: urlSchema("The page URL to cache"),
	},
	{
		Name:        "cache_bulk",
		Description: "Submit many URLs for caching. One URL per line; blank lines are ignored and duplicates are submitted again.",
		InputSchema: map[string]any{
			"type":       "object",
			"required":   []string{"urls"},
			"properties": map[string]any{"urls": stringProp("Newline-delimited URLs")},
		},
	},
	{
		Name:        "cache_sitemap",
		Description: "Fetch a sitemap and submit every URL in it that is not cached yet.",
		InputSchema: map[string]any{
			"type":       "object",
			"required":   []string{"sitemap_url"},
			"properties": map[string]any{"sitemap_url": stringProp("URL of the sitemap.xml (gzip accepted)")},
		},
	},
	{
		Name:        "cache_delete",
		Description: "Delete every cached variant of a URL.",
		InputSchema: urlSchema("The cached URL to delete"),
	},
	{
		Name:        "cache_refresh",
		Description: "Delete a URL from the cache and resubmit it. Nothing is resubmitted if the delete fails.",
		InputSchema: urlSchema("The cached URL to refresh"),
	},
	{
		Name:        "cache_clear",
		Description: "Delete every URL in the cache. Requires confirm=true.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"confirm"},
			"properties": map[string]any{
				"confirm": map[string]any{
					"type":        "boolean",
					"description": "Must be true to clear the cache",
				},
			},
		},
	},
	{
		Name:        "cache_history",
		Description: "Search the operation journal, or show per-day statistics.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": stringProp("Filter by action: submit, bulk, sitemap, delete, refresh or clear (optional)"),
				"url":    stringProp("Filter by URL substring (optional)"),
				"failed_only": map[string]any{
					"type":        "boolean",
					"description": "Only show failed calls (optional)",
				},
				"since": stringProp("Start date in YYYY-MM-DD format (optional)"),
				"stats": map[string]any{
					"type":        "boolean",
					"description": "Show per-day statistics instead of entries (optional)",
				},
			},
		},
	},
}

func decodeArgs(raw json.RawMessage, v any) {
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, v)
	}
}

func handleList(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args listArgs
	decodeArgs(rawArgs, &args)

	var variant models.Variant
	if args.Variant != "" && args.Variant != "all" {
		v, err := models.ParseVariant(args.Variant)
		if err != nil {
			return errorResult(err.Error())
		}
		variant = v
	}

	snap, err := s.ops.Snapshot(ctx)
	if err != nil {
		return errorResult("Failed to fetch cache: " + err.Error())
	}
	return textResult(report.Snapshot(snap.Filter(variant, args.Search)))
}

func handleSubmit(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args urlArgs
	decodeArgs(rawArgs, &args)
	if args.URL == "" {
		return errorResult("url is required")
	}
	res, err := s.ops.SubmitURL(ctx, args.URL)
	if err != nil {
		return errorResult(err.Error())
	}
	if !res.OK() {
		return errorResult(report.Submission(res))
	}
	return textResult(report.Submission(res))
}

func handleBulk(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args bulkArgs
	decodeArgs(rawArgs, &args)
	rep, err := s.ops.SubmitBulk(ctx, args.URLs)
	if err != nil {
		return errorResult(err.Error())
	}
	if len(rep.Failed()) > 0 {
		return errorResult(report.Batch(rep))
	}
	return textResult(report.Batch(rep))
}

func handleSitemap(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args sitemapArgs
	decodeArgs(rawArgs, &args)
	if args.SitemapURL == "" {
		return errorResult("sitemap_url is required")
	}
	rep, err := s.ops.CacheSitemap(ctx, args.SitemapURL)
	if err != nil {
		return errorResult("Error caching sitemap: " + err.Error())
	}
	if len(rep.Batch.Failed()) > 0 {
		return errorResult(report.Sitemap(rep))
	}
	return textResult(report.Sitemap(rep))
}

func handleDelete(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args urlArgs
	decodeArgs(rawArgs, &args)
	if args.URL == "" {
		return errorResult("url is required")
	}
	if err := s.ops.Delete(ctx, args.URL); err != nil {
		return errorResult("Failed to delete cache: " + err.Error())
	}
	return textResult("Cache deleted for " + args.URL + ".")
}

func handleRefresh(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args urlArgs
	decodeArgs(rawArgs, &args)
	if args.URL == "" {
		return errorResult("url is required")
	}
	rep, err := s.ops.Refresh(ctx, args.URL)
	if err != nil {
		return errorResult("Failed to refresh cache: " + err.Error())
	}
	if !rep.Submission.OK() {
		return errorResult(report.Refresh(rep))
	}
	return textResult(report.Refresh(rep))
}

func handleClear(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args clearArgs
	decodeArgs(rawArgs, &args)
	if !args.Confirm {
		return errorResult("Refusing to clear the cache without confirm=true.")
	}
	rep, err := s.ops.ClearAll(ctx)
	if err != nil {
		return errorResult("Error clearing cache: " + err.Error())
	}
	if len(rep.Failures) > 0 {
		return errorResult(report.Clear(rep))
	}
	return textResult(report.Clear(rep))
}

func handleHistory(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	if s.history == nil {
		return textResult("The operation journal is not enabled.")
	}
	var args historyArgs
	decodeArgs(rawArgs, &args)

	if args.Stats {
		stats, err := s.history.Stats(ctx)
		if err != nil {
			return errorResult("Error reading journal stats: " + err.Error())
		}
		return textResult(report.JournalStats(stats))
	}

	opts := models.JournalQueryOpts{
		Action:     models.Action(args.Action),
		URLContain: args.URL,
		FailedOnly: args.FailedOnly,
		Limit:      50,
	}
	if args.Since != "" {
		t, err := time.Parse("2006-01-02", args.Since)
		if err != nil {
			return errorResult("Invalid since date (use YYYY-MM-DD): " + err.Error())
		}
		opts.Since = t
	}

	entries, err := s.history.Query(ctx, opts)
	if err != nil {
		return errorResult("Error searching journal: " + err.Error())
	}
	return textResult(report.JournalEntries(entries))
}
