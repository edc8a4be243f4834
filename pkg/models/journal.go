package models

import "time"

// Action names the user action that produced a journal entry.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionBulk    Action = "bulk"
	ActionSitemap Action = "sitemap"
	ActionDelete  Action = "delete"
	ActionRefresh Action = "refresh"
	ActionClear   Action = "clear"
)

// Operation names the store call recorded by a journal entry.
type Operation string

const (
	OpRecache Operation = "recache"
	OpDelete  Operation = "delete"
)

// JournalEntry records a single call made against the cache store.
// Variant is empty for deletes, which always cover every variant.
type JournalEntry struct {
	ID         int64     `json:"id"`
	Action     Action    `json:"action"`
	Operation  Operation `json:"operation"`
	URL        string    `json:"url"`
	Variant    Variant   `json:"variant,omitempty"`
	OK         bool      `json:"ok"`
	StatusCode int       `json:"status_code,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// JournalConfig controls the operation journal.
type JournalConfig struct {
	Enabled       bool   `yaml:"enabled" env:"JOURNAL_ENABLED"`
	DBPath        string `yaml:"db_path" env:"JOURNAL_DB_PATH"`
	RetentionDays int    `yaml:"retention_days" env:"JOURNAL_RETENTION_DAYS"`
}

// JournalQueryOpts specifies filters for querying journal entries.
type JournalQueryOpts struct {
	Action     Action
	URLContain string
	FailedOnly bool
	Since      time.Time
	Limit      int
}

// JournalStat holds aggregate counts for an action/day combination.
type JournalStat struct {
	Action    Action
	Day       string
	Succeeded int
	Failed    int
}
