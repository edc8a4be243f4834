// Package journal keeps a SQLite record of every call cachectl makes to the
// cache store. It records outcomes only; cache contents stay in the store.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/prerender-tools/cachectl/pkg/models"
)

// Journal writes and queries journal entries.
type Journal struct {
	db   *sql.DB
	cfg  models.JournalConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the journal database, creates the schema and drops entries
// older than the retention period.
func New(cfg models.JournalConfig) (*Journal, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite")
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal db: %w", err)
	}

	j := &Journal{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}
	if _, err := j.Cleanup(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	j.wg.Add(1)
	go j.retentionLoop()

	return j, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS journal (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		action      TEXT NOT NULL,
		operation   TEXT NOT NULL,
		url         TEXT NOT NULL,
		variant     TEXT NOT NULL DEFAULT '',
		ok          INTEGER NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		detail      TEXT NOT NULL DEFAULT '',
		latency_ms  INTEGER NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_journal_created ON journal(created_at)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_journal_url ON journal(url)`)
	return err
}

// Log inserts an entry. It is a no-op on a nil Journal.
func (j *Journal) Log(ctx context.Context, e models.JournalEntry) error {
	if j == nil || j.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO journal
		(action, operation, url, variant, ok, status_code, detail, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Action), string(e.Operation), e.URL, string(e.Variant),
		e.OK, e.StatusCode, e.Detail, e.LatencyMs, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("journal log: %w", err)
	}
	return nil
}

// Query returns entries matching opts, newest first.
func (j *Journal) Query(ctx context.Context, opts models.JournalQueryOpts) ([]models.JournalEntry, error) {
	q := `SELECT id, action, operation, url, variant, ok, status_code, detail, latency_ms, created_at
		FROM journal WHERE 1=1`
	var args []any

	if opts.Action != "" {
		q += " AND action = ?"
		args = append(args, string(opts.Action))
	}
	if opts.URLContain != "" {
		q += " AND instr(lower(url), lower(?)) > 0"
		args = append(args, opts.URLContain)
	}
	if opts.FailedOnly {
		q += " AND ok = 0"
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var action, op, variant string
		if err := rows.Scan(
			&e.ID, &action, &op, &e.URL, &variant, &e.OK,
			&e.StatusCode, &e.Detail, &e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		e.Action = models.Action(action)
		e.Operation = models.Operation(op)
		e.Variant = models.Variant(variant)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns success and failure counts grouped by action and day.
func (j *Journal) Stats(ctx context.Context) ([]models.JournalStat, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT action, date(created_at) AS day,
			SUM(CASE WHEN ok THEN 1 ELSE 0 END), SUM(CASE WHEN ok THEN 0 ELSE 1 END)
		 FROM journal GROUP BY action, day ORDER BY day DESC, action`)
	if err != nil {
		return nil, fmt.Errorf("journal stats: %w", err)
	}
	defer rows.Close()

	var stats []models.JournalStat
	for rows.Next() {
		var s models.JournalStat
		var action string
		var day sql.NullString
		if err := rows.Scan(&action, &day, &s.Succeeded, &s.Failed); err != nil {
			return nil, fmt.Errorf("scan journal stat: %w", err)
		}
		s.Action = models.Action(action)
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the retention period. A retention of
// zero or less keeps everything.
func (j *Journal) Cleanup(ctx context.Context) (int64, error) {
	if j.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -j.cfg.RetentionDays)
	res, err := j.db.ExecContext(ctx, `DELETE FROM journal WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("journal cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	close(j.done)
	j.wg.Wait()
	return j.db.Close()
}

func (j *Journal) retentionLoop() {
	defer j.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			_, _ = j.Cleanup(context.Background())
		}
	}
}
