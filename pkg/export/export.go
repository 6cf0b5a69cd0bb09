// Package export writes the canonical usage dataset to external formats.
//
// The SQLite export holds one daily_usage row per day key and a single
// summary row, so totals can be queried with plain SQL:
//
//	SELECT strftime('%Y-%m', date), SUM(total_tokens) FROM daily_usage GROUP BY 1;
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/0xmhha/token-calendar/pkg/aggregator"
	"github.com/0xmhha/token-calendar/pkg/calendar"
)

// ErrNoPath indicates an empty output path.
var ErrNoPath = errors.New("export path not set")

// Meta describes the run that produced the dataset.
type Meta struct {
	GeneratedAt time.Time
	Zone        string
	OffsetHours int
}

const schema = `
CREATE TABLE IF NOT EXISTS daily_usage (
	date                        TEXT PRIMARY KEY,
	input_tokens                INTEGER NOT NULL,
	output_tokens               INTEGER NOT NULL,
	cache_read_input_tokens     INTEGER NOT NULL,
	cache_creation_input_tokens INTEGER NOT NULL,
	total_tokens                INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS summary (
	id                          INTEGER PRIMARY KEY CHECK (id = 1),
	generated_at                TEXT NOT NULL,
	zone                        TEXT NOT NULL,
	offset_hours                INTEGER NOT NULL,
	start_date                  TEXT,
	end_date                    TEXT,
	days_with_data              INTEGER NOT NULL,
	unique_messages             INTEGER NOT NULL,
	input_tokens                INTEGER NOT NULL,
	output_tokens               INTEGER NOT NULL,
	cache_read_input_tokens     INTEGER NOT NULL,
	cache_creation_input_tokens INTEGER NOT NULL,
	total_tokens                INTEGER NOT NULL
);`

// WriteSQLite writes ds to the SQLite database at path. Rows from an
// earlier export in the same file are replaced, so the file always
// mirrors exactly one dataset.
func WriteSQLite(ctx context.Context, path string, ds aggregator.Dataset, meta Meta) (err error) {
	if path == "" {
		return ErrNoPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if mkErr := os.MkdirAll(dir, 0700); mkErr != nil {
			return fmt.Errorf("failed to create export directory: %w", mkErr)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close sqlite database: %w", closeErr)
		}
	}()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err := writeDays(ctx, tx, ds); err != nil {
		return err
	}
	if err := writeSummary(ctx, tx, ds, meta); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	return nil
}

func writeDays(ctx context.Context, tx *sql.Tx, ds aggregator.Dataset) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM daily_usage"); err != nil {
		return fmt.Errorf("failed to clear daily_usage: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO daily_usage (date, input_tokens, output_tokens,
			cache_read_input_tokens, cache_creation_input_tokens, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	days := make([]calendar.Date, 0, len(ds.DailyUsage))
	for d := range ds.DailyUsage {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	for _, d := range days {
		u := ds.DailyUsage[d]
		if _, err := stmt.ExecContext(ctx, d.String(), u.InputTokens, u.OutputTokens,
			u.CacheReadInputTokens, u.CacheCreationInputTokens, u.Total()); err != nil {
			return fmt.Errorf("failed to insert %s: %w", d, err)
		}
	}
	return nil
}

func writeSummary(ctx context.Context, tx *sql.Tx, ds aggregator.Dataset, meta Meta) error {
	generatedAt := meta.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	t := ds.Totals
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO summary (id, generated_at, zone, offset_hours,
			start_date, end_date, days_with_data, unique_messages,
			input_tokens, output_tokens, cache_read_input_tokens,
			cache_creation_input_tokens, total_tokens)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		generatedAt.UTC().Format(time.RFC3339), meta.Zone, meta.OffsetHours,
		nullDate(ds.DateRange.Start), nullDate(ds.DateRange.End),
		ds.DaysWithData, ds.UniqueMessages,
		t.InputTokens, t.OutputTokens, t.CacheReadInputTokens,
		t.CacheCreationInputTokens, t.TotalTokens)
	if err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func nullDate(d *calendar.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
