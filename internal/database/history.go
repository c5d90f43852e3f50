package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
)

// AlreadyProcessed reports which of urls were summarized by an earlier run.
func (db *DB) AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error) {
	seen := make(map[string]bool)
	if len(urls) == 0 {
		return seen, nil
	}

	query, args, err := sqlx.In("SELECT url FROM processed_items WHERE url IN (?)", urls)
	if err != nil {
		return nil, fmt.Errorf("failed to build processed lookup: %w", err)
	}

	var found []string
	if err := db.SelectContext(ctx, &found, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query processed items: %w", err)
	}
	for _, u := range found {
		seen[u] = true
	}
	return seen, nil
}

// MarkProcessed records items in one transaction. Items whose URL is
// already recorded are counted as duplicates and left untouched.
func (db *DB) MarkProcessed(ctx context.Context, items []models.ProcessedItem) (inserted, duplicates int64, err error) {
	if len(items) == 0 {
		return 0, 0, nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, `
		INSERT INTO processed_items (item_id, url, source, title, mode, processed_at)
		VALUES (:item_id, :url, :source, :title, :mode, :processed_at)
		ON CONFLICT(url) DO NOTHING`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		if item.URL == "" {
			continue
		}
		if item.ProcessedAt.IsZero() {
			item.ProcessedAt = time.Now().UTC()
		}
		res, err := stmt.ExecContext(ctx, item)
		if err != nil {
			return 0, 0, fmt.Errorf("failed to record %s: %w", item.URL, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, 0, fmt.Errorf("failed to get rows affected for %s: %w", item.URL, err)
		}
		if n > 0 {
			inserted++
		} else {
			duplicates++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit processed items: %w", err)
	}

	log.Debug().Int64("inserted", inserted).Int64("duplicates", duplicates).Msg("Recorded processed items")
	return inserted, duplicates, nil
}

// ProcessedCount returns the number of recorded items.
func (db *DB) ProcessedCount(ctx context.Context) (int, error) {
	var n int
	if err := db.GetContext(ctx, &n, "SELECT COUNT(*) FROM processed_items"); err != nil {
		return 0, fmt.Errorf("failed to count processed items: %w", err)
	}
	return n, nil
}

// PurgeOlderThan deletes history rows older than retentionDays, which lets
// a URL be summarized again once it has long left the active file.
func (db *DB) PurgeOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retentionDays must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	log.Info().
		Time("cutoff", cutoff).
		Int("retention_days", retentionDays).
		Msg("Purging old processed items")

	res, err := db.ExecContext(ctx, "DELETE FROM processed_items WHERE processed_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge processed items: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Warn().Err(err).Msg("Could not get RowsAffected after purge")
		return 0, nil
	}

	log.Info().Int64("rows_affected", n).Msg("Purged old processed items")
	return n, nil
}
