package database

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ainews/aggregator/internal/database/migrations"
	"ainews/aggregator/internal/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(NewConfig(filepath.Join(t.TempDir(), "nested", "history.db")))
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func processed(url string, at time.Time) models.ProcessedItem {
	return models.ProcessedItem{
		ItemID:      "id-" + url,
		URL:         url,
		Source:      string(models.SourceHackerNews),
		Title:       "title",
		Mode:        models.ModeSimple,
		ProcessedAt: at,
	}
}

func TestMarkAndLookupProcessed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	now := time.Now().UTC()
	inserted, dups, err := db.MarkProcessed(ctx, []models.ProcessedItem{
		processed("https://a", now),
		processed("https://b", now),
		processed("", now),
	})
	if err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if inserted != 2 || dups != 0 {
		t.Fatalf("got inserted=%d duplicates=%d", inserted, dups)
	}

	inserted, dups, err = db.MarkProcessed(ctx, []models.ProcessedItem{
		processed("https://b", now),
		processed("https://c", now),
	})
	if err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if inserted != 1 || dups != 1 {
		t.Fatalf("got inserted=%d duplicates=%d", inserted, dups)
	}

	seen, err := db.AlreadyProcessed(ctx, []string{"https://a", "https://c", "https://z"})
	if err != nil {
		t.Fatalf("AlreadyProcessed: %v", err)
	}
	if !reflect.DeepEqual(seen, map[string]bool{"https://a": true, "https://c": true}) {
		t.Fatalf("got %v", seen)
	}

	if n, err := db.ProcessedCount(ctx); err != nil || n != 3 {
		t.Fatalf("ProcessedCount = %d, %v", n, err)
	}
}

func TestAlreadyProcessedEmpty(t *testing.T) {
	t.Parallel()

	seen, err := openTestDB(t).AlreadyProcessed(context.Background(), nil)
	if err != nil || len(seen) != 0 {
		t.Fatalf("got %v, %v", seen, err)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openTestDB(t)

	now := time.Now().UTC()
	if _, _, err := db.MarkProcessed(ctx, []models.ProcessedItem{
		processed("https://old", now.AddDate(0, 0, -100)),
		processed("https://recent", now.AddDate(0, 0, -10)),
	}); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	n, err := db.PurgeOlderThan(ctx, 90)
	if err != nil {
		t.Fatalf("PurgeOlderThan: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged row, got %d", n)
	}
	seen, _ := db.AlreadyProcessed(ctx, []string{"https://old", "https://recent"})
	if seen["https://old"] || !seen["https://recent"] {
		t.Fatalf("unexpected remaining rows %v", seen)
	}

	if _, err := db.PurgeOlderThan(ctx, 0); err == nil {
		t.Fatal("expected error for non-positive retention")
	}
}

func TestMigrationsRollback(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)

	files, err := migrations.LoadMigrations(migrations.Files, migrations.Dir)
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(files) == 0 || files[0].Version != 1 || files[0].Name != "processed_items" || files[0].Down == "" {
		t.Fatalf("unexpected migrations %+v", files)
	}

	if err := migrations.RollbackMigrations(db.DB.DB, files, 1); err != nil {
		t.Fatalf("RollbackMigrations: %v", err)
	}
	if _, err := db.ProcessedCount(context.Background()); err == nil {
		t.Fatal("processed_items should be gone after rollback")
	}

	// Re-applying restores the schema.
	if err := migrations.RunMigrations(db.DB.DB, files); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if _, err := db.ProcessedCount(context.Background()); err != nil {
		t.Fatalf("ProcessedCount after re-apply: %v", err)
	}
}
