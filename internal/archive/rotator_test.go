package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/store"
)

var rotationNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestRotator(st Store) *Rotator {
	return NewRotator(st, Options{
		Location: time.UTC,
		Now:      func() time.Time { return rotationNow },
	})
}

func article(id string, age time.Duration) models.NewsSummary {
	return models.NewsSummary{
		ID:        models.ArticleID(id),
		Title:     "Article " + id,
		URL:       models.StringPtr("https://example.com/" + id),
		Summary:   "summary",
		KeyPoints: []string{},
		Category:  "AI",
		Sentiment: models.SentimentNeutral,
		CreatedAt: rotationNow.Add(-age),
	}
}

func days(n float64) time.Duration {
	return time.Duration(n * float64(24*time.Hour))
}

func seedNews(t *testing.T, st *store.FileStore, generated time.Time, articles ...models.NewsSummary) {
	t.Helper()
	if err := st.SaveNews(&models.NewsData{GeneratedAt: generated, Articles: articles}); err != nil {
		t.Fatalf("seed news: %v", err)
	}
}

func ids(articles []models.NewsSummary) []models.ArticleID {
	out := make([]models.ArticleID, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func TestRotateMissingActiveFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := newTestRotator(store.NewFileStore(dir)).Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res != (Result{}) {
		t.Fatalf("got %+v, want zero result", res)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected no files written, found %d", len(entries))
	}
}

func TestRotateNothingToArchiveLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st := store.NewFileStore(dir)
	seedNews(t, st, rotationNow.Add(-time.Hour), article("a", days(1)), article("b", days(29)))

	path := filepath.Join(dir, store.NewsFile)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	res, err := newTestRotator(st).Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res != (Result{Archived: 0, Remaining: 2}) {
		t.Fatalf("got %+v", res)
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatalf("active file changed")
	}
	if _, err := st.LoadStats(); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("stats should not be written, got %v", err)
	}
}

func TestRotateScenarioTwoMonths(t *testing.T) {
	t.Parallel()

	st := store.NewFileStore(t.TempDir())
	generated := rotationNow.Add(-6 * time.Hour)
	seedNews(t, st, generated,
		article("1", days(10)),
		article("2", days(35)),
		article("3", days(45)),
	)

	res, err := newTestRotator(st).Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res != (Result{Archived: 2, Remaining: 1}) {
		t.Fatalf("got %+v", res)
	}

	months, err := st.ListArchiveMonths()
	if err != nil {
		t.Fatalf("ListArchiveMonths: %v", err)
	}
	if !reflect.DeepEqual(months, []string{"2025-02", "2025-01"}) {
		t.Fatalf("unexpected months %v", months)
	}

	feb, err := st.LoadArchive("2025-02")
	if err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}
	if !reflect.DeepEqual(ids(feb.Articles), []models.ArticleID{"2"}) || !feb.ArchivedAt.Equal(rotationNow) {
		t.Fatalf("unexpected february archive %+v", feb)
	}

	news, err := st.LoadNews()
	if err != nil {
		t.Fatalf("LoadNews: %v", err)
	}
	if !news.GeneratedAt.Equal(generated) {
		t.Fatalf("generatedAt changed: %v", news.GeneratedAt)
	}
	if !reflect.DeepEqual(ids(news.Articles), []models.ArticleID{"1"}) {
		t.Fatalf("unexpected active articles %v", ids(news.Articles))
	}

	stats, err := st.LoadStats()
	if err != nil {
		t.Fatalf("LoadStats: %v", err)
	}
	want := &models.NewsStats{
		TotalArticles:    3,
		ActiveArticles:   1,
		ArchivedArticles: 2,
		MonthlyStats: []models.MonthlyStats{
			{Month: "2025-02", Count: 1},
			{Month: "2025-01", Count: 1},
		},
		LastUpdated: rotationNow,
	}
	if !reflect.DeepEqual(stats, want) {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestRotateAcceptsDateOnlyCreatedAt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	raw := `{
  "generatedAt": "2025-03-15",
  "articles": [
    {"id": "old", "title": "old", "url": null, "summary": "s", "keyPoints": [], "category": "AI", "sentiment": "neutral", "createdAt": "2025-01-02"},
    {"id": "new", "title": "new", "url": null, "summary": "s", "keyPoints": [], "category": "AI", "sentiment": "neutral", "createdAt": "2025-03-14T08:00:00Z"}
  ]
}`
	if err := os.WriteFile(filepath.Join(dir, store.NewsFile), []byte(raw), 0o644); err != nil {
		t.Fatalf("write news: %v", err)
	}

	st := store.NewFileStore(dir)
	res, err := newTestRotator(st).Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res != (Result{Archived: 1, Remaining: 1}) {
		t.Fatalf("got %+v", res)
	}

	jan, err := st.LoadArchive("2025-01")
	if err != nil {
		t.Fatalf("LoadArchive: %v", err)
	}
	if !reflect.DeepEqual(ids(jan.Articles), []models.ArticleID{"old"}) {
		t.Fatalf("unexpected january archive %v", ids(jan.Articles))
	}
	if want := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC); !jan.Articles[0].CreatedAt.Equal(want) {
		t.Fatalf("createdAt = %v, want %v", jan.Articles[0].CreatedAt, want)
	}

	news, err := st.LoadNews()
	if err != nil {
		t.Fatalf("LoadNews: %v", err)
	}
	if !reflect.DeepEqual(ids(news.Articles), []models.ArticleID{"new"}) {
		t.Fatalf("unexpected active articles %v", ids(news.Articles))
	}
}

func TestRotateThresholdIsStrict(t *testing.T) {
	t.Parallel()

	st := store.NewFileStore(t.TempDir())
	seedNews(t, st, rotationNow,
		article("exact", days(30)),
		article("over", days(30.0001)),
	)

	res, err := newTestRotator(st).Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res != (Result{Archived: 1, Remaining: 1}) {
		t.Fatalf("got %+v", res)
	}

	news, _ := st.LoadNews()
	if news.Articles[0].ID != "exact" {
		t.Fatalf("30-day article should stay active, got %v", ids(news.Articles))
	}
}

func TestRotateDoesNotDuplicateArchivedIDs(t *testing.T) {
	t.Parallel()

	st := store.NewFileStore(t.TempDir())
	existing := article("2", days(35))
	older := article("9", days(40))
	if err := st.SaveArchive(&models.ArchiveData{
		Month:      "2025-02",
		ArchivedAt: rotationNow.Add(-24 * time.Hour),
		Articles:   []models.NewsSummary{existing, older},
	}); err != nil {
		t.Fatalf("seed archive: %v", err)
	}
	seedNews(t, st, rotationNow, article("2", days(35)), article("5", days(33)))

	res, err := newTestRotator(st).Rotate(context.Background())
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if res.Archived != 2 || res.Remaining != 0 {
		t.Fatalf("got %+v", res)
	}

	feb, _ := st.LoadArchive("2025-02")
	if got := ids(feb.Articles); !reflect.DeepEqual(got, []models.ArticleID{"5", "2", "9"}) {
		t.Fatalf("archive ids = %v", got)
	}

	stats, _ := st.LoadStats()
	if stats.TotalArticles != stats.ActiveArticles+stats.ArchivedArticles {
		t.Fatalf("inconsistent stats %+v", stats)
	}
	if stats.ArchivedArticles != 3 {
		t.Fatalf("archived = %d, want 3", stats.ArchivedArticles)
	}
}

func TestRotateIsIdempotent(t *testing.T) {
	t.Parallel()

	st := store.NewFileStore(t.TempDir())
	original := []models.NewsSummary{article("1", days(31)), article("2", days(32)), article("3", days(2))}
	seedNews(t, st, rotationNow, original...)

	r := newTestRotator(st)
	if _, err := r.Rotate(context.Background()); err != nil {
		t.Fatalf("first Rotate: %v", err)
	}
	first, _ := st.LoadArchive("2025-02")

	// Replaying the same active file must not grow the archive.
	seedNews(t, st, rotationNow, original...)
	if _, err := r.Rotate(context.Background()); err != nil {
		t.Fatalf("second Rotate: %v", err)
	}
	second, _ := st.LoadArchive("2025-02")

	if !reflect.DeepEqual(first.Articles, second.Articles) {
		t.Fatalf("archive changed between runs:\nfirst=%v\nsecond=%v", ids(first.Articles), ids(second.Articles))
	}

	stats, _ := st.LoadStats()
	if stats.TotalArticles != 3 || stats.ActiveArticles != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestMonthKeyUsesLocation(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*60*60)
	ts := time.Date(2025, 1, 31, 20, 0, 0, 0, time.UTC)
	if got := MonthKey(ts, time.UTC); got != "2025-01" {
		t.Fatalf("utc month = %s", got)
	}
	if got := MonthKey(ts, jst); got != "2025-02" {
		t.Fatalf("jst month = %s", got)
	}
}
