package sources

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"ainews/aggregator/internal/models"
)

type stubSource struct {
	cfg   SourceConfig
	items []models.NewsItem
	err   error
	panic bool
	limit int
}

func (s *stubSource) Config() SourceConfig { return s.cfg }

func (s *stubSource) FetchNews(_ context.Context, limit int) ([]models.NewsItem, error) {
	s.limit = limit
	if s.panic {
		panic("boom")
	}
	return s.items, s.err
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func item(id, url string, hoursAgo int, src models.SourceType) models.NewsItem {
	return models.NewsItem{
		ID:          id,
		Title:       "title " + id,
		URL:         url,
		PublishedAt: base.Add(-time.Duration(hoursAgo) * time.Hour),
		Source:      src,
	}
}

func itemIDs(items []models.NewsItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func TestFetchAllDeduplicatesAndSorts(t *testing.T) {
	t.Parallel()

	hn := &stubSource{
		cfg: SourceConfig{Name: "hn", Type: models.SourceHackerNews, Language: English, Enabled: true},
		items: []models.NewsItem{
			item("hn-1", "https://example.com/a", 5, models.SourceHackerNews),
			item("hn-2", "", 1, models.SourceHackerNews),
		},
	}
	reddit := &stubSource{
		cfg: SourceConfig{Name: "reddit", Type: models.SourceReddit, Language: English, Enabled: true},
		items: []models.NewsItem{
			// Same URL as hn-1 but newer: registration order still wins.
			item("reddit-1", "https://example.com/a", 0, models.SourceReddit),
			item("reddit-2", "", 3, models.SourceReddit),
			item("reddit-3", "https://example.com/b", 2, models.SourceReddit),
		},
	}

	m := NewManager(hn, reddit)
	got := m.FetchAll(context.Background(), 7, Options{})

	want := []string{"hn-2", "reddit-3", "reddit-2", "hn-1"}
	if !reflect.DeepEqual(itemIDs(got), want) {
		t.Fatalf("got %v, want %v", itemIDs(got), want)
	}
	if hn.limit != 7 || reddit.limit != 7 {
		t.Fatalf("limit not forwarded: hn=%d reddit=%d", hn.limit, reddit.limit)
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	t.Parallel()

	ok := &stubSource{
		cfg:   SourceConfig{Name: "ok", Type: models.SourceQiita, Language: Japanese, Enabled: true},
		items: []models.NewsItem{item("q-1", "https://qiita.com/x", 1, models.SourceQiita)},
	}
	failing := &stubSource{
		cfg: SourceConfig{Name: "failing", Type: models.SourceITmedia, Language: Japanese, Enabled: true},
		err: errors.New("network down"),
	}
	panicking := &stubSource{
		cfg:   SourceConfig{Name: "panicking", Type: models.SourceLedge, Language: Japanese, Enabled: true},
		panic: true,
	}

	got := NewManager(failing, panicking, ok).FetchAll(context.Background(), 5, Options{})
	if !reflect.DeepEqual(itemIDs(got), []string{"q-1"}) {
		t.Fatalf("got %v", itemIDs(got))
	}
}

func TestFetchAllNoSources(t *testing.T) {
	t.Parallel()

	got := NewManager().FetchAll(context.Background(), 5, Options{})
	if len(got) != 0 {
		t.Fatalf("expected no items, got %d", len(got))
	}
}

func TestEnabledSourcesFilters(t *testing.T) {
	t.Parallel()

	hn := &stubSource{cfg: SourceConfig{Name: "hn", Type: models.SourceHackerNews, Language: English, Enabled: true}}
	blogs := &stubSource{cfg: SourceConfig{Name: "blogs", Type: models.SourceBlog, Language: English, Enabled: false}}
	qiita := &stubSource{cfg: SourceConfig{Name: "qiita", Type: models.SourceQiita, Language: Japanese, Enabled: true}}
	m := NewManager(hn, blogs, qiita)

	names := func(srcs []Source) []string {
		var out []string
		for _, s := range srcs {
			out = append(out, s.Config().Name)
		}
		return out
	}

	tests := []struct {
		name string
		opts Options
		want []string
	}{
		{"all enabled", Options{}, []string{"hn", "qiita"}},
		{"allow list", Options{EnabledSources: []models.SourceType{models.SourceQiita, models.SourceBlog}}, []string{"qiita"}},
		{"japanese only", Options{JapaneseOnly: true}, []string{"qiita"}},
		{"english only", Options{EnglishOnly: true}, []string{"hn"}},
		{"both languages", Options{JapaneseOnly: true, EnglishOnly: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(m.EnabledSources(tt.opts))
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFetchJapanese(t *testing.T) {
	t.Parallel()

	hn := &stubSource{
		cfg:   SourceConfig{Name: "hn", Type: models.SourceHackerNews, Language: English, Enabled: true},
		items: []models.NewsItem{item("hn-1", "https://example.com/1", 1, models.SourceHackerNews)},
	}
	qiita := &stubSource{
		cfg:   SourceConfig{Name: "qiita", Type: models.SourceQiita, Language: Japanese, Enabled: true},
		items: []models.NewsItem{item("q-1", "https://example.com/2", 1, models.SourceQiita)},
	}

	got := NewManager(hn, qiita).FetchJapanese(context.Background(), 3)
	if !reflect.DeepEqual(itemIDs(got), []string{"q-1"}) {
		t.Fatalf("got %v", itemIDs(got))
	}
}

func TestOptionsForMode(t *testing.T) {
	t.Parallel()

	opts, err := OptionsForMode("reddit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(opts.EnabledSources, []models.SourceType{models.SourceReddit}) {
		t.Fatalf("got %v", opts.EnabledSources)
	}

	opts, err = OptionsForMode("japan")
	if err != nil || !opts.JapaneseOnly {
		t.Fatalf("japan mode: %+v, %v", opts, err)
	}

	if _, err := OptionsForMode("mastodon"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestDeduplicateKeepsURLlessItems(t *testing.T) {
	t.Parallel()

	in := []models.NewsItem{
		item("a", "", 0, models.SourceLedge),
		item("b", "", 0, models.SourceLedge),
		item("c", "https://x", 0, models.SourceLedge),
		item("d", "https://x", 0, models.SourceLedge),
	}
	got := Deduplicate(in)
	if !reflect.DeepEqual(itemIDs(got), []string{"a", "b", "c"}) {
		t.Fatalf("got %v", itemIDs(got))
	}
}

func TestNewDefaultManagerOrder(t *testing.T) {
	t.Parallel()

	m := NewDefaultManager(nil, nil)
	var got []models.SourceType
	for _, cfg := range m.List() {
		got = append(got, cfg.Type)
	}
	want := []models.SourceType{
		models.SourceHackerNews, models.SourceReddit, models.SourceBlog, models.SourceITmedia,
		models.SourceQiita, models.SourceAINOW, models.SourceLedge, models.SourceAIShinbun,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
