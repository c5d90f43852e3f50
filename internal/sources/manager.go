package sources

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
)

// Options narrows the set of adapters a fetch uses.
type Options struct {
	// EnabledSources, when non-empty, is an allow-list of source types.
	EnabledSources []models.SourceType
	JapaneseOnly   bool
	EnglishOnly    bool
}

// OptionsForMode maps a CLI source mode onto Options.
func OptionsForMode(mode string) (Options, error) {
	switch mode {
	case "", "all":
		return Options{}, nil
	case "hackernews":
		return Options{EnabledSources: []models.SourceType{models.SourceHackerNews}}, nil
	case "reddit":
		return Options{EnabledSources: []models.SourceType{models.SourceReddit}}, nil
	case "blogs":
		return Options{EnabledSources: []models.SourceType{models.SourceBlog}}, nil
	case "japan":
		return Options{JapaneseOnly: true}, nil
	}
	return Options{}, fmt.Errorf("unknown source mode %q (want hackernews, reddit, blogs, japan or all)", mode)
}

// Manager is the registry of adapters. Registration order is significant:
// it decides which item survives URL deduplication.
type Manager struct {
	sources []Source
}

// NewManager registers sources in the given order.
func NewManager(sources ...Source) *Manager {
	return &Manager{sources: sources}
}

// List returns the configuration of every registered source.
func (m *Manager) List() []SourceConfig {
	out := make([]SourceConfig, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s.Config())
	}
	return out
}

// EnabledSources applies the enabled flag, then the allow-list, then the
// language filters. Setting both language filters yields no sources.
func (m *Manager) EnabledSources(opts Options) []Source {
	var out []Source
	for _, s := range m.sources {
		cfg := s.Config()
		if !cfg.Enabled {
			continue
		}
		if len(opts.EnabledSources) > 0 && !slices.Contains(opts.EnabledSources, cfg.Type) {
			continue
		}
		if opts.JapaneseOnly && cfg.Language != Japanese {
			continue
		}
		if opts.EnglishOnly && cfg.Language != English {
			continue
		}
		out = append(out, s)
	}
	return out
}

// FetchAll queries every enabled source concurrently and waits for all of
// them. A failing source is logged and contributes nothing. The merged items
// are deduplicated by URL (first registered source wins, URL-less items are
// always kept) and sorted newest first.
func (m *Manager) FetchAll(ctx context.Context, limitPerSource int, opts Options) []models.NewsItem {
	enabled := m.EnabledSources(opts)
	names := make([]string, 0, len(enabled))
	for _, s := range enabled {
		names = append(names, s.Config().Name)
	}
	log.Info().Int("sources", len(enabled)).Strs("names", names).Msg("Fetching news")

	results := make([][]models.NewsItem, len(enabled))
	var wg sync.WaitGroup
	for i, s := range enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = fetchOne(ctx, s, limitPerSource)
		}()
	}
	wg.Wait()

	var all []models.NewsItem
	for _, items := range results {
		all = append(all, items...)
	}

	merged := Deduplicate(all)
	SortNewestFirst(merged)

	log.Info().Int("fetched", len(all)).Int("unique", len(merged)).Msg("Fetched news from all sources")
	return merged
}

// FetchJapanese is FetchAll restricted to Japanese sources.
func (m *Manager) FetchJapanese(ctx context.Context, limitPerSource int) []models.NewsItem {
	return m.FetchAll(ctx, limitPerSource, Options{JapaneseOnly: true})
}

func fetchOne(ctx context.Context, s Source, limit int) (items []models.NewsItem) {
	cfg := s.Config()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("source", cfg.Name).Interface("panic", r).Msg("Source panicked")
			items = nil
		}
	}()

	items, err := s.FetchNews(ctx, limit)
	if err != nil {
		log.Error().Err(err).Str("source", cfg.Name).Msg("Failed to fetch from source")
		return nil
	}
	log.Info().Str("source", cfg.Name).Int("items", len(items)).Msg("Source fetched")
	return items
}

// Deduplicate keeps the first item for every non-empty URL.
func Deduplicate(items []models.NewsItem) []models.NewsItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		if it.URL != "" {
			if _, dup := seen[it.URL]; dup {
				continue
			}
			seen[it.URL] = struct{}{}
		}
		out = append(out, it)
	}
	return out
}

// SortNewestFirst orders items by PublishedAt descending. Ties keep their
// input order.
func SortNewestFirst(items []models.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
}
