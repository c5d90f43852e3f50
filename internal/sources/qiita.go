package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

// Qiita merges several Qiita tag feeds (Atom).
type Qiita struct {
	client  *http.Client
	feeds   []string
	enabled bool
}

func NewQiita(client *http.Client, feeds []string, enabled bool) *Qiita {
	return &Qiita{client: client, feeds: feeds, enabled: enabled}
}

func (s *Qiita) Config() SourceConfig {
	return SourceConfig{Name: "Qiita", Type: models.SourceQiita, Language: Japanese, Enabled: s.enabled}
}

// FetchNews reads every tag feed, drops links already seen in an earlier
// feed and returns the newest limit entries.
func (s *Qiita) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var (
		items []models.NewsItem
		errs  []error
	)
	seen := make(map[string]struct{})

	for _, feedURL := range s.feeds {
		feed, err := fetchFeed(ctx, s.client, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("url", feedURL).Msg("Failed to fetch Qiita feed")
			errs = append(errs, err)
			continue
		}

		for _, e := range feed.Items {
			if e.Link == "" {
				continue
			}
			if _, dup := seen[e.Link]; dup {
				continue
			}
			seen[e.Link] = struct{}{}

			id := e.GUID
			if id == "" {
				id = e.Link
			}
			title := e.Title
			if title == "" {
				title = "Untitled"
			}
			published, ok := normalize.ParseTime(e.PublishedParsed, e.Published)
			if !ok {
				published, ok = normalize.ParseTime(e.UpdatedParsed, e.Updated)
			}
			desc := e.Content
			if desc == "" {
				desc = e.Description
			}

			items = append(items, models.NewsItem{
				ID:            fmt.Sprintf("qiita-%s", id),
				Title:         title,
				URL:           e.Link,
				Author:        feedAuthor(e),
				PublishedAt:   published,
				DateEstimated: !ok,
				Source:        models.SourceQiita,
				Metadata: models.FeedMetadata{
					Feed:        "Qiita",
					Description: desc,
				},
			})
		}
	}

	if len(items) == 0 && len(errs) > 0 && len(errs) == len(s.feeds) {
		return nil, errors.Join(errs...)
	}

	SortNewestFirst(items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
