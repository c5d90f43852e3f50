package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

const ITmediaFeedURL = "https://rss.itmedia.co.jp/rss/2.0/aiplus.xml"

// ITmedia reads the ITmedia AI+ RSS feed.
type ITmedia struct {
	client  *http.Client
	feedURL string
	enabled bool
}

func NewITmedia(client *http.Client, feedURL string, enabled bool) *ITmedia {
	if feedURL == "" {
		feedURL = ITmediaFeedURL
	}
	return &ITmedia{client: client, feedURL: feedURL, enabled: enabled}
}

func (s *ITmedia) Config() SourceConfig {
	return SourceConfig{Name: "ITmedia AI+", Type: models.SourceITmedia, Language: Japanese, Enabled: s.enabled}
}

func (s *ITmedia) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	feed, err := fetchFeed(ctx, s.client, s.feedURL)
	if err != nil {
		return nil, err
	}
	if feed == nil {
		return nil, errors.New("empty feed")
	}

	entries := feed.Items
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]models.NewsItem, 0, len(entries))
	for i, e := range entries {
		id := e.GUID
		if id == "" {
			id = strconv.Itoa(i)
		}
		title := e.Title
		if title == "" {
			title = "Untitled"
		}
		published, ok := normalize.ParseTime(e.PublishedParsed, e.Published)
		items = append(items, models.NewsItem{
			ID:            fmt.Sprintf("itmedia-%s", id),
			Title:         title,
			URL:           e.Link,
			Author:        feedAuthor(e),
			PublishedAt:   published,
			DateEstimated: !ok,
			Source:        models.SourceITmedia,
			Metadata: models.FeedMetadata{
				Feed:        "ITmedia AI+",
				Description: normalize.CleanText(e.Description),
			},
		})
	}
	return items, nil
}
