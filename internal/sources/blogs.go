package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/reddot-watch/feedfetcher"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/config"
	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
)

const (
	blogUserAgent    = "ai-news-pipeline/1.0 (+feed reader)"
	blogMaxAge       = 30 * 24 * time.Hour
	blogFeedTimeout  = 2 * time.Minute
	blogMaxHeading   = 300
	blogMaxFeedItems = 100
)

// Blogs polls the RSS/Atom feeds of AI lab blogs.
type Blogs struct {
	fetcher *feedfetcher.FeedFetcher
	feeds   []config.BlogFeed
	enabled bool
}

// NewBlogs creates the adapter. maxAge bounds how old a post may be; zero
// keeps the default of 30 days.
func NewBlogs(feeds []config.BlogFeed, enabled bool, maxAge time.Duration) *Blogs {
	if maxAge <= 0 {
		maxAge = blogMaxAge
	}
	return &Blogs{
		fetcher: feedfetcher.NewFeedFetcher(feedfetcher.Config{
			UserAgent:            blogUserAgent,
			RequestTimeout:       defaultRequestTimeout,
			MaxItems:             blogMaxFeedItems,
			MaxHeadingLength:     blogMaxHeading,
			MaxAge:               maxAge,
			FutureDriftTolerance: 12 * time.Hour,
		}),
		feeds:   feeds,
		enabled: enabled,
	}
}

func (b *Blogs) Config() SourceConfig {
	return SourceConfig{Name: "AI Blogs", Type: models.SourceBlog, Language: English, Enabled: b.enabled}
}

// FetchNews takes up to limit posts from each feed. One broken feed does not
// affect the others; the call only fails when every feed failed.
func (b *Blogs) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var (
		items []models.NewsItem
		errs  []error
	)

	for _, feed := range b.feeds {
		feedCtx, cancel := context.WithTimeout(ctx, blogFeedTimeout)
		fetched, err := b.fetcher.FetchAndProcess(feedCtx, feed.FeedURL)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("blog", feed.Name).Str("url", feed.FeedURL).Msg("Failed to fetch blog feed")
			errs = append(errs, fmt.Errorf("%s: %w", feed.Name, err))
			continue
		}

		n := 0
		for _, it := range fetched {
			if limit > 0 && n >= limit {
				break
			}
			if it.URL == "" {
				continue
			}
			title := it.Headline
			if title == "" {
				title = "Untitled"
			}
			estimated := it.PublishedAt.IsZero()
			published := it.PublishedAt
			if estimated {
				published = time.Now()
			}
			items = append(items, models.NewsItem{
				ID:            feed.ID + "-" + normalize.ShortHash(it.URL),
				Title:         title,
				URL:           it.URL,
				Author:        feed.Name,
				PublishedAt:   published,
				DateEstimated: estimated,
				Source:        models.SourceBlog,
				Metadata: models.FeedMetadata{
					Feed:        feed.Name,
					Description: normalize.Truncate(normalize.CleanText(it.Content), 500),
				},
			})
			n++
		}
		log.Debug().Str("blog", feed.Name).Int("items", n).Msg("Blog feed fetched")
	}

	if len(items) == 0 && len(errs) > 0 && len(errs) == len(b.feeds) {
		return nil, errors.Join(errs...)
	}

	SortNewestFirst(items)
	return items, nil
}
