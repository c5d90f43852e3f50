package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"ainews/aggregator/internal/models"
)

const (
	RedditBaseURL   = "https://www.reddit.com"
	RedditUserAgent = "ai-news-pipeline/1.0"
)

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied"`
	Over18      bool    `json:"over_18"`
}

// RedditOptions configures the Reddit adapter.
type RedditOptions struct {
	BaseURL      string
	Enabled      bool
	Subreddits   []string
	Sort         string // hot, top or new
	Timeframe    string // only sent with sort=top
	MinScore     int
	PerSubreddit int
	// Interval is the minimum spacing between two subreddit requests.
	Interval time.Duration
}

// Reddit reads listings from a set of subreddits.
type Reddit struct {
	client  *http.Client
	opts    RedditOptions
	limiter *rate.Limiter
}

func NewReddit(client *http.Client, opts RedditOptions) *Reddit {
	if opts.BaseURL == "" {
		opts.BaseURL = RedditBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Sort == "" {
		opts.Sort = "hot"
	}
	if opts.Timeframe == "" {
		opts.Timeframe = "day"
	}
	if opts.PerSubreddit <= 0 {
		opts.PerSubreddit = 50
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &Reddit{
		client:  client,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(opts.Interval), 1),
	}
}

func (r *Reddit) Config() SourceConfig {
	return SourceConfig{Name: "Reddit", Type: models.SourceReddit, Language: English, Enabled: r.opts.Enabled}
}

func (r *Reddit) listingURL(subreddit string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(r.opts.PerSubreddit))
	if r.opts.Sort == "top" {
		q.Set("t", r.opts.Timeframe)
	}
	return fmt.Sprintf("%s/r/%s/%s.json?%s", r.opts.BaseURL, url.PathEscape(subreddit), r.opts.Sort, q.Encode())
}

func (r *Reddit) fetchSubreddit(ctx context.Context, subreddit string) ([]redditPost, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var listing redditListing
	err := getJSON(ctx, r.client, r.listingURL(subreddit), map[string]string{"User-Agent": RedditUserAgent}, &listing)
	if err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, c := range listing.Data.Children {
		if c.Data.Stickied || c.Data.Over18 {
			continue
		}
		posts = append(posts, c.Data)
	}
	return posts, nil
}

func (r *Reddit) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var (
		all  []redditPost
		errs []error
	)
	for _, sub := range r.opts.Subreddits {
		posts, err := r.fetchSubreddit(ctx, sub)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			ev := log.Warn().Err(err).Str("subreddit", sub)
			if errors.Is(err, ErrRateLimited) {
				ev = ev.Bool("rate_limited", true)
			}
			ev.Msg("Failed to fetch subreddit")
			errs = append(errs, fmt.Errorf("r/%s: %w", sub, err))
			continue
		}
		all = append(all, posts...)
	}

	if len(all) == 0 && len(errs) > 0 && len(errs) == len(r.opts.Subreddits) {
		return nil, errors.Join(errs...)
	}

	filtered := all[:0]
	for _, p := range all {
		if p.Score >= r.opts.MinScore {
			filtered = append(filtered, p)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	items := make([]models.NewsItem, 0, len(filtered))
	for _, p := range filtered {
		link := p.URL
		if p.IsSelf || link == "" {
			link = r.opts.BaseURL + p.Permalink
		}
		items = append(items, models.NewsItem{
			ID:          "reddit-" + p.ID,
			Title:       fmt.Sprintf("[r/%s] %s", p.Subreddit, p.Title),
			URL:         link,
			Author:      p.Author,
			PublishedAt: time.Unix(int64(p.CreatedUTC), 0),
			Source:      models.SourceReddit,
			Metadata: models.RedditMetadata{
				Subreddit: p.Subreddit,
				Score:     p.Score,
				Comments:  p.NumComments,
				Permalink: r.opts.BaseURL + p.Permalink,
			},
		})
	}

	log.Debug().Int("posts", len(all)).Int("kept", len(items)).Int("min_score", r.opts.MinScore).Msg("Filtered Reddit posts")
	return items, nil
}
