package sources

import (
	"net/http"

	"ainews/aggregator/internal/config"
)

// NewDefaultManager builds every adapter described by cfg, registered in the
// order that decides URL deduplication: Hacker News, Reddit, blogs, then the
// Japanese sources.
func NewDefaultManager(cfg *config.SourcesConfig, client *http.Client) *Manager {
	if cfg == nil {
		cfg = config.DefaultSources()
	}
	if client == nil {
		client = NewHTTPClient()
	}

	var itmediaFeed string
	if len(cfg.ITmedia.Feeds) > 0 {
		itmediaFeed = cfg.ITmedia.Feeds[0]
	}

	return NewManager(
		NewHackerNews(client, HackerNewsOptions{
			Enabled:     cfg.HackerNews.Enabled,
			TopStories:  cfg.HackerNews.TopStories,
			Concurrency: cfg.HackerNews.Concurrency,
			Keywords:    cfg.HackerNews.Keywords,
		}),
		NewReddit(client, RedditOptions{
			Enabled:      cfg.Reddit.Enabled,
			Subreddits:   cfg.Reddit.Subreddits,
			Sort:         cfg.Reddit.Sort,
			Timeframe:    cfg.Reddit.Timeframe,
			MinScore:     cfg.Reddit.MinScore,
			PerSubreddit: cfg.Reddit.PerSubreddit,
			Interval:     cfg.Reddit.Interval,
		}),
		NewBlogs(cfg.Blogs.Feeds, cfg.Blogs.Enabled, 0),
		NewITmedia(client, itmediaFeed, cfg.ITmedia.Enabled),
		NewQiita(client, cfg.Qiita.Feeds, cfg.Qiita.Enabled),
		NewAINOW(client, cfg.AINOW.URL, cfg.AINOW.Enabled),
		NewLedge(client, cfg.Ledge.URL, cfg.Ledge.Enabled),
		NewAIShinbun(client, cfg.AIShinbun.URL, cfg.AIShinbun.Enabled),
	)
}
