package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// BlogFeed is one RSS/Atom feed polled by the blog adapter.
type BlogFeed struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feed_url"`
	SiteURL string `yaml:"site_url"`
}

type HackerNewsSource struct {
	Enabled     bool     `yaml:"enabled"`
	TopStories  int      `yaml:"top_stories"`
	Concurrency int      `yaml:"concurrency"`
	Keywords    []string `yaml:"keywords"`
}

type RedditSource struct {
	Enabled      bool          `yaml:"enabled"`
	Subreddits   []string      `yaml:"subreddits"`
	Sort         string        `yaml:"sort"`
	Timeframe    string        `yaml:"timeframe"`
	MinScore     int           `yaml:"min_score"`
	PerSubreddit int           `yaml:"per_subreddit"`
	Interval     time.Duration `yaml:"interval"`
}

type BlogSource struct {
	Enabled bool       `yaml:"enabled"`
	Feeds   []BlogFeed `yaml:"feeds"`
}

type FeedSource struct {
	Enabled bool     `yaml:"enabled"`
	Feeds   []string `yaml:"feeds"`
}

type PageSource struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// SourcesConfig describes every adapter the registry builds. Any field left
// out of the YAML file keeps its default.
type SourcesConfig struct {
	HackerNews HackerNewsSource `yaml:"hackernews"`
	Reddit     RedditSource     `yaml:"reddit"`
	Blogs      BlogSource       `yaml:"blogs"`
	ITmedia    FeedSource       `yaml:"itmedia"`
	Qiita      FeedSource       `yaml:"qiita"`
	AINOW      PageSource       `yaml:"ainow"`
	Ledge      PageSource       `yaml:"ledge"`
	AIShinbun  PageSource       `yaml:"aishinbun"`
}

// DefaultHNKeywords are matched against Hacker News titles as whole words.
var DefaultHNKeywords = []string{
	"ai", "artificial intelligence", "machine learning", "ml", "deep learning",
	"neural network", "gpt", "llm", "chatgpt", "openai", "anthropic", "claude",
	"gemini", "transformer", "diffusion", "stable diffusion", "midjourney",
	"generative ai", "langchain", "rag", "embedding",
}

// DefaultSources returns the built-in adapter configuration.
func DefaultSources() *SourcesConfig {
	return &SourcesConfig{
		HackerNews: HackerNewsSource{
			Enabled:     true,
			TopStories:  200,
			Concurrency: 10,
			Keywords:    append([]string(nil), DefaultHNKeywords...),
		},
		Reddit: RedditSource{
			Enabled:      true,
			Subreddits:   []string{"MachineLearning", "artificial", "deeplearning", "LocalLLaMA"},
			Sort:         "hot",
			Timeframe:    "day",
			MinScore:     10,
			PerSubreddit: 50,
			Interval:     time.Second,
		},
		Blogs: BlogSource{
			Enabled: true,
			Feeds: []BlogFeed{
				{ID: "openai", Name: "OpenAI", FeedURL: "https://openai.com/news/rss.xml", SiteURL: "https://openai.com"},
				{ID: "google-research", Name: "Google Research", FeedURL: "https://research.google/blog/rss", SiteURL: "https://research.google"},
				{ID: "microsoft-research", Name: "Microsoft Research", FeedURL: "https://www.microsoft.com/en-us/research/blog/feed/", SiteURL: "https://www.microsoft.com/en-us/research"},
				{ID: "huggingface", Name: "Hugging Face", FeedURL: "https://huggingface.co/blog/feed.xml", SiteURL: "https://huggingface.co"},
			},
		},
		ITmedia: FeedSource{
			Enabled: true,
			Feeds:   []string{"https://rss.itmedia.co.jp/rss/2.0/aiplus.xml"},
		},
		Qiita: FeedSource{
			Enabled: true,
			Feeds: []string{
				"https://qiita.com/tags/machinelearning/feed",
				"https://qiita.com/tags/ai/feed",
				"https://qiita.com/tags/llm/feed",
			},
		},
		// The HTML scrapers break whenever the sites change their markup,
		// so they stay opt-in.
		AINOW:     PageSource{Enabled: false, URL: "https://ainow.ai/"},
		Ledge:     PageSource{Enabled: false, URL: "https://ledge.ai/"},
		AIShinbun: PageSource{Enabled: false, URL: "https://community.exawizards.com/aishinbun/"},
	}
}

// LoadSources reads the sources file at path on top of DefaultSources.
// The path may also be an http(s) URL. A missing local file yields the defaults.
func LoadSources(ctx context.Context, path string) (*SourcesConfig, error) {
	cfg := DefaultSources()
	if path == "" {
		return cfg, nil
	}

	data, err := readSourcesFile(ctx, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info().Str("path", path).Msg("Sources file not found, using built-in sources")
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse sources file %s: %w", path, err)
	}

	log.Info().Str("path", path).Msg("Loaded sources file")
	return cfg, nil
}

func readSourcesFile(ctx context.Context, path string) ([]byte, error) {
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		return os.ReadFile(path)
	}

	log.Debug().Str("url", path).Msg("Downloading sources file")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sources request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download sources file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download sources file: HTTP status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
