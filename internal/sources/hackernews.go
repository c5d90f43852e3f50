package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"ainews/aggregator/internal/models"
)

const HackerNewsAPI = "https://hacker-news.firebaseio.com/v0"

type hnStory struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// HackerNewsOptions configures the Hacker News adapter.
type HackerNewsOptions struct {
	BaseURL     string
	Enabled     bool
	TopStories  int
	Concurrency int
	Keywords    []string
}

// HackerNews reads the top stories and keeps the AI related ones.
type HackerNews struct {
	client      *http.Client
	baseURL     string
	enabled     bool
	topStories  int
	concurrency int
	keywords    *regexp.Regexp
}

func NewHackerNews(client *http.Client, opts HackerNewsOptions) *HackerNews {
	if opts.BaseURL == "" {
		opts.BaseURL = HackerNewsAPI
	}
	if opts.TopStories <= 0 {
		opts.TopStories = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 10
	}
	return &HackerNews{
		client:      client,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		enabled:     opts.Enabled,
		topStories:  opts.TopStories,
		concurrency: opts.Concurrency,
		keywords:    keywordPattern(opts.Keywords),
	}
}

// keywordPattern builds a case-insensitive whole-word matcher so that "ai"
// matches "AI agents" but not "said". Word boundaries are only required on
// keyword edges that are word characters, so "c++" and ".net" still match.
func keywordPattern(keywords []string) *regexp.Regexp {
	if len(keywords) == 0 {
		return nil
	}
	quoted := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			quoted = append(quoted, keywordAlternative(k))
		}
	}
	if len(quoted) == 0 {
		return nil
	}
	return regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
}

func keywordAlternative(k string) string {
	q := regexp.QuoteMeta(k)
	if isWordByte(k[0]) {
		q = `\b` + q
	}
	if isWordByte(k[len(k)-1]) {
		q += `\b`
	}
	return q
}

// isWordByte mirrors the ASCII class \b is defined over.
func isWordByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func (h *HackerNews) Config() SourceConfig {
	return SourceConfig{Name: "Hacker News", Type: models.SourceHackerNews, Language: English, Enabled: h.enabled}
}

// IsAIRelated reports whether a title mentions one of the keywords.
func (h *HackerNews) IsAIRelated(title string) bool {
	return h.keywords == nil || h.keywords.MatchString(title)
}

func (h *HackerNews) FetchNews(ctx context.Context, limit int) ([]models.NewsItem, error) {
	var ids []int64
	if err := getJSON(ctx, h.client, h.baseURL+"/topstories.json", nil, &ids); err != nil {
		return nil, fmt.Errorf("failed to fetch top stories: %w", err)
	}
	if len(ids) > h.topStories {
		ids = ids[:h.topStories]
	}

	stories := make([]*hnStory, len(ids))
	var g errgroup.Group
	g.SetLimit(h.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			var s hnStory
			if err := getJSON(ctx, h.client, fmt.Sprintf("%s/item/%d.json", h.baseURL, id), nil, &s); err != nil {
				log.Debug().Err(err).Int64("hn_id", id).Msg("Skipping story")
				return nil
			}
			stories[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []models.NewsItem
	for _, s := range stories {
		if limit > 0 && len(items) >= limit {
			break
		}
		if s == nil || s.Type != "story" || s.Dead || s.Deleted || !h.IsAIRelated(s.Title) {
			continue
		}
		items = append(items, models.NewsItem{
			ID:          fmt.Sprintf("hn-%d", s.ID),
			Title:       s.Title,
			URL:         s.URL,
			Author:      s.By,
			PublishedAt: time.Unix(s.Time, 0),
			Source:      models.SourceHackerNews,
			Metadata: models.HackerNewsMetadata{
				HNID:     s.ID,
				Score:    s.Score,
				Comments: s.Descendants,
			},
		})
	}

	log.Debug().Int("checked", len(ids)).Int("matched", len(items)).Msg("Filtered Hacker News stories")
	return items, nil
}
