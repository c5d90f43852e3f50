// Package summarizer turns scraped articles into NewsSummary records, either
// through the LLM or, without one, from the article excerpt.
package summarizer

import (
	"context"
	"fmt"
	"time"

	"ainews/aggregator/internal/llm"
	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/normalize"
	"ainews/aggregator/internal/scraper"
)

// Completer is the part of the LLM client the service needs.
type Completer interface {
	Complete(ctx context.Context, prompt, system string) (*llm.Response, error)
}

type Options struct {
	Language  string
	MaxLength int
}

type Service struct {
	client Completer
	opts   Options
	now    func() time.Time
}

func NewService(client Completer, opts Options) *Service {
	if opts.Language == "" {
		opts.Language = Japanese
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = DefaultMaxLength
	}
	return &Service{client: client, opts: opts, now: time.Now}
}

// Summarize asks the model for a summary of article and returns it with the
// token usage of the call.
func (s *Service) Summarize(ctx context.Context, item models.NewsItem, article *scraper.Article) (models.NewsSummary, llm.Usage, error) {
	resp, err := s.client.Complete(ctx,
		UserPrompt(item.Title, article.Content, s.opts.Language, s.opts.MaxLength),
		SystemPrompt(s.opts.Language))
	if err != nil {
		return models.NewsSummary{}, llm.Usage{}, err
	}

	parsed, err := ParseResponse(resp.Content)
	if err != nil {
		return models.NewsSummary{}, resp.Usage, fmt.Errorf("failed to parse summary: %w", err)
	}

	return models.NewsSummary{
		ID:        models.ArticleID(item.ID),
		Title:     item.Title,
		URL:       models.StringPtr(item.URL),
		Summary:   parsed.Summary,
		KeyPoints: parsed.KeyPoints,
		Category:  parsed.Category,
		Sentiment: parsed.Sentiment,
		CreatedAt: s.now().UTC(),
	}, resp.Usage, nil
}

const simpleSummaryLength = 200

// Simple builds a summary without the LLM: the scraped excerpt, else the
// feed description, else the title.
func Simple(item models.NewsItem, article *scraper.Article, now time.Time) models.NewsSummary {
	text := ""
	if article != nil {
		text = article.Excerpt
	}
	if text == "" {
		text = normalize.Truncate(normalize.CleanText(item.Description()), simpleSummaryLength)
	}
	if text == "" {
		text = item.Title
	}

	return models.NewsSummary{
		ID:        models.ArticleID(item.ID),
		Title:     item.Title,
		URL:       models.StringPtr(item.URL),
		Summary:   text,
		KeyPoints: []string{},
		Category:  DefaultCategory,
		Sentiment: models.SentimentNeutral,
		CreatedAt: now.UTC(),
	}
}
