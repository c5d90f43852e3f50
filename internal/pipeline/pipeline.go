// Package pipeline runs one ingestion cycle: fetch from every enabled source,
// scrape the article pages, summarize them and merge the summaries into the
// active news file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/archive"
	"ainews/aggregator/internal/llm"
	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/scraper"
	"ainews/aggregator/internal/sources"
	"ainews/aggregator/internal/store"
	"ainews/aggregator/internal/summarizer"
)

type Fetcher interface {
	FetchAll(ctx context.Context, limitPerSource int, opts sources.Options) []models.NewsItem
}

type Scraper interface {
	ScrapeMany(ctx context.Context, urls []string) map[string]scraper.Result
}

type Summarizer interface {
	Summarize(ctx context.Context, item models.NewsItem, article *scraper.Article) (models.NewsSummary, llm.Usage, error)
}

// History remembers which URLs earlier runs already summarized.
type History interface {
	AlreadyProcessed(ctx context.Context, urls []string) (map[string]bool, error)
	MarkProcessed(ctx context.Context, items []models.ProcessedItem) (int64, int64, error)
}

type NewsStore interface {
	LoadNews() (*models.NewsData, error)
	SaveNews(*models.NewsData) error
}

// Deps wires a Pipeline. Summarizer and History are optional: without a
// summarizer every item gets a simple summary, without a history every
// fetched URL is processed.
type Deps struct {
	Fetcher    Fetcher
	Scraper    Scraper
	Summarizer Summarizer
	History    History
	Store      NewsStore
	Now        func() time.Time
}

type Options struct {
	// Mode is a source mode understood by sources.OptionsForMode.
	Mode           string
	LimitPerSource int
	// Simple skips the LLM even when a summarizer is configured.
	Simple bool
	// DryRun leaves the news file and the history untouched.
	DryRun bool
}

// ItemError describes why one fetched item produced no summary.
type ItemError struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Source models.SourceType `json:"source"`
	Error  string            `json:"error"`
}

type Stats struct {
	TotalFetched        int                       `json:"totalFetched"`
	AlreadyProcessed    int                       `json:"alreadyProcessed"`
	SuccessfulScrapes   int                       `json:"successfulScrapes"`
	SuccessfulSummaries int                       `json:"successfulSummaries"`
	TotalTokensUsed     int                       `json:"totalTokensUsed"`
	BySource            map[models.SourceType]int `json:"bySource"`
}

type Result struct {
	RunID     string               `json:"runId"`
	Mode      string               `json:"mode"`
	Summaries []models.NewsSummary `json:"summaries"`
	Errors    []ItemError          `json:"errors"`
	Stats     Stats                `json:"stats"`
	Duration  time.Duration        `json:"duration"`
}

type Pipeline struct {
	deps Deps
}

func New(deps Deps) *Pipeline {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps}
}

// Run executes one cycle. Per-item failures are collected in the result and
// never stop the batch; only an invalid mode or a failure to write the news
// file is returned as an error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	srcOpts, err := sources.OptionsForMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	start := p.deps.Now()
	res := &Result{
		RunID:     uuid.NewString(),
		Mode:      opts.Mode,
		Summaries: []models.NewsSummary{},
		Errors:    []ItemError{},
		Stats:     Stats{BySource: make(map[models.SourceType]int)},
	}
	logger := log.With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx)

	useLLM := p.deps.Summarizer != nil && !opts.Simple
	modeName := models.ModeSimple
	if useLLM {
		modeName = models.ModeLLM
	}
	logger.Info().Str("mode", opts.Mode).Int("limit", opts.LimitPerSource).Str("summaries", modeName).Msg("Starting pipeline run")

	items := p.deps.Fetcher.FetchAll(ctx, opts.LimitPerSource, srcOpts)
	res.Stats.TotalFetched = len(items)
	for _, it := range items {
		res.Stats.BySource[it.Source]++
	}

	pending := p.filterProcessed(ctx, items, res)

	urls := make([]string, 0, len(pending))
	for _, it := range pending {
		urls = append(urls, it.URL)
	}
	scraped := map[string]scraper.Result{}
	if len(urls) > 0 {
		scraped = p.deps.Scraper.ScrapeMany(ctx, urls)
	}

	var history []models.ProcessedItem
	for _, it := range pending {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("Pipeline run cancelled")
			break
		}

		sr, ok := scraped[it.URL]
		if !ok {
			sr.Err = errors.New("not scraped")
		}
		if sr.Err != nil {
			res.Errors = append(res.Errors, itemError(it, "Scraping failed: "+sr.Err.Error()))
			continue
		}
		res.Stats.SuccessfulScrapes++

		summary, err := p.summarize(ctx, it, sr.Article, useLLM, res)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("item", it.ID).Msg("Failed to summarize article")
			res.Errors = append(res.Errors, itemError(it, "Summary failed: "+err.Error()))
			continue
		}

		logger.Debug().Str("item", it.ID).Str("url", summary.URLOrEmpty()).Msg("Summarized article")
		res.Summaries = append(res.Summaries, summary)
		res.Stats.SuccessfulSummaries++
		history = append(history, models.NewProcessedItem(it, modeName))
	}

	if !opts.DryRun {
		if err := p.persist(ctx, res.Summaries, history); err != nil {
			return res, err
		}
	}

	res.Duration = p.deps.Now().Sub(start)
	logger.Info().
		Int("fetched", res.Stats.TotalFetched).
		Int("already_processed", res.Stats.AlreadyProcessed).
		Int("scraped", res.Stats.SuccessfulScrapes).
		Int("summarized", res.Stats.SuccessfulSummaries).
		Int("tokens", res.Stats.TotalTokensUsed).
		Int("errors", len(res.Errors)).
		Dur("duration", res.Duration).
		Msg("Pipeline run finished")
	return res, nil
}

// filterProcessed drops items summarized by an earlier run and turns
// URL-less items into errors.
func (p *Pipeline) filterProcessed(ctx context.Context, items []models.NewsItem, res *Result) []models.NewsItem {
	var urls []string
	for _, it := range items {
		if it.HasURL() {
			urls = append(urls, it.URL)
		}
	}

	seen := map[string]bool{}
	if p.deps.History != nil && len(urls) > 0 {
		var err error
		seen, err = p.deps.History.AlreadyProcessed(ctx, urls)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("History lookup failed, processing every item")
			seen = map[string]bool{}
		}
	}

	pending := make([]models.NewsItem, 0, len(items))
	for _, it := range items {
		switch {
		case !it.HasURL():
			res.Errors = append(res.Errors, itemError(it, "No URL available"))
		case seen[it.URL]:
			res.Stats.AlreadyProcessed++
		default:
			pending = append(pending, it)
		}
	}
	return pending
}

func (p *Pipeline) summarize(ctx context.Context, it models.NewsItem, article *scraper.Article, useLLM bool, res *Result) (models.NewsSummary, error) {
	if !useLLM {
		return summarizer.Simple(it, article, p.deps.Now()), nil
	}
	summary, usage, err := p.deps.Summarizer.Summarize(ctx, it, article)
	res.Stats.TotalTokensUsed += usage.Total()
	return summary, err
}

func (p *Pipeline) persist(ctx context.Context, summaries []models.NewsSummary, history []models.ProcessedItem) error {
	existing, err := p.deps.Store.LoadNews()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to load active news: %w", err)
		}
		existing = &models.NewsData{}
	}

	merged := MergeNews(existing, summaries, p.deps.Now())
	if err := p.deps.Store.SaveNews(merged); err != nil {
		return fmt.Errorf("failed to save active news: %w", err)
	}
	zerolog.Ctx(ctx).Info().Int("added", len(summaries)).Int("active", len(merged.Articles)).Msg("Updated active news file")

	if p.deps.History != nil && len(history) > 0 {
		if _, _, err := p.deps.History.MarkProcessed(ctx, history); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to record processed items")
		}
	}
	return nil
}

// MergeNews adds summaries to the active set. An id already present keeps
// its existing record. The result is ordered newest first and stamped with now.
func MergeNews(existing *models.NewsData, summaries []models.NewsSummary, now time.Time) *models.NewsData {
	seen := make(map[models.ArticleID]struct{}, len(existing.Articles)+len(summaries))
	merged := make([]models.NewsSummary, 0, len(existing.Articles)+len(summaries))
	for _, group := range [][]models.NewsSummary{existing.Articles, summaries} {
		for _, a := range group {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}
	}
	archive.SortNewestFirst(merged)
	return &models.NewsData{GeneratedAt: now, Articles: merged}
}

func itemError(it models.NewsItem, msg string) ItemError {
	return ItemError{ID: it.ID, Title: it.Title, Source: it.Source, Error: msg}
}
