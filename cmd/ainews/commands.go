package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/archive"
	"ainews/aggregator/internal/config"
	"ainews/aggregator/internal/database"
	"ainews/aggregator/internal/llm"
	"ainews/aggregator/internal/pipeline"
	"ainews/aggregator/internal/publish"
	"ainews/aggregator/internal/scraper"
	"ainews/aggregator/internal/server"
	"ainews/aggregator/internal/sources"
	"ainews/aggregator/internal/store"
	"ainews/aggregator/internal/summarizer"
)

const (
	cycleTimeout       = 30 * time.Minute
	maintenanceTimeout = 5 * time.Minute
)

// runner owns the components shared by fetch cycles and maintenance.
// mu serializes every writer of the data directory.
type runner struct {
	cfg      *config.Config
	store    *store.FileStore
	pipeline *pipeline.Pipeline
	history  *database.DB
	mu       sync.Mutex
}

// newRunner wires the pipeline. Without an API key, or when the LLM client
// cannot be built, summaries fall back to simple mode. A history database
// that cannot be opened only disables the already-processed check.
func newRunner(ctx context.Context, cfg *config.Config) (*runner, error) {
	srcCfg, err := config.LoadSources(ctx, cfg.SourcesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}

	r := &runner{cfg: cfg, store: store.NewFileStore(cfg.DataDir)}
	deps := pipeline.Deps{
		Fetcher: sources.NewDefaultManager(srcCfg, nil),
		Scraper: scraper.New(scraper.Options{Delay: scraper.DefaultDelay}),
		Store:   r.store,
	}

	if svc := newSummarizer(cfg); svc != nil {
		deps.Summarizer = svc
	}

	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.DBPath).Msg("History database unavailable, every fetched URL will be processed")
	} else {
		r.history = db
		deps.History = db
	}

	r.pipeline = pipeline.New(deps)
	return r, nil
}

func newSummarizer(cfg *config.Config) *summarizer.Service {
	if cfg.Simple {
		return nil
	}
	if !cfg.HasLLM() {
		log.Warn().Msg("ANTHROPIC_API_KEY not set, using simple summaries")
		return nil
	}

	llmCfg := llm.DefaultConfig(cfg.AnthropicAPIKey)
	llmCfg.Model = cfg.AnthropicModel
	client, err := llm.NewClient(llmCfg)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to create LLM client, using simple summaries")
		return nil
	}
	log.Info().Str("model", client.Model()).Str("language", cfg.Language).Msg("Using LLM summaries")
	return summarizer.NewService(client, summarizer.Options{Language: cfg.Language})
}

func (r *runner) Close() {
	if r.history != nil {
		if err := r.history.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history database")
		}
	}
}

// cycle runs the pipeline once.
func (r *runner) cycle(ctx context.Context, dryRun bool) (*pipeline.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cycleCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	return r.pipeline.Run(cycleCtx, pipeline.Options{
		Mode:           r.cfg.SourceMode,
		LimitPerSource: r.cfg.LimitPerSource,
		Simple:         r.cfg.Simple,
		DryRun:         dryRun,
	})
}

// maintain rotates old articles into the archive and purges stale history.
func (r *runner) maintain(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, maintenanceTimeout)
	defer cancel()

	if _, err := rotate(ctx, r.store, r.cfg.ArchiveThresholdDays); err != nil {
		return err
	}

	if r.history == nil {
		return nil
	}
	purged, err := r.history.PurgeOlderThan(ctx, r.cfg.RetentionDays)
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge processed items")
	} else if purged > 0 {
		log.Info().Int64("purged_count", purged).Msg("Purged old processed items")
	}
	return nil
}

func rotate(ctx context.Context, st *store.FileStore, thresholdDays int) (archive.Result, error) {
	res, err := archive.NewRotator(st, archive.Options{ThresholdDays: thresholdDays}).Rotate(ctx)
	if err != nil {
		return res, fmt.Errorf("archive rotation failed: %w", err)
	}
	return res, nil
}

// runFetch executes one pipeline run and logs each item that failed.
func runFetch(ctx context.Context, cfg *config.Config, dryRun bool) error {
	r, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	res, err := r.cycle(ctx, dryRun)
	if err != nil {
		return err
	}

	for _, e := range res.Errors {
		log.Warn().Str("id", e.ID).Str("source", string(e.Source)).Str("title", e.Title).Msg(e.Error)
	}
	for src, n := range res.Stats.BySource {
		log.Info().Str("source", string(src)).Int("count", n).Msg("Fetched items")
	}
	return nil
}

func runArchive(ctx context.Context, cfg *config.Config) error {
	res, err := rotate(ctx, store.NewFileStore(cfg.DataDir), cfg.ArchiveThresholdDays)
	if err != nil {
		return err
	}
	fmt.Printf("Archived %d articles, %d remain active\n", res.Archived, res.Remaining)
	return nil
}

// runStart executes fetch cycles either once or periodically, with archive
// rotation scheduled by cron in periodic mode.
func runStart(ctx context.Context, cfg *config.Config) error {
	r, err := newRunner(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
		if _, err := r.cycle(ctx, false); err != nil {
			return err
		}
		if err := r.maintain(ctx); err != nil {
			return err
		}
		log.Info().Msg("One-shot processing completed, exiting")
		return nil
	}

	log.Info().Int64("interval_minutes", int64(cfg.Interval.Minutes())).Msg("Running in periodic mode")

	c := cron.New(cron.WithLogger(cronLogger{}), cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
	if _, err := c.AddFunc(cfg.ArchiveCron, func() {
		log.Info().Msg("Starting scheduled maintenance")
		if err := r.maintain(ctx); err != nil {
			log.Error().Err(err).Msg("Scheduled maintenance failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid archive schedule %q: %w", cfg.ArchiveCron, err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()
	log.Info().Str("schedule", cfg.ArchiveCron).Msg("Archive rotation scheduled")

	runCycle := func() {
		if _, err := r.cycle(ctx, false); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error().Err(err).Msg("Processing cycle failed")
		}
	}

	runCycle()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		log.Info().
			Dur("interval", cfg.Interval).
			Time("next_run", time.Now().Add(cfg.Interval)).
			Msg("Waiting for next processing cycle")

		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled processing cycle")
			runCycle()

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic processing")
			return nil
		}
	}
}

func runServer(ctx context.Context, cfg *config.Config) error {
	return server.RunServer(ctx, store.NewFileStore(cfg.DataDir), cfg.ListenAddr(), log.Logger, cfg.APIKey)
}

func runPublish(ctx context.Context, cfg *config.Config) error {
	if cfg.S3Bucket == "" {
		log.Info().Msg("No S3 bucket configured, skipping publish")
		return nil
	}

	pubCfg := publish.Config{
		Bucket:   cfg.S3Bucket,
		Prefix:   cfg.S3Prefix,
		Region:   cfg.S3Region,
		Endpoint: cfg.S3Endpoint,
	}
	client, err := publish.NewS3Client(ctx, pubCfg)
	if err != nil {
		return err
	}

	n, err := publish.NewPublisher(client, store.NewFileStore(cfg.DataDir), pubCfg).Publish(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Uploaded %d files to s3://%s\n", n, cfg.S3Bucket)
	return nil
}

func runSources(ctx context.Context, cfg *config.Config) error {
	srcCfg, err := config.LoadSources(ctx, cfg.SourcesPath)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tLANGUAGE\tENABLED")
	for _, sc := range sources.NewDefaultManager(srcCfg, nil).List() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", sc.Name, sc.Type, sc.Language, sc.Enabled)
	}
	return w.Flush()
}

// cronLogger routes cron's own messages through zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
