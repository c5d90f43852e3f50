package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ainews/aggregator/internal/config"
)

const usage = `Usage: ainews [command] [options]
Commands: fetch, archive, start, server, publish, sources

For command-specific options, use: ainews [command] -h`

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// commonFlags registers the options every command shares.
func commonFlags(fs *flag.FlagSet, cfg *config.Config, logLevel *string) {
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir,
		"Directory holding news.json, stats.json and archive/ (env: AINEWS_DATA_DIR)")
	fs.StringVar(logLevel, "log-level", config.GetEnvString("AINEWS_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: AINEWS_LOG_LEVEL)")
}

// fetchFlags registers the options of a pipeline run.
func fetchFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.SourceMode, "source", cfg.SourceMode,
		"Sources to fetch: hackernews, reddit, blogs, japan or all (env: AINEWS_SOURCE)")
	fs.IntVar(&cfg.LimitPerSource, "limit", cfg.LimitPerSource,
		"Maximum items per source (env: AINEWS_LIMIT)")
	fs.StringVar(&cfg.Language, "lang", cfg.Language,
		"Summary language: ja or en (env: AINEWS_LANGUAGE)")
	fs.BoolVar(&cfg.Simple, "simple", cfg.Simple,
		"Build summaries from article excerpts without the LLM (env: AINEWS_SIMPLE)")
	fs.StringVar(&cfg.SourcesPath, "sources", cfg.SourcesPath,
		"Path or URL of the sources YAML file (env: AINEWS_SOURCES_PATH)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the processed-items SQLite database (env: AINEWS_DB_PATH)")
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file")
	}
	cfg := config.DefaultConfig()
	var logLevelStr string

	fetchCmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	commonFlags(fetchCmd, cfg, &logLevelStr)
	fetchFlags(fetchCmd, cfg)
	var dryRun bool
	fetchCmd.BoolVar(&dryRun, "dry-run", false, "Fetch and summarize without writing any file")

	archiveCmd := flag.NewFlagSet("archive", flag.ExitOnError)
	commonFlags(archiveCmd, cfg, &logLevelStr)
	archiveCmd.IntVar(&cfg.ArchiveThresholdDays, "days", cfg.ArchiveThresholdDays,
		"Archive articles older than this many days (env: AINEWS_ARCHIVE_DAYS)")

	startCmd := flag.NewFlagSet("start", flag.ExitOnError)
	commonFlags(startCmd, cfg, &logLevelStr)
	fetchFlags(startCmd, cfg)
	var intervalMinutes int
	startCmd.IntVar(&intervalMinutes, "interval", int(cfg.Interval/time.Minute),
		"Interval in minutes between fetch cycles, 0 for one-shot mode (env: AINEWS_INTERVAL)")
	startCmd.StringVar(&cfg.ArchiveCron, "archive-cron", cfg.ArchiveCron,
		"Cron schedule of archive rotation and history purge (env: AINEWS_ARCHIVE_CRON)")
	startCmd.IntVar(&cfg.ArchiveThresholdDays, "days", cfg.ArchiveThresholdDays,
		"Archive articles older than this many days (env: AINEWS_ARCHIVE_DAYS)")
	startCmd.IntVar(&cfg.RetentionDays, "retention", cfg.RetentionDays,
		"Days to remember processed URLs (env: AINEWS_RETENTION_DAYS)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	commonFlags(serverCmd, cfg, &logLevelStr)
	serverCmd.StringVar(&cfg.ServerHost, "host", cfg.ServerHost,
		"Host to bind the server to (env: AINEWS_HOST)")
	serverCmd.IntVar(&cfg.ServerPort, "port", cfg.ServerPort,
		"Port to listen on (env: AINEWS_PORT)")
	serverCmd.StringVar(&cfg.APIKey, "api-key", cfg.APIKey,
		"Require this X-API-Key header, empty to disable (env: AINEWS_API_KEY)")

	publishCmd := flag.NewFlagSet("publish", flag.ExitOnError)
	commonFlags(publishCmd, cfg, &logLevelStr)
	publishCmd.StringVar(&cfg.S3Bucket, "bucket", cfg.S3Bucket, "Target S3 bucket (env: AINEWS_S3_BUCKET)")
	publishCmd.StringVar(&cfg.S3Prefix, "prefix", cfg.S3Prefix, "Key prefix inside the bucket (env: AINEWS_S3_PREFIX)")
	publishCmd.StringVar(&cfg.S3Region, "region", cfg.S3Region, "AWS region (env: AWS_REGION)")
	publishCmd.StringVar(&cfg.S3Endpoint, "endpoint", cfg.S3Endpoint,
		"Custom S3 compatible endpoint (env: AINEWS_S3_ENDPOINT)")

	sourcesCmd := flag.NewFlagSet("sources", flag.ExitOnError)
	commonFlags(sourcesCmd, cfg, &logLevelStr)
	sourcesCmd.StringVar(&cfg.SourcesPath, "sources", cfg.SourcesPath,
		"Path or URL of the sources YAML file (env: AINEWS_SOURCES_PATH)")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	commands := map[string]*flag.FlagSet{
		"fetch":   fetchCmd,
		"archive": archiveCmd,
		"start":   startCmd,
		"server":  serverCmd,
		"publish": publishCmd,
		"sources": sourcesCmd,
	}

	name := os.Args[1]
	switch name {
	case "-h", "--help", "help":
		fmt.Println(usage)
		os.Exit(0)
	}

	fs, ok := commands[name]
	if !ok {
		log.Error().Str("command", name).Msg("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
	fs.Parse(os.Args[2:])

	// The history database follows -data unless placed explicitly.
	dbSet := false
	fs.Visit(func(f *flag.Flag) { dbSet = dbSet || f.Name == "db" })
	if !dbSet && config.GetEnvString("AINEWS_DB_PATH", "") == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "history.db")
	}

	if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch name {
	case "fetch":
		err = runFetch(ctx, cfg, dryRun)
	case "archive":
		err = runArchive(ctx, cfg)
	case "start":
		cfg.Interval = time.Duration(intervalMinutes) * time.Minute
		err = runStart(ctx, cfg)
	case "server":
		err = runServer(ctx, cfg)
	case "publish":
		err = runPublish(ctx, cfg)
	case "sources":
		err = runSources(ctx, cfg)
	}

	if err != nil {
		log.Error().Err(err).Str("command", name).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}
