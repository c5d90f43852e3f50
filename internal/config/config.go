package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DataDir     string
	DBPath      string
	SourcesPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Fetch settings
	SourceMode     string
	LimitPerSource int
	Language       string
	Simple         bool

	// Scheduling
	Interval             time.Duration
	RetentionDays        int
	ArchiveThresholdDays int
	ArchiveCron          string

	// Summarization
	AnthropicAPIKey string
	AnthropicModel  string

	// Publishing
	S3Bucket   string
	S3Prefix   string
	S3Region   string
	S3Endpoint string

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration built from hardcoded defaults
// and any AINEWS_* / ANTHROPIC_* environment variables already present.
func DefaultConfig() *Config {
	dataDir := GetEnvString("AINEWS_DATA_DIR", DefaultDataDir)

	return &Config{
		DataDir:              dataDir,
		DBPath:               GetEnvString("AINEWS_DB_PATH", filepath.Join(dataDir, "history.db")),
		SourcesPath:          GetEnvString("AINEWS_SOURCES_PATH", DefaultSourcesPath),
		ServerHost:           GetEnvString("AINEWS_HOST", DefaultServerHost),
		ServerPort:           GetEnvInt("AINEWS_PORT", DefaultServerPort),
		APIKey:               GetEnvString("AINEWS_API_KEY", ""),
		SourceMode:           GetEnvString("AINEWS_SOURCE", DefaultSourceMode),
		LimitPerSource:       GetEnvInt("AINEWS_LIMIT", DefaultLimitPerSource),
		Language:             GetEnvString("AINEWS_LANGUAGE", DefaultLanguage),
		Simple:               GetEnvBool("AINEWS_SIMPLE", false),
		Interval:             GetEnvDuration("AINEWS_INTERVAL", time.Duration(DefaultInterval)*time.Minute),
		RetentionDays:        GetEnvInt("AINEWS_RETENTION_DAYS", DefaultRetentionDays),
		ArchiveThresholdDays: GetEnvInt("AINEWS_ARCHIVE_DAYS", DefaultArchiveThresholdDays),
		ArchiveCron:          GetEnvString("AINEWS_ARCHIVE_CRON", DefaultArchiveCron),
		AnthropicAPIKey:      GetEnvString("ANTHROPIC_API_KEY", ""),
		AnthropicModel:       GetEnvString("ANTHROPIC_MODEL", DefaultAnthropicModel),
		S3Bucket:             GetEnvString("AINEWS_S3_BUCKET", ""),
		S3Prefix:             GetEnvString("AINEWS_S3_PREFIX", ""),
		S3Region:             GetEnvString("AWS_REGION", DefaultS3Region),
		S3Endpoint:           GetEnvString("AINEWS_S3_ENDPOINT", ""),
		LogLevel:             GetEnvLogLevel("AINEWS_LOG_LEVEL", zerolog.InfoLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// HasLLM reports whether summaries can be produced through the LLM.
func (c *Config) HasLLM() bool {
	return !c.Simple && c.AnthropicAPIKey != ""
}
