package config

// Constants defining default values for application configuration
const (
	DefaultDataDir     = "./web/data"
	DefaultSourcesPath = "./sources.yaml"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultInterval             = 60 // Minutes between fetch cycles
	DefaultRetentionDays        = 90 // Days to remember processed URLs
	DefaultArchiveThresholdDays = 30
	DefaultArchiveCron          = "0 3 * * *"

	DefaultSourceMode     = "all"
	DefaultLimitPerSource = 5
	DefaultLanguage       = "ja"

	DefaultAnthropicModel = "claude-sonnet-4-20250514"

	DefaultS3Region = "ap-northeast-1"

	DefaultLogLevel = "info"
)
