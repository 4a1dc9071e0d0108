package config

const (
	defaultConfigPath            = "~/.config/concierge/config.toml"
	defaultDataDir               = "~/.local/share/concierge"
	defaultLogDir                = "~/.local/share/concierge/logs"
	defaultLogRetentionDays      = 30
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultAPIBind               = "127.0.0.1:7620"
	defaultResearchProvider      = ProviderGemini
	defaultResearchTimeout       = 180
	defaultResearchMaxTokens     = 1024
	defaultGeminiModel           = "gemini-2.0-flash"
	defaultClaudeModel           = "claude-sonnet-4-20250514"
	defaultOpenAIModel           = "google/gemini-3-flash-preview"
	defaultOpenAIBaseURL         = "https://openrouter.ai/api/v1/chat/completions"
	defaultResearchReferer       = "https://github.com/concierge/concierge"
	defaultResearchTitle         = "Concierge Guest Research"
	defaultConcurrency           = 3
	defaultMaxConcurrency        = 5
	defaultJobTimeoutSeconds     = 180
	defaultInterJobDelayMS       = 1000
	defaultInterBatchDelayMS     = 500
	defaultPausePollMS           = 1000
	defaultCancelPollMS          = 500
	defaultCompletedGraceSeconds = 10
	defaultStreamIntervalMS      = 1000
	defaultNotifyRequestTimeout  = 10
)

// Research provider identifiers accepted in research.provider.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Research: Research{
			Provider:       defaultResearchProvider,
			Referer:        defaultResearchReferer,
			Title:          defaultResearchTitle,
			TimeoutSeconds: defaultResearchTimeout,
			MaxTokens:      defaultResearchMaxTokens,
		},
		Queue: Queue{
			DefaultConcurrency:    defaultConcurrency,
			MaxConcurrency:        defaultMaxConcurrency,
			JobTimeoutSeconds:     defaultJobTimeoutSeconds,
			InterJobDelayMS:       defaultInterJobDelayMS,
			InterBatchDelayMS:     defaultInterBatchDelayMS,
			PausePollMS:           defaultPausePollMS,
			CancelPollMS:          defaultCancelPollMS,
			CompletedGraceSeconds: defaultCompletedGraceSeconds,
			StreamIntervalMS:      defaultStreamIntervalMS,
		},
		Schedule: Schedule{
			PendingConcurrency: defaultConcurrency,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Queue:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
