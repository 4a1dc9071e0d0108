package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeResearch()
	c.normalizeQueue()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("CONCIERGE_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeResearch() {
	c.Research.Provider = strings.ToLower(strings.TrimSpace(c.Research.Provider))
	if c.Research.Provider == "" {
		c.Research.Provider = defaultResearchProvider
	}
	c.Research.APIKey = strings.TrimSpace(c.Research.APIKey)
	if c.Research.APIKey == "" {
		c.Research.APIKey = lookupFirstEnv(providerKeyEnv(c.Research.Provider)...)
	}
	c.Research.Model = strings.TrimSpace(c.Research.Model)
	if c.Research.Model == "" {
		switch c.Research.Provider {
		case ProviderClaude:
			c.Research.Model = defaultClaudeModel
		case ProviderOpenAI:
			c.Research.Model = defaultOpenAIModel
		default:
			c.Research.Model = defaultGeminiModel
		}
	}
	c.Research.BaseURL = strings.TrimSpace(c.Research.BaseURL)
	if c.Research.BaseURL == "" && c.Research.Provider == ProviderOpenAI {
		c.Research.BaseURL = defaultOpenAIBaseURL
	}
	c.Research.Referer = strings.TrimSpace(c.Research.Referer)
	if c.Research.Referer == "" {
		c.Research.Referer = defaultResearchReferer
	}
	c.Research.Title = strings.TrimSpace(c.Research.Title)
	if c.Research.Title == "" {
		c.Research.Title = defaultResearchTitle
	}
	if c.Research.TimeoutSeconds <= 0 {
		c.Research.TimeoutSeconds = defaultResearchTimeout
	}
	if c.Research.MaxTokens <= 0 {
		c.Research.MaxTokens = defaultResearchMaxTokens
	}
	if c.Research.RequestsPerMinute < 0 {
		c.Research.RequestsPerMinute = 0
	}
}

func (c *Config) normalizeQueue() {
	if c.Queue.MaxConcurrency == 0 {
		c.Queue.MaxConcurrency = defaultMaxConcurrency
	}
	if c.Queue.DefaultConcurrency == 0 {
		c.Queue.DefaultConcurrency = defaultConcurrency
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.PendingCron = strings.TrimSpace(c.Schedule.PendingCron)
	if c.Schedule.PendingConcurrency == 0 {
		c.Schedule.PendingConcurrency = c.Queue.DefaultConcurrency
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func providerKeyEnv(provider string) []string {
	switch provider {
	case ProviderClaude:
		return []string{"ANTHROPIC_API_KEY"}
	case ProviderOpenAI:
		return []string{"OPENROUTER_API_KEY", "OPENAI_API_KEY"}
	default:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
}

func lookupFirstEnv(names ...string) string {
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
