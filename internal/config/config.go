package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Research contains connection settings for the guest research provider.
type Research struct {
	Provider          string `toml:"provider"`
	APIKey            string `toml:"api_key"`
	Model             string `toml:"model"`
	BaseURL           string `toml:"base_url"`
	Referer           string `toml:"referer"`
	Title             string `toml:"title"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
	MaxTokens         int    `toml:"max_tokens"`
}

// Queue contains enrichment queue timing and concurrency settings.
type Queue struct {
	DefaultConcurrency    int `toml:"default_concurrency"`
	MaxConcurrency        int `toml:"max_concurrency"`
	JobTimeoutSeconds     int `toml:"job_timeout_seconds"`
	InterJobDelayMS       int `toml:"inter_job_delay_ms"`
	InterBatchDelayMS     int `toml:"inter_batch_delay_ms"`
	PausePollMS           int `toml:"pause_poll_ms"`
	CancelPollMS          int `toml:"cancel_poll_ms"`
	CompletedGraceSeconds int `toml:"completed_grace_seconds"`
	StreamIntervalMS      int `toml:"stream_interval_ms"`
}

// Schedule contains settings for unattended start-pending runs.
type Schedule struct {
	PendingCron        string `toml:"pending_cron"`
	PendingConcurrency int    `toml:"pending_concurrency"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Queue          bool   `toml:"queue"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for the enrichment daemon.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories, API bind address and token
//   - Research: provider selection and credentials
//   - Queue: executor timings and concurrency bounds
//   - Schedule: cron-driven start-pending runs
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Research      Research      `toml:"research"`
	Queue         Queue         `toml:"queue"`
	Schedule      Schedule      `toml:"schedule"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("concierge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "concierge.db")
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "concierge.lock")
}

// PIDPath returns the daemon pid file.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "concierge.pid")
}

// APIURL returns the base URL clients use to reach the daemon.
func (c *Config) APIURL() string {
	bind := strings.TrimSpace(c.Paths.APIBind)
	if bind == "" {
		bind = defaultAPIBind
	}
	if strings.HasPrefix(bind, ":") {
		bind = "127.0.0.1" + bind
	}
	return "http://" + bind
}

// JobTimeout bounds a single research lookup.
func (q Queue) JobTimeout() time.Duration {
	return time.Duration(q.JobTimeoutSeconds) * time.Second
}

// InterJobDelay is the pause after each successful sequential job.
func (q Queue) InterJobDelay() time.Duration {
	return time.Duration(q.InterJobDelayMS) * time.Millisecond
}

// InterBatchDelay is the pause between parallel batches.
func (q Queue) InterBatchDelay() time.Duration {
	return time.Duration(q.InterBatchDelayMS) * time.Millisecond
}

// PausePoll is how often a paused executor re-checks its status.
func (q Queue) PausePoll() time.Duration {
	return time.Duration(q.PausePollMS) * time.Millisecond
}

// CancelPoll is how often an in-flight job checks for skip or stop.
func (q Queue) CancelPoll() time.Duration {
	return time.Duration(q.CancelPollMS) * time.Millisecond
}

// CompletedGrace is how long a completed queue remains visible as active.
func (q Queue) CompletedGrace() time.Duration {
	return time.Duration(q.CompletedGraceSeconds) * time.Second
}

// StreamInterval is the cadence of pushed progress updates.
func (q Queue) StreamInterval() time.Duration {
	return time.Duration(q.StreamIntervalMS) * time.Millisecond
}

// ClampConcurrency applies the default for non-positive requests and bounds
// the result to [1, MaxConcurrency].
func (q Queue) ClampConcurrency(requested int, present bool) int {
	maxConcurrency := q.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	value := requested
	if !present {
		value = q.DefaultConcurrency
	}
	if value < 1 {
		value = 1
	}
	if value > maxConcurrency {
		value = maxConcurrency
	}
	return value
}

// Timeout returns the provider HTTP timeout.
func (r Research) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
