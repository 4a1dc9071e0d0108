package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"concierge/internal/config"
)

func TestLoadDefaultConfigUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "concierge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7620" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Research.Provider != config.ProviderGemini {
		t.Fatalf("unexpected provider: %q", cfg.Research.Provider)
	}
	if cfg.Research.APIKey != "test-key" {
		t.Fatalf("expected research key from env, got %q", cfg.Research.APIKey)
	}
	if cfg.Research.Model == "" {
		t.Fatal("expected default model to be filled in")
	}
	if cfg.Queue.JobTimeout() != 180*time.Second {
		t.Fatalf("unexpected job timeout: %s", cfg.Queue.JobTimeout())
	}
	if cfg.Queue.CancelPoll() != 500*time.Millisecond {
		t.Fatalf("unexpected cancel poll: %s", cfg.Queue.CancelPoll())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "concierge.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "concierge.toml")

	type payload struct {
		Research struct {
			Provider string `toml:"provider"`
			APIKey   string `toml:"api_key"`
		} `toml:"research"`
		Queue struct {
			DefaultConcurrency int `toml:"default_concurrency"`
			JobTimeoutSeconds  int `toml:"job_timeout_seconds"`
		} `toml:"queue"`
		Schedule struct {
			PendingCron string `toml:"pending_cron"`
		} `toml:"schedule"`
	}
	custom := payload{}
	custom.Research.Provider = "Claude"
	custom.Research.APIKey = "abc123"
	custom.Queue.DefaultConcurrency = 2
	custom.Queue.JobTimeoutSeconds = 30
	custom.Schedule.PendingCron = "0 3 * * *"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Research.Provider != config.ProviderClaude {
		t.Fatalf("expected provider to be normalized to claude, got %q", cfg.Research.Provider)
	}
	if !strings.HasPrefix(cfg.Research.Model, "claude") {
		t.Fatalf("expected claude default model, got %q", cfg.Research.Model)
	}
	if cfg.Queue.DefaultConcurrency != 2 {
		t.Fatalf("expected default concurrency 2, got %d", cfg.Queue.DefaultConcurrency)
	}
	if cfg.Queue.JobTimeout() != 30*time.Second {
		t.Fatalf("expected 30s job timeout, got %s", cfg.Queue.JobTimeout())
	}
	if cfg.Schedule.PendingConcurrency != 2 {
		t.Fatalf("expected pending concurrency to follow default, got %d", cfg.Schedule.PendingConcurrency)
	}
}

func TestConfigFileKeyWinsOverEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "concierge.toml")
	if err := os.WriteFile(configPath, []byte("[research]\nprovider = \"openai\"\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("OPENROUTER_API_KEY", "env-key")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Research.APIKey != "file-key" {
		t.Fatalf("expected file key, got %q", cfg.Research.APIKey)
	}
	if cfg.Research.BaseURL == "" {
		t.Fatal("expected openai provider to receive a default base url")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "your_research_api_key_here") {
		t.Fatalf("sample config missing placeholder key: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "concierge") {
		t.Fatalf("expected data dir to contain concierge, got %q", cfg.Paths.DataDir)
	}
	if cfg.Queue.MaxConcurrency != 5 {
		t.Fatalf("expected sample max concurrency 5, got %d", cfg.Queue.MaxConcurrency)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown provider", func(c *config.Config) { c.Research.Provider = "bing" }},
		{"zero job timeout", func(c *config.Config) { c.Queue.JobTimeoutSeconds = 0 }},
		{"max concurrency too high", func(c *config.Config) { c.Queue.MaxConcurrency = 9 }},
		{"default above max", func(c *config.Config) { c.Queue.DefaultConcurrency = 4; c.Queue.MaxConcurrency = 2 }},
		{"negative delay", func(c *config.Config) { c.Queue.InterJobDelayMS = -1 }},
		{"bad cron", func(c *config.Config) { c.Schedule.PendingCron = "every night" }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}

func TestClampConcurrency(t *testing.T) {
	q := config.Default().Queue
	cases := []struct {
		requested int
		present   bool
		want      int
	}{
		{0, true, 1},
		{100, true, 5},
		{-3, true, 1},
		{4, true, 4},
		{0, false, 3},
	}
	for _, tc := range cases {
		if got := q.ClampConcurrency(tc.requested, tc.present); got != tc.want {
			t.Fatalf("ClampConcurrency(%d, %v) = %d, want %d", tc.requested, tc.present, got, tc.want)
		}
	}
}

func TestAPIURLAddsLoopbackHost(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.APIBind = ":9000"
	if got := cfg.APIURL(); got != "http://127.0.0.1:9000" {
		t.Fatalf("unexpected api url: %q", got)
	}
}
