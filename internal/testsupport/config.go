package testsupport

import (
	"path/filepath"
	"testing"

	"concierge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test
// and queue timings shrunk so executor tests finish quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Research.APIKey = "test"
	cfgVal.Queue.JobTimeoutSeconds = 5
	cfgVal.Queue.InterJobDelayMS = 0
	cfgVal.Queue.InterBatchDelayMS = 0
	cfgVal.Queue.PausePollMS = 10
	cfgVal.Queue.CancelPollMS = 10
	cfgVal.Queue.StreamIntervalMS = 20
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken requires bearer authentication on the test API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithProvider selects the research provider on the test config.
func WithProvider(provider string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Research.Provider = provider
	}
}

// WithQueueTimings overrides the executor timings.
func WithQueueTimings(mutate func(*config.Queue)) ConfigOption {
	return func(b *configBuilder) {
		mutate(&b.cfg.Queue)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
