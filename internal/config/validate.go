package config

import (
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateResearch(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateResearch() error {
	switch c.Research.Provider {
	case ProviderGemini, ProviderClaude, ProviderOpenAI:
	default:
		return fmt.Errorf("research.provider %q is not supported (use %s, %s, or %s)",
			c.Research.Provider, ProviderGemini, ProviderClaude, ProviderOpenAI)
	}
	if c.Research.TimeoutSeconds <= 0 {
		return errors.New("research.timeout_seconds must be positive")
	}
	if c.Research.RequestsPerMinute < 0 {
		return errors.New("research.requests_per_minute must be >= 0")
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxConcurrency < 1 || c.Queue.MaxConcurrency > defaultMaxConcurrency {
		return fmt.Errorf("queue.max_concurrency must be between 1 and %d", defaultMaxConcurrency)
	}
	if c.Queue.DefaultConcurrency < 1 || c.Queue.DefaultConcurrency > c.Queue.MaxConcurrency {
		return errors.New("queue.default_concurrency must be between 1 and queue.max_concurrency")
	}
	if err := ensurePositiveMap(map[string]int{
		"queue.job_timeout_seconds": c.Queue.JobTimeoutSeconds,
		"queue.pause_poll_ms":       c.Queue.PausePollMS,
		"queue.cancel_poll_ms":      c.Queue.CancelPollMS,
		"queue.stream_interval_ms":  c.Queue.StreamIntervalMS,
	}); err != nil {
		return err
	}
	if c.Queue.InterJobDelayMS < 0 || c.Queue.InterBatchDelayMS < 0 {
		return errors.New("queue.inter_job_delay_ms and queue.inter_batch_delay_ms must be >= 0")
	}
	if c.Queue.CompletedGraceSeconds < 0 {
		return errors.New("queue.completed_grace_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if c.Schedule.PendingCron == "" {
		return nil
	}
	if _, err := cron.ParseStandard(c.Schedule.PendingCron); err != nil {
		return fmt.Errorf("schedule.pending_cron: %w", err)
	}
	if c.Schedule.PendingConcurrency < 1 || c.Schedule.PendingConcurrency > c.Queue.MaxConcurrency {
		return errors.New("schedule.pending_concurrency must be between 1 and queue.max_concurrency")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
