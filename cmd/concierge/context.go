package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"concierge/internal/client"
	"concierge/internal/config"
)

type commandContext struct {
	apiFlag    *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(apiFlag, configFlag *string) *commandContext {
	return &commandContext{
		apiFlag:    apiFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) apiURL() string {
	if c.apiFlag != nil {
		if value := strings.TrimSpace(*c.apiFlag); value != "" {
			return value
		}
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.APIURL()
	}
	defaults := config.Default()
	return defaults.APIURL()
}

func (c *commandContext) newClient() (*client.Client, error) {
	var opts []client.Option
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		opts = append(opts, client.WithToken(cfg.Paths.APIToken))
	}
	return client.New(c.apiURL(), opts...)
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	cl, err := c.newClient()
	if err != nil {
		return err
	}
	return wrapClientError(fn(cl), c.apiURL())
}

func wrapClientError(err error, apiURL string) error {
	if err == nil {
		return nil
	}
	if client.IsUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: connection refused; start it with `concierge start`", apiURL)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func (c *commandContext) configValue() *config.Config {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		fallback := config.Default()
		return &fallback
	}
	return cfg
}
