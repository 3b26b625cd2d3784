package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/lineage"
	"github.com/leapstack-labs/leapflow/internal/rules"
	"github.com/leapstack-labs/leapflow/internal/secrets"
)

var (
	logLevels   = []string{"debug", "info", "warn", "warning", "error"}
	logFormats  = []string{"text", "json"}
	outputModes = []string{"auto", "text", "markdown", "json"}
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.MediaDir == "" {
		return fmt.Errorf("media_dir is required")
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		return fmt.Errorf("invalid log.level %q (accepted: %s)", c.Log.Level, strings.Join(logLevels, ", "))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		return fmt.Errorf("invalid log.format %q (accepted: %s)", c.Log.Format, strings.Join(logFormats, ", "))
	}
	if c.Output != "" && !slices.Contains(outputModes, c.Output) {
		return fmt.Errorf("invalid output %q (accepted: %s)", c.Output, strings.Join(outputModes, ", "))
	}
	if c.Display.Limit < 0 {
		return fmt.Errorf("display.limit must not be negative, got %d", c.Display.Limit)
	}
	switch c.Secrets.Provider {
	case "", secrets.ProviderEnv, secrets.ProviderAWS:
	default:
		return fmt.Errorf("unknown secrets provider %q (accepted: %s, %s)", c.Secrets.Provider, secrets.ProviderEnv, secrets.ProviderAWS)
	}
	for i, sec := range c.Engine.Secrets {
		if sec.Type == "" {
			return fmt.Errorf("engine.secrets[%d]: type is required", i)
		}
	}
	if _, err := lineage.New(c.Data.Lineage()); err != nil {
		return fmt.Errorf("invalid data lineage: %w", err)
	}
	if _, err := rules.NewExpressions(c.Data.Expressions); err != nil {
		return fmt.Errorf("invalid data expressions: %w", err)
	}
	return nil
}

// ValidateDirectories checks if required directories exist.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.MediaDir); os.IsNotExist(err) {
		return fmt.Errorf("media directory does not exist: %s\nHint: Create the directory or use --media-dir to specify a different path", c.MediaDir)
	}
	return nil
}
