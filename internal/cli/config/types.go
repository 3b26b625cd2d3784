// Package config provides configuration management for the leapflow CLI.
//
// The application config (leapflow.yaml) carries the run switches, the layer
// lineage, paths and logging. Media categories live in their own catalog
// files under media_dir and are loaded by internal/config.
package config

import (
	catalog "github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/internal/lineage"
	"github.com/leapstack-labs/leapflow/internal/secrets"
)

// Default configuration values.
const (
	DefaultAppName      = "leapflow"
	DefaultMediaDir     = "media"
	DefaultStateFile    = ".leapflow/state.db"
	DefaultDatabase     = ":memory:"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultDisplayLimit = 20
	DefaultCallerName   = "CLI"
)

// Config holds all CLI configuration options.
type Config struct {
	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-"`

	App         AppConfig          `koanf:"app"`
	Switchboard engine.Switchboard `koanf:"switchboard"`
	Data        DataConfig         `koanf:"data"`
	MediaDir    string             `koanf:"media_dir"`
	StatePath   string             `koanf:"state_path"`
	Engine      EngineConfig       `koanf:"engine"`
	Catalog     CatalogConfig      `koanf:"catalog"`
	Secrets     secrets.Config     `koanf:"secrets"`
	Log         LogConfig          `koanf:"log"`
	Display     DisplayConfig      `koanf:"display"`
	Output      string             `koanf:"output"`
}

// AppConfig identifies the application in run headers.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

// DataConfig holds the layer lineage and the named quality expressions.
type DataConfig struct {
	lineage.Config `koanf:",squash"`
	Expressions    map[string]string `koanf:"expressions"`
}

// EngineConfig configures the DuckDB dataset engine.
type EngineConfig struct {
	// Path is the database file, in memory when empty or ":memory:".
	Path       string            `koanf:"path"`
	Settings   map[string]string `koanf:"settings"`
	Extensions []string          `koanf:"extensions"`
	// Secrets are registered with DuckDB for remote reads, e.g. s3:// paths
	// through the httpfs extension.
	Secrets []EngineSecret `koanf:"secrets"`
}

// EngineSecret describes one DuckDB secret. The credentials are references
// into the secrets provider and are resolved when the engine is created.
type EngineSecret struct {
	Type     string             `koanf:"type"`
	Provider string             `koanf:"provider"`
	Region   string             `koanf:"region"`
	Scope    []string           `koanf:"scope"`
	Endpoint string             `koanf:"endpoint"`
	URLStyle string             `koanf:"url_style"`
	UseSSL   *bool              `koanf:"use_ssl"`
	KeyID    *catalog.SecretRef `koanf:"key_id"`
	Secret   *catalog.SecretRef `koanf:"secret"`
}

// CatalogConfig configures the metadata catalog written after each transfer.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// DisplayConfig configures dataset previews.
type DisplayConfig struct {
	Limit int `koanf:"limit"`
}

// Lineage returns the lineage config with defaults for every unset field.
func (d DataConfig) Lineage() lineage.Config {
	def := lineage.DefaultConfig()
	cfg := d.Config
	if len(cfg.Sources) == 0 {
		cfg.Sources = def.Sources
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = def.Targets
	}
	if cfg.Transformer == "" {
		cfg.Transformer = def.Transformer
	}
	if cfg.Merger == "" {
		cfg.Merger = def.Merger
	}
	if len(cfg.Lineage) == 0 {
		cfg.Lineage = def.Lineage
	}
	if len(cfg.Labels) == 0 {
		cfg.Labels = def.Labels
	}
	return cfg
}
