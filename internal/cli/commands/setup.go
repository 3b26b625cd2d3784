package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/config"
	"github.com/leapstack-labs/leapflow/internal/cli/output"
	catalog "github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/internal/lineage"
	"github.com/leapstack-labs/leapflow/internal/rules"
	"github.com/leapstack-labs/leapflow/internal/secrets"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with engine and renderer.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	eng, err := createEngine(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output))

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close engine", "error", err.Error())
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need the media catalog or a database.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

// Helper functions shared across commands

// getConfig returns the current configuration.
// It uses config.GetCurrentConfig() if available, otherwise loads defaults
// and environment variables.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	cfg, err := config.LoadConfig("", nil)
	if err != nil {
		return &config.Config{
			MediaDir:  getEnvOrDefault(config.EnvPrefix+"MEDIA_DIR", config.DefaultMediaDir),
			StatePath: getEnvOrDefault(config.EnvPrefix+"STATE_PATH", config.DefaultStateFile),
			Engine:    config.EngineConfig{Path: config.DefaultDatabase},
			Log:       config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
			Display:   config.DisplayConfig{Limit: config.DefaultDisplayLimit},
			Output:    os.Getenv(config.EnvPrefix + "OUTPUT"),
		}
	}
	return cfg
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func createEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.ValidateDirectories(); err != nil {
		return nil, err
	}

	// Ensure state directory exists
	stateDir := filepath.Dir(cfg.StatePath)
	if stateDir != "." && stateDir != "" {
		if err := os.MkdirAll(stateDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	media, err := catalog.LoadCatalog(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load media catalog: %w", err)
	}
	registry, err := lineage.New(cfg.Data.Lineage())
	if err != nil {
		return nil, fmt.Errorf("invalid data lineage: %w", err)
	}
	patterns := cfg.Data.Expressions
	if len(patterns) == 0 {
		patterns = rules.DefaultExpressions
	}
	expressions, err := rules.NewExpressions(patterns)
	if err != nil {
		return nil, err
	}
	provider, err := secrets.New(ctx, cfg.Secrets)
	if err != nil {
		return nil, fmt.Errorf("failed to create secrets provider: %w", err)
	}
	dbConfig, err := databaseConfig(ctx, cfg.Engine, provider)
	if err != nil {
		return nil, err
	}

	return engine.New(engine.Config{
		App: core.AppInfo{
			Name:        cfg.App.Name,
			Version:     cfg.App.Version,
			Environment: cfg.App.Environment,
		},
		Switchboard: cfg.Switchboard,
		Catalog:     media,
		Registry:    registry,
		Expressions: expressions,
		Secrets:     provider,
		Database:    dbConfig,
		CatalogPath: cfg.Catalog.Path,
		StatePath:   cfg.StatePath,
		Logger:      logger,
	})
}

// databaseConfig maps the engine section onto the DuckDB adapter config,
// resolving the credentials of engine secrets through p.
func databaseConfig(ctx context.Context, e config.EngineConfig, p secrets.Provider) (core.AdapterConfig, error) {
	path := e.Path
	if path == "" {
		path = config.DefaultDatabase
	}
	params := map[string]any{}
	if len(e.Settings) > 0 {
		params["settings"] = e.Settings
	}
	if len(e.Extensions) > 0 {
		params["extensions"] = e.Extensions
	}
	if len(e.Secrets) > 0 {
		list := make([]map[string]any, 0, len(e.Secrets))
		for i, sec := range e.Secrets {
			m, err := engineSecret(ctx, sec, p)
			if err != nil {
				return core.AdapterConfig{}, fmt.Errorf("engine.secrets[%d]: %w", i, err)
			}
			list = append(list, m)
		}
		params["secrets"] = list
	}
	return core.AdapterConfig{
		Type:   "duckdb",
		Path:   path,
		Params: params,
	}, nil
}

// engineSecret renders one engine secret as DuckDB adapter params.
func engineSecret(ctx context.Context, sec config.EngineSecret, p secrets.Provider) (map[string]any, error) {
	refs := map[string]catalog.SecretRef{}
	if sec.KeyID != nil {
		refs["key_id"] = *sec.KeyID
	}
	if sec.Secret != nil {
		refs["secret"] = *sec.Secret
	}
	values, err := secrets.Resolve(ctx, p, refs)
	if err != nil {
		return nil, err
	}

	m := map[string]any{"type": sec.Type}
	for key, value := range map[string]string{
		"provider":  sec.Provider,
		"region":    sec.Region,
		"endpoint":  sec.Endpoint,
		"url_style": sec.URLStyle,
	} {
		if value != "" {
			m[key] = value
		}
	}
	for key, value := range values {
		m[key] = value
	}
	if len(sec.Scope) > 0 {
		m["scope"] = sec.Scope
	}
	if sec.UseSSL != nil {
		m["use_ssl"] = *sec.UseSSL
	}
	return m, nil
}

// PipelineOptions carries scheduler metadata handed to the run command.
type PipelineOptions struct {
	Caller      string
	Name        string
	RunID       string
	TriggerType string
	TriggeredOn string
}

// newCaller describes the CLI invocation. Pipeline metadata is attached
// only when a pipeline name is given.
func newCaller(p PipelineOptions) core.Caller {
	c := core.Caller{Name: config.DefaultCallerName, Runner: runner()}
	if p.Name != "" {
		c.Pipeline = &core.PipelineInfo{
			Caller:      p.Caller,
			Name:        p.Name,
			RunID:       p.RunID,
			TriggerType: p.TriggerType,
			TriggeredOn: p.TriggeredOn,
		}
	}
	return c
}

func runner() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// parseLayers parses a comma separated list of layer codes. Unknown codes are
// kept so the engine reports them.
func parseLayers(s string) []core.Layer {
	var layers []core.Layer
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			layers = append(layers, core.ParseLayer(part))
		}
	}
	return layers
}

// splitList splits a comma separated flag value.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
