package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "leapflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "app:\n  version: 1.0.0\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	root := filepath.Dir(cfgPath)
	assert.Equal(t, root, cfg.ProjectRoot)
	assert.Equal(t, DefaultAppName, cfg.App.Name)
	assert.Equal(t, "1.0.0", cfg.App.Version)
	assert.Equal(t, filepath.Join(root, DefaultMediaDir), cfg.MediaDir)
	assert.Equal(t, filepath.Join(root, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, ":memory:", cfg.Engine.Path)
	assert.Equal(t, DefaultDisplayLimit, cfg.Display.Limit)
	assert.Equal(t, "env", cfg.Secrets.Provider)
	assert.False(t, cfg.Switchboard.DebugMode)

	lin := cfg.Data.Lineage()
	assert.Equal(t, "BL", lin.Transformer)
	assert.Equal(t, "LZ", lin.Lineage["DS"])

	assert.Same(t, cfg, GetCurrentConfig())
	assert.Equal(t, cfgPath, GetConfigFileUsed())
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, `
media_dir: catalog
switchboard:
  quality_check: true
  integrity_check: true
  debug_mode: true
data:
  transformer: SL
  expressions:
    digits: "^[0-9]+$"
engine:
  path: data/lake.duckdb
  settings: {threads: "2"}
  extensions: [json]
  secrets:
    - type: s3
      scope: [s3://edlz]
      key_id: {scope: lake, key: access_key}
catalog:
  path: catalog.duckdb
log:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	root := filepath.Dir(cfgPath)
	assert.Equal(t, filepath.Join(root, "catalog"), cfg.MediaDir)
	assert.True(t, cfg.Switchboard.QualityCheck)
	assert.True(t, cfg.Switchboard.IntegrityCheck)
	assert.True(t, cfg.Switchboard.DebugMode)
	assert.False(t, cfg.Switchboard.CatalogWrite)
	assert.Equal(t, "SL", cfg.Data.Lineage().Transformer)
	assert.Equal(t, "^[0-9]+$", cfg.Data.Expressions["digits"])
	assert.Equal(t, filepath.Join(root, "data", "lake.duckdb"), cfg.Engine.Path)
	assert.Equal(t, map[string]string{"threads": "2"}, cfg.Engine.Settings)
	assert.Equal(t, []string{"json"}, cfg.Engine.Extensions)
	require.Len(t, cfg.Engine.Secrets, 1)
	assert.Equal(t, "s3", cfg.Engine.Secrets[0].Type)
	assert.Equal(t, []string{"s3://edlz"}, cfg.Engine.Secrets[0].Scope)
	require.NotNil(t, cfg.Engine.Secrets[0].KeyID)
	assert.Equal(t, "access_key", cfg.Engine.Secrets[0].KeyID.Key)
	assert.Nil(t, cfg.Engine.Secrets[0].Secret)
	assert.Equal(t, filepath.Join(root, "catalog.duckdb"), cfg.Catalog.Path)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"log level", "log: {level: loud}", "invalid log.level"},
		{"log format", "log: {format: xml}", "invalid log.format"},
		{"output", "output: html", "invalid output"},
		{"secrets provider", "secrets: {provider: vault}", "unknown secrets provider"},
		{"cyclic lineage", "data: {lineage: {DS: LZ, LZ: DS}}", "invalid data lineage"},
		{"bad expression", "data: {expressions: {broken: \"[\"}}", "invalid data expressions"},
		{"negative limit", "display: {limit: -1}", "display.limit"},
		{"untyped engine secret", "engine: {secrets: [{region: eu-west-1}]}", "engine.secrets[0]: type is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetConfig()
			_, err := LoadConfig(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

// TestLoadConfig_FlagPrecedence tests that flags override env vars and config file.
func TestLoadConfig_FlagPrecedence(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "media_dir: from_file\n")
	t.Setenv("LEAPFLOW_MEDIA_DIR", "from_env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("media-dir", "", "media directory")
	require.NoError(t, flags.Set("media-dir", "from_flag"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	want, _ := filepath.Abs("from_flag")
	assert.Equal(t, want, cfg.MediaDir, "flag value should override config file and env var")
}

// TestLoadConfig_EnvPrecedenceOverFile tests that env vars override config file.
func TestLoadConfig_EnvPrecedenceOverFile(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "media_dir: from_file\nswitchboard:\n  debug_mode: false\n")
	t.Setenv("LEAPFLOW_MEDIA_DIR", "from_env")
	t.Setenv("LEAPFLOW_SWITCHBOARD__DEBUG_MODE", "true")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(cfgPath), "from_env"), cfg.MediaDir)
	assert.True(t, cfg.Switchboard.DebugMode)
}

// TestLoadConfig_FlagNotSetUsesEnv tests that unset flags fall back to env vars.
func TestLoadConfig_FlagNotSetUsesEnv(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "log:\n  level: info\n")
	t.Setenv("LEAPFLOW_LOG__LEVEL", "debug")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-level", "", "log level")

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_MappedFlags(t *testing.T) {
	ResetConfig()
	cfgPath := writeConfig(t, "")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Bool("debug", false, "")
	flags.Bool("silent", false, "")
	flags.String("state", "", "")
	flags.String("database", "", "")
	flags.Int("limit", 0, "")
	require.NoError(t, flags.Set("debug", "true"))
	require.NoError(t, flags.Set("silent", "true"))
	require.NoError(t, flags.Set("state", "run.db"))
	require.NoError(t, flags.Set("database", ":memory:"))
	require.NoError(t, flags.Set("limit", "5"))

	cfg, err := LoadConfig(cfgPath, flags)
	require.NoError(t, err)

	wantState, _ := filepath.Abs("run.db")
	assert.True(t, cfg.Switchboard.DebugMode)
	assert.True(t, cfg.Switchboard.SilentMode)
	assert.Equal(t, wantState, cfg.StatePath)
	assert.Equal(t, ":memory:", cfg.Engine.Path)
	assert.Equal(t, 5, cfg.Display.Limit)
}

func TestLoadConfig_ExpandsEnvVars(t *testing.T) {
	ResetConfig()
	t.Setenv("LAKE_REGION", "eu-west-1")
	cfgPath := writeConfig(t, "secrets:\n  provider: aws\n  region: ${LAKE_REGION}\n  endpoint: ${UNSET_ENDPOINT_VAR}\n")

	cfg, err := LoadConfig(cfgPath, nil)
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Secrets.Region)
	assert.Equal(t, "${UNSET_ENDPOINT_VAR}", cfg.Secrets.Endpoint)
}

func TestValidateDirectories(t *testing.T) {
	cfg := &Config{MediaDir: t.TempDir()}
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.MediaDir = filepath.Join(cfg.MediaDir, "missing")
	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media directory does not exist")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		silent  bool
		wantOut []string
		wantNot []string
	}{
		{
			name:    "text info",
			cfg:     LogConfig{Level: "info", Format: "text"},
			wantOut: []string{"level=INFO", "msg=info-line", "level=WARN"},
			wantNot: []string{"debug-line"},
		},
		{
			name:    "json debug",
			cfg:     LogConfig{Level: "debug", Format: "json"},
			wantOut: []string{`"msg":"debug-line"`, `"level":"INFO"`},
		},
		{
			name:    "silent raises to warn",
			cfg:     LogConfig{Level: "debug", Format: "text"},
			silent:  true,
			wantOut: []string{"msg=warn-line"},
			wantNot: []string{"debug-line", "info-line"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := tt.cfg.NewLogger(&buf, tt.silent)
			logger.Debug("debug-line")
			logger.Info("info-line")
			logger.Warn("warn-line")

			out := buf.String()
			for _, want := range tt.wantOut {
				assert.Contains(t, out, want)
			}
			for _, not := range tt.wantNot {
				assert.NotContains(t, out, not)
			}
		})
	}
}

func TestGetLogger(t *testing.T) {
	logger := LogConfig{}.NewLogger(&bytes.Buffer{}, false)
	ctx := context.WithValue(context.Background(), LoggerKey(), logger)
	assert.Same(t, logger, GetLogger(ctx))
	assert.NotNil(t, GetLogger(context.Background()))
}
