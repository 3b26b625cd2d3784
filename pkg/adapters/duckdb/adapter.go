// Package duckdb provides the DuckDB adapter that backs leapflow datasets.
//
// Besides plain SQL execution it knows how to load files into tables, export
// tables to files and attach secondary databases used as the metadata catalog.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapflow/pkg/adapter"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// File formats understood by LoadFile and ExportQuery.
const (
	FormatParquet = "parquet"
	FormatCSV     = "csv"
	FormatJSON    = "json"
)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		// attached catalogs share information_schema with the session database
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger, MetadataCatalog: "current_database()"},
	}
}

// Connect establishes a connection to DuckDB and applies engine params.
// Use ":memory:" (or an empty path) for an in-memory database.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if path == ":memory:" {
		dsn = ""
	}

	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	a.Logger.Debug("connecting to duckdb", slog.String("path", path))

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.DB = db
	a.Cfg = cfg

	if err := a.applyParams(ctx, params); err != nil {
		_ = a.Close()
		return err
	}
	return nil
}

func (a *Adapter) applyParams(ctx context.Context, p *Params) error {
	for _, ext := range p.Extensions {
		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))
		if err := a.Exec(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext)); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	for key, value := range p.Settings {
		if err := a.Exec(ctx, fmt.Sprintf("SET %s = %s", key, adapter.QuoteString(value))); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	for _, s := range p.Secrets {
		if err := a.Exec(ctx, buildCreateSecretSQL(s)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", s.Type, err)
		}
	}
	return nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement for cfg.
func buildCreateSecretSQL(cfg SecretConfig) string {
	parts := []string{"TYPE " + cfg.Type}
	if cfg.Provider != "" {
		parts = append(parts, "PROVIDER "+cfg.Provider)
	}
	if cfg.Region != "" {
		parts = append(parts, "REGION "+adapter.QuoteString(cfg.Region))
	}
	if scope := formatScope(cfg.Scope); scope != "" {
		parts = append(parts, "SCOPE "+scope)
	}
	if cfg.KeyID != "" {
		parts = append(parts, "KEY_ID "+adapter.QuoteString(cfg.KeyID))
	}
	if cfg.Secret != "" {
		parts = append(parts, "SECRET "+adapter.QuoteString(cfg.Secret))
	}
	if cfg.Endpoint != "" {
		parts = append(parts, "ENDPOINT "+adapter.QuoteString(cfg.Endpoint))
	}
	if cfg.URLStyle != "" {
		parts = append(parts, "URL_STYLE "+adapter.QuoteString(cfg.URLStyle))
	}
	if cfg.UseSSL != nil {
		parts = append(parts, fmt.Sprintf("USE_SSL %t", *cfg.UseSSL))
	}
	return "CREATE SECRET (\n    " + strings.Join(parts, ",\n    ") + "\n)"
}

func formatScope(scope any) string {
	var items []string
	switch v := scope.(type) {
	case nil:
		return ""
	case string:
		return adapter.QuoteString(v)
	case []string:
		items = v
	case []any:
		for _, s := range v {
			items = append(items, fmt.Sprint(s))
		}
	default:
		return adapter.QuoteString(fmt.Sprint(v))
	}
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = adapter.QuoteString(s)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, "main", func(int) string { return "?" })
}

// LoadFile creates (or replaces) table from the files matched by path.
// path may be a glob; parquet inputs are unioned by column name.
func (a *Adapter) LoadFile(ctx context.Context, table, path, format string) error {
	reader, err := readerFunc(path, format)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", adapter.QuoteIdent(table), reader)
	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func readerFunc(path, format string) (string, error) {
	lit := adapter.QuoteString(path)
	switch strings.ToLower(format) {
	case FormatParquet, "":
		return fmt.Sprintf("read_parquet(%s, union_by_name = true)", lit), nil
	case FormatCSV:
		return fmt.Sprintf("read_csv_auto(%s, header = true)", lit), nil
	case FormatJSON:
		return fmt.Sprintf("read_json_auto(%s)", lit), nil
	default:
		return "", fmt.Errorf("unsupported file format %q", format)
	}
}

// ExportQuery writes the result of query to a single file at path.
func (a *Adapter) ExportQuery(ctx context.Context, query, path, format string) error {
	var opts string
	switch strings.ToLower(format) {
	case FormatParquet, "":
		opts = "FORMAT PARQUET"
	case FormatCSV:
		opts = "FORMAT CSV, HEADER"
	case FormatJSON:
		opts = "FORMAT JSON"
	default:
		return fmt.Errorf("unsupported file format %q", format)
	}
	stmt := fmt.Sprintf("COPY (%s) TO %s (%s)", query, adapter.QuoteString(path), opts)
	if err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to export to %s: %w", path, err)
	}
	return nil
}

// Attach attaches a DuckDB database file under alias, if not attached yet.
func (a *Adapter) Attach(ctx context.Context, path, alias string) error {
	stmt := fmt.Sprintf("ATTACH IF NOT EXISTS %s AS %s", adapter.QuoteString(path), adapter.QuoteIdent(alias))
	if err := a.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to attach %s: %w", path, err)
	}
	return nil
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
