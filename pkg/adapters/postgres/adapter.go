// Package postgres provides the PostgreSQL adapter used for the destination
// database layer.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx database/sql driver
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// maxBindParams is the PostgreSQL limit of bind parameters per statement.
const maxBindParams = 65535

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// Connect establishes a connection to PostgreSQL.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	dsn := buildPostgresDSN(cfg)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
func buildPostgresDSN(cfg adapter.Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}

	return dsn
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*adapter.Metadata, error) {
	return a.GetTableMetadataCommon(ctx, table, "public", placeholder)
}

// qualified renders schema.table with both parts quoted.
func qualified(table string) (schema, ref string) {
	schema, name := adapter.ParseQualifiedName(table, "public")
	return schema, adapter.QuoteIdent(schema) + "." + adapter.QuoteIdent(name)
}

// RecreateTable drops table if it exists and creates it with columns,
// mapping dataset engine types to PostgreSQL types.
func (a *Adapter) RecreateTable(ctx context.Context, table string, columns []core.Column) error {
	return a.createTable(ctx, table, columns, true)
}

// EnsureTable creates table with columns unless it already exists.
func (a *Adapter) EnsureTable(ctx context.Context, table string, columns []core.Column) error {
	return a.createTable(ctx, table, columns, false)
}

func (a *Adapter) createTable(ctx context.Context, table string, columns []core.Column, replace bool) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if len(columns) == 0 {
		return fmt.Errorf("table %s has no columns", table)
	}

	schema, ref := qualified(table)
	if err := a.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+adapter.QuoteIdent(schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", schema, err)
	}
	create := "CREATE TABLE IF NOT EXISTS"
	if replace {
		if err := a.Exec(ctx, "DROP TABLE IF EXISTS "+ref); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
		create = "CREATE TABLE"
	}

	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = adapter.QuoteIdent(c.Name) + " " + MapType(c.Type)
	}
	if err := a.Exec(ctx, fmt.Sprintf("%s %s (%s)", create, ref, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// InsertBatch inserts rows into table inside a single transaction, splitting
// into as many multi-row statements as the bind parameter limit requires.
func (a *Adapter) InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	if a.DB == nil {
		return fmt.Errorf("database connection not established")
	}
	if len(rows) == 0 {
		return nil
	}

	_, ref := qualified(table)
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = adapter.QuoteIdent(c)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", ref, strings.Join(quoted, ", "))
	perStmt := max(1, maxBindParams/len(columns))

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(rows); start += perStmt {
		end := min(start+perStmt, len(rows))
		stmt, args := buildInsert(prefix, len(columns), rows[start:end])
		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit insert into %s: %w", table, err)
	}
	return nil
}

func buildInsert(prefix string, width int, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString(prefix)
	args := make([]any, 0, width*len(rows))
	n := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j := 0; j < width; j++ {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(placeholder(n))
			n++
			if j < len(row) {
				args = append(args, row[j])
			} else {
				args = append(args, nil)
			}
		}
		b.WriteByte(')')
	}
	return b.String(), args
}

// MapType maps a DuckDB column type to a PostgreSQL column type.
func MapType(duckType string) string {
	t := strings.ToUpper(strings.TrimSpace(duckType))
	switch {
	case t == "TINYINT" || t == "SMALLINT" || t == "UTINYINT":
		return "SMALLINT"
	case t == "INTEGER" || t == "USMALLINT":
		return "INTEGER"
	case t == "BIGINT" || t == "UINTEGER" || t == "HUGEINT" || t == "UBIGINT":
		return "BIGINT"
	case t == "FLOAT" || t == "REAL":
		return "REAL"
	case t == "DOUBLE":
		return "DOUBLE PRECISION"
	case strings.HasPrefix(t, "DECIMAL"):
		return strings.Replace(t, "DECIMAL", "NUMERIC", 1)
	case t == "BOOLEAN":
		return "BOOLEAN"
	case t == "DATE":
		return "DATE"
	case strings.HasPrefix(t, "TIMESTAMP WITH TIME ZONE") || t == "TIMESTAMPTZ":
		return "TIMESTAMPTZ"
	case strings.HasPrefix(t, "TIMESTAMP"):
		return "TIMESTAMP"
	case t == "BLOB":
		return "BYTEA"
	default:
		return "TEXT"
	}
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
