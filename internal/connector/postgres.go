package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/retry"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/adapters/postgres"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// ProviderPostgres stores the destination layer in PostgreSQL.
const ProviderPostgres = "postgres"

// engineInsertRows bounds a single insert into the dataset engine.
const engineInsertRows = 1000

func init() {
	Register(ProviderPostgres, newPostgresConnector)
}

// PostgresOptions configure the postgres provider. Username and password
// are usually supplied as stage secrets.
type PostgresOptions struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Schema   string `mapstructure:"schema"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// PostgresConnector writes frames to destination tables. Locations are
// table names, qualified with the configured schema when unqualified.
type PostgresConnector struct {
	engine    *duckdb.Adapter
	db        *postgres.Adapter
	opts      PostgresOptions
	write     config.WriteOptions
	policy    retry.Policy
	partition int
	batch     int
	logger    *slog.Logger
}

func newPostgresConnector(ctx context.Context, p Params) (Connector, error) {
	var opts PostgresOptions
	if err := decodeOptions(p, &opts); err != nil {
		return nil, err
	}
	db := postgres.New(p.Logger)
	cfg := adapter.Config{
		Type:     ProviderPostgres,
		Host:     opts.Host,
		Port:     opts.Port,
		Database: opts.Database,
		Username: opts.Username,
		Password: opts.Password,
	}
	if opts.SSLMode != "" {
		cfg.Options = map[string]string{"sslmode": opts.SSLMode}
	}
	if err := db.Connect(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to connect to destination database: %w", err)
	}
	return NewPostgresConnector(p, opts, db), nil
}

// NewPostgresConnector creates a postgres connector over a connected adapter.
func NewPostgresConnector(p Params, opts PostgresOptions, db *postgres.Adapter) *PostgresConnector {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &PostgresConnector{
		engine:    p.Engine,
		db:        db,
		opts:      opts,
		write:     p.Provider.Write,
		policy:    retry.Policy{Maximum: p.Provider.Retry.Maximum, Delay: p.Provider.Retry.Delay},
		partition: max(p.Provider.Partition, 1),
		batch:     max(p.Provider.Batch, 1),
		logger:    logger,
	}
}

func (c *PostgresConnector) table(location string) string {
	if c.opts.Schema == "" || strings.Contains(location, ".") {
		return location
	}
	return c.opts.Schema + "." + location
}

// Read copies a destination table into a new frame.
func (c *PostgresConnector) Read(ctx context.Context, location string) (*dataset.Frame, error) {
	table := c.table(location)
	schema, name := adapter.ParseQualifiedName(table, "public")
	ref := adapter.QuoteIdent(schema) + "." + adapter.QuoteIdent(name)

	rows, err := c.db.Query(ctx, "SELECT * FROM "+ref)
	if err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to read %s", table)
	}
	defer func() { _ = rows.Close() }()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to read columns of %s", table)
	}
	names := make([]string, len(types))
	defs := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name()
		defs[i] = adapter.QuoteIdent(t.Name()) + " " + engineType(t.DatabaseTypeName())
	}

	f := dataset.Wrap(c.engine, dataset.TableName("read"))
	if err := c.engine.Exec(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", f.Ref(), strings.Join(defs, ", "))); err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to stage %s", table)
	}

	var pending [][]any
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		err := insertRows(ctx, c.engine, f.Ref(), names, pending)
		pending = pending[:0]
		return err
	}
	for rows.Next() {
		row, err := scanRow(rows.Rows, len(names))
		if err != nil {
			return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to scan %s", table)
		}
		for i, v := range row {
			if b, ok := v.([]byte); ok && !strings.EqualFold(types[i].DatabaseTypeName(), "BYTEA") {
				row[i] = string(b)
			}
		}
		pending = append(pending, row)
		if len(pending) == engineInsertRows {
			if err := flush(); err != nil {
				return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to stage %s", table)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to read %s", table)
	}
	if err := flush(); err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to stage %s", table)
	}
	return f, nil
}

// Write replaces (or, in append mode, extends) the destination table with
// the frame. An overwrite is retried as a whole per the stage retry policy.
// Batches of a failed append may already be committed, so in append mode
// only the table setup is retried and the rows are inserted once.
func (c *PostgresConnector) Write(ctx context.Context, f *dataset.Frame, location string) error {
	table := c.table(location)
	logger := c.logger.With(slog.String("table", table))
	appending := c.write.Mode == writeModeAppend

	var columns []core.Column
	err := retry.Do(ctx, c.policy, logger, func(ctx context.Context, _ int) error {
		var err error
		if columns, err = c.prepare(ctx, f, table, appending); err != nil {
			return err
		}
		if appending {
			return nil
		}
		return c.insert(ctx, f, table, columns)
	})
	if err == nil && appending {
		err = c.insert(ctx, f, table, columns)
	}
	if err != nil {
		return core.WrapError(core.KindSinkWriteFailed, err, "failed to write %s", table)
	}
	return nil
}

// prepare creates the destination table, keeping an existing one when
// appending.
func (c *PostgresConnector) prepare(ctx context.Context, f *dataset.Frame, table string, appending bool) ([]core.Column, error) {
	columns, err := f.Columns(ctx)
	if err != nil {
		return nil, err
	}
	if appending {
		err = c.db.EnsureTable(ctx, table, columns)
	} else {
		err = c.db.RecreateTable(ctx, table, columns)
	}
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// insert streams the frame into table in batches across the partitions.
func (c *PostgresConnector) insert(ctx context.Context, f *dataset.Frame, table string, columns []core.Column) error {
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.Name
	}

	rows, err := c.engine.Query(ctx, fmt.Sprintf("SELECT %s FROM %s", sinkProjection(columns), f.Ref()))
	if err != nil {
		return fmt.Errorf("failed to stream %s: %w", f.Table(), err)
	}
	defer func() { _ = rows.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	batches := make(chan [][]any)

	for range c.partition {
		g.Go(func() error {
			for b := range batches {
				if err := c.db.InsertBatch(gctx, table, names, b); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(batches)
		batch := make([][]any, 0, c.batch)
		send := func() error {
			select {
			case batches <- batch:
				batch = make([][]any, 0, c.batch)
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		for rows.Next() {
			row, err := scanRow(rows.Rows, len(names))
			if err != nil {
				return fmt.Errorf("failed to scan %s: %w", f.Table(), err)
			}
			batch = append(batch, row)
			if len(batch) == c.batch {
				if err := send(); err != nil {
					return err
				}
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to stream %s: %w", f.Table(), err)
		}
		if len(batch) > 0 {
			return send()
		}
		return nil
	})

	return g.Wait()
}

// Close closes the destination connection.
func (c *PostgresConnector) Close() error {
	return c.db.Close()
}

// sinkProjection casts engine types the destination driver cannot encode.
func sinkProjection(columns []core.Column) string {
	exprs := make([]string, len(columns))
	for i, col := range columns {
		id := adapter.QuoteIdent(col.Name)
		t := strings.ToUpper(col.Type)
		switch {
		case strings.HasPrefix(t, "DECIMAL"):
			exprs[i] = fmt.Sprintf("CAST(%s AS DOUBLE) AS %s", id, id)
		case t == "HUGEINT" || t == "UBIGINT":
			exprs[i] = fmt.Sprintf("CAST(%s AS BIGINT) AS %s", id, id)
		case postgres.MapType(t) == "TEXT" && t != "VARCHAR":
			exprs[i] = fmt.Sprintf("CAST(%s AS VARCHAR) AS %s", id, id)
		default:
			exprs[i] = id
		}
	}
	return strings.Join(exprs, ", ")
}

// engineType maps a PostgreSQL type name to a dataset engine type.
func engineType(pgType string) string {
	switch strings.ToUpper(pgType) {
	case "INT2":
		return "SMALLINT"
	case "INT4":
		return "INTEGER"
	case "INT8":
		return "BIGINT"
	case "FLOAT4":
		return "FLOAT"
	case "FLOAT8", "NUMERIC":
		return "DOUBLE"
	case "BOOL":
		return "BOOLEAN"
	case "DATE":
		return "DATE"
	case "TIMESTAMP":
		return "TIMESTAMP"
	case "TIMESTAMPTZ":
		return "TIMESTAMPTZ"
	case "BYTEA":
		return "BLOB"
	default:
		return "VARCHAR"
	}
}

func scanRow(rows *sql.Rows, width int) ([]any, error) {
	values := make([]any, width)
	ptrs := make([]any, width)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

// insertRows appends rows to an engine table with one parameterised insert.
func insertRows(ctx context.Context, engine *duckdb.Adapter, ref string, names []string, rows [][]any) error {
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = adapter.QuoteIdent(n)
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"
	tuples := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(names))
	for i, r := range rows {
		tuples[i] = tuple
		args = append(args, r...)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", ref, strings.Join(cols, ", "), strings.Join(tuples, ", "))
	return engine.Exec(ctx, query, args...)
}
