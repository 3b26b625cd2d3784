// Package dataset provides Frame, the tabular dataset the pipeline stages work
// on. A Frame is a table in the DuckDB dataset engine; every transformation
// rebuilds the table under a new generation name and drops the previous one.
package dataset

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

var (
	generation  atomic.Int64
	unsafeIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)
)

// Frame is a named, mutable table in the dataset engine.
// A Frame is not safe for concurrent use.
type Frame struct {
	db    adapter.Adapter
	base  string
	table string
}

// TableName returns a fresh engine table name derived from base.
func TableName(base string) string {
	clean := strings.Trim(unsafeIdent.ReplaceAllString(base, "_"), "_")
	if clean == "" {
		clean = "frame"
	}
	return fmt.Sprintf("lf_%s_%d", strings.ToLower(clean), generation.Add(1))
}

// Wrap returns a Frame over an existing table.
func Wrap(db adapter.Adapter, table string) *Frame {
	return &Frame{db: db, base: table, table: table}
}

// FromQuery materialises query into a new Frame.
func FromQuery(ctx context.Context, db adapter.Adapter, base, query string) (*Frame, error) {
	f := &Frame{db: db, base: base}
	name := TableName(base)
	if err := db.Exec(ctx, fmt.Sprintf("CREATE TABLE %s AS %s", adapter.QuoteIdent(name), query)); err != nil {
		return nil, fmt.Errorf("failed to create dataset %s: %w", base, err)
	}
	f.table = name
	return f, nil
}

// Engine returns the adapter the frame lives in.
func (f *Frame) Engine() adapter.Adapter {
	return f.db
}

// Table returns the current engine table name.
func (f *Frame) Table() string {
	return f.table
}

// Ref returns the quoted table reference for use in SQL.
func (f *Frame) Ref() string {
	return adapter.QuoteIdent(f.table)
}

// Columns returns the frame's columns in ordinal order.
func (f *Frame) Columns(ctx context.Context) ([]core.Column, error) {
	meta, err := f.db.GetTableMetadata(ctx, f.table)
	if err != nil {
		return nil, fmt.Errorf("failed to describe dataset %s: %w", f.base, err)
	}
	return meta.Columns, nil
}

// ColumnNames returns the column names in ordinal order.
func (f *Frame) ColumnNames(ctx context.Context) ([]string, error) {
	cols, err := f.Columns(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names, nil
}

// ColumnType returns the engine type of a column.
func (f *Frame) ColumnType(ctx context.Context, name string) (string, bool, error) {
	cols, err := f.Columns(ctx)
	if err != nil {
		return "", false, err
	}
	for _, c := range cols {
		if c.Name == name {
			return c.Type, true, nil
		}
	}
	return "", false, nil
}

// HasColumn reports whether the frame has a column called name.
func (f *Frame) HasColumn(ctx context.Context, name string) (bool, error) {
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return false, err
	}
	return slices.Contains(names, name), nil
}

// Count returns the number of rows.
func (f *Frame) Count(ctx context.Context) (int64, error) {
	return f.ScalarInt(ctx, "SELECT COUNT(*) FROM "+f.Ref())
}

// ScalarInt runs a query that returns a single integer.
func (f *Frame) ScalarInt(ctx context.Context, query string, args ...any) (int64, error) {
	rows, err := f.db.Query(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer func() { _ = rows.Close() }()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to scan result: %w", err)
		}
	}
	return n, rows.Err()
}

// Rebuild replaces the frame's table with the result of a SELECT over it.
// The select receives the current table reference.
func (f *Frame) Rebuild(ctx context.Context, selectFn func(ref string) string) error {
	next := TableName(f.base)
	query := fmt.Sprintf("CREATE TABLE %s AS %s", adapter.QuoteIdent(next), selectFn(f.Ref()))
	if err := f.db.Exec(ctx, query); err != nil {
		return err
	}
	prev := f.Ref()
	f.table = next
	if err := f.db.Exec(ctx, "DROP TABLE IF EXISTS "+prev); err != nil {
		return fmt.Errorf("failed to drop previous generation: %w", err)
	}
	return nil
}

// AddColumn appends a column computed by expr.
func (f *Frame) AddColumn(ctx context.Context, name, expr string) error {
	return f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT *, %s AS %s FROM %s", expr, adapter.QuoteIdent(name), ref)
	})
}

// ReplaceColumn recomputes an existing column in place.
func (f *Frame) ReplaceColumn(ctx context.Context, name, expr string) error {
	return f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT * REPLACE (%s AS %s) FROM %s", expr, adapter.QuoteIdent(name), ref)
	})
}

// Cast converts a column to sqlType. Values that cannot be converted
// become NULL.
func (f *Frame) Cast(ctx context.Context, name, sqlType string) error {
	expr := fmt.Sprintf("TRY_CAST(%s AS %s)", adapter.QuoteIdent(name), sqlType)
	return f.ReplaceColumn(ctx, name, expr)
}

// DropColumns removes the named columns.
func (f *Frame) DropColumns(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT * EXCLUDE %s FROM %s", identList(names), ref)
	})
}

// RenameColumn renames a column.
func (f *Frame) RenameColumn(ctx context.Context, from, to string) error {
	return f.db.Exec(ctx, fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
		f.Ref(), adapter.QuoteIdent(from), adapter.QuoteIdent(to)))
}

// Filter keeps only the rows matching predicate.
func (f *Frame) Filter(ctx context.Context, predicate string) error {
	return f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT * FROM %s WHERE %s", ref, predicate)
	})
}

// Select projects the frame onto the named columns, in that order.
func (f *Frame) Select(ctx context.Context, names ...string) error {
	return f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoteAll(names), ", "), ref)
	})
}

// Distinct removes duplicate rows. With no fields, rows must match on every
// column; otherwise the first row of each distinct combination of fields is
// kept.
func (f *Frame) Distinct(ctx context.Context, fields ...string) error {
	return f.Rebuild(ctx, func(ref string) string {
		if len(fields) == 0 {
			return "SELECT DISTINCT * FROM " + ref
		}
		return fmt.Sprintf("SELECT DISTINCT ON %s * FROM %s", identList(fields), ref)
	})
}

// SortKey orders a frame by one column.
type SortKey struct {
	Column     string
	Descending bool
}

// Sort orders the rows by keys.
func (f *Frame) Sort(ctx context.Context, keys ...SortKey) error {
	if len(keys) == 0 {
		return nil
	}
	parts := make([]string, len(keys))
	for i, k := range keys {
		dir := "ASC"
		if k.Descending {
			dir = "DESC"
		}
		parts[i] = adapter.QuoteIdent(k.Column) + " " + dir
	}
	return f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT * FROM %s ORDER BY %s", ref, strings.Join(parts, ", "))
	})
}

// Aggregate is one aggregate output of Group.
type Aggregate struct {
	Column   string
	Function string
	Alias    string
}

// Group collapses the frame to one row per combination of by, computing aggs.
func (f *Frame) Group(ctx context.Context, by []string, aggs []Aggregate) error {
	exprs := quoteAll(by)
	for _, a := range aggs {
		alias := a.Alias
		if alias == "" {
			alias = a.Column
		}
		exprs = append(exprs, fmt.Sprintf("%s(%s) AS %s",
			strings.ToUpper(a.Function), adapter.QuoteIdent(a.Column), adapter.QuoteIdent(alias)))
	}
	return f.Rebuild(ctx, func(ref string) string {
		q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), ref)
		if len(by) > 0 {
			q += " GROUP BY " + strings.Join(quoteAll(by), ", ")
		}
		return q
	})
}

// Clone copies the frame into a new, independent Frame.
func (f *Frame) Clone(ctx context.Context) (*Frame, error) {
	return FromQuery(ctx, f.db, f.base, "SELECT * FROM "+f.Ref())
}

// Preview returns up to limit rows rendered as strings.
func (f *Frame) Preview(ctx context.Context, limit int) ([]string, [][]string, error) {
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return nil, nil, err
	}
	casts := make([]string, len(names))
	for i, n := range names {
		casts[i] = fmt.Sprintf("CAST(%s AS VARCHAR)", adapter.QuoteIdent(n))
	}
	query := fmt.Sprintf("SELECT %s FROM %s LIMIT %d", strings.Join(casts, ", "), f.Ref(), max(limit, 0))
	rows, err := f.db.Query(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to preview dataset: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out [][]string
	for rows.Next() {
		cells := make([]*string, len(names))
		dest := make([]any, len(names))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan preview row: %w", err)
		}
		row := make([]string, len(names))
		for i, c := range cells {
			if c == nil {
				row[i] = "NULL"
			} else {
				row[i] = *c
			}
		}
		out = append(out, row)
	}
	return names, out, rows.Err()
}

// Release drops the frame's table.
func (f *Frame) Release(ctx context.Context) error {
	if f.table == "" {
		return nil
	}
	err := f.db.Exec(ctx, "DROP TABLE IF EXISTS "+f.Ref())
	f.table = ""
	return err
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = adapter.QuoteIdent(n)
	}
	return out
}

func identList(names []string) string {
	return "(" + strings.Join(quoteAll(names), ", ") + ")"
}
