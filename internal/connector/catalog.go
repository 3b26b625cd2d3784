package connector

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// CatalogAlias is the name the catalog database is attached under.
const CatalogAlias = "lf_catalog"

// Catalog copies written datasets into a DuckDB metadata catalog file,
// one table per class and layer.
type Catalog struct {
	engine *duckdb.Adapter
	path   string
}

// NewCatalog creates a catalog writer for the database file at path.
func NewCatalog(engine *duckdb.Adapter, path string) *Catalog {
	return &Catalog{engine: engine, path: path}
}

// Write replaces the catalog table with the frame. table is
// "schema.name"; the schema is created when missing.
func (c *Catalog) Write(ctx context.Context, f *dataset.Frame, table string) error {
	if c.path == "" {
		return core.Errorf(core.KindCatalogWriteFailed, "catalog path is not configured")
	}
	if err := c.engine.Attach(ctx, c.path, CatalogAlias); err != nil {
		return core.WrapError(core.KindCatalogWriteFailed, err, "failed to open catalog")
	}

	schema, name := adapter.ParseQualifiedName(table, "main")
	alias := adapter.QuoteIdent(CatalogAlias)
	if err := c.engine.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s.%s", alias, adapter.QuoteIdent(schema))); err != nil {
		return core.WrapError(core.KindCatalogWriteFailed, err, "failed to create catalog schema %s", schema)
	}
	ref := CatalogRef(schema, name)
	if err := c.engine.Exec(ctx, fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", ref, f.Ref())); err != nil {
		return core.WrapError(core.KindCatalogWriteFailed, err, "failed to write catalog table %s", table)
	}
	return nil
}

// CatalogRef returns the quoted reference of a catalog table.
func CatalogRef(schema, name string) string {
	return adapter.QuoteIdent(CatalogAlias) + "." + adapter.QuoteIdent(schema) + "." + adapter.QuoteIdent(name)
}
