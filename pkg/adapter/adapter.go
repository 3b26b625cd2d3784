// Package adapter provides the database adapter contract used by leapflow.
//
// The dataset engine (DuckDB) and the destination database (PostgreSQL) are
// both reached through this contract. Concrete adapter implementations are in
// pkg/adapters/ subdirectories and register themselves in init().
//
// Core types (Config, Column, Metadata, Rows) are defined in pkg/core and
// re-exported here via type aliases.
package adapter

import "github.com/leapstack-labs/leapflow/pkg/core"

type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig

	// Column is an alias for core.Column.
	Column = core.Column

	// Metadata is an alias for core.TableMetadata.
	Metadata = core.TableMetadata

	// Rows is an alias for core.Rows.
	Rows = core.Rows
)
