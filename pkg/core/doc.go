// Package core defines the shared language of the leapflow system.
//
// This package contains:
//   - Domain entities (Layer, MigrationRequest, ColumnSpec)
//   - The response envelope (TransferResponse) and its report sections
//   - Error kinds and the MigrationError type
//   - Service interfaces (Adapter, Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
