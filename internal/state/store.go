// Package state records the run history of leapflow in SQLite.
//
// Core types are defined in pkg/core. This package re-exports them via
// type aliases.
package state

import (
	"github.com/leapstack-labs/leapflow/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus

	// Run is an alias for core.Run.
	Run = core.Run

	// RunFilter is an alias for core.RunFilter.
	RunFilter = core.RunFilter
)

// Re-export status constants from core.
const (
	RunStatusRunning   = core.RunStatusRunning
	RunStatusCompleted = core.RunStatusCompleted
	RunStatusFailed    = core.RunStatusFailed
)
