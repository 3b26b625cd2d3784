// Package validate checks a migration request against the media catalog and
// the layer registry before any data is touched.
package validate

import (
	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/lineage"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Validator validates migration requests. It is safe for concurrent use.
type Validator struct {
	registry *lineage.Registry
	catalog  *config.Catalog
}

// New creates a Validator.
func New(registry *lineage.Registry, catalog *config.Catalog) *Validator {
	return &Validator{registry: registry, catalog: catalog}
}

// Request validates req and returns the first violation as a
// *core.MigrationError carrying the rejected value and the accepted values.
// Checks run in order: media category, media class, source, target.
func (v *Validator) Request(req core.MigrationRequest) error {
	media, ok := v.catalog.Lookup(req.MediaType)
	if !ok {
		return core.InvalidValue(core.KindInvalidMediaCategory,
			"unknown media category", req.MediaType, v.catalog.Categories())
	}

	if _, ok := media.Class(req.MediaClass); !ok {
		return core.InvalidValue(core.KindInvalidMediaSubclass,
			"unknown media class for "+req.MediaType, req.MediaClass, media.ClassNames())
	}

	if !v.registry.IsSource(req.Source) {
		return core.InvalidValue(core.KindInvalidSource,
			"invalid source layer", req.Source.String(), core.LayerStrings(v.registry.Sources()))
	}

	if req.Target == core.LayerAuto {
		return nil
	}

	if !v.registry.IsTarget(req.Target) {
		accepted := append(core.LayerStrings(v.registry.Targets()), core.LayerAuto.String())
		return core.InvalidValue(core.KindInvalidTarget,
			"invalid target layer", req.Target.String(), accepted)
	}

	if req.Target == req.Source {
		return core.InvalidValue(core.KindSourceEqualsTarget,
			"source and target layers must differ", req.Target.String(), nil)
	}

	return nil
}
