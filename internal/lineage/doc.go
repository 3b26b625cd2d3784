// Package lineage holds the layer registry: the set of known layers, their
// display labels, which layers may act as a source or a target, and the
// successor of each layer along the storage lineage.
//
// The registry is built once from configuration and is read-only afterwards.
//
// # Basic Usage
//
//	reg, err := lineage.New(lineage.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	target, err := reg.ResolveTarget(core.LayerRaw) // core.LayerBronze
//	label := reg.Label(target)                      // "Bronze Layer"
package lineage
