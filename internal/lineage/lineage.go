package lineage

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/leapflow/internal/dag"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// UnknownLabel is returned by Label for layers without a configured label.
const UnknownLabel = "Unknown"

// Config describes the layer registry.
type Config struct {
	Sources     []string          `koanf:"sources"`
	Targets     []string          `koanf:"targets"`
	Transformer string            `koanf:"transformer"`
	Merger      string            `koanf:"merger"`
	Lineage     map[string]string `koanf:"lineage"`
	Labels      map[string]string `koanf:"labels"`
}

// DefaultConfig returns the standard seven-layer lineage.
func DefaultConfig() Config {
	return Config{
		Sources:     []string{"DS", "LZ", "RZ", "BL", "SL", "GL"},
		Targets:     []string{"LZ", "RZ", "BL", "SL", "GL", "DZ", "Read"},
		Transformer: "BL",
		Merger:      "SL",
		Lineage: map[string]string{
			"DS": "LZ",
			"LZ": "RZ",
			"RZ": "BL",
			"BL": "SL",
			"SL": "GL",
			"GL": "DZ",
		},
		Labels: map[string]string{
			"DS":   "API",
			"LZ":   "EDLZ",
			"RZ":   "Raw Zone",
			"BL":   "Bronze Layer",
			"SL":   "Silver Layer",
			"GL":   "Gold Layer",
			"DZ":   "SQL Server",
			"Read": "Read Only",
			"Auto": "Automatic",
		},
	}
}

// Registry is the immutable layer registry.
type Registry struct {
	graph       *dag.Graph[string]
	order       []core.Layer
	labels      map[core.Layer]string
	sources     []core.Layer
	targets     []core.Layer
	transformer core.Layer
	merger      core.Layer
}

// New builds a registry from cfg. The lineage must be acyclic and every layer
// may have at most one successor.
func New(cfg Config) (*Registry, error) {
	r := &Registry{
		graph:       dag.NewGraph[string](),
		labels:      make(map[core.Layer]string, len(cfg.Labels)),
		sources:     toLayers(cfg.Sources),
		targets:     toLayers(cfg.Targets),
		transformer: core.Layer(cfg.Transformer),
		merger:      core.Layer(cfg.Merger),
	}
	for code, label := range cfg.Labels {
		r.labels[core.Layer(code)] = label
	}

	for from, to := range cfg.Lineage {
		r.graph.AddNode(from, r.labels[core.Layer(from)])
		r.graph.AddNode(to, r.labels[core.Layer(to)])
	}
	for from, to := range cfg.Lineage {
		if err := r.graph.AddEdge(from, to); err != nil {
			return nil, fmt.Errorf("invalid lineage %s -> %s: %w", from, to, err)
		}
	}

	order, err := r.graph.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("invalid lineage: %w", err)
	}
	r.order = toLayers(order)
	return r, nil
}

// Default returns a registry built from DefaultConfig.
func Default() *Registry {
	r, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return r
}

// Label returns the display label of a layer, or UnknownLabel.
func (r *Registry) Label(layer core.Layer) string {
	if label, ok := r.labels[layer]; ok {
		return label
	}
	return UnknownLabel
}

// Successor returns the layer that follows source in the lineage.
func (r *Registry) Successor(source core.Layer) (core.Layer, bool) {
	children := r.graph.GetChildren(source.String())
	if len(children) == 0 {
		return "", false
	}
	return core.Layer(children[0]), true
}

// ResolveTarget returns the successor of source, failing with InvalidLayer when
// source has none.
func (r *Registry) ResolveTarget(source core.Layer) (core.Layer, error) {
	next, ok := r.Successor(source)
	if !ok {
		return "", core.InvalidValue(core.KindInvalidLayer,
			"layer has no successor in the lineage", source.String(), r.withSuccessor())
	}
	return next, nil
}

// Resolve returns target unchanged unless it is Auto, in which case the
// successor of source is returned.
func (r *Registry) Resolve(source, target core.Layer) (core.Layer, error) {
	if target != core.LayerAuto {
		return target, nil
	}
	return r.ResolveTarget(source)
}

// Chain returns from and every successor after it.
func (r *Registry) Chain(from core.Layer) []core.Layer {
	return toLayers(r.graph.Chain(from.String()))
}

// Path returns the layers from one layer to another along the lineage.
func (r *Registry) Path(from, to core.Layer) ([]core.Layer, error) {
	ids, err := r.graph.Path(from.String(), to.String())
	if err != nil {
		return nil, err
	}
	return toLayers(ids), nil
}

// Layers returns every layer in the lineage in order.
func (r *Registry) Layers() []core.Layer {
	return slices.Clone(r.order)
}

// Sources returns the layers accepted as a source.
func (r *Registry) Sources() []core.Layer { return slices.Clone(r.sources) }

// Targets returns the layers accepted as a target.
func (r *Registry) Targets() []core.Layer { return slices.Clone(r.targets) }

// IsSource reports whether layer is an accepted source.
func (r *Registry) IsSource(layer core.Layer) bool { return slices.Contains(r.sources, layer) }

// IsTarget reports whether layer is an accepted target.
func (r *Registry) IsTarget(layer core.Layer) bool { return slices.Contains(r.targets, layer) }

// Transformer returns the layer whose outgoing hop applies transformations.
func (r *Registry) Transformer() core.Layer { return r.transformer }

// Merger returns the layer whose outgoing hop merges or aggregates.
func (r *Registry) Merger() core.Layer { return r.merger }

func (r *Registry) withSuccessor() []string {
	var out []string
	for _, l := range r.order {
		if _, ok := r.Successor(l); ok {
			out = append(out, l.String())
		}
	}
	return out
}

func toLayers(codes []string) []core.Layer {
	if codes == nil {
		return nil
	}
	out := make([]core.Layer, len(codes))
	for i, c := range codes {
		out[i] = core.Layer(c)
	}
	return out
}
