// Package config provides the media catalog: the per-category description of
// storage stages, media classes and their column schemas.
//
// The catalog is a directory of YAML files, one per media category. It is
// decoded with gopkg.in/yaml.v3 into types that keep declaration order,
// because filter folding and column reporting depend on it.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Catalog holds every media category known to the application.
type Catalog struct {
	// Dir is the directory the catalog was loaded from.
	Dir   string
	Media Ordered[*Media]
}

// Categories returns the media category names in load order.
func (c *Catalog) Categories() []string {
	return c.Media.Keys()
}

// Lookup returns a media category.
func (c *Catalog) Lookup(category string) (*Media, bool) {
	return c.Media.Get(category)
}

// Media describes one media category.
type Media struct {
	Name      string            `yaml:"name"`
	Directory Directory         `yaml:"directory"`
	Stages    map[string]*Stage `yaml:"stages"`
	Classes   Ordered[*Class]   `yaml:"classes"`
}

// Stage returns the storage stage configured for layer.
func (m *Media) Stage(layer core.Layer) (*Stage, bool) {
	s, ok := m.Stages[layer.String()]
	return s, ok && s != nil
}

// Class returns a media class by name.
func (m *Media) Class(name string) (*Class, bool) {
	c, ok := m.Classes.Get(name)
	return c, ok && c != nil
}

// ClassNames returns the media class names in declaration order.
func (m *Media) ClassNames() []string {
	return m.Classes.Keys()
}

// Directory names the parent directory for live and debug runs.
type Directory struct {
	Live  string `yaml:"live"`
	Debug string `yaml:"debug"`
}

// Parent returns the live or debug directory.
func (d Directory) Parent(debug bool) string {
	if debug {
		return d.Debug
	}
	return d.Live
}

// IsZero reports whether neither directory is set.
func (d Directory) IsZero() bool {
	return d.Live == "" && d.Debug == ""
}

// Stage is the storage configuration of one layer.
type Stage struct {
	Provider Provider             `yaml:"provider"`
	Secrets  map[string]SecretRef `yaml:"secrets"`
}

// SecretRef points at a secret held by the secrets provider.
type SecretRef struct {
	Scope string `yaml:"scope"`
	Key   string `yaml:"key"`
}

// Provider describes how a layer is read and written.
type Provider struct {
	// Type selects the connector: file, s3 or postgres.
	Type   string `yaml:"type"`
	Format string `yaml:"format"`
	// Options are connector specific and decoded by the connector.
	Options   map[string]any `yaml:"options"`
	Write     WriteOptions   `yaml:"write"`
	Subdir    Subdir         `yaml:"subdir"`
	Retry     RetryPolicy    `yaml:"retry"`
	Partition int            `yaml:"partition"`
	Batch     int            `yaml:"batch"`
}

// WriteOptions control how a dataset is written.
type WriteOptions struct {
	Mode              string `yaml:"mode"`
	MaxRecordsPerFile int    `yaml:"max_records_per_file"`
}

// Subdir controls the location suffix of a layer.
type Subdir struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
}

// RetryPolicy bounds the destination write.
type RetryPolicy struct {
	Maximum int           `yaml:"maximum"`
	Delay   time.Duration `yaml:"delay"`
}

// Class describes one media class.
type Class struct {
	// Directory overrides the category directory when set.
	Directory Directory `yaml:"directory"`
	Schema    Schema    `yaml:"schema"`
}

// Schema is the rule set applied to a media class.
type Schema struct {
	Quality        QualityRules          `yaml:"quality"`
	Transformation Transformation        `yaml:"transformation"`
	Dimensions     Ordered[ColumnConfig] `yaml:"dimensions"`
	Metrics        Ordered[ColumnConfig] `yaml:"metrics"`
}

// QualityRules holds the row-level quality policy.
type QualityRules struct {
	Duplicates Duplicates `yaml:"duplicates"`
}

// Duplicates configures deduplication. Fields of ["*"] means every
// non-audit column.
type Duplicates struct {
	Remove bool     `yaml:"remove"`
	Fields []string `yaml:"fields"`
}

// Transformation holds the rules applied on the transformer layer.
type Transformation struct {
	Table  TableOverride   `yaml:"table"`
	Filter FilterRule      `yaml:"filter"`
	Update []Derivation    `yaml:"update"`
	New    []Derivation    `yaml:"new"`
	Group  GroupSpec       `yaml:"group"`
	Sort   Ordered[string] `yaml:"sort"`
}

// TableOverride renames the stored table on the listed layers.
type TableOverride struct {
	Name   string   `yaml:"name"`
	Layers []string `yaml:"layers"`
}

// FilterRule maps a logical operator to comparison operators, each mapping
// column names to the literal values compared against.
type FilterRule = Ordered[Ordered[Ordered[Values]]]

// Derivation declares one derived or updated column.
type Derivation struct {
	Kind   string `yaml:"kind"`
	Column string `yaml:"column"`
	// Group is the attribute group the column is reported under,
	// Dimensions when empty.
	Group string `yaml:"group"`

	// divide
	Numerator   string `yaml:"numerator"`
	Denominator string `yaml:"denominator"`

	// split
	Source    string `yaml:"source"`
	Delimiter string `yaml:"delimiter"`
	Index     int    `yaml:"index"`

	// concat_separator
	Separator string   `yaml:"separator"`
	Segments  [][2]int `yaml:"segments"`

	// replace
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// GroupSpec declares a group-by aggregation. Aggregate keys are
// "column" or "column:alias", values are aggregate functions.
type GroupSpec struct {
	By         []string        `yaml:"by"`
	Aggregates Ordered[string] `yaml:"aggregates"`
}

// ColumnConfig is the YAML form of a column specification.
type ColumnConfig struct {
	Type    string   `yaml:"type"`
	Drop    bool     `yaml:"drop"`
	Rename  *string  `yaml:"rename"`
	Quality []string `yaml:"quality"`
}

// Columns returns the column specifications, Dimensions before Metrics, each
// in declaration order.
func (s *Schema) Columns() []core.ColumnSpec {
	var specs []core.ColumnSpec
	for _, group := range core.AttributeGroups {
		cols := s.Dimensions
		if group == core.GroupMetrics {
			cols = s.Metrics
		}
		for name, cc := range cols.All() {
			specs = append(specs, cc.Spec(name, group))
		}
	}
	return specs
}

// Spec converts a ColumnConfig into a core.ColumnSpec.
func (cc ColumnConfig) Spec(name, group string) core.ColumnSpec {
	spec := core.ColumnSpec{
		Name:  name,
		Group: group,
		Type:  cc.Type,
		Drop:  cc.Drop,
	}
	if cc.Rename != nil {
		spec.Rename = *cc.Rename
	}
	for _, q := range cc.Quality {
		spec.Quality = append(spec.Quality, ParseQualityCheck(q))
	}
	return spec
}

// ParseQualityCheck normalises the case of built-in checks and keeps
// "UserDefined:<name>" checks intact.
func ParseQualityCheck(s string) core.QualityCheck {
	for _, q := range []core.QualityCheck{core.CheckNull, core.CheckBlank, core.CheckUnique} {
		if strings.EqualFold(s, string(q)) {
			return q
		}
	}
	if name, ok := strings.CutPrefix(s, "UserDefined:"); ok {
		return core.UserDefinedCheck(name)
	}
	return core.QualityCheck(s)
}

// DedupFields returns the configured deduplication fields when
// deduplication is enabled.
func (s *Schema) DedupFields() ([]string, bool) {
	d := s.Quality.Duplicates
	if !d.Remove || len(d.Fields) == 0 {
		return nil, false
	}
	return d.Fields, true
}

// TableName returns the stored name of class on layer, with "/" replaced.
func (c *Class) TableName(class string, layer core.Layer) string {
	name := class
	t := c.Schema.Transformation.Table
	if t.Name != "" && slices.Contains(t.Layers, layer.String()) {
		name = t.Name
	}
	return strings.ReplaceAll(name, "/", "_")
}

// Validate checks the catalog for settings that cannot work at runtime.
func (m *Media) Validate() error {
	for layer, stage := range m.Stages {
		if stage == nil {
			continue
		}
		if stage.Provider.Type == "" {
			return fmt.Errorf("media %s: stage %s: provider type is required", m.Name, layer)
		}
	}
	for name, class := range m.Classes.All() {
		if class == nil {
			return fmt.Errorf("media %s: class %s is empty", m.Name, name)
		}
		for column, order := range class.Schema.Transformation.Sort.All() {
			if o := strings.ToUpper(order); o != "ASC" && o != "DESC" {
				return fmt.Errorf("media %s: class %s: sort %s: order must be ASC or DESC, got %q",
					m.Name, name, column, order)
			}
		}
	}
	return nil
}
