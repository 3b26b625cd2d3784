package config

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Subdir path modes.
const (
	SubdirYearMonthDay     = "y/m/d"
	SubdirYearMonthDashDay = "y/m-d"
	SubdirDate             = "y-m-d"
	SubdirClone            = "Clone"
	SubdirCustom           = "Custom"
)

// ParentDir returns the parent directory of a class: the class override
// when set, otherwise the category directory.
func (m *Media) ParentDir(class *Class, debug bool) string {
	if class != nil && !class.Directory.IsZero() {
		if p := class.Directory.Parent(debug); p != "" {
			return p
		}
	}
	return m.Directory.Parent(debug)
}

// Location returns the storage location of a class on a layer, for example
// "Google/GA4/RZ/GA4-Pages-RZ/2025/01/31".
func (m *Media) Location(className string, layer core.Layer, debug bool, now time.Time) (string, error) {
	class, ok := m.Class(className)
	if !ok {
		return "", fmt.Errorf("media %s has no class %q", m.Name, className)
	}
	parent := m.ParentDir(class, debug)
	var subdir Subdir
	if stage, ok := m.Stage(layer); ok {
		subdir = stage.Provider.Subdir
	}
	return MediaPath(parent, m.Name, class.TableName(className, layer), layer, subdir, now), nil
}

// MediaPath composes a layer location from its parts.
func MediaPath(parent, category, name string, layer core.Layer, subdir Subdir, now time.Time) string {
	base := fmt.Sprintf("%s/%s/%s/%s-%s-%s", parent, category, layer, category, name, layer)
	dir := base
	switch subdir.Path {
	case SubdirYearMonthDay:
		dir = base + now.Format("/2006/01/02")
	case SubdirYearMonthDashDay:
		dir = base + now.Format("/2006/01-02")
	case SubdirDate:
		dir = base + now.Format("/2006-01-02")
	case SubdirClone:
		dir = fmt.Sprintf("%s/%s/%s/_Clone/%s", parent, category, layer, name)
	case SubdirCustom:
		dir = fmt.Sprintf("%s/_Custom/%s", parent, name)
	}
	return dir + subdir.Extension
}

// CatalogTable returns the catalog table name of a class on the target layer.
func (m *Media) CatalogTable(className string, target core.Layer, debug bool) string {
	class, _ := m.Class(className)
	name := className
	if class != nil {
		name = class.TableName(className, target)
	}
	return fmt.Sprintf("%s.%s-%s-%s", m.ParentDir(class, debug), m.Name, name, target)
}

// DestinationTable returns the destination database table of a class.
func (m *Media) DestinationTable(schema, className string, layer core.Layer) string {
	class, _ := m.Class(className)
	name := className
	if class != nil {
		name = class.TableName(className, layer)
	}
	table := fmt.Sprintf("%s-%s", m.Name, name)
	if schema == "" {
		return table
	}
	return schema + "." + table
}
