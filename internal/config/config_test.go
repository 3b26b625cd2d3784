package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestOrdered_PreservesDeclarationOrder(t *testing.T) {
	var o Ordered[int]
	require.NoError(t, yaml.Unmarshal([]byte("z: 1\na: 2\nm: 3\n"), &o))

	assert.Equal(t, []string{"z", "a", "m"}, o.Keys())
	v, ok := o.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	var keys []string
	for k := range o.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}

func TestOrdered_NullAndInvalid(t *testing.T) {
	var o Ordered[string]
	require.NoError(t, yaml.Unmarshal([]byte("~"), &o))
	assert.Equal(t, 0, o.Len())

	err := yaml.Unmarshal([]byte("[a, b]"), &o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected a mapping")
}

func TestValues_ScalarOrList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Values
	}{
		{"list", "[A, 1, null]", Values{"A", 1, nil}},
		{"scalar", "A", Values{"A"}},
		{"empty string", `""`, Values{""}},
		{"empty list", "[]", Values{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Values
			require.NoError(t, yaml.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestValues_NullAndEmptyDiffer(t *testing.T) {
	var o Ordered[Values]
	require.NoError(t, yaml.Unmarshal([]byte("{city: ~, country: []}"), &o))

	city, ok := o.Get("city")
	require.True(t, ok)
	assert.Nil(t, city)

	country, ok := o.Get("country")
	require.True(t, ok)
	assert.NotNil(t, country)
	assert.Empty(t, country)
}

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog("testdata")
	require.NoError(t, err)

	assert.Equal(t, []string{"GA4"}, cat.Categories())
	m, ok := cat.Lookup("GA4")
	require.True(t, ok)
	assert.Equal(t, []string{"Pages", "Campaigns"}, m.ClassNames())

	dz, ok := m.Stage(core.LayerDestination)
	require.True(t, ok)
	assert.Equal(t, "postgres", dz.Provider.Type)
	assert.Equal(t, 4, dz.Provider.Partition)
	assert.Equal(t, 500, dz.Provider.Batch)
	assert.Equal(t, 3, dz.Provider.Retry.Maximum)
	assert.Equal(t, 2*time.Second, dz.Provider.Retry.Delay)

	ds, ok := m.Stage(core.LayerSource)
	require.True(t, ok)
	assert.Equal(t, "csv", ds.Provider.Format)
	assert.Equal(t, DefaultRetryMaximum, ds.Provider.Retry.Maximum)
	assert.Equal(t, DefaultRetryDelay, ds.Provider.Retry.Delay)
	assert.Equal(t, DefaultBatch, ds.Provider.Batch)

	bl, _ := m.Stage(core.LayerBronze)
	assert.Equal(t, DefaultFormat, bl.Provider.Format)
	assert.Equal(t, "lake", bl.Provider.Options["bucket"])
	assert.Equal(t, SecretRef{Scope: "DemoVault", Key: "lake-access-key"}, bl.Secrets["access_key"])

	_, ok = m.Stage(core.LayerGold)
	assert.False(t, ok)
}

func TestLoadCatalog_Schema(t *testing.T) {
	cat, err := LoadCatalog("testdata")
	require.NoError(t, err)
	m, _ := cat.Lookup("GA4")
	pages, ok := m.Class("Pages")
	require.True(t, ok)

	specs := pages.Schema.Columns()
	require.Len(t, specs, 3)
	assert.Equal(t, core.ColumnSpec{Name: "date", Group: core.GroupDimensions, Type: "date", Rename: "Date"}, specs[0])
	assert.Equal(t, []core.QualityCheck{core.CheckNull, core.CheckBlank, core.UserDefinedCheck("alphanumeric")}, specs[1].Quality)
	assert.Equal(t, core.GroupMetrics, specs[2].Group)
	assert.Equal(t, "Sessions", specs[2].Rename)

	fields, ok := pages.Schema.DedupFields()
	require.True(t, ok)
	assert.Equal(t, []string{"*"}, fields)

	filter := pages.Schema.Transformation.Filter
	assert.Equal(t, []string{"OR", "AND"}, filter.Keys())
	and, _ := filter.Get("AND")
	ne, _ := and.Get("!=")
	city, _ := ne.Get("city")
	assert.Empty(t, city)

	assert.Equal(t, []string{"date", "sessions"}, pages.Schema.Transformation.Sort.Keys())

	campaigns, _ := m.Class("Campaigns")
	_, ok = campaigns.Schema.DedupFields()
	assert.False(t, ok)
}

func TestLoadCatalog_Errors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
	})

	t.Run("duplicate media", func(t *testing.T) {
		dir := t.TempDir()
		doc := []byte("name: UA\nclasses:\n  A: {}\n")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), doc, 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yml"), doc, 0o600))
		_, err := LoadCatalog(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "more than once")
	})

	t.Run("name from file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "FB.yaml"), []byte("classes:\n  Ads: {}\n"), 0o600))
		cat, err := LoadCatalog(dir)
		require.NoError(t, err)
		assert.Equal(t, []string{"FB"}, cat.Categories())
	})

	t.Run("bad sort order", func(t *testing.T) {
		dir := t.TempDir()
		doc := "classes:\n  A:\n    schema:\n      transformation:\n        sort: {x: UP}\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "X.yaml"), []byte(doc), 0o600))
		_, err := LoadCatalog(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ASC or DESC")
	})

	t.Run("stage without provider type", func(t *testing.T) {
		dir := t.TempDir()
		doc := "stages:\n  LZ:\n    provider: {format: csv}\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "X.yaml"), []byte(doc), 0o600))
		_, err := LoadCatalog(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "provider type is required")
	})
}

func TestMediaPath(t *testing.T) {
	now := time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		subdir Subdir
		want   string
	}{
		{"plain", Subdir{}, "Google/GA4/RZ/GA4-Pages-RZ"},
		{"y/m/d", Subdir{Path: SubdirYearMonthDay}, "Google/GA4/RZ/GA4-Pages-RZ/2025/01/31"},
		{"y/m-d", Subdir{Path: SubdirYearMonthDashDay}, "Google/GA4/RZ/GA4-Pages-RZ/2025/01-31"},
		{"y-m-d", Subdir{Path: SubdirDate}, "Google/GA4/RZ/GA4-Pages-RZ/2025-01-31"},
		{"clone", Subdir{Path: SubdirClone}, "Google/GA4/RZ/_Clone/Pages"},
		{"custom", Subdir{Path: SubdirCustom}, "Google/_Custom/Pages"},
		{"extension", Subdir{Extension: ".parquet"}, "Google/GA4/RZ/GA4-Pages-RZ.parquet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MediaPath("Google", "GA4", "Pages", core.LayerRaw, tt.subdir, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMedia_LocationAndTables(t *testing.T) {
	cat, err := LoadCatalog("testdata")
	require.NoError(t, err)
	m, _ := cat.Lookup("GA4")
	now := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)

	loc, err := m.Location("Pages", core.LayerRaw, false, now)
	require.NoError(t, err)
	assert.Equal(t, "Google/GA4/RZ/GA4-Pages-RZ/2025/03/04", loc)

	loc, err = m.Location("Pages", core.LayerSilver, true, now)
	require.NoError(t, err)
	assert.Equal(t, "Test/GA4/SL/GA4-Page_Views-SL", loc)

	loc, err = m.Location("Campaigns", core.LayerBronze, false, now)
	require.NoError(t, err)
	assert.Equal(t, "Marketing/GA4/BL/GA4-Campaigns-BL", loc)

	_, err = m.Location("Nope", core.LayerBronze, false, now)
	require.Error(t, err)

	assert.Equal(t, "Google.GA4-Pages-BL", m.CatalogTable("Pages", core.LayerBronze, false))
	assert.Equal(t, "Google.GA4-Page_Views-GL", m.CatalogTable("Pages", core.LayerGold, false))
	assert.Equal(t, "analytics.GA4-Page_Views", m.DestinationTable("analytics", "Pages", core.LayerDestination))
	assert.Equal(t, "GA4-Campaigns", m.DestinationTable("", "Campaigns", core.LayerDestination))
}
