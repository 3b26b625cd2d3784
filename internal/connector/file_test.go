package connector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame(t *testing.T, engine *duckdb.Adapter) *dataset.Frame {
	t.Helper()
	f, err := dataset.FromQuery(context.Background(), engine, "sample",
		`SELECT * FROM (VALUES (1, 'A', 10), (2, 'A', 10), (3, 'B', 20)) AS t(id, city, amount)`)
	require.NoError(t, err)
	return f
}

func openFile(t *testing.T, engine *duckdb.Adapter, provider config.Provider) Connector {
	t.Helper()
	provider.Type = ProviderFile
	c, err := Open(context.Background(), Params{Provider: provider, Engine: engine, Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return c
}

func TestFileConnector_RoundTrip(t *testing.T) {
	for _, format := range []string{duckdb.FormatParquet, duckdb.FormatCSV, duckdb.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			ctx := context.Background()
			engine := testutil.NewEngine(t)
			root := t.TempDir()
			c := openFile(t, engine, config.Provider{
				Format:  format,
				Options: map[string]any{"root": root},
			})

			require.NoError(t, c.Write(ctx, sampleFrame(t, engine), "Google/GA4/RZ/GA4-Pages-RZ"))
			assert.FileExists(t, filepath.Join(root, "Google/GA4/RZ/GA4-Pages-RZ", "part-0."+format))

			got, err := c.Read(ctx, "Google/GA4/RZ/GA4-Pages-RZ")
			require.NoError(t, err)
			n, err := got.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)

			names, err := got.ColumnNames(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "city", "amount"}, names)
		})
	}
}

func TestFileConnector_SingleFile(t *testing.T) {
	ctx := context.Background()
	engine := testutil.NewEngine(t)
	path := filepath.Join(t.TempDir(), "out", "pages.parquet")
	c := openFile(t, engine, config.Provider{Format: duckdb.FormatParquet})

	require.NoError(t, c.Write(ctx, sampleFrame(t, engine), path))
	assert.FileExists(t, path)

	got, err := c.Read(ctx, path)
	require.NoError(t, err)
	n, err := got.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestFileConnector_OverwriteAndAppend(t *testing.T) {
	ctx := context.Background()
	engine := testutil.NewEngine(t)
	dir := filepath.Join(t.TempDir(), "layer")

	overwrite := openFile(t, engine, config.Provider{Format: duckdb.FormatParquet})
	require.NoError(t, overwrite.Write(ctx, sampleFrame(t, engine), dir))
	require.NoError(t, overwrite.Write(ctx, sampleFrame(t, engine), dir))

	got, err := overwrite.Read(ctx, dir)
	require.NoError(t, err)
	n, err := got.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	appender := openFile(t, engine, config.Provider{
		Format: duckdb.FormatParquet,
		Write:  config.WriteOptions{Mode: "append"},
	})
	require.NoError(t, appender.Write(ctx, sampleFrame(t, engine), dir))
	assert.FileExists(t, filepath.Join(dir, "part-1.parquet"))

	got, err = appender.Read(ctx, dir)
	require.NoError(t, err)
	n, err = got.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
}

func TestFileConnector_MaxRecordsPerFile(t *testing.T) {
	ctx := context.Background()
	engine := testutil.NewEngine(t)
	dir := filepath.Join(t.TempDir(), "layer")
	c := openFile(t, engine, config.Provider{
		Format: duckdb.FormatParquet,
		Write:  config.WriteOptions{MaxRecordsPerFile: 2},
	})

	require.NoError(t, c.Write(ctx, sampleFrame(t, engine), dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	got, err := c.Read(ctx, dir)
	require.NoError(t, err)
	n, err := got.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestFileConnector_ReadMissing(t *testing.T) {
	engine := testutil.NewEngine(t)
	c := openFile(t, engine, config.Provider{Format: duckdb.FormatParquet})

	_, err := c.Read(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, core.KindSourceReadFailed, core.KindOf(err))
}
