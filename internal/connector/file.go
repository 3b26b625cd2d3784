package connector

import (
	"context"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// ProviderFile stores layers on the local filesystem.
const ProviderFile = "file"

func init() {
	Register(ProviderFile, newFileConnector)
}

// FileOptions configure the file provider.
type FileOptions struct {
	// Root is prepended to relative locations.
	Root string `mapstructure:"root"`
}

// FileConnector reads and writes parquet, csv or json files.
type FileConnector struct {
	engine *duckdb.Adapter
	format string
	write  config.WriteOptions
	opts   FileOptions
}

func newFileConnector(_ context.Context, p Params) (Connector, error) {
	c := &FileConnector{
		engine: p.Engine,
		format: p.Provider.Format,
		write:  p.Provider.Write,
	}
	if c.format == "" {
		c.format = config.DefaultFormat
	}
	if err := decodeOptions(p, &c.opts); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FileConnector) resolve(location string) string {
	if c.opts.Root == "" || filepath.IsAbs(location) {
		return location
	}
	return filepath.Join(c.opts.Root, location)
}

// Read loads a single file, or every part file of a directory.
func (c *FileConnector) Read(ctx context.Context, location string) (*dataset.Frame, error) {
	path := c.resolve(location)
	pattern := path
	if !isFilePath(path) {
		if _, err := os.Stat(path); err != nil {
			return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to read %s", location)
		}
		pattern = partPattern(path, c.format)
	}

	table := dataset.TableName("read")
	if err := c.engine.LoadFile(ctx, table, pattern, c.format); err != nil {
		return nil, core.WrapError(core.KindSourceReadFailed, err, "failed to read %s", location)
	}
	return dataset.Wrap(c.engine, table), nil
}

// Write exports the frame. Directory locations are cleared first unless the
// write mode is append.
func (c *FileConnector) Write(ctx context.Context, f *dataset.Frame, location string) error {
	path := c.resolve(location)
	first := 0
	if c.write.Mode == writeModeAppend && !isFilePath(path) {
		existing, err := filepath.Glob(partPattern(path, c.format))
		if err != nil {
			return core.WrapError(core.KindSinkWriteFailed, err, "failed to list %s", location)
		}
		first = len(existing)
	}
	if _, err := exportFrame(ctx, c.engine, f, path, c.format, c.write, first); err != nil {
		return core.WrapError(core.KindSinkWriteFailed, err, "failed to write %s", location)
	}
	return nil
}

// Close is a no-op.
func (c *FileConnector) Close() error { return nil }
