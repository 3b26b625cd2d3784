package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
)

const writeModeAppend = "append"

// isFilePath reports whether location names a single data file rather than
// a directory of part files.
func isFilePath(location string) bool {
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(location)), ".") {
	case duckdb.FormatParquet, duckdb.FormatCSV, duckdb.FormatJSON:
		return true
	}
	return false
}

// partName names the nth part file of a directory location.
func partName(n int, format string) string {
	return fmt.Sprintf("part-%d.%s", n, format)
}

// partPattern matches every part file of a directory location.
func partPattern(dir, format string) string {
	return filepath.Join(dir, "*."+format)
}

// exportFrame writes f to path on the local filesystem and returns the
// files written. A directory path receives part files numbered from first,
// split by write.MaxRecordsPerFile when set.
func exportFrame(ctx context.Context, engine *duckdb.Adapter, f *dataset.Frame, path, format string, write config.WriteOptions, first int) ([]string, error) {
	query := "SELECT * FROM " + f.Ref()

	if isFilePath(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if err := engine.ExportQuery(ctx, query, path, format); err != nil {
			return nil, err
		}
		return []string{path}, nil
	}

	if write.Mode != writeModeAppend {
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", path, err)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", path, err)
	}

	queries := []string{query}
	if limit := write.MaxRecordsPerFile; limit > 0 {
		total, err := f.Count(ctx)
		if err != nil {
			return nil, err
		}
		queries = queries[:0]
		for offset := int64(0); offset < total; offset += int64(limit) {
			queries = append(queries, fmt.Sprintf("%s LIMIT %d OFFSET %d", query, limit, offset))
		}
		if len(queries) == 0 {
			queries = append(queries, query)
		}
	}

	files := make([]string, 0, len(queries))
	for i, q := range queries {
		file := filepath.Join(path, partName(first+i, format))
		if err := engine.ExportQuery(ctx, q, file, format); err != nil {
			return files, err
		}
		files = append(files, file)
	}
	return files, nil
}
