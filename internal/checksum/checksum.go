// Package checksum computes an order-independent content hash of a dataset.
//
// Every non-audit column is rendered as text and joined with "||" into one
// string per row. Rows are sorted by that string, each row string is hashed
// with SHA-256, and the hex digests are hashed again, in sorted order, into
// the dataset checksum. Two datasets holding the same rows in any order have
// the same checksum.
package checksum

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Delimiter joins column values within a row.
const Delimiter = "||"

// RowQuery returns the query producing the sorted row strings of f's columns.
func RowQuery(ref string, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, c := range columns {
		if core.IsAuditColumn(c) {
			continue
		}
		parts = append(parts, fmt.Sprintf("CAST(%s AS VARCHAR)", adapter.QuoteIdent(c)))
	}
	if len(parts) == 0 {
		return ""
	}
	return fmt.Sprintf("SELECT concat_ws(%s, %s) AS row_concat FROM %s ORDER BY row_concat ASC",
		adapter.QuoteString(Delimiter), strings.Join(parts, ", "), ref)
}

// Compute returns the checksum of f. The dataset is not modified.
func Compute(ctx context.Context, f *dataset.Frame) (string, error) {
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return "", err
	}
	query := RowQuery(f.Ref(), names)
	if query == "" {
		return "", fmt.Errorf("dataset has no content columns")
	}

	rows, err := f.Engine().Query(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to read rows for checksum: %w", err)
	}
	defer func() { _ = rows.Close() }()

	total := sha256.New()
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return "", fmt.Errorf("failed to scan row: %w", err)
		}
		writeRow(total, s.String)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("error iterating rows: %w", err)
	}
	return hex.EncodeToString(total.Sum(nil)), nil
}

// OfStrings computes the checksum of already rendered row strings.
func OfStrings(rows []string) string {
	sorted := append([]string(nil), rows...)
	sort.Strings(sorted)
	total := sha256.New()
	for _, r := range sorted {
		writeRow(total, r)
	}
	return hex.EncodeToString(total.Sum(nil))
}

// Apply computes the checksum of f and records it in the response.
func Apply(ctx context.Context, f *dataset.Frame, rec *report.Recorder) (string, error) {
	sum, err := Compute(ctx, f)
	if err != nil {
		return "", core.WrapError(core.KindTransformFailed, err, "failed to compute checksum")
	}
	resp := rec.Response()
	resp.SetChecksum(sum)
	resp.Schema.Integrity.Hash = core.HashAlgorithm
	rec.Note(core.StageChecksum, "", core.StatusSucceeded, core.HashAlgorithm+" "+sum)
	return sum, nil
}

func writeRow(total hash.Hash, row string) {
	digest := sha256.Sum256([]byte(row))
	var buf [sha256.Size * 2]byte
	hex.Encode(buf[:], digest[:])
	total.Write(buf[:])
}
