// Package dedup removes duplicate rows from a dataset.
package dedup

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Wildcard selects every non-audit column.
const Wildcard = "*"

// Result summarises one deduplication.
type Result struct {
	Before  int64
	After   int64
	Removed int64
	Fields  []string
}

// Apply removes duplicate rows of f, comparing rows on fields, or on every
// non-audit column when fields is ["*"]. Audit columns are projected out only
// when duplicates are removed; a dataset without duplicates is left as it is.
// Fields missing from the dataset are reported and ignored; if none remain
// the dataset is left as it is too.
func Apply(ctx context.Context, f *dataset.Frame, fields []string, rec *report.Recorder) (Result, error) {
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return Result{}, core.WrapError(core.KindTransformFailed, err, "failed to list columns for deduplication")
	}

	var kept, audit []string
	for _, n := range names {
		if core.IsAuditColumn(n) {
			audit = append(audit, n)
		} else {
			kept = append(kept, n)
		}
	}
	present := make(map[string]bool, len(kept))
	for _, n := range kept {
		present[n] = true
	}

	wildcard := slices.Contains(fields, Wildcard)
	var on []string
	if !wildcard {
		for _, field := range fields {
			if present[field] {
				on = append(on, field)
				continue
			}
			rec.Note(core.StageDedup, field, core.StatusNotExisting, "deduplication field not existing")
		}
		if len(on) == 0 {
			rec.Note(core.StageDedup, "", core.StatusSkipped, "no deduplication field exists in the dataset")
			return Result{}, nil
		}
	}

	before, err := f.Count(ctx)
	if err != nil {
		return Result{}, core.WrapError(core.KindTransformFailed, err, "failed to count rows before deduplication")
	}
	compare := on
	if wildcard {
		if len(kept) == 0 {
			rec.Note(core.StageDedup, "", core.StatusSkipped, "no columns to compare")
			return Result{}, nil
		}
		compare = kept
	}
	distinct, err := countDistinct(ctx, f, compare)
	if err != nil {
		return Result{}, core.WrapError(core.KindTransformFailed, err, "failed to count distinct rows")
	}
	if distinct == before {
		return finish(rec, Result{Before: before, After: before, Fields: on}), nil
	}

	if len(audit) > 0 {
		if err := f.DropColumns(ctx, audit...); err != nil {
			return Result{}, core.WrapError(core.KindTransformFailed, err, "failed to project out audit columns")
		}
	}
	if err := f.Distinct(ctx, on...); err != nil {
		return Result{}, core.WrapError(core.KindTransformFailed, err, "failed to remove duplicates")
	}
	after, err := f.Count(ctx)
	if err != nil {
		return Result{}, core.WrapError(core.KindTransformFailed, err, "failed to count rows after deduplication")
	}

	return finish(rec, Result{Before: before, After: after, Removed: before - after, Fields: on}), nil
}

// countDistinct counts the distinct combinations of columns in f.
func countDistinct(ctx context.Context, f *dataset.Frame, columns []string) (int64, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = adapter.QuoteIdent(c)
	}
	return f.ScalarInt(ctx, fmt.Sprintf("SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM %s)", strings.Join(quoted, ", "), f.Ref()))
}

// finish records the outcome of a deduplication.
func finish(rec *report.Recorder, res Result) Result {
	resp := rec.Response()
	resp.Schema.Rows.Duplicates = res.Removed
	resp.Schema.Rows.NetTotal = res.After

	detail := "no duplicate rows"
	if res.Removed > 0 {
		detail = fmt.Sprintf("removed %d duplicate rows, %d remain", res.Removed, res.After)
	}
	rec.Note(core.StageDedup, "", core.StatusSucceeded, detail)
	return res
}
