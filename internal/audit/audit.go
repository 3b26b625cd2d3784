// Package audit stamps rows with the audit trail columns: who inserted and
// updated them, and when.
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// TimestampLayout is the layout of audit timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// Actor composes the inserted-by and updated-by value.
//
// The base is "<media type> <source label>" for the external source layer and
// the source label otherwise. A pipeline caller appends the pipeline metadata;
// a direct caller appends its name and, when known, the runner.
func Actor(mediaType, sourceLabel string, source core.Layer, caller core.Caller) string {
	base := sourceLabel
	if source == core.LayerSource {
		base = mediaType + " " + sourceLabel
	}
	if p := caller.Pipeline; p != nil {
		return fmt.Sprintf("%s - %s Pipeline - %s (%s) - %s (%s)",
			base, p.Caller, p.Name, p.RunID, p.TriggerType, p.TriggeredOn)
	}
	if caller.Runner != "" {
		return fmt.Sprintf("%s - %s - %s", base, caller.Name, caller.Runner)
	}
	return fmt.Sprintf("%s - %s", base, caller.Name)
}

// Apply sets the four audit columns on every row, overwriting existing
// values, and moves all audit columns after the regular columns. now is
// truncated to whole seconds.
func Apply(ctx context.Context, f *dataset.Frame, actor string, now time.Time, rec *report.Recorder) error {
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to list columns for audit trail")
	}

	stamp := fmt.Sprintf("TIMESTAMP %s", adapter.QuoteString(now.Truncate(time.Second).Format(TimestampLayout)))
	by := adapter.QuoteString(actor)
	values := map[string]string{
		core.ColumnInsertedOn: stamp,
		core.ColumnInsertedBy: by,
		core.ColumnUpdatedOn:  stamp,
		core.ColumnUpdatedBy:  by,
	}

	var regular, trailing []string
	for _, n := range names {
		switch {
		case values[n] != "":
			// rewritten below
		case core.IsAuditColumn(n):
			trailing = append(trailing, adapter.QuoteIdent(n))
		default:
			regular = append(regular, adapter.QuoteIdent(n))
		}
	}
	exprs := append(regular, trailing...)
	for _, c := range core.AuditColumns {
		exprs = append(exprs, values[c]+" AS "+adapter.QuoteIdent(c))
	}

	if err := f.Rebuild(ctx, func(ref string) string {
		return fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), ref)
	}); err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to apply audit trail")
	}
	rec.Note(core.StageAudit, "", core.StatusSucceeded, actor)
	return nil
}
