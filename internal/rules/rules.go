// Package rules applies the per-column schema rules of a media class to a
// dataset: quality checks, type casting, dropping and renaming.
//
// Per-column problems such as a missing column are recorded as outcomes and
// never abort the run. Only a failing dataset engine operation is fatal.
package rules

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Engine applies column specifications.
type Engine struct {
	expressions *Expressions
}

// New creates an Engine that resolves UserDefined checks against expressions.
func New(expressions *Expressions) *Engine {
	return &Engine{expressions: expressions}
}

// Quality runs the configured quality checks of every column present in f.
// Percentages are relative to total, the gross row count read from the
// source. Unique counts NULL as one value. An empty dataset is left
// unchecked.
func (e *Engine) Quality(ctx context.Context, f *dataset.Frame, specs []core.ColumnSpec, total int64, rec *report.Recorder) error {
	if total <= 0 {
		return nil
	}
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to list columns for quality checks")
	}
	present := toSet(names)
	resp := rec.Response()

	for _, spec := range specs {
		if len(spec.Quality) == 0 {
			continue
		}
		if !present[spec.Name] {
			rec.Note(core.StageQuality, spec.Name, core.StatusSkipped, "column not existing")
			continue
		}
		col := adapter.QuoteIdent(spec.Name)
		text := fmt.Sprintf("CAST(%s AS VARCHAR)", col)

		for _, check := range spec.Quality {
			var where string
			switch check {
			case core.CheckNull:
				where = col + " IS NULL"
			case core.CheckBlank:
				where = fmt.Sprintf(`(%s = '' OR regexp_full_match(%s, '\s+'))`, text, text)
			case core.CheckUnique:
				distinct, err := f.ScalarInt(ctx, fmt.Sprintf("SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM %s)", col, f.Ref()))
				if err != nil {
					return core.WrapError(core.KindTransformFailed, err, "quality check %s on %s failed", check, spec.Name)
				}
				u := resp.AddQuality(spec.Group, spec.Name, core.CheckUnique, distinct, total)
				d := resp.AddQuality(spec.Group, spec.Name, core.CheckDuplicate, total-distinct, total)
				rec.Note(core.StageQuality, spec.Name, core.StatusSucceeded,
					fmt.Sprintf("Unique %d (%.2f%%), Duplicate %d (%.2f%%)", u.Count, u.Percentage, d.Count, d.Percentage))
				continue
			default:
				name, ok := check.Expression()
				if !ok {
					rec.Note(core.StageQuality, spec.Name, core.StatusSkipped, fmt.Sprintf("unknown check %q", check))
					continue
				}
				pattern, ok := e.expressions.Lookup(name)
				if !ok {
					rec.Note(core.StageQuality, spec.Name, core.StatusSkipped, fmt.Sprintf("expression %q is not registered", name))
					continue
				}
				where = fmt.Sprintf("regexp_matches(%s, %s)", text, adapter.QuoteString(pattern))
			}

			count, err := f.ScalarInt(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", f.Ref(), where))
			if err != nil {
				return core.WrapError(core.KindTransformFailed, err, "quality check %s on %s failed", check, spec.Name)
			}
			q := resp.AddQuality(spec.Group, spec.Name, check, count, total)
			rec.Note(core.StageQuality, spec.Name, core.StatusSucceeded,
				fmt.Sprintf("%s %d (%.2f%%)", check, q.Count, q.Percentage))
		}
	}
	return nil
}

// Cast converts every configured column present in f to the engine type of
// its type tag. Columns without a type tag are left alone.
func (e *Engine) Cast(ctx context.Context, f *dataset.Frame, specs []core.ColumnSpec, rec *report.Recorder) error {
	present, err := columnSet(ctx, f)
	if err != nil {
		return core.WrapError(core.KindTypeCastFailed, err, "failed to list columns for type casting")
	}
	for _, spec := range specs {
		if spec.Type == "" {
			continue
		}
		if !present[spec.Name] {
			rec.Note(core.StageCast, spec.Name, core.StatusNotExisting, "column not existing")
			continue
		}
		sqlType, known := SQLType(spec.Type)
		if err := f.Cast(ctx, spec.Name, sqlType); err != nil {
			return core.WrapError(core.KindTypeCastFailed, err, "failed to cast %s to %s", spec.Name, sqlType)
		}
		detail := fmt.Sprintf("'%s' as %s", spec.Type, sqlType)
		if !known {
			detail = fmt.Sprintf("unknown type '%s', cast as %s", spec.Type, sqlType)
		}
		rec.Note(core.StageCast, spec.Name, core.StatusSucceeded, detail)
	}
	return nil
}

// Drop removes every column marked for deletion.
func (e *Engine) Drop(ctx context.Context, f *dataset.Frame, specs []core.ColumnSpec, rec *report.Recorder) error {
	present, err := columnSet(ctx, f)
	if err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to list columns for drop")
	}
	for _, spec := range specs {
		if !spec.Drop {
			continue
		}
		if !present[spec.Name] {
			rec.Note(core.StageDrop, spec.Name, core.StatusNotExisting, "column not existing")
			continue
		}
		if err := f.DropColumns(ctx, spec.Name); err != nil {
			return core.WrapError(core.KindTransformFailed, err, "failed to drop %s", spec.Name)
		}
		delete(present, spec.Name)
		rec.Response().Group(spec.Group).AddPurged(spec.Name)
		rec.Note(core.StageDrop, spec.Name, core.StatusSucceeded, "")
	}
	return nil
}

// Rename applies renames in declaration order. A column that is missing, or
// whose new name is already taken, is reported and skipped.
func (e *Engine) Rename(ctx context.Context, f *dataset.Frame, specs []core.ColumnSpec, rec *report.Recorder) error {
	present, err := columnSet(ctx, f)
	if err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to list columns for rename")
	}
	for _, spec := range specs {
		if spec.Rename == "" || spec.Rename == spec.Name {
			continue
		}
		if !present[spec.Name] {
			rec.Note(core.StageRename, spec.Name, core.StatusNotExisting, "column not existing")
			continue
		}
		if present[spec.Rename] {
			rec.Note(core.StageRename, spec.Name, core.StatusAlreadyExisting,
				fmt.Sprintf("%s already exists", spec.Rename))
			continue
		}
		if err := f.RenameColumn(ctx, spec.Name, spec.Rename); err != nil {
			return core.WrapError(core.KindTransformFailed, err, "failed to rename %s to %s", spec.Name, spec.Rename)
		}
		delete(present, spec.Name)
		present[spec.Rename] = true
		rec.Response().Group(spec.Group).AddRenamed(spec.Name, spec.Rename)
		rec.Note(core.StageRename, spec.Name, core.StatusSucceeded, "renamed to "+spec.Rename)
	}
	return nil
}

func columnSet(ctx context.Context, f *dataset.Frame) (map[string]bool, error) {
	names, err := f.ColumnNames(ctx)
	if err != nil {
		return nil, err
	}
	return toSet(names), nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
