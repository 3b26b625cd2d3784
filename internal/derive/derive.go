// Package derive adds and updates columns from a keyed table of derivation
// strategies. New derivations are added by registering a Strategy, not by
// branching inside the pipeline.
package derive

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Add computes each derivation into a new column. A column that already
// exists, or a derivation whose inputs are missing, is reported and skipped.
func Add(ctx context.Context, f *dataset.Frame, derivations []config.Derivation, rec *report.Recorder) error {
	for _, d := range derivations {
		expr, inputs, err := resolve(d)
		if err != nil {
			return err
		}
		exists, err := f.HasColumn(ctx, d.Column)
		if err != nil {
			return core.WrapError(core.KindTransformFailed, err, "failed to inspect %s", d.Column)
		}
		if exists {
			rec.Note(core.StageAdd, d.Column, core.StatusAlreadyExisting, "column already existing")
			continue
		}
		if missing, err := missingInput(ctx, f, inputs); err != nil {
			return err
		} else if missing != "" {
			rec.Note(core.StageAdd, d.Column, core.StatusNotExisting, fmt.Sprintf("input %s not existing", missing))
			continue
		}
		if err := f.AddColumn(ctx, d.Column, expr); err != nil {
			return core.WrapError(core.KindTransformFailed, err, "failed to add %s", d.Column)
		}
		if ok, err := f.HasColumn(ctx, d.Column); err != nil || !ok {
			rec.Note(core.StageAdd, d.Column, core.StatusFailed, "column missing after derivation")
			continue
		}
		rec.Response().Group(group(d)).AddAdded(d.Column)
		rec.Note(core.StageAdd, d.Column, core.StatusSucceeded, d.Kind)
	}
	return nil
}

// Update recomputes existing columns in place. A missing column is reported
// and skipped.
func Update(ctx context.Context, f *dataset.Frame, derivations []config.Derivation, rec *report.Recorder) error {
	for _, d := range derivations {
		expr, inputs, err := resolve(d)
		if err != nil {
			return err
		}
		exists, err := f.HasColumn(ctx, d.Column)
		if err != nil {
			return core.WrapError(core.KindTransformFailed, err, "failed to inspect %s", d.Column)
		}
		if !exists {
			rec.Note(core.StageUpdate, d.Column, core.StatusNotExisting, "column not existing")
			continue
		}
		if missing, err := missingInput(ctx, f, inputs); err != nil {
			return err
		} else if missing != "" {
			rec.Note(core.StageUpdate, d.Column, core.StatusNotExisting, fmt.Sprintf("input %s not existing", missing))
			continue
		}
		if err := f.ReplaceColumn(ctx, d.Column, expr); err != nil {
			return core.WrapError(core.KindTransformFailed, err, "failed to update %s", d.Column)
		}
		rec.Response().Group(group(d)).AddUpdated(d.Column)
		rec.Note(core.StageUpdate, d.Column, core.StatusSucceeded, d.Kind)
	}
	return nil
}

func resolve(d config.Derivation) (string, []string, error) {
	if d.Column == "" {
		return "", nil, core.Errorf(core.KindConfiguration, "derivation %q has no column", d.Kind)
	}
	s, err := Get(d.Kind)
	if err != nil {
		return "", nil, core.WrapError(core.KindConfiguration, err, "invalid derivation for %s", d.Column)
	}
	expr, inputs, err := s.Expr(d)
	if err != nil {
		return "", nil, core.WrapError(core.KindConfiguration, err, "invalid derivation for %s", d.Column)
	}
	return expr, inputs, nil
}

func missingInput(ctx context.Context, f *dataset.Frame, inputs []string) (string, error) {
	for _, in := range inputs {
		ok, err := f.HasColumn(ctx, in)
		if err != nil {
			return "", core.WrapError(core.KindTransformFailed, err, "failed to inspect %s", in)
		}
		if !ok {
			return in, nil
		}
	}
	return "", nil
}

func group(d config.Derivation) string {
	if d.Group == "" {
		return core.GroupDimensions
	}
	return d.Group
}
