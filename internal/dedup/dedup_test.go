package dedup

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.FromQuery(context.Background(), testutil.NewEngine(t), "dedup", `
		SELECT *, now()::VARCHAR || id::VARCHAR AS "Row_Inserted-On"
		FROM (VALUES (1, 'A', 10), (2, 'A', 10), (1, 'A', 10)) AS t(id, city, amount)`)
	require.NoError(t, err)
	return f
}

func TestApply_AllColumns(t *testing.T) {
	ctx := context.Background()
	f := scenarioFrame(t)
	rec := report.New(core.NewTransferResponse(), testutil.NewTestLogger(t))

	res, err := Apply(ctx, f, []string{Wildcard}, rec)
	require.NoError(t, err)
	assert.Equal(t, Result{Before: 3, After: 2, Removed: 1}, res)

	resp := rec.Response()
	assert.Equal(t, int64(1), resp.Schema.Rows.Duplicates)
	assert.Equal(t, int64(2), resp.Schema.Rows.NetTotal)

	names, err := f.ColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "city", "amount"}, names, "audit columns are projected out")
}

func TestApply_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := scenarioFrame(t)
	rec := report.New(core.NewTransferResponse(), nil)

	first, err := Apply(ctx, f, []string{Wildcard}, rec)
	require.NoError(t, err)
	second, err := Apply(ctx, f, []string{Wildcard}, rec)
	require.NoError(t, err)

	assert.Equal(t, first.After, second.After)
	assert.Zero(t, second.Removed)

	last := rec.Response().Operations[len(rec.Response().Operations)-1]
	assert.Equal(t, core.StatusSucceeded, last.Status)
	assert.Equal(t, "no duplicate rows", last.Detail)
}

func TestApply_Fields(t *testing.T) {
	ctx := context.Background()
	f := scenarioFrame(t)
	rec := report.New(core.NewTransferResponse(), nil)

	res, err := Apply(ctx, f, []string{"city", "ghost"}, rec)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.After)
	assert.Equal(t, int64(2), res.Removed)
	assert.Equal(t, []string{"city"}, res.Fields)

	ops := rec.Response().Operations
	require.Len(t, ops, 2)
	assert.Equal(t, core.StatusNotExisting, ops[0].Status)
	assert.Equal(t, "ghost", ops[0].Column)
}

func TestApply_NoFieldsPresent(t *testing.T) {
	ctx := context.Background()
	f := scenarioFrame(t)
	table := f.Table()
	rec := report.New(core.NewTransferResponse(), nil)

	res, err := Apply(ctx, f, []string{"ghost"}, rec)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Equal(t, table, f.Table())

	ops := rec.Response().Operations
	assert.Equal(t, core.StatusSkipped, ops[len(ops)-1].Status)
}

func TestApply_NoDuplicatesKeepsAuditColumns(t *testing.T) {
	tests := []struct {
		name   string
		fields []string
	}{
		{name: "all columns", fields: []string{Wildcard}},
		{name: "fields", fields: []string{"id"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f, err := dataset.FromQuery(ctx, testutil.NewEngine(t), "dedup", `
				SELECT *, id::VARCHAR AS "Row_Inserted-On"
				FROM (VALUES (1, 'A'), (2, 'A')) AS t(id, city)`)
			require.NoError(t, err)
			table := f.Table()
			rec := report.New(core.NewTransferResponse(), nil)

			res, err := Apply(ctx, f, tt.fields, rec)
			require.NoError(t, err)
			assert.Zero(t, res.Removed)
			assert.Equal(t, int64(2), res.After)
			assert.Equal(t, table, f.Table(), "dataset is not rebuilt")

			names, err := f.ColumnNames(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"id", "city", "Row_Inserted-On"}, names)
			assert.Equal(t, int64(2), rec.Response().Schema.Rows.NetTotal)
		})
	}
}
