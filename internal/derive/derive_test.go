package derive

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trafficFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.FromQuery(context.Background(), testutil.NewEngine(t), "traffic", `
		SELECT * FROM (VALUES
			('20250131', 'google / organic', 'CA_1', 30, 60),
			('20250201', 'direct', 'NZ_2', 0, 0))
		AS t(date, sourceMedium, countryId, engagedSessions, sessions)`)
	require.NoError(t, err)
	return f
}

func column(t *testing.T, f *dataset.Frame, name string) []string {
	t.Helper()
	_, rows, err := f.Preview(context.Background(), 100)
	require.NoError(t, err)
	names, err := f.ColumnNames(context.Background())
	require.NoError(t, err)
	idx := -1
	for i, n := range names {
		if n == name {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0, "column %s", name)
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r[idx]
	}
	return out
}

func TestKinds(t *testing.T) {
	assert.Equal(t, []string{"concat_separator", "divide", "replace", "split"}, Kinds())

	_, err := Get("explode")
	require.Error(t, err)
	var ude *UnknownDerivationError
	require.True(t, errors.As(err, &ude))
	assert.Equal(t, "explode", ude.Kind)
	assert.Contains(t, err.Error(), "available: concat_separator")
}

func TestAdd(t *testing.T) {
	ctx := context.Background()
	f := trafficFrame(t)
	rec := report.New(core.NewTransferResponse(), testutil.NewTestLogger(t))

	err := Add(ctx, f, []config.Derivation{
		{Kind: KindDivide, Column: "Engagement_Rate", Group: core.GroupMetrics, Numerator: "engagedSessions", Denominator: "sessions"},
		{Kind: KindSplit, Column: "Medium_Source-Traffic", Source: "sourceMedium", Delimiter: " / ", Index: 0},
		{Kind: KindSplit, Column: "Medium_Source-Name", Source: "sourceMedium", Delimiter: " / ", Index: 1},
		{Kind: KindSplit, Column: "date", Source: "sourceMedium", Delimiter: " / "},
		{Kind: KindDivide, Column: "Ratio", Numerator: "ghost", Denominator: "sessions"},
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"0.5", "NULL"}, column(t, f, "Engagement_Rate"))
	assert.Equal(t, []string{"google", "direct"}, column(t, f, "Medium_Source-Traffic"))
	assert.Equal(t, []string{"organic", "NULL"}, column(t, f, "Medium_Source-Name"))

	resp := rec.Response()
	assert.Equal(t, []string{"Engagement_Rate"}, resp.Group(core.GroupMetrics).Added)
	assert.Equal(t, []string{"Medium_Source-Traffic", "Medium_Source-Name"}, resp.Group(core.GroupDimensions).Added)

	ops := resp.Operations
	require.Len(t, ops, 5)
	assert.Equal(t, core.StatusAlreadyExisting, ops[3].Status)
	assert.Equal(t, core.StatusNotExisting, ops[4].Status)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	f := trafficFrame(t)
	rec := report.New(core.NewTransferResponse(), testutil.NewTestLogger(t))

	err := Update(ctx, f, []config.Derivation{
		{Kind: KindConcatSeparator, Column: "date", Separator: "-", Segments: [][2]int{{1, 4}, {5, 2}, {7, 2}}},
		{Kind: KindReplace, Column: "countryId", Pattern: "_", Replacement: "XX"},
		{Kind: KindReplace, Column: "ghost", Pattern: "_"},
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"2025-01-31", "2025-02-01"}, column(t, f, "date"))
	assert.Equal(t, []string{"CAXX1", "NZXX2"}, column(t, f, "countryId"))
	assert.Equal(t, []string{"date", "countryId"}, rec.Response().Group(core.GroupDimensions).Updated)

	last := rec.Response().Operations[2]
	assert.Equal(t, core.StatusNotExisting, last.Status)
	assert.Equal(t, "ghost", last.Column)
}

func TestInvalidDerivations(t *testing.T) {
	ctx := context.Background()
	f := trafficFrame(t)
	rec := report.New(core.NewTransferResponse(), nil)

	tests := []struct {
		name string
		d    config.Derivation
	}{
		{"unknown kind", config.Derivation{Kind: "explode", Column: "x"}},
		{"no column", config.Derivation{Kind: KindDivide}},
		{"divide without denominator", config.Derivation{Kind: KindDivide, Column: "x", Numerator: "sessions"}},
		{"split without delimiter", config.Derivation{Kind: KindSplit, Column: "x", Source: "sourceMedium"}},
		{"split negative index", config.Derivation{Kind: KindSplit, Column: "x", Source: "sourceMedium", Delimiter: "/", Index: -1}},
		{"concat without segments", config.Derivation{Kind: KindConcatSeparator, Column: "date"}},
		{"concat zero segment", config.Derivation{Kind: KindConcatSeparator, Column: "date", Segments: [][2]int{{0, 2}}}},
		{"replace without pattern", config.Derivation{Kind: KindReplace, Column: "countryId"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Add(ctx, f, []config.Derivation{tt.d}, rec)
			require.Error(t, err)
			assert.Equal(t, core.KindConfiguration, core.KindOf(err))
		})
	}
}
