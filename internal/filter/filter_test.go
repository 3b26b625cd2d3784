package filter

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parseRule(t *testing.T, doc string) config.FilterRule {
	t.Helper()
	var rule config.FilterRule
	require.NoError(t, yaml.Unmarshal([]byte(doc), &rule))
	return rule
}

var allColumns = map[string]bool{"city": true, "amount": true, "id": true}

func TestBuild(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		sql     string
		display string
	}{
		{
			name:    "single equality",
			doc:     `{AND: {"==": {city: [A]}}}`,
			sql:     `"city" = 'A'`,
			display: "city == A",
		},
		{
			name:    "values folded with group operator",
			doc:     `{OR: {"==": {city: [A, B, C]}}}`,
			sql:     `(("city" = 'A' OR "city" = 'B') OR "city" = 'C')`,
			display: "city == A OR city == B OR city == C",
		},
		{
			name:    "groups fold left to right",
			doc:     "OR: {\"!=\": {amount: [20, 40]}}\nAND: {\"==\": {city: [A, B]}}",
			sql:     `((("amount" <> 20 OR "amount" <> 40) AND "city" = 'A') AND "city" = 'B')`,
			display: "amount != 20 OR amount != 40 AND city == A AND city == B",
		},
		{
			name:    "null comparisons",
			doc:     `{AND: {"==": {city: [null, "Null"]}, "!=": {amount: ~}}}`,
			sql:     `(("city" IS NULL AND "city" IS NULL) AND "amount" IS NOT NULL)`,
			display: "city == Null AND city == Null AND amount != Null",
		},
		{
			name:    "blank ordering becomes zero",
			doc:     `{AND: {">=": {amount: [""]}, "<": {id: [2.5]}}}`,
			sql:     `("amount" >= 0 AND "id" < 2.5)`,
			display: "amount >= 0 AND id < 2.5",
		},
		{
			name:    "blank equality stays blank",
			doc:     `{AND: {"==": {city: [""]}}}`,
			sql:     `"city" = ''`,
			display: "city == Blank",
		},
		{
			name:    "absent columns skipped",
			doc:     `{AND: {"==": {country: [CA], city: [A]}}}`,
			sql:     `"city" = 'A'`,
			display: "city == A",
		},
		{
			name:    "quotes escaped",
			doc:     `{and: {"==": {city: ["O'Hare"]}}}`,
			sql:     `"city" = 'O''Hare'`,
			display: "city == O'Hare",
		},
		{
			name:    "booleans",
			doc:     `{AND: {"!=": {id: [true]}}}`,
			sql:     `"id" <> TRUE`,
			display: "id != true",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Build(parseRule(t, tt.doc), allColumns)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, expr.SQL)
			assert.Equal(t, tt.display, expr.Display)
			assert.False(t, expr.Empty())
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		value string
	}{
		{"unknown comparison", `{AND: {"~=": {city: [A]}}}`, "~="},
		{"unknown logical", `{XOR: {"==": {city: [A]}}}`, "XOR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(parseRule(t, tt.doc), allColumns)
			require.Error(t, err)
			assert.Equal(t, core.KindConfiguration, core.KindOf(err))
		})
	}
}

func TestBuild_EmptyList(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		sql     string
		display string
	}{
		{
			name: "only empty list",
			doc:  `{AND: {"==": {city: []}}}`,
		},
		{
			name:    "empty list beside values",
			doc:     `{AND: {"==": {city: [], amount: [10]}}}`,
			sql:     `"amount" = 10`,
			display: "amount == 10",
		},
		{
			name:    "null still compares",
			doc:     `{AND: {"==": {city: null, amount: []}}}`,
			sql:     `"city" IS NULL`,
			display: "city == Null",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := Build(parseRule(t, tt.doc), allColumns)
			require.NoError(t, err)
			assert.Equal(t, tt.sql, expr.SQL)
			assert.Equal(t, tt.display, expr.Display)
			assert.Equal(t, tt.sql == "", expr.Empty())
		})
	}
}

func TestBuild_NoColumns(t *testing.T) {
	expr, err := Build(parseRule(t, `{AND: {"==": {country: [CA]}}}`), allColumns)
	require.NoError(t, err)
	assert.True(t, expr.Empty())
}

func testFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	f, err := dataset.FromQuery(context.Background(), testutil.NewEngine(t), "filter",
		`SELECT * FROM (VALUES (1, 'A', 10), (2, 'A', 10), (3, 'B', 5), (4, NULL, 7)) AS t(id, city, amount)`)
	require.NoError(t, err)
	return f
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	f := testFrame(t)
	rec := report.New(core.NewTransferResponse(), testutil.NewTestLogger(t))

	expr, err := Apply(ctx, f, parseRule(t, `{AND: {"==": {city: [A]}}}`), rec)
	require.NoError(t, err)
	assert.Equal(t, "city == A", expr.Display)

	n, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	resp := rec.Response()
	assert.Equal(t, int64(2), resp.Schema.Rows.NetTotal)
	assert.Equal(t, int64(2), resp.Schema.Rows.Filtered)
	assert.Equal(t, "city == A", resp.Header.Filter)
}

func TestApply_NullAwareAndOrdering(t *testing.T) {
	ctx := context.Background()
	f := testFrame(t)
	rec := report.New(core.NewTransferResponse(), nil)

	_, err := Apply(ctx, f, parseRule(t, "OR: {\"==\": {city: [null]}}\nAND: {\">\": {amount: [6]}}"), rec)
	require.NoError(t, err)

	n, err := f.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the NULL city row with amount 7 matches")
}

func TestApply_NoOp(t *testing.T) {
	ctx := context.Background()
	f := testFrame(t)
	table := f.Table()
	rec := report.New(core.NewTransferResponse(), nil)

	_, err := Apply(ctx, f, parseRule(t, `{AND: {"==": {country: [CA]}}}`), rec)
	require.NoError(t, err)
	assert.Equal(t, table, f.Table())
	require.Len(t, rec.Response().Operations, 1)
	assert.Equal(t, core.StatusSkipped, rec.Response().Operations[0].Status)

	_, err = Apply(ctx, f, config.FilterRule{}, rec)
	require.NoError(t, err)
	assert.Len(t, rec.Response().Operations, 1)
}
