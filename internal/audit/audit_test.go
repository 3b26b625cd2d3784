package audit

import (
	"context"
	"testing"
	"time"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActor(t *testing.T) {
	pipeline := &core.PipelineInfo{
		Caller:      "ADF",
		Name:        "Daily_GA4",
		RunID:       "run-42",
		TriggerType: "Schedule",
		TriggeredOn: "2025-01-31T00:00:00Z",
	}

	tests := []struct {
		name   string
		source core.Layer
		label  string
		caller core.Caller
		want   string
	}{
		{
			name:   "external source with pipeline",
			source: core.LayerSource,
			label:  "API",
			caller: core.Caller{Name: "CLI", Pipeline: pipeline},
			want:   "GA4 API - ADF Pipeline - Daily_GA4 (run-42) - Schedule (2025-01-31T00:00:00Z)",
		},
		{
			name:   "layer source with runner",
			source: core.LayerRaw,
			label:  "Raw Zone",
			caller: core.Caller{Name: "CLI", Runner: "alice"},
			want:   "Raw Zone - CLI - alice",
		},
		{
			name:   "layer source without runner",
			source: core.LayerBronze,
			label:  "Bronze Layer",
			caller: core.Caller{Name: "CLI"},
			want:   "Bronze Layer - CLI",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Actor("GA4", tt.label, tt.source, tt.caller))
		})
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	f, err := dataset.FromQuery(ctx, testutil.NewEngine(t), "audit", `
		SELECT 'old' AS "Row_Inserted-By", 1 AS id, 'x' AS "Row_Source", 'A' AS city`)
	require.NoError(t, err)
	rec := report.New(core.NewTransferResponse(), testutil.NewTestLogger(t))

	now := time.Date(2025, 1, 31, 10, 20, 30, 999_000_000, time.UTC)
	require.NoError(t, Apply(ctx, f, "Raw Zone - CLI", now, rec))

	names, err := f.ColumnNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"id", "city", "Row_Source",
		core.ColumnInsertedOn, core.ColumnInsertedBy, core.ColumnUpdatedOn, core.ColumnUpdatedBy,
	}, names)

	typ, _, err := f.ColumnType(ctx, core.ColumnInsertedOn)
	require.NoError(t, err)
	assert.Equal(t, "TIMESTAMP", typ)

	_, rows, err := f.Preview(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"1", "A", "x", "2025-01-31 10:20:30", "Raw Zone - CLI", "2025-01-31 10:20:30", "Raw Zone - CLI",
	}, rows[0])
}
