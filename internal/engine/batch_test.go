package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/internal/checksum"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

func TestTotalRows(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, core.LayerSource, false, salesRows)
	env.seed(t, core.LayerRaw, false, `SELECT 1 AS id, 'A' AS city, 10 AS amount`)
	e := env.engine(t, Switchboard{})

	results, err := e.TotalRows(context.Background(), Selection{
		MediaType: "Retail",
		Layers:    []core.Layer{core.LayerSource, core.LayerRaw, core.LayerLanding},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK())
	assert.Equal(t, int64(4), results[0].RowCounts().GrossTotal)
	assert.True(t, results[1].OK())
	assert.Equal(t, int64(1), results[1].RowCounts().GrossTotal)
	assert.False(t, results[2].OK())
	assert.Equal(t, core.KindSourceReadFailed, core.KindOf(results[2].Err))
}

func TestTotalRows_StopsClassAtFirstFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, core.LayerRaw, false, salesRows)
	e := env.engine(t, Switchboard{})

	results, err := e.TotalRows(context.Background(), Selection{
		MediaType: "Retail",
		Classes:   []string{"Sales"},
		Layers:    []core.Layer{core.LayerLanding, core.LayerRaw},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.LayerLanding, results[0].Source)
	assert.False(t, results[0].OK())
}

func TestTotalRows_UnknownMedia(t *testing.T) {
	e := newTestEnv(t).engine(t, Switchboard{})
	_, err := e.TotalRows(context.Background(), Selection{MediaType: "Nope"})
	require.Error(t, err)
	assert.Equal(t, core.KindInvalidMediaCategory, core.KindOf(err))
}

func TestCompareChecksums(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, core.LayerSource, false, `SELECT * FROM (VALUES (1, 'A', 10), (2, 'B', 20)) AS t(id, city, amount)`)
	env.seed(t, core.LayerLanding, false, `SELECT * FROM (VALUES (2, 'B', 20), (1, 'A', 10)) AS t(id, city, amount)`)
	env.seed(t, core.LayerRaw, false, `SELECT * FROM (VALUES (1, 'A', 10), (2, 'B', 21)) AS t(id, city, amount)`)
	env.seed(t, core.LayerBronze, false, `SELECT 1 AS id, 'A' AS city, 10 AS amount WHERE false`)
	// integrity checks are forced on for the comparison
	e := env.engine(t, Switchboard{})

	results, err := e.CompareChecksums(context.Background(), Selection{
		MediaType: "Retail",
		Layers:    []core.Layer{core.LayerSource, core.LayerLanding, core.LayerRaw, core.LayerBronze, core.LayerSilver},
	})
	require.NoError(t, err)
	require.Len(t, results, 5)

	assert.Equal(t, checksum.VerdictBaseline, results[0].Verdict)
	assert.Empty(t, results[0].Previous)
	require.NotNil(t, results[0].Checksum)

	assert.Equal(t, checksum.VerdictMatch, results[1].Verdict)
	assert.Equal(t, core.LayerSource, results[1].Previous)
	assert.Equal(t, *results[0].Checksum, *results[1].Checksum)

	assert.Equal(t, checksum.VerdictMismatch, results[2].Verdict)
	assert.Equal(t, core.LayerLanding, results[2].Previous)

	// an empty layer has no checksum
	assert.True(t, results[3].OK())
	assert.Nil(t, results[3].Checksum)
	assert.Equal(t, checksum.VerdictUnavailable, results[3].Verdict)

	// the silver layer was never written
	assert.False(t, results[4].OK())
	assert.Equal(t, checksum.VerdictUnavailable, results[4].Verdict)
}

func TestDisplay(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, core.LayerSource, false, salesRows)
	e := env.engine(t, Switchboard{})

	previews, err := e.Display(context.Background(), Selection{
		MediaType: "Retail",
		Layers:    []core.Layer{core.LayerSource},
	}, 2)
	require.NoError(t, err)
	require.Len(t, previews, 1)

	p := previews[0]
	require.NoError(t, p.Err)
	assert.Equal(t, []string{"id", "city", "amount"}, p.Columns)
	assert.Len(t, p.Rows, 2)
	assert.Equal(t, int64(4), p.RowCounts().GrossTotal)
}

func TestHops(t *testing.T) {
	e := newTestEnv(t).engine(t, Switchboard{})

	hops, err := e.Hops(core.LayerSource, core.LayerRaw)
	require.NoError(t, err)
	assert.Equal(t, []Hop{
		{Source: core.LayerSource, Target: core.LayerLanding},
		{Source: core.LayerLanding, Target: core.LayerRaw},
	}, hops)

	_, err = e.Hops(core.LayerRaw, core.LayerSource)
	require.Error(t, err)
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, core.LayerSource, false, salesRows)
	e := env.engine(t, Switchboard{QualityCheck: true})
	ctx := context.Background()

	hops, err := e.Hops(core.LayerSource, core.LayerRaw)
	require.NoError(t, err)
	results, err := e.Transfer(ctx, Selection{MediaType: "Retail", Classes: []string{"Sales"}}, hops)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	assert.Equal(t, core.LayerRaw, results[1].Target)

	names, data := env.load(t, core.LayerRaw, false)
	assert.Equal(t, append([]string{"id", "city", "amount"}, core.AuditColumns...), names)
	assert.Len(t, data, 3)
}

func TestTransfer_StopsAtFirstFailingHop(t *testing.T) {
	env := newTestEnv(t)
	e := env.engine(t, Switchboard{})

	hops, err := e.Hops(core.LayerSource, core.LayerRaw)
	require.NoError(t, err)
	results, err := e.Transfer(context.Background(), Selection{MediaType: "Retail"}, hops)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.LayerSource, results[0].Source)
	assert.Equal(t, core.KindSourceReadFailed, core.KindOf(results[0].Err))
}
