package lineage

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/leapflow/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTarget_EveryLayerWithSuccessor(t *testing.T) {
	reg := Default()
	cfg := DefaultConfig()

	for from, to := range cfg.Lineage {
		t.Run(from, func(t *testing.T) {
			got, err := reg.Resolve(core.Layer(from), core.LayerAuto)
			require.NoError(t, err)
			assert.Equal(t, core.Layer(to), got)
		})
	}
}

func TestResolveTarget_TerminalLayer(t *testing.T) {
	reg := Default()

	_, err := reg.ResolveTarget(core.LayerDestination)
	require.Error(t, err)

	var me *core.MigrationError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, core.KindInvalidLayer, me.Kind)
	assert.Equal(t, "DZ", me.Value)
	assert.Contains(t, me.Accepted, "GL")
	assert.NotContains(t, me.Accepted, "DZ")
}

func TestResolve_ExplicitTargetUnchanged(t *testing.T) {
	reg := Default()
	got, err := reg.Resolve(core.LayerBronze, core.LayerRead)
	require.NoError(t, err)
	assert.Equal(t, core.LayerRead, got)
}

func TestLabel(t *testing.T) {
	reg := Default()

	tests := []struct {
		layer core.Layer
		want  string
	}{
		{core.LayerSource, "API"},
		{core.LayerBronze, "Bronze Layer"},
		{core.LayerRead, "Read Only"},
		{core.LayerAuto, "Automatic"},
		{core.Layer("XX"), UnknownLabel},
	}
	for _, tt := range tests {
		t.Run(tt.layer.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, reg.Label(tt.layer))
		})
	}
}

func TestLayersAndChain(t *testing.T) {
	reg := Default()

	assert.Equal(t, []core.Layer{"DS", "LZ", "RZ", "BL", "SL", "GL", "DZ"}, reg.Layers())
	assert.Equal(t, []core.Layer{"SL", "GL", "DZ"}, reg.Chain(core.LayerSilver))

	path, err := reg.Path(core.LayerLanding, core.LayerBronze)
	require.NoError(t, err)
	assert.Equal(t, []core.Layer{"LZ", "RZ", "BL"}, path)

	_, err = reg.Path(core.LayerGold, core.LayerRaw)
	require.Error(t, err)
}

func TestSourcesAndTargets(t *testing.T) {
	reg := Default()

	assert.True(t, reg.IsSource(core.LayerSource))
	assert.False(t, reg.IsSource(core.LayerDestination))
	assert.True(t, reg.IsTarget(core.LayerRead))
	assert.False(t, reg.IsTarget(core.LayerSource))
	assert.Equal(t, core.LayerBronze, reg.Transformer())
	assert.Equal(t, core.LayerSilver, reg.Merger())
	assert.Len(t, reg.Sources(), 6)
	assert.Len(t, reg.Targets(), 7)
}

func TestNew_RejectsCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lineage["DZ"] = "DS"

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}
