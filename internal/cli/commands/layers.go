package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/lineage"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// LayerOutput is the JSON form of one registry entry.
type LayerOutput struct {
	Code        core.Layer `json:"code"`
	Label       string     `json:"label"`
	Successor   core.Layer `json:"successor,omitempty"`
	Source      bool       `json:"source"`
	Target      bool       `json:"target"`
	Transformer bool       `json:"transformer,omitempty"`
	Merger      bool       `json:"merger,omitempty"`
}

// NewLayersCommand creates the layers command.
func NewLayersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layers",
		Short: "List the storage layers and their lineage",
		Long: `Print the layer registry: every layer code with its label, its successor in
the lineage and whether it may be used as a source or a target.`,
		Aliases: []string{"lineage"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			reg, err := lineage.New(cmdCtx.Cfg.Data.Lineage())
			if err != nil {
				return err
			}
			return renderLayers(cmdCtx.Renderer, reg)
		},
	}
}

func layerOutputs(reg *lineage.Registry) []LayerOutput {
	layers := reg.Layers()
	for _, l := range reg.Targets() {
		if l.IsPseudo() {
			layers = append(layers, l)
		}
	}

	out := make([]LayerOutput, 0, len(layers))
	for _, l := range layers {
		succ, _ := reg.Successor(l)
		out = append(out, LayerOutput{
			Code:        l,
			Label:       reg.Label(l),
			Successor:   succ,
			Source:      reg.IsSource(l),
			Target:      reg.IsTarget(l),
			Transformer: l == reg.Transformer(),
			Merger:      l == reg.Merger(),
		})
	}
	return out
}

func renderLayers(r *output.Renderer, reg *lineage.Registry) error {
	layers := layerOutputs(reg)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(layers)
	}

	rows := make([][]string, 0, len(layers))
	for _, l := range layers {
		role := ""
		switch {
		case l.Transformer:
			role = "transformer"
		case l.Merger:
			role = "merger"
		}
		rows = append(rows, []string{
			l.Code.String(),
			l.Label,
			previousText(l.Successor),
			yesNo(l.Source),
			yesNo(l.Target),
			role,
		})
	}
	r.Table([]string{"Code", "Label", "Successor", "Source", "Target", "Role"}, rows)
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
