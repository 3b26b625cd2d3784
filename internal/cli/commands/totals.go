package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// SelectionOptions holds the class and layer selection shared by the
// read-only batch commands.
type SelectionOptions struct {
	Classes string
	Layers  string
}

func (o *SelectionOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Classes, "class", "c", "", "Comma-separated classes (default: all)")
	cmd.Flags().StringVarP(&o.Layers, "layers", "l", "", "Comma-separated layers (default: every source layer)")
}

// selection builds the engine selection, defaulting to every source layer
// in lineage order.
func (o *SelectionOptions) selection(eng *engine.Engine, mediaType string) engine.Selection {
	layers := parseLayers(o.Layers)
	if len(layers) == 0 {
		reg := eng.GetRegistry()
		for _, l := range reg.Layers() {
			if reg.IsSource(l) {
				layers = append(layers, l)
			}
		}
	}
	return engine.Selection{
		MediaType: mediaType,
		Classes:   splitList(o.Classes),
		Layers:    layers,
		Caller:    newCaller(PipelineOptions{}),
	}
}

// NewTotalsCommand creates the totals command.
func NewTotalsCommand() *cobra.Command {
	opts := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "totals <media-type>",
		Short: "Report row counts per class and layer",
		Long: `Read every selected layer of every selected class and report its gross,
net and duplicate row counts. Nothing is written.`,
		Example: `  leapflow totals GA4
  leapflow totals GA4 --class Pages --layers LZ,RZ,BL`,
		Aliases: []string{"rows"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := cmdCtx.Engine.TotalRows(cmd.Context(), opts.selection(cmdCtx.Engine, args[0]))
			if err != nil {
				return err
			}
			if err := renderResults(cmdCtx.Renderer, results); err != nil {
				return err
			}
			return batchError(failureCount(results), len(results))
		},
	}
	opts.addFlags(cmd)

	return cmd
}

// NewChecksumCommand creates the checksum command.
func NewChecksumCommand() *cobra.Command {
	opts := &SelectionOptions{}

	cmd := &cobra.Command{
		Use:   "checksum <media-type>",
		Short: "Compare content checksums across layers",
		Long: `Walk the selected layers of every class in order and compare each layer's
content checksum with the previous layer that had one. The first checksum of a
class is its baseline.`,
		Example: `  leapflow checksum GA4
  leapflow checksum GA4 --class Pages --layers RZ,BL,SL`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := cmdCtx.Engine.CompareChecksums(cmd.Context(), opts.selection(cmdCtx.Engine, args[0]))
			if err != nil {
				return err
			}
			return renderChecksums(cmdCtx, results)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func renderChecksums(cmdCtx *CommandContext, results []engine.ChecksumResult) error {
	r := cmdCtx.Renderer
	failed := 0
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]ResultOutput, 0, len(results))
		for _, res := range results {
			o := toResultOutput(res.Result)
			o.Checksum = res.Checksum
			o.Verdict = string(res.Verdict)
			o.Previous = res.Previous
			out = append(out, o)
		}
		if err := r.JSON(out); err != nil {
			return err
		}
		return batchError(failed, len(results))
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		sum := ""
		if res.Checksum != nil {
			sum = *res.Checksum
		}
		rows = append(rows, []string{
			res.MediaClass,
			res.Source.String(),
			string(res.Verdict),
			previousText(res.Previous),
			sum,
			errorText(res.Err),
		})
	}
	r.Table([]string{"Class", "Layer", "Verdict", "Previous", "Checksum", "Error"}, rows)
	return batchError(failed, len(results))
}

func previousText(l core.Layer) string {
	if l == "" {
		return "-"
	}
	return l.String()
}
