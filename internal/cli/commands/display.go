package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/engine"
)

// DisplayOptions holds options for the display command.
type DisplayOptions struct {
	SelectionOptions
	Limit int
}

// PreviewOutput is the JSON form of one dataset preview.
type PreviewOutput struct {
	ResultOutput
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// NewDisplayCommand creates the display command.
func NewDisplayCommand() *cobra.Command {
	opts := &DisplayOptions{}

	cmd := &cobra.Command{
		Use:   "display <media-type>",
		Short: "Preview the data of each class and layer",
		Long: `Read every selected layer of every selected class and show its first rows.
Nothing is written.`,
		Example: `  leapflow display GA4 --class Pages --layers BL
  leapflow display GA4 --limit 5 -o json`,
		Aliases: []string{"show"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDisplay(cmd, args[0], opts)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Rows per dataset (default: display.limit)")

	return cmd
}

func runDisplay(cmd *cobra.Command, mediaType string, opts *DisplayOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	limit := opts.Limit
	if limit <= 0 {
		limit = cmdCtx.Cfg.Display.Limit
	}

	previews, err := cmdCtx.Engine.Display(cmd.Context(), opts.selection(cmdCtx.Engine, mediaType), limit)
	if err != nil {
		return err
	}
	return renderPreviews(cmdCtx.Renderer, previews)
}

func renderPreviews(r *output.Renderer, previews []engine.Preview) error {
	failed := 0
	for _, p := range previews {
		if !p.OK() {
			failed++
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		out := make([]PreviewOutput, 0, len(previews))
		for _, p := range previews {
			out = append(out, PreviewOutput{ResultOutput: toResultOutput(p.Result), Columns: p.Columns, Rows: p.Rows})
		}
		if err := r.JSON(out); err != nil {
			return err
		}
		return batchError(failed, len(previews))
	}

	for i, p := range previews {
		if i > 0 {
			r.Println("")
		}
		renderPreview(r, p)
	}
	return batchError(failed, len(previews))
}
