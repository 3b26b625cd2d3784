package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Target   string
	Pipeline PipelineOptions
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <media-type> <media-class> <source>",
		Short: "Move one media class from a source layer to a target layer",
		Long: `Run the migration pipeline for one media class.

The source layer is read, deduplicated and quality checked, transformed when
leaving the transformer layer, stamped with audit columns and written to the
target layer. The target defaults to Auto, the next layer in the lineage.
Use target Read to inspect a layer without writing.`,
		Example: `  # Move GA4 Pages from the raw zone to the next layer
  leapflow run GA4 Pages RZ

  # Read the bronze layer without writing
  leapflow run GA4 Pages BL --target Read

  # Triggered by a scheduler
  leapflow run GA4 Pages SL --pipeline nightly --pipeline-run-id 42 --trigger-type Schedule`,
		Aliases: []string{"migrate"},
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", string(core.LayerAuto), "Target layer (a layer code, Auto or Read)")
	cmd.Flags().StringVar(&opts.Pipeline.Name, "pipeline", "", "Name of the calling pipeline")
	cmd.Flags().StringVar(&opts.Pipeline.Caller, "pipeline-caller", "", "Caller reported by the pipeline")
	cmd.Flags().StringVar(&opts.Pipeline.RunID, "pipeline-run-id", "", "Run ID of the calling pipeline")
	cmd.Flags().StringVar(&opts.Pipeline.TriggerType, "trigger-type", "", "Pipeline trigger type")
	cmd.Flags().StringVar(&opts.Pipeline.TriggeredOn, "triggered-on", "", "Pipeline trigger time")

	_ = cmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"Auto", "Read", "LZ", "RZ", "BL", "SL", "GL", "DZ"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runRun(cmd *cobra.Command, args []string, opts *RunOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	eng := cmdCtx.Engine
	r := cmdCtx.Renderer

	req := core.MigrationRequest{
		MediaType:  args[0],
		MediaClass: args[1],
		Source:     core.ParseLayer(args[2]),
		Target:     core.ParseLayer(opts.Target),
		Caller:     newCaller(opts.Pipeline),
	}

	resp, runErr := eng.Run(ctx, req)
	if err := renderResponse(r, resp); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if cmdCtx.Cfg.Switchboard.DisplayTable {
		layer := displayLayer(resp)
		previews, err := eng.Display(ctx, engine.Selection{
			MediaType: req.MediaType,
			Classes:   []string{req.MediaClass},
			Layers:    []core.Layer{layer},
			Caller:    req.Caller,
		}, cmdCtx.Cfg.Display.Limit)
		if err != nil {
			return err
		}
		r.Println("")
		for _, p := range previews {
			renderPreview(r, p)
		}
	}
	return nil
}

// displayLayer is the layer whose data a run left behind: the target, or the
// source when nothing was written to a readable layer.
func displayLayer(resp *core.TransferResponse) core.Layer {
	target := resp.Header.Request.Target
	if target == core.LayerRead || target == core.LayerDestination || target.IsPseudo() {
		return resp.Header.Request.Source
	}
	return target
}
