package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// TransferOptions holds options for the transfer command.
type TransferOptions struct {
	From    string
	To      string
	Classes string
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand() *cobra.Command {
	opts := &TransferOptions{}

	cmd := &cobra.Command{
		Use:   "transfer <media-type>",
		Short: "Move media classes along the lineage chain",
		Long: `Run every hop of the lineage chain between two layers for each selected
class. A class stops at its first failing hop; the other classes still run.`,
		Example: `  # Move every GA4 class from the source to the gold layer
  leapflow transfer GA4

  # Move two classes from the raw zone to the silver layer
  leapflow transfer GA4 --class Pages,Events --from RZ --to SL`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransfer(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", string(core.LayerSource), "First source layer")
	cmd.Flags().StringVar(&opts.To, "to", string(core.LayerGold), "Last target layer")
	cmd.Flags().StringVarP(&opts.Classes, "class", "c", "", "Comma-separated classes (default: all)")

	return cmd
}

func runTransfer(cmd *cobra.Command, mediaType string, opts *TransferOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	eng := cmdCtx.Engine
	hops, err := eng.Hops(core.ParseLayer(opts.From), core.ParseLayer(opts.To))
	if err != nil {
		return err
	}
	cmdCtx.Logger.Info("starting transfer", "media_type", mediaType, "hops", len(hops))

	results, err := eng.Transfer(cmd.Context(), engine.Selection{
		MediaType: mediaType,
		Classes:   splitList(opts.Classes),
		Caller:    newCaller(PipelineOptions{}),
	}, hops)
	if err != nil {
		return err
	}
	if err := renderResults(cmdCtx.Renderer, results); err != nil {
		return err
	}
	return batchError(failureCount(results), len(results))
}
