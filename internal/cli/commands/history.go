package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	MediaType  string
	MediaClass string
	Status     string
	Limit      int
}

// RunOutput is the JSON form of one recorded run.
type RunOutput struct {
	ID          string         `json:"id"`
	MediaType   string         `json:"media_type"`
	MediaClass  string         `json:"media_class"`
	Source      core.Layer     `json:"source"`
	Target      core.Layer     `json:"target"`
	Origin      string         `json:"origin"`
	Status      core.RunStatus `json:"status"`
	GrossTotal  int64          `json:"gross_total"`
	NetTotal    int64          `json:"net_total"`
	Checksum    string         `json:"checksum,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long:  `List runs recorded in the state database, most recent first.`,
		Example: `  leapflow history
  leapflow history --media GA4 --class Pages --status failed --limit 5`,
		Aliases: []string{"runs"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.MediaType, "media", "", "Only runs of this media category")
	cmd.Flags().StringVarP(&opts.MediaClass, "class", "c", "", "Only runs of this media class")
	cmd.Flags().StringVar(&opts.Status, "status", "", "Only runs with this status (running|completed|failed)")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of runs")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := cmdCtx.Engine.History(core.RunFilter{
		MediaType:  opts.MediaType,
		MediaClass: opts.MediaClass,
		Status:     core.RunStatus(opts.Status),
		Limit:      opts.Limit,
	})
	if err != nil {
		return err
	}
	return renderHistory(cmdCtx.Renderer, runs)
}

func renderHistory(r *output.Renderer, runs []*core.Run) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]RunOutput, 0, len(runs))
		for _, run := range runs {
			out = append(out, RunOutput{
				ID:          run.ID,
				MediaType:   run.MediaType,
				MediaClass:  run.MediaClass,
				Source:      run.Source,
				Target:      run.Target,
				Origin:      run.Origin,
				Status:      run.Status,
				GrossTotal:  run.GrossTotal,
				NetTotal:    run.NetTotal,
				Checksum:    run.Checksum,
				Error:       run.Error,
				StartedAt:   run.StartedAt,
				CompletedAt: run.CompletedAt,
			})
		}
		return r.JSON(out)
	}

	if len(runs) == 0 {
		r.Notice("No runs recorded")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		duration := ""
		if run.CompletedAt != nil {
			duration = run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.MediaType,
			run.MediaClass,
			run.Source.String(),
			run.Target.String(),
			string(run.Status),
			itoa(run.GrossTotal),
			itoa(run.NetTotal),
			duration,
			oneLine(run.Error),
		})
	}
	r.Table([]string{"Started", "Media", "Class", "Source", "Target", "Status", "Gross", "Net", "Duration", "Error"}, rows)
	return nil
}
