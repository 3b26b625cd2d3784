package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
	"github.com/leapstack-labs/leapflow/internal/engine"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// ResultOutput is the JSON form of one batch run.
type ResultOutput struct {
	MediaClass string         `json:"media_class"`
	Source     core.Layer     `json:"source"`
	Target     core.Layer     `json:"target"`
	RunID      string         `json:"run_id,omitempty"`
	Success    bool           `json:"success"`
	Rows       core.RowCounts `json:"rows"`
	Checksum   *string        `json:"checksum,omitempty"`
	Verdict    string         `json:"verdict,omitempty"`
	Previous   core.Layer     `json:"previous,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func toResultOutput(res engine.Result) ResultOutput {
	out := ResultOutput{
		MediaClass: res.MediaClass,
		Source:     res.Source,
		Target:     res.Target,
		Success:    res.OK(),
		Rows:       res.RowCounts(),
	}
	if res.Response != nil {
		out.RunID = res.Response.Header.RunID
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

func statusText(r *output.Renderer, ok bool) string {
	if ok {
		return r.Styles().Success.Render("OK")
	}
	return r.Styles().Error.Render("FAILED")
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return oneLine(err.Error())
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 120 {
		return s[:117] + "..."
	}
	return s
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

// renderResults renders batch run results as a table.
func renderResults(r *output.Renderer, results []engine.Result) error {
	if r.EffectiveMode() == output.ModeJSON {
		out := make([]ResultOutput, 0, len(results))
		for _, res := range results {
			out = append(out, toResultOutput(res))
		}
		return r.JSON(out)
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		counts := res.RowCounts()
		rows = append(rows, []string{
			res.MediaClass,
			res.Source.String(),
			res.Target.String(),
			statusText(r, res.OK()),
			itoa(counts.GrossTotal),
			itoa(counts.NetTotal),
			itoa(counts.Duplicates),
			errorText(res.Err),
		})
	}
	r.Table([]string{"Class", "Source", "Target", "Status", "Gross", "Net", "Duplicates", "Error"}, rows)
	return nil
}

// failureCount returns how many results failed.
func failureCount(results []engine.Result) int {
	n := 0
	for _, res := range results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// batchError summarises failed runs of a batch, nil when all succeeded.
func batchError(failed, total int) error {
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d runs failed", failed, total)
}

// renderResponse renders the report of a single run.
func renderResponse(r *output.Renderer, resp *core.TransferResponse) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(resp)
	}
	styles := r.Styles()
	h := resp.Header
	req := h.Request

	r.Println(styles.Header1.Render(fmt.Sprintf("%s %s: %s (%s) -> %s (%s)",
		req.MediaType, req.MediaClass, req.Source, req.SourceLabel, req.Target, req.TargetLabel)))
	r.Println(styles.Muted.Render(fmt.Sprintf("run %s | %s | %s | duration %s",
		h.RunID, h.Origin, h.Caller.Name, h.Duration)))
	if h.Mode.Debug || h.Mode.Test {
		r.Println(styles.Muted.Render(fmt.Sprintf("mode: debug=%t test=%t", h.Mode.Debug, h.Mode.Test)))
	}
	if req.SourceLocation != "" {
		r.Printf("  %s: %s\n", styles.Bold.Render("Source"), req.SourceLocation)
	}
	if req.TargetLocation != "" {
		r.Printf("  %s: %s\n", styles.Bold.Render("Target"), req.TargetLocation)
	}
	if h.Filter != "" {
		r.Printf("  %s: %s\n", styles.Bold.Render("Filter"), h.Filter)
	}
	r.Println("")

	if len(resp.Operations) > 0 {
		rows := make([][]string, 0, len(resp.Operations))
		for _, o := range resp.Operations {
			rows = append(rows, []string{o.Stage, o.Column, string(o.Status), oneLine(o.Detail)})
		}
		r.Table([]string{"Stage", "Column", "Status", "Detail"}, rows)
		r.Println("")
	}

	if len(resp.Schema.Quality) > 0 {
		rows := make([][]string, 0, len(resp.Schema.Quality))
		for _, q := range resp.Schema.Quality {
			rows = append(rows, []string{q.Group, q.Column, string(q.Check), itoa(q.Count), fmt.Sprintf("%.2f%%", q.Percentage)})
		}
		r.Table([]string{"Group", "Column", "Check", "Count", "Percentage"}, rows)
		r.Println("")
	}

	rc := resp.Schema.Rows
	r.Printf("  Rows: gross %d | net %d | duplicates %d | filtered %d\n", rc.GrossTotal, rc.NetTotal, rc.Duplicates, rc.Filtered)
	if sum := resp.Schema.Integrity.Checksum; sum != nil {
		r.Printf("  Checksum (%s): %s\n", resp.Schema.Integrity.Hash, *sum)
	}
	if len(resp.Schema.Columns.Final) > 0 {
		r.Printf("  Columns (%d): %s\n", resp.Schema.Columns.Total, strings.Join(resp.Schema.Columns.Final, ", "))
	}

	if resp.Success {
		r.Success("Run completed")
		return nil
	}
	if f := resp.Failure; f != nil {
		msg := "Run failed: " + f.Message
		if f.Kind != "" {
			msg = fmt.Sprintf("Run failed [%s]: %s", f.Kind, f.Message)
		}
		if f.Simulated {
			msg += " (simulated)"
		}
		r.Failure(msg)
	}
	return nil
}

// renderPreview renders the head of one dataset.
func renderPreview(r *output.Renderer, p engine.Preview) {
	styles := r.Styles()
	r.Println(styles.Header2.Render(fmt.Sprintf("%s %s (%d rows)", p.MediaClass, p.Source, p.RowCounts().GrossTotal)))
	if p.Err != nil {
		r.Failure(errorText(p.Err))
		return
	}
	if len(p.Rows) == 0 {
		r.Notice("(0 rows)")
		return
	}
	r.Table(p.Columns, p.Rows)
}
