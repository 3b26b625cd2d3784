package engine

// run.go - Single run execution and run history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// runOptions adjust a single run for the batch operations.
type runOptions struct {
	// integrity forces the integrity checksum on.
	integrity bool
	// keep hands the final frame to the caller instead of releasing it.
	keep bool
}

// Run executes one migration request. The response is never nil; when err is
// non-nil the response carries the same failure.
func (e *Engine) Run(ctx context.Context, req core.MigrationRequest) (*core.TransferResponse, error) {
	resp, _, err := e.execute(ctx, req, runOptions{})
	return resp, err
}

func (e *Engine) execute(ctx context.Context, req core.MigrationRequest, opts runOptions) (*core.TransferResponse, *dataset.Frame, error) {
	start := e.now()
	resp := core.NewTransferResponse()
	resp.Header = core.Header{
		App:       e.app,
		RunID:     uuid.NewString(),
		StartedAt: start,
		Origin:    req.Caller.Origin(),
		Caller:    req.Caller,
		Mode:      core.Mode{Test: e.switchboard.TestMode, Debug: e.switchboard.DebugMode},
		Request: core.RequestInfo{
			MediaType:       req.MediaType,
			MediaClass:      req.MediaClass,
			Source:          req.Source,
			SourceLabel:     e.registry.Label(req.Source),
			RequestedTarget: req.Target,
			Target:          req.Target,
			TargetLabel:     e.registry.Label(req.Target),
		},
	}

	logger := e.logger.With(
		slog.String("run_id", resp.Header.RunID),
		slog.String("media_type", req.MediaType),
		slog.String("media_class", req.MediaClass),
	)
	logger.Info("starting run", "source", req.Source, "target", req.Target)
	e.recordStart(resp)

	p := &pipeline{
		engine: e,
		req:    req,
		opts:   opts,
		rec:    report.New(resp, logger),
		start:  start,
	}
	err := p.safeRun(ctx)

	cleanup := context.WithoutCancel(ctx)
	f := p.frame
	if err != nil {
		resp.Fail(err)
		logger.Error("run failed", "error", err.Error(), "simulated", resp.Failure.Simulated)
	} else {
		resp.Succeed()
		logger.Info("run completed",
			"target", resp.Header.Request.Target,
			"gross_total", resp.Schema.Rows.GrossTotal,
			"net_total", resp.Schema.Rows.NetTotal)
	}
	if f != nil && (err != nil || !opts.keep) {
		if rerr := f.Release(cleanup); rerr != nil {
			logger.Warn("failed to release dataset", "error", rerr.Error())
		}
		f = nil
	}

	resp.Finish(e.now())
	e.recordEnd(resp, err)
	return resp, f, err
}

func (e *Engine) recordStart(resp *core.TransferResponse) {
	r := resp.Header.Request
	_, err := e.store.CreateRun(core.RunRequest{
		ID:         resp.Header.RunID,
		MediaType:  r.MediaType,
		MediaClass: r.MediaClass,
		Source:     r.Source,
		Target:     r.Target,
		Origin:     resp.Header.Origin,
	})
	if err != nil {
		e.logger.Warn("failed to record run", "run_id", resp.Header.RunID, "error", err.Error())
	}
}

func (e *Engine) recordEnd(resp *core.TransferResponse, runErr error) {
	result := core.RunResult{
		Target:     resp.Header.Request.Target,
		Status:     core.RunStatusCompleted,
		GrossTotal: resp.Schema.Rows.GrossTotal,
		NetTotal:   resp.Schema.Rows.NetTotal,
	}
	if sum := resp.Schema.Integrity.Checksum; sum != nil {
		result.Checksum = *sum
	}
	if runErr != nil {
		result.Status = core.RunStatusFailed
		result.Error = runErr.Error()
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		e.logger.Warn("failed to encode response", "run_id", resp.Header.RunID, "error", err.Error())
	}
	result.Response = raw

	if err := e.store.CompleteRun(resp.Header.RunID, result); err != nil {
		e.logger.Warn("failed to complete run record", "run_id", resp.Header.RunID, "error", err.Error())
	}
}

// History returns recorded runs, most recent first.
func (e *Engine) History(filter core.RunFilter) ([]*core.Run, error) {
	runs, err := e.store.ListRuns(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
