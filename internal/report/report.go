// Package report records per-operation outcomes on a transfer response and
// mirrors each one to the structured log.
package report

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Recorder writes outcomes into one response.
type Recorder struct {
	resp   *core.TransferResponse
	logger *slog.Logger
}

// New creates a Recorder. A nil logger discards log output.
func New(resp *core.TransferResponse, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{resp: resp, logger: logger}
}

// Response returns the response being filled in.
func (r *Recorder) Response() *core.TransferResponse {
	return r.resp
}

// Logger returns the recorder's logger.
func (r *Recorder) Logger() *slog.Logger {
	return r.logger
}

// Note records an outcome and logs it. Successes log at info, skips at
// debug and everything else at warn.
func (r *Recorder) Note(stage, column string, status core.OperationStatus, detail string) core.Outcome {
	o := r.resp.Record(stage, column, status, detail)

	level := slog.LevelWarn
	switch status {
	case core.StatusSucceeded:
		level = slog.LevelInfo
	case core.StatusSkipped:
		level = slog.LevelDebug
	}
	attrs := []any{slog.String("stage", stage), slog.String("status", string(status))}
	if column != "" {
		attrs = append(attrs, slog.String("column", column))
	}
	msg := detail
	if msg == "" {
		msg = stage
	}
	r.logger.Log(context.Background(), level, msg, attrs...)
	return o
}
