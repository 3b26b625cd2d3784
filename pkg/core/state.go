package core

import "time"

// Store defines the interface for run-history persistence.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Run operations
	CreateRun(req RunRequest) (*Run, error)
	CompleteRun(id string, result RunResult) error
	GetRun(id string) (*Run, error)
	ListRuns(filter RunFilter) ([]*Run, error)
	GetLatestRun(mediaType, mediaClass string, target Layer) (*Run, error)
}

// RunStatus represents the status of a recorded run.
type RunStatus string

// RunStatus values.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunRequest identifies a run when it is created.
type RunRequest struct {
	ID         string
	MediaType  string
	MediaClass string
	Source     Layer
	Target     Layer
	Origin     string
}

// RunResult is stored when a run completes.
type RunResult struct {
	// Target is the resolved target layer. Empty keeps the requested one.
	Target     Layer
	Status     RunStatus
	GrossTotal int64
	NetTotal   int64
	Checksum   string
	Error      string
	Response   []byte
}

// Run is one recorded pipeline invocation.
type Run struct {
	ID          string
	MediaType   string
	MediaClass  string
	Source      Layer
	Target      Layer
	Origin      string
	Status      RunStatus
	GrossTotal  int64
	NetTotal    int64
	Checksum    string
	Error       string
	Response    []byte
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	MediaType  string
	MediaClass string
	Status     RunStatus
	Limit      int
}
