package core

// OperationStatus is the result of a single per-column operation.
type OperationStatus string

// Operation statuses.
const (
	StatusSucceeded       OperationStatus = "Succeeded"
	StatusNotExisting     OperationStatus = "FailedNotExisting"
	StatusAlreadyExisting OperationStatus = "FailedExisting"
	StatusFailed          OperationStatus = "Failed"
	StatusSkipped         OperationStatus = "Skipped"
)

// Pipeline stage names used in outcomes.
const (
	StageRead      = "Read"
	StageDedup     = "Deduplicate"
	StageQuality   = "Quality"
	StageChecksum  = "Checksum"
	StageFilter    = "Filter"
	StageUpdate    = "Update"
	StageCast      = "Cast"
	StageAdd       = "Add"
	StageDrop      = "Drop"
	StageSort      = "Sort"
	StageRename    = "Rename"
	StageAudit     = "Audit"
	StageWrite     = "Write"
	StageCatalog   = "Catalog"
	StageValidate  = "Validate"
	StageSimulated = "Simulated"
)

// Outcome records one per-column (or per-stage) operation result.
type Outcome struct {
	Stage  string          `json:"stage"`
	Column string          `json:"column,omitempty"`
	Status OperationStatus `json:"status"`
	Detail string          `json:"detail,omitempty"`
}

// OK reports whether the operation succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSucceeded
}
