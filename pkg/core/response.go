package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// HashAlgorithm names the digest used for integrity checksums.
const HashAlgorithm = "SHA-256"

// Response status codes.
const (
	StatusCodeOK       = 200
	StatusCodeNotFound = 404
)

// TransferResponse accumulates the report of one pipeline invocation.
// It is created per request, mutated by each stage and returned to the
// caller once the run ends.
type TransferResponse struct {
	Header     Header       `json:"header"`
	Schema     SchemaReport `json:"schema"`
	Operations []Outcome    `json:"operations"`
	Success    bool         `json:"success"`
	Status     int          `json:"status"`
	Failure    *Failure     `json:"failure,omitempty"`
}

// Header describes the invocation.
type Header struct {
	App       AppInfo     `json:"app"`
	RunID     string      `json:"run_id"`
	StartedAt time.Time   `json:"started_at"`
	EndedAt   time.Time   `json:"ended_at"`
	Duration  string      `json:"duration"`
	Origin    string      `json:"origin"`
	Caller    Caller      `json:"caller"`
	Request   RequestInfo `json:"request"`
	Mode      Mode        `json:"mode"`
	Filter    string      `json:"filter,omitempty"`
}

// AppInfo identifies the running application.
type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
}

// RequestInfo echoes the resolved request.
type RequestInfo struct {
	MediaType       string `json:"media_type"`
	MediaClass      string `json:"media_class"`
	Source          Layer  `json:"source"`
	SourceLabel     string `json:"source_label"`
	RequestedTarget Layer  `json:"requested_target"`
	Target          Layer  `json:"target"`
	TargetLabel     string `json:"target_label"`
	SourceLocation  string `json:"source_location,omitempty"`
	TargetLocation  string `json:"target_location,omitempty"`
	CatalogTable    string `json:"catalog_table,omitempty"`
}

// Mode echoes the run switches.
type Mode struct {
	Test  bool `json:"test"`
	Debug bool `json:"debug"`
}

// SchemaReport groups column, row, quality and integrity reporting.
type SchemaReport struct {
	Columns   ColumnReport    `json:"columns"`
	Rows      RowCounts       `json:"rows"`
	Quality   []QualityResult `json:"quality,omitempty"`
	Integrity Integrity       `json:"integrity"`
}

// RowCounts tracks row totals across the pipeline.
type RowCounts struct {
	GrossTotal int64 `json:"gross_total"`
	NetTotal   int64 `json:"net_total"`
	Duplicates int64 `json:"duplicates"`
	Filtered   int64 `json:"filtered"`
}

// ColumnReport tracks column changes per attribute group.
type ColumnReport struct {
	Groups map[string]*ColumnChanges `json:"groups"`
	Final  []string                  `json:"final,omitempty"`
	Total  int                       `json:"total"`
}

// ColumnChanges lists changed columns of one attribute group.
type ColumnChanges struct {
	Added        []string `json:"added"`
	AddedCount   int      `json:"added_count"`
	Purged       []string `json:"purged"`
	PurgedCount  int      `json:"purged_count"`
	Updated      []string `json:"updated"`
	UpdatedCount int      `json:"updated_count"`
	Renamed      []Rename `json:"renamed"`
	RenamedCount int      `json:"renamed_count"`
}

// Rename is one applied column rename.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// QualityResult is the outcome of one quality check on one column.
type QualityResult struct {
	Group      string       `json:"group"`
	Column     string       `json:"column"`
	Check      QualityCheck `json:"check"`
	Count      int64        `json:"count"`
	Percentage float64      `json:"percentage"`
}

// Integrity carries the content checksum, nil when not computed.
type Integrity struct {
	Checksum *string `json:"checksum"`
	Hash     string  `json:"hash"`
}

// Failure is the uniform record of a fatal condition.
type Failure struct {
	Kind      ErrorKind       `json:"kind,omitempty"`
	Message   string          `json:"message"`
	Exception string          `json:"exception"`
	Location  *SourceLocation `json:"location,omitempty"`
	Simulated bool            `json:"simulated"`
}

// NewTransferResponse creates an empty response with initialised groups.
func NewTransferResponse() *TransferResponse {
	groups := make(map[string]*ColumnChanges, len(AttributeGroups))
	for _, g := range AttributeGroups {
		groups[g] = &ColumnChanges{}
	}
	return &TransferResponse{
		Schema: SchemaReport{
			Columns:   ColumnReport{Groups: groups},
			Integrity: Integrity{Hash: HashAlgorithm},
		},
		Operations: []Outcome{},
		Status:     StatusCodeNotFound,
	}
}

// Record appends a per-column operation outcome.
func (r *TransferResponse) Record(stage, column string, status OperationStatus, detail string) Outcome {
	o := Outcome{Stage: stage, Column: column, Status: status, Detail: detail}
	r.Operations = append(r.Operations, o)
	return o
}

// Group returns the change set of an attribute group, creating it if needed.
func (r *TransferResponse) Group(name string) *ColumnChanges {
	if r.Schema.Columns.Groups == nil {
		r.Schema.Columns.Groups = make(map[string]*ColumnChanges)
	}
	g, ok := r.Schema.Columns.Groups[name]
	if !ok {
		g = &ColumnChanges{}
		r.Schema.Columns.Groups[name] = g
	}
	return g
}

// AddQuality appends a quality result, computing its percentage of total.
func (r *TransferResponse) AddQuality(group, column string, check QualityCheck, count, total int64) QualityResult {
	q := QualityResult{
		Group:      group,
		Column:     column,
		Check:      check,
		Count:      count,
		Percentage: Percentage(count, total),
	}
	r.Schema.Quality = append(r.Schema.Quality, q)
	return q
}

// SetChecksum records the integrity checksum.
func (r *TransferResponse) SetChecksum(sum string) {
	r.Schema.Integrity.Checksum = &sum
}

// Succeed marks the run successful.
func (r *TransferResponse) Succeed() {
	r.Success = true
	r.Status = StatusCodeOK
	r.Failure = nil
}

// Fail marks the run failed and records err as the failure.
func (r *TransferResponse) Fail(err error) {
	r.Success = false
	r.Status = StatusCodeNotFound
	r.Failure = NewFailure(err)
}

// Finish stamps the end time and duration.
func (r *TransferResponse) Finish(end time.Time) {
	r.Header.EndedAt = end
	r.Header.Duration = end.Sub(r.Header.StartedAt).Round(time.Millisecond).String()
}

// ToMap converts the response into its plain nested-mapping form.
func (r *TransferResponse) ToMap() (map[string]any, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

// AddAdded records an added column.
func (c *ColumnChanges) AddAdded(name string) {
	c.Added = append(c.Added, name)
	c.AddedCount = len(c.Added)
}

// AddPurged records a dropped column.
func (c *ColumnChanges) AddPurged(name string) {
	c.Purged = append(c.Purged, name)
	c.PurgedCount = len(c.Purged)
}

// AddUpdated records a column whose values or type were rewritten.
func (c *ColumnChanges) AddUpdated(name string) {
	c.Updated = append(c.Updated, name)
	c.UpdatedCount = len(c.Updated)
}

// AddRenamed records a column rename.
func (c *ColumnChanges) AddRenamed(from, to string) {
	c.Renamed = append(c.Renamed, Rename{From: from, To: to})
	c.RenamedCount = len(c.Renamed)
}

// NewFailure builds a failure record from err. MigrationErrors keep their
// kind, location and simulated flag.
func NewFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	f := &Failure{Message: err.Error(), Exception: fmt.Sprintf("%T", err)}
	var me *MigrationError
	if errors.As(err, &me) {
		f.Kind = me.Kind
		f.Message = me.Error()
		f.Exception = string(me.Kind)
		f.Location = me.Location
		f.Simulated = me.Simulated
	}
	if errors.Is(err, ErrSimulatedFault) {
		f.Simulated = true
	}
	return f
}

// Percentage returns count as a percentage of total, 0 when total is 0.
func Percentage(count, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
