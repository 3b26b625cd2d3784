package core

// Caller origins.
const (
	OriginDirect   = "Direct"
	OriginPipeline = "Pipeline"
)

// MigrationRequest is one invocation of the pipeline: move a media class
// from a source layer to a target layer.
type MigrationRequest struct {
	MediaType  string
	MediaClass string
	Source     Layer
	// Target is the requested target. Auto is resolved through lineage
	// before the pipeline runs.
	Target Layer
	Caller Caller
}

// Caller describes who triggered the run.
type Caller struct {
	// Name is the invoking tool, e.g. "CLI".
	Name string `json:"name"`
	// Runner is the operating system user that started the process.
	Runner   string        `json:"runner,omitempty"`
	Pipeline *PipelineInfo `json:"pipeline,omitempty"`
}

// Origin returns OriginPipeline when pipeline metadata is present.
func (c Caller) Origin() string {
	if c.Pipeline != nil {
		return OriginPipeline
	}
	return OriginDirect
}

// PipelineInfo carries metadata handed over by an external scheduler.
type PipelineInfo struct {
	Caller      string `json:"caller"`
	Name        string `json:"name"`
	RunID       string `json:"run_id"`
	TriggerType string `json:"trigger_type"`
	TriggeredOn string `json:"triggered_on"`
}
