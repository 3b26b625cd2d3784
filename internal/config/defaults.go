package config

import "time"

// Default provider values.
const (
	DefaultRetryMaximum = 10
	DefaultRetryDelay   = 5 * time.Second
	DefaultPartition    = 1
	DefaultBatch        = 10000
	DefaultFormat       = "parquet"
	DefaultWriteMode    = "overwrite"
)

// ApplyDefaults fills in unset provider values of every stage.
func ApplyDefaults(m *Media) {
	if m == nil {
		return
	}
	for _, stage := range m.Stages {
		if stage == nil {
			continue
		}
		ApplyProviderDefaults(&stage.Provider)
	}
}

// ApplyProviderDefaults fills in unset provider values.
func ApplyProviderDefaults(p *Provider) {
	if p.Format == "" {
		p.Format = DefaultFormat
	}
	if p.Write.Mode == "" {
		p.Write.Mode = DefaultWriteMode
	}
	if p.Retry.Maximum == 0 {
		p.Retry.Maximum = DefaultRetryMaximum
	}
	if p.Retry.Delay == 0 {
		p.Retry.Delay = DefaultRetryDelay
	}
	if p.Partition <= 0 {
		p.Partition = DefaultPartition
	}
	if p.Batch <= 0 {
		p.Batch = DefaultBatch
	}
}
