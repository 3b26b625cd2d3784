// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/cli/output"
)

// mediaTemplate is a small category whose layers are CSV files under ROOT.
const mediaTemplate = `name: Retail
directory: {live: Shop, debug: ShopTest}
stages:
  DS: {provider: {type: file, format: csv, options: {root: "ROOT"}, subdir: {extension: .csv}}}
  LZ: {provider: {type: file, format: csv, options: {root: "ROOT"}}}
  RZ: {provider: {type: file, format: csv, options: {root: "ROOT"}}}
  BL: {provider: {type: file, format: csv, options: {root: "ROOT"}}}
  SL: {provider: {type: file, format: csv, options: {root: "ROOT"}}}
  GL: {provider: {type: file, format: csv, options: {root: "ROOT"}}}
classes:
  Sales:
    schema:
      quality:
        duplicates: {remove: true, fields: ["*"]}
      dimensions:
        id: {type: integer, quality: [Null, Unique]}
        city: {type: string}
      metrics:
        amount: {type: integer, rename: Amount}
`

// SalesCSV is the source data of the Retail Sales class. One row is a duplicate.
const SalesCSV = `id,city,amount
1,A,10
2,B,20
1,A,10
`

// SetupTestProject creates a temporary project with a leapflow.yaml, a
// media catalog and source data. Returns the config file path.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	dataDir := filepath.Join(root, "data")
	mediaDir := filepath.Join(root, "media")
	sourceDir := filepath.Join(dataDir, "Shop", "Retail", "DS")

	for _, dir := range []string{mediaDir, sourceDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create directory %s: %v", dir, err)
		}
	}

	media := strings.ReplaceAll(mediaTemplate, "ROOT", filepath.ToSlash(dataDir))
	if err := os.WriteFile(filepath.Join(mediaDir, "retail.yaml"), []byte(media), 0644); err != nil {
		t.Fatalf("failed to create retail.yaml: %v", err)
	}

	if err := os.WriteFile(filepath.Join(sourceDir, "Retail-Sales-DS.csv"), []byte(SalesCSV), 0644); err != nil {
		t.Fatalf("failed to create source data: %v", err)
	}

	cfg := `app:
  name: leapflow
  version: test
media_dir: media
state_path: .leapflow/state.db
output: markdown
switchboard:
  quality_check: true
log:
  level: error
`
	cfgPath := filepath.Join(root, "leapflow.yaml")
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to create leapflow.yaml: %v", err)
	}

	return cfgPath
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.OutputMode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}
