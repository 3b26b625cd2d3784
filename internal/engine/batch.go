package engine

// batch.go - Operations that run the pipeline over several classes and layers

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/leapflow/internal/checksum"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Selection names the classes and layers a batch operation visits.
type Selection struct {
	MediaType string
	// Classes defaults to every class of the media category.
	Classes []string
	Layers  []core.Layer
	Caller  core.Caller
}

// Result is the outcome of one run within a batch.
type Result struct {
	MediaClass string
	Source     core.Layer
	Target     core.Layer
	Response   *core.TransferResponse
	Err        error
}

// OK reports whether the run succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// RowCounts returns the row counts of the run.
func (r Result) RowCounts() core.RowCounts {
	if r.Response == nil {
		return core.RowCounts{}
	}
	return r.Response.Schema.Rows
}

// ChecksumResult compares one layer's checksum with the previous layer of
// the same class.
type ChecksumResult struct {
	Result
	Previous core.Layer
	Checksum *string
	Verdict  checksum.Verdict
}

// Preview is the head of one layer's dataset.
type Preview struct {
	Result
	Columns []string
	Rows    [][]string
}

// Hop is one source to target step of a transfer.
type Hop struct {
	Source core.Layer
	Target core.Layer
}

// classes returns the selected classes, all classes of the category when
// none are named.
func (e *Engine) classes(sel Selection) ([]string, error) {
	media, ok := e.catalog.Lookup(sel.MediaType)
	if !ok {
		return nil, core.InvalidValue(core.KindInvalidMediaCategory,
			"unknown media category", sel.MediaType, e.catalog.Categories())
	}
	if len(sel.Classes) > 0 {
		return sel.Classes, nil
	}
	return media.ClassNames(), nil
}

func (e *Engine) readRequest(sel Selection, class string, layer core.Layer) core.MigrationRequest {
	return core.MigrationRequest{
		MediaType:  sel.MediaType,
		MediaClass: class,
		Source:     layer,
		Target:     core.LayerRead,
		Caller:     sel.Caller,
	}
}

// TotalRows reads every selected layer of every selected class and reports
// its row counts. A class stops at its first failing layer.
func (e *Engine) TotalRows(ctx context.Context, sel Selection) ([]Result, error) {
	classes, err := e.classes(sel)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, class := range classes {
		for _, layer := range sel.Layers {
			resp, err := e.Run(ctx, e.readRequest(sel, class, layer))
			results = append(results, Result{MediaClass: class, Source: layer, Target: core.LayerRead, Response: resp, Err: err})
			if err != nil {
				break
			}
		}
	}
	return results, nil
}

// CompareChecksums walks the selected layers of every class in order and
// compares each layer's checksum with the last layer that had one. The first
// checksum of a class is its baseline. A class stops at its first failing
// layer.
func (e *Engine) CompareChecksums(ctx context.Context, sel Selection) ([]ChecksumResult, error) {
	classes, err := e.classes(sel)
	if err != nil {
		return nil, err
	}
	var results []ChecksumResult
	for _, class := range classes {
		var previous *string
		var previousLayer core.Layer
		first := true
		for _, layer := range sel.Layers {
			resp, _, err := e.execute(ctx, e.readRequest(sel, class, layer), runOptions{integrity: true})
			r := ChecksumResult{
				Result: Result{MediaClass: class, Source: layer, Target: core.LayerRead, Response: resp, Err: err},
			}
			if err != nil {
				r.Verdict = checksum.VerdictUnavailable
				results = append(results, r)
				break
			}
			r.Checksum = resp.Schema.Integrity.Checksum
			r.Verdict = checksum.Compare(previous, r.Checksum, first)
			if r.Verdict != checksum.VerdictBaseline {
				r.Previous = previousLayer
			}
			results = append(results, r)

			if r.Checksum != nil {
				previous = r.Checksum
				previousLayer = layer
				first = false
			}
		}
	}
	return results, nil
}

// Display reads every selected layer of every selected class and returns
// up to limit rows of each. A class stops at its first failing layer.
func (e *Engine) Display(ctx context.Context, sel Selection, limit int) ([]Preview, error) {
	classes, err := e.classes(sel)
	if err != nil {
		return nil, err
	}
	var previews []Preview
	for _, class := range classes {
		for _, layer := range sel.Layers {
			p, err := e.preview(ctx, sel, class, layer, limit)
			previews = append(previews, p)
			if err != nil {
				break
			}
		}
	}
	return previews, nil
}

func (e *Engine) preview(ctx context.Context, sel Selection, class string, layer core.Layer, limit int) (Preview, error) {
	resp, f, err := e.execute(ctx, e.readRequest(sel, class, layer), runOptions{keep: true})
	p := Preview{Result: Result{MediaClass: class, Source: layer, Target: core.LayerRead, Response: resp, Err: err}}
	if err != nil {
		return p, err
	}
	defer func() { _ = f.Release(context.WithoutCancel(ctx)) }()

	p.Columns, p.Rows, err = f.Preview(ctx, limit)
	if err != nil {
		p.Err = fmt.Errorf("failed to preview %s %s: %w", class, layer, err)
		return p, p.Err
	}
	return p, nil
}

// Hops returns the lineage steps from one layer to another.
func (e *Engine) Hops(from, to core.Layer) ([]Hop, error) {
	path, err := e.registry.Path(from, to)
	if err != nil {
		return nil, fmt.Errorf("no lineage from %s to %s: %w", from, to, err)
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("no lineage from %s to %s", from, to)
	}
	hops := make([]Hop, 0, len(path)-1)
	for i := 1; i < len(path); i++ {
		hops = append(hops, Hop{Source: path[i-1], Target: path[i]})
	}
	return hops, nil
}

// Transfer runs hops in order for every selected class. A class stops at
// its first failing hop; the other classes still run.
func (e *Engine) Transfer(ctx context.Context, sel Selection, hops []Hop) ([]Result, error) {
	classes, err := e.classes(sel)
	if err != nil {
		return nil, err
	}
	var results []Result
	for _, class := range classes {
		for _, h := range hops {
			resp, err := e.Run(ctx, core.MigrationRequest{
				MediaType:  sel.MediaType,
				MediaClass: class,
				Source:     h.Source,
				Target:     h.Target,
				Caller:     sel.Caller,
			})
			results = append(results, Result{MediaClass: class, Source: h.Source, Target: resp.Header.Request.Target, Response: resp, Err: err})
			if err != nil {
				break
			}
		}
	}
	return results, nil
}
