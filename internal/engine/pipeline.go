package engine

// pipeline.go - The stages of one run, in execution order

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/leapflow/internal/audit"
	"github.com/leapstack-labs/leapflow/internal/checksum"
	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/connector"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/internal/dedup"
	"github.com/leapstack-labs/leapflow/internal/derive"
	"github.com/leapstack-labs/leapflow/internal/filter"
	"github.com/leapstack-labs/leapflow/internal/report"
	"github.com/leapstack-labs/leapflow/internal/secrets"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// pipeline is the state of one run.
type pipeline struct {
	engine *Engine
	req    core.MigrationRequest
	opts   runOptions
	rec    *report.Recorder
	start  time.Time

	target core.Layer
	media  *config.Media
	class  *config.Class
	db     *duckdb.Adapter
	frame  *dataset.Frame
}

// safeRun runs the stages and turns a panic into an error.
func (p *pipeline) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()
	return p.run(ctx)
}

func (p *pipeline) run(ctx context.Context) error {
	if err := p.validate(); err != nil {
		return err
	}
	if err := p.simulate(); err != nil {
		return err
	}
	if err := p.read(ctx); err != nil {
		return err
	}
	if err := p.assort(ctx); err != nil {
		return err
	}
	if p.transforming() {
		if err := p.transform(ctx); err != nil {
			return err
		}
	}
	if err := p.reportColumns(ctx); err != nil {
		return err
	}
	return p.transfer(ctx)
}

func (p *pipeline) resp() *core.TransferResponse {
	return p.rec.Response()
}

func (p *pipeline) debug() bool {
	return p.engine.switchboard.DebugMode
}

// validate checks the request and resolves an Auto target.
func (p *pipeline) validate() error {
	e := p.engine
	if err := e.validator.Request(p.req); err != nil {
		return err
	}
	target, err := e.registry.Resolve(p.req.Source, p.req.Target)
	if err != nil {
		return err
	}
	p.setTarget(target)
	p.media, _ = e.catalog.Lookup(p.req.MediaType)
	p.class, _ = p.media.Class(p.req.MediaClass)

	p.rec.Note(core.StageValidate, "", core.StatusSucceeded,
		fmt.Sprintf("%s %s: %s -> %s", p.req.MediaType, p.req.MediaClass, e.registry.Label(p.req.Source), e.registry.Label(target)))
	return nil
}

func (p *pipeline) setTarget(target core.Layer) {
	p.target = target
	info := &p.resp().Header.Request
	info.Target = target
	info.TargetLabel = p.engine.registry.Label(target)
}

// simulate raises the configured test failures. Only debug runs simulate.
func (p *pipeline) simulate() error {
	sw := p.engine.switchboard
	if !sw.DebugMode {
		return nil
	}
	if sw.ExceptionApp {
		err := core.Errorf(core.KindSimulatedTestError, "simulated application error for %s %s", p.req.MediaType, p.req.MediaClass)
		err.Simulated = true
		p.rec.Note(core.StageSimulated, "", core.StatusFailed, err.Message)
		return err
	}
	if sw.ExceptionAll {
		p.rec.Note(core.StageSimulated, "", core.StatusFailed, core.ErrSimulatedFault.Error())
		return fmt.Errorf("%s %s: %w", p.req.MediaType, p.req.MediaClass, core.ErrSimulatedFault)
	}
	return nil
}

// stage returns the storage configuration of a layer.
func (p *pipeline) stage(layer core.Layer) (*config.Stage, error) {
	s, ok := p.media.Stage(layer)
	if !ok {
		configured := make([]string, 0, len(p.media.Stages))
		for name, st := range p.media.Stages {
			if st != nil {
				configured = append(configured, name)
			}
		}
		sort.Strings(configured)
		return nil, core.InvalidValue(core.KindConfiguration,
			"no storage stage configured for "+p.media.Name, layer.String(), configured)
	}
	return s, nil
}

// location returns where a layer stores the class: a table for the
// destination database, a path otherwise.
func (p *pipeline) location(s *config.Stage, layer core.Layer) (string, error) {
	if s.Provider.Type == connector.ProviderPostgres {
		return p.media.DestinationTable("", p.req.MediaClass, layer), nil
	}
	return p.media.Location(p.req.MediaClass, layer, p.debug(), p.start)
}

// open resolves the stage secrets and opens its connector.
func (p *pipeline) open(ctx context.Context, s *config.Stage) (connector.Connector, error) {
	e := p.engine
	if p.db == nil {
		db, err := e.ensureDBConnected(ctx)
		if err != nil {
			return nil, err
		}
		p.db = db
	}
	values, err := secrets.Resolve(ctx, e.secrets, s.Secrets)
	if err != nil {
		return nil, err
	}
	return connector.Open(ctx, connector.Params{
		Provider: s.Provider,
		Secrets:  values,
		Engine:   p.db,
		Logger:   p.rec.Logger(),
	})
}

// read loads the source layer. Any failure is fatal.
func (p *pipeline) read(ctx context.Context) error {
	s, err := p.stage(p.req.Source)
	if err != nil {
		return err
	}
	loc, err := p.location(s, p.req.Source)
	if err != nil {
		return core.WrapError(core.KindConfiguration, err, "failed to resolve source location")
	}
	p.resp().Header.Request.SourceLocation = loc

	conn, err := p.open(ctx, s)
	if err != nil {
		return core.WrapError(core.KindSourceReadFailed, err, "failed to open %s source", s.Provider.Type)
	}
	defer func() { _ = conn.Close() }()

	f, err := conn.Read(ctx, loc)
	if err != nil {
		p.rec.Note(core.StageRead, "", core.StatusFailed, loc)
		return core.WrapError(core.KindSourceReadFailed, err, "failed to read %s", loc)
	}
	p.frame = f

	n, err := f.Count(ctx)
	if err != nil {
		return core.WrapError(core.KindSourceReadFailed, err, "failed to count rows of %s", loc)
	}
	rows := &p.resp().Schema.Rows
	rows.GrossTotal = n
	rows.NetTotal = n
	p.rec.Note(core.StageRead, "", core.StatusSucceeded, fmt.Sprintf("%s ::> %d rows", loc, n))
	return nil
}

// assort deduplicates, checks quality and computes the integrity checksum.
// Deduplication and quality checks are skipped for read only runs.
func (p *pipeline) assort(ctx context.Context) error {
	sw := p.engine.switchboard
	schema := &p.class.Schema
	rows := p.resp().Schema.Rows.GrossTotal
	readOnly := p.target == core.LayerRead

	if !readOnly && sw.QualityCheck && rows > 0 {
		if fields, ok := schema.DedupFields(); ok {
			if _, err := dedup.Apply(ctx, p.frame, fields, p.rec); err != nil {
				return err
			}
		}
		if err := p.engine.rules.Quality(ctx, p.frame, schema.Columns(), rows, p.rec); err != nil {
			return err
		}
	}

	if (sw.IntegrityCheck || p.opts.integrity) && rows > 0 {
		if _, err := checksum.Apply(ctx, p.frame, p.rec); err != nil {
			return err
		}
	}
	return nil
}

// transforming reports whether this hop leaves the transformer layer towards
// a stored layer.
func (p *pipeline) transforming() bool {
	return p.req.Source == p.engine.registry.Transformer() && p.target != core.LayerRead
}

// transform applies the class transformation: filter, updates, casts,
// additions, drops, sort and finally renames.
func (p *pipeline) transform(ctx context.Context) error {
	t := p.class.Schema.Transformation
	specs := p.class.Schema.Columns()
	rules := p.engine.rules

	if _, err := filter.Apply(ctx, p.frame, t.Filter, p.rec); err != nil {
		return err
	}
	if err := derive.Update(ctx, p.frame, t.Update, p.rec); err != nil {
		return err
	}
	if err := rules.Cast(ctx, p.frame, specs, p.rec); err != nil {
		return err
	}
	if err := derive.Add(ctx, p.frame, t.New, p.rec); err != nil {
		return err
	}
	if err := rules.Drop(ctx, p.frame, specs, p.rec); err != nil {
		return err
	}
	if err := p.sort(ctx, t.Sort); err != nil {
		return err
	}
	return rules.Rename(ctx, p.frame, specs, p.rec)
}

// sort orders the rows by the configured columns. Columns missing from the
// dataset are reported and left out.
func (p *pipeline) sort(ctx context.Context, order config.Ordered[string]) error {
	if order.Len() == 0 {
		return nil
	}
	names, err := p.frame.ColumnNames(ctx)
	if err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to list columns for sort")
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		present[n] = true
	}

	var keys []dataset.SortKey
	var rendered []string
	for column, dir := range order.All() {
		if !present[column] {
			p.rec.Note(core.StageSort, column, core.StatusNotExisting, "sort column not existing")
			continue
		}
		desc := strings.EqualFold(dir, "DESC")
		keys = append(keys, dataset.SortKey{Column: column, Descending: desc})
		rendered = append(rendered, column+" "+strings.ToUpper(dir))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := p.frame.Sort(ctx, keys...); err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to sort")
	}
	p.rec.Note(core.StageSort, "", core.StatusSucceeded, strings.Join(rendered, ", "))
	return nil
}

func (p *pipeline) reportColumns(ctx context.Context) error {
	names, err := p.frame.ColumnNames(ctx)
	if err != nil {
		return core.WrapError(core.KindTransformFailed, err, "failed to list final columns")
	}
	cols := &p.resp().Schema.Columns
	cols.Final = names
	cols.Total = len(names)
	return nil
}

// transfer stamps the audit trail, writes the target layer and copies the
// result into the metadata catalog. Debug runs never write the destination.
func (p *pipeline) transfer(ctx context.Context) error {
	if p.target == core.LayerDestination && p.debug() {
		p.rec.Note(core.StageWrite, "", core.StatusSkipped, "debug run: destination replaced by read")
		p.setTarget(core.LayerRead)
	}
	if p.target == core.LayerRead {
		p.rec.Note(core.StageWrite, "", core.StatusSkipped, "read only")
		return nil
	}

	s, err := p.stage(p.target)
	if err != nil {
		return err
	}
	loc, err := p.location(s, p.target)
	if err != nil {
		return core.WrapError(core.KindConfiguration, err, "failed to resolve target location")
	}
	p.resp().Header.Request.TargetLocation = loc

	e := p.engine
	actor := audit.Actor(p.req.MediaType, e.registry.Label(p.req.Source), p.req.Source, p.req.Caller)
	if err := audit.Apply(ctx, p.frame, actor, e.now(), p.rec); err != nil {
		return err
	}

	conn, err := p.open(ctx, s)
	if err != nil {
		return core.WrapError(core.KindSinkWriteFailed, err, "failed to open %s target", s.Provider.Type)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.Write(ctx, p.frame, loc); err != nil {
		p.rec.Note(core.StageWrite, "", core.StatusFailed, loc+" ::> Failed")
		if core.KindOf(err) == "" {
			err = core.WrapError(core.KindSinkWriteFailed, err, "failed to write %s", loc)
		}
		return err
	}
	p.rec.Note(core.StageWrite, "", core.StatusSucceeded, loc+" ::> Successful")

	if e.switchboard.CatalogWrite {
		p.writeCatalog(ctx)
	}
	return nil
}

// writeCatalog copies the written dataset into the metadata catalog.
// Failures are recorded and never fail the run.
func (p *pipeline) writeCatalog(ctx context.Context) {
	table := p.media.CatalogTable(p.req.MediaClass, p.target, p.debug())
	p.resp().Header.Request.CatalogTable = table

	err := connector.NewCatalog(p.db, p.engine.catalogPath).Write(ctx, p.frame, table)
	if err != nil {
		p.rec.Note(core.StageCatalog, "", core.StatusFailed, fmt.Sprintf("%s ::> %v", table, err))
		return
	}
	p.rec.Note(core.StageCatalog, "", core.StatusSucceeded, table+" ::> Successful")
}
