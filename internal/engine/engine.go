// Package engine runs the migration pipeline.
// It moves one media class from a source layer to a target layer, applying
// the rules of the layer on the way, and records every run in the state store.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/lineage"
	"github.com/leapstack-labs/leapflow/internal/rules"
	"github.com/leapstack-labs/leapflow/internal/secrets"
	"github.com/leapstack-labs/leapflow/internal/state"
	"github.com/leapstack-labs/leapflow/internal/validate"
	"github.com/leapstack-labs/leapflow/pkg/adapter"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
	"github.com/leapstack-labs/leapflow/pkg/core"
)

// Switchboard holds the run switches.
type Switchboard struct {
	DisplayTable   bool `koanf:"display_table"`
	ExceptionApp   bool `koanf:"exception_app"`
	ExceptionAll   bool `koanf:"exception_all"`
	CatalogWrite   bool `koanf:"catalog_write"`
	QualityCheck   bool `koanf:"quality_check"`
	IntegrityCheck bool `koanf:"integrity_check"`
	TestMode       bool `koanf:"test_mode"`
	DebugMode      bool `koanf:"debug_mode"`
	SilentMode     bool `koanf:"silent_mode"`
}

// Engine orchestrates migration runs.
type Engine struct {
	// Dataset engine (lazy initialized)
	db          *duckdb.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	ownsDB      bool
	dbMu        sync.Mutex

	logger *slog.Logger

	store       state.Store
	app         core.AppInfo
	switchboard Switchboard
	catalog     *config.Catalog
	registry    *lineage.Registry
	validator   *validate.Validator
	rules       *rules.Engine
	secrets     secrets.Provider
	catalogPath string
	now         func() time.Time
}

// Config holds engine configuration.
type Config struct {
	App         core.AppInfo
	Switchboard Switchboard
	// Catalog is the media catalog (required).
	Catalog *config.Catalog
	// Registry is the layer registry, lineage.Default() when nil.
	Registry *lineage.Registry
	// Expressions resolves UserDefined quality checks,
	// rules.DefaultExpressions when nil.
	Expressions *rules.Expressions
	// Secrets resolves stage secrets, environment variables when nil.
	Secrets secrets.Provider
	// Database configures the DuckDB dataset engine.
	Database adapter.Config
	// DB is an already connected dataset engine. The engine does not close it.
	DB *duckdb.Adapter
	// CatalogPath is the DuckDB file the metadata catalog is written to.
	CatalogPath string
	// StatePath is the path to the SQLite state database, in memory when empty.
	StatePath string
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Now is the run clock, time.Now when nil.
	Now func() time.Time
}

// New creates a new engine. The dataset engine is connected on first use.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("media catalog is required")
	}

	registry := cfg.Registry
	if registry == nil {
		registry = lineage.Default()
	}
	expressions := cfg.Expressions
	if expressions == nil {
		var err error
		if expressions, err = rules.NewExpressions(rules.DefaultExpressions); err != nil {
			return nil, err
		}
	}
	provider := cfg.Secrets
	if provider == nil {
		provider = secrets.NewEnv("")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	statePath := cfg.StatePath
	if statePath == "" {
		statePath = ":memory:"
	}
	logger.Debug("initializing engine", "media", cfg.Catalog.Categories(), "state_path", statePath)

	store := state.NewSQLiteStore(logger)
	if err := store.Open(statePath); err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize state schema: %w", err)
	}

	dbConfig := cfg.Database
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	return &Engine{
		db:          cfg.DB,
		dbConfig:    dbConfig,
		dbConnected: cfg.DB != nil,
		logger:      logger,
		store:       store,
		app:         cfg.App,
		switchboard: cfg.Switchboard,
		catalog:     cfg.Catalog,
		registry:    registry,
		validator:   validate.New(registry, cfg.Catalog),
		rules:       rules.New(expressions),
		secrets:     provider,
		catalogPath: cfg.CatalogPath,
		now:         now,
	}, nil
}

// ensureDBConnected lazily connects the dataset engine.
func (e *Engine) ensureDBConnected(ctx context.Context) (*duckdb.Adapter, error) {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return e.db, nil
	}

	e.logger.Debug("connecting to dataset engine", "adapter_type", e.dbConfig.Type)

	db, err := adapter.NewAdapter(e.dbConfig, e.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset engine: %w", err)
	}
	duck, ok := db.(*duckdb.Adapter)
	if !ok {
		return nil, fmt.Errorf("dataset engine must be duckdb, got %q", e.dbConfig.Type)
	}
	if err := duck.Connect(ctx, e.dbConfig); err != nil {
		return nil, fmt.Errorf("failed to connect to dataset engine: %w", err)
	}

	e.db = duck
	e.dbConnected = true
	e.ownsDB = true
	return duck, nil
}

// Close releases all resources.
func (e *Engine) Close() error {
	e.logger.Debug("closing engine")

	var errs []error
	if e.db != nil && e.ownsDB {
		if err := e.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors closing engine: %v", errs)
	}
	return nil
}

// --- Getters (public accessors) ---

// GetStateStore returns the state store.
func (e *Engine) GetStateStore() state.Store {
	return e.store
}

// GetRegistry returns the layer registry.
func (e *Engine) GetRegistry() *lineage.Registry {
	return e.registry
}

// GetCatalog returns the media catalog.
func (e *Engine) GetCatalog() *config.Catalog {
	return e.catalog
}

// GetSwitchboard returns the run switches.
func (e *Engine) GetSwitchboard() Switchboard {
	return e.switchboard
}
