// Package connector reads and writes the storage layers of a media category.
//
// Each stage provider type (file, s3, postgres) maps to a Factory in a
// registry, selected once per run. Connectors exchange data with the pipeline
// as dataset frames held by the DuckDB engine.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/dataset"
	"github.com/leapstack-labs/leapflow/pkg/adapters/duckdb"
)

// Connector reads and writes datasets at a location.
type Connector interface {
	// Read loads the dataset stored at location into a new frame.
	Read(ctx context.Context, location string) (*dataset.Frame, error)
	// Write stores the frame at location.
	Write(ctx context.Context, f *dataset.Frame, location string) error
	Close() error
}

// Params configure a connector.
type Params struct {
	Provider config.Provider
	// Secrets holds resolved stage secrets by name. They override options
	// with the same key.
	Secrets map[string]string
	Engine  *duckdb.Adapter
	Logger  *slog.Logger
}

// Factory creates a connector.
type Factory func(ctx context.Context, p Params) (Connector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a connector factory for a provider type.
func Register(providerType string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[providerType] = f
}

// Providers returns the registered provider types (sorted).
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates the connector for p.Provider.Type.
func Open(ctx context.Context, p Params) (Connector, error) {
	registryMu.RLock()
	f, ok := registry[p.Provider.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownProviderError{Type: p.Provider.Type, Available: Providers()}
	}
	if p.Engine == nil {
		return nil, fmt.Errorf("connector %s requires a dataset engine", p.Provider.Type)
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.DiscardHandler)
	}
	return f(ctx, p)
}

// UnknownProviderError is returned when a stage names an unknown provider type.
type UnknownProviderError struct {
	Type      string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider type %q\nAvailable providers: %v\nHint: Check the stage providers in the media catalog", e.Type, e.Available)
}

// decodeOptions decodes provider options into out, then overlays secrets.
func decodeOptions(p Params, out any) error {
	if err := decode(p.Provider.Options, out, true); err != nil {
		return fmt.Errorf("invalid %s options: %w", p.Provider.Type, err)
	}
	if len(p.Secrets) == 0 {
		return nil
	}
	secrets := make(map[string]any, len(p.Secrets))
	for k, v := range p.Secrets {
		secrets[k] = v
	}
	if err := decode(secrets, out, false); err != nil {
		return fmt.Errorf("invalid %s secrets: %w", p.Provider.Type, err)
	}
	return nil
}

func decode(raw map[string]any, out any, strict bool) error {
	if len(raw) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      strict,
	})
	if err != nil {
		return fmt.Errorf("failed to create options decoder: %w", err)
	}
	return dec.Decode(raw)
}
