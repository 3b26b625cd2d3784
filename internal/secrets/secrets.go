// Package secrets resolves the credentials referenced by storage stages.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapflow/internal/config"
)

// Provider kinds.
const (
	ProviderEnv = "env"
	ProviderAWS = "aws"
)

// ErrNotFound is returned when a secret does not exist.
var ErrNotFound = errors.New("secret not found")

// Provider looks up one secret.
type Provider interface {
	Get(ctx context.Context, scope, key string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider string `koanf:"provider"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
	// Prefix is prepended to environment variable names.
	Prefix string `koanf:"prefix"`
}

// New creates the configured provider. An empty provider means env.
func New(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderEnv:
		return NewEnv(cfg.Prefix), nil
	case ProviderAWS:
		return NewAWS(ctx, cfg.Region, cfg.Endpoint)
	default:
		return nil, fmt.Errorf("unknown secrets provider %q (accepted: %s, %s)", cfg.Provider, ProviderEnv, ProviderAWS)
	}
}

// Resolve looks up every reference, returning values by reference name.
func Resolve(ctx context.Context, p Provider, refs map[string]config.SecretRef) (map[string]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]string, len(refs))
	for _, name := range names {
		ref := refs[name]
		v, err := p.Get(ctx, ref.Scope, ref.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve secret %s: %w", name, err)
		}
		values[name] = v
	}
	return values, nil
}
