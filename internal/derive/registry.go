package derive

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leapflow/internal/config"
)

// Strategy turns a derivation into a SQL expression over the dataset.
type Strategy interface {
	// Expr returns the expression computing the derived value and the
	// columns it reads.
	Expr(d config.Derivation) (expr string, inputs []string, err error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(d config.Derivation) (string, []string, error)

// Expr implements Strategy.
func (fn StrategyFunc) Expr(d config.Derivation) (string, []string, error) {
	return fn(d)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Strategy)
)

// Register adds a strategy for a derivation kind.
func Register(kind string, s Strategy) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(kind)] = s
}

// Get retrieves the strategy for a derivation kind.
func Get(kind string) (Strategy, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[strings.ToLower(kind)]
	if !ok {
		return nil, &UnknownDerivationError{Kind: kind, Available: kinds()}
	}
	return s, nil
}

// Kinds returns all registered derivation kinds (sorted).
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return kinds()
}

func kinds() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// UnknownDerivationError is returned when a derivation kind is not registered.
type UnknownDerivationError struct {
	Kind      string
	Available []string
}

func (e *UnknownDerivationError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown derivation %q: no derivations registered", e.Kind)
	}
	return fmt.Sprintf("unknown derivation %q, available: %s", e.Kind, strings.Join(e.Available, ", "))
}
