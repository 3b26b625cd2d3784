package secrets

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// EnvProvider reads secrets from environment variables.
type EnvProvider struct {
	prefix string
	lookup func(string) (string, bool)
}

// NewEnv creates an environment provider.
func NewEnv(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix, lookup: os.LookupEnv}
}

// EnvName returns the variable holding scope/key: prefix, scope and key
// joined by "_", upper-cased, with runs of other characters as "_".
func EnvName(prefix, scope, key string) string {
	var parts []string
	for _, p := range []string{scope, key} {
		if p = strings.Trim(nonAlnum.ReplaceAllString(p, "_"), "_"); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToUpper(prefix + strings.Join(parts, "_"))
}

// Get returns the variable value.
func (p *EnvProvider) Get(_ context.Context, scope, key string) (string, error) {
	name := EnvName(p.prefix, scope, key)
	v, ok := p.lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return v, nil
}
