package rules

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultExpressions are registered when no expressions are configured.
var DefaultExpressions = map[string]string{
	"alphanumeric": `^[a-zA-Z0-9]+$`,
}

// Expressions is the registry of named value patterns used by
// UserDefined quality checks. Patterns use RE2 syntax, which both Go and the
// dataset engine accept.
type Expressions struct {
	patterns map[string]string
}

// NewExpressions compiles every pattern to reject invalid ones early.
func NewExpressions(patterns map[string]string) (*Expressions, error) {
	e := &Expressions{patterns: make(map[string]string, len(patterns))}
	for name, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("expression %q: %w", name, err)
		}
		e.patterns[name] = p
	}
	return e, nil
}

// Lookup returns the pattern registered under name.
func (e *Expressions) Lookup(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	p, ok := e.patterns[name]
	return p, ok
}

// Names returns the registered expression names, sorted.
func (e *Expressions) Names() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.patterns))
	for n := range e.patterns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
