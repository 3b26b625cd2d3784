package config

import (
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Ordered is a string-keyed mapping that remembers the order keys were
// declared in the YAML document.
type Ordered[V any] struct {
	keys   []string
	values map[string]V
}

// NewOrdered builds an Ordered from alternating key and value pairs.
func NewOrdered[V any](pairs ...Pair[V]) Ordered[V] {
	var o Ordered[V]
	for _, p := range pairs {
		o.Set(p.Key, p.Value)
	}
	return o
}

// Pair is one entry of an Ordered mapping.
type Pair[V any] struct {
	Key   string
	Value V
}

// P is shorthand for constructing a Pair.
func P[V any](key string, value V) Pair[V] {
	return Pair[V]{Key: key, Value: value}
}

// Set stores value under key, appending key when it is new.
func (o *Ordered[V]) Set(key string, value V) {
	if o.values == nil {
		o.values = make(map[string]V)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o Ordered[V]) Get(key string) (V, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o Ordered[V]) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the keys in declaration order.
func (o Ordered[V]) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of entries.
func (o Ordered[V]) Len() int {
	return len(o.keys)
}

// All iterates the entries in declaration order.
func (o Ordered[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range o.keys {
			if !yield(k, o.values[k]) {
				return
			}
		}
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Ordered[V]) UnmarshalYAML(node *yaml.Node) error {
	*o = Ordered[V]{}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("line %d: invalid key: %w", node.Content[i].Line, err)
		}
		var value V
		if err := node.Content[i+1].Decode(&value); err != nil {
			return fmt.Errorf("line %d: key %q: %w", node.Content[i].Line, key, err)
		}
		o.Set(key, value)
	}
	return nil
}

// Values is a list of literals that also accepts a single scalar. A null
// document leaves it nil while an empty list decodes to an empty, non-nil
// Values.
type Values []any

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		list := []any{}
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = list
		return nil
	}
	var single any
	if err := node.Decode(&single); err != nil {
		return err
	}
	*v = Values{single}
	return nil
}
