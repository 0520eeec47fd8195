// Package tree implements the declarative configuration tree: ordered
// mappings, sequences and scalars. A mapping carrying the Marker key is a
// construction request whose value is the dotted path of the callable to
// build.
package tree

import (
	"fmt"
	"reflect"
	"sort"
)

// Marker is the reserved key identifying a construction request.
const Marker = "OBJECT"

// Node is one node of a configuration tree.
type Node interface {
	// Clone returns a deep copy of the node.
	Clone() Node
	node()
}

// Mapping is an ordered mapping with unique string keys.
type Mapping struct {
	keys   []string
	values map[string]Node
}

// Sequence is an ordered list of nodes.
type Sequence struct {
	Items []Node
}

// Scalar is a leaf value: nil, bool, int, float64 or string.
type Scalar struct {
	Value any
}

func (*Mapping) node()  {}
func (*Sequence) node() {}
func (*Scalar) node()   {}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]Node)}
}

// NewSequence returns a sequence holding items.
func NewSequence(items ...Node) *Sequence {
	return &Sequence{Items: items}
}

// NewScalar wraps v in a Scalar.
func NewScalar(v any) *Scalar {
	return &Scalar{Value: v}
}

// Get returns the node stored under key.
func (m *Mapping) Get(key string) (Node, bool) {
	if m == nil {
		return nil, false
	}
	n, ok := m.values[key]
	return n, ok
}

// Has reports whether key is present.
func (m *Mapping) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores n under key, appending the key if it is new.
func (m *Mapping) Set(key string, n Node) {
	if m.values == nil {
		m.values = make(map[string]Node)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = n
}

// SetDefault stores n under key only if key is absent. It reports whether
// the mapping changed.
func (m *Mapping) SetDefault(key string, n Node) bool {
	if m.Has(key) {
		return false
	}
	m.Set(key, n)
	return true
}

// Delete removes key and returns its node.
func (m *Mapping) Delete(key string) (Node, bool) {
	n, ok := m.Get(key)
	if !ok {
		return nil, false
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i:i], m.keys[i+1:]...)
			break
		}
	}
	return n, true
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Target returns the dotted construction path if the mapping is a
// construction request. A marker whose value is not a string is reported
// as an error.
func (m *Mapping) Target() (string, bool, error) {
	n, ok := m.Get(Marker)
	if !ok {
		return "", false, nil
	}
	s, isScalar := n.(*Scalar)
	if !isScalar {
		return "", true, fmt.Errorf("%s must be a dotted path string, got %s", Marker, describe(n))
	}
	path, isString := s.Value.(string)
	if !isString || path == "" {
		return "", true, fmt.Errorf("%s must be a dotted path string, got %#v", Marker, s.Value)
	}
	return path, true, nil
}

// Clone returns a deep copy of the mapping.
func (m *Mapping) Clone() Node {
	return m.CloneMapping()
}

// CloneMapping is Clone with the concrete type preserved.
func (m *Mapping) CloneMapping() *Mapping {
	out := NewMapping()
	for _, k := range m.keys {
		out.Set(k, m.values[k].Clone())
	}
	return out
}

// Clone returns a deep copy of the sequence.
func (s *Sequence) Clone() Node {
	out := &Sequence{Items: make([]Node, len(s.Items))}
	for i, n := range s.Items {
		out.Items[i] = n.Clone()
	}
	return out
}

// Clone returns a copy of the scalar.
func (s *Scalar) Clone() Node {
	return &Scalar{Value: s.Value}
}

// FromValue converts a plain Go value into a tree. Slices and arrays become
// sequences, maps with string keys become mappings (keys sorted, since Go
// maps carry no order), pointers are dereferenced and everything else is a
// scalar.
func FromValue(v any) Node {
	switch x := v.(type) {
	case nil:
		return NewScalar(nil)
	case Node:
		return x.Clone()
	case []any:
		seq := &Sequence{Items: make([]Node, len(x))}
		for i, item := range x {
			seq.Items[i] = FromValue(item)
		}
		return seq
	case map[string]any:
		m := NewMapping()
		for _, k := range sortedKeys(x) {
			m.Set(k, FromValue(x[k]))
		}
		return m
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return NewScalar(nil)
		}
		return FromValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		seq := &Sequence{Items: make([]Node, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			seq.Items[i] = FromValue(rv.Index(i).Interface())
		}
		return seq
	case reflect.Map:
		keys := rv.MapKeys()
		if isSetValue(rv.Type()) {
			items := make([]any, 0, len(keys))
			for _, k := range keys {
				items = append(items, k.Interface())
			}
			sort.Slice(items, func(i, j int) bool { return fmt.Sprint(items[i]) < fmt.Sprint(items[j]) })
			return FromValue(items)
		}
		m := NewMapping()
		sort.Slice(keys, func(i, j int) bool { return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface()) })
		for _, k := range keys {
			m.Set(fmt.Sprint(k.Interface()), FromValue(rv.MapIndex(k).Interface()))
		}
		return m
	}
	return NewScalar(v)
}

func isSetValue(t reflect.Type) bool {
	return t.Elem().Kind() == reflect.Struct && t.Elem().NumField() == 0
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ToValue converts a tree into plain Go values: map[string]any, []any and
// scalars.
func ToValue(n Node) any {
	switch x := n.(type) {
	case *Mapping:
		out := make(map[string]any, x.Len())
		for _, k := range x.keys {
			out[k] = ToValue(x.values[k])
		}
		return out
	case *Sequence:
		out := make([]any, len(x.Items))
		for i, item := range x.Items {
			out[i] = ToValue(item)
		}
		return out
	case *Scalar:
		return x.Value
	default:
		return nil
	}
}

// Equal reports whether two trees hold the same keys, order and values.
func Equal(a, b Node) bool {
	switch x := a.(type) {
	case *Mapping:
		y, ok := b.(*Mapping)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, k := range x.keys {
			if y.keys[i] != k || !Equal(x.values[k], y.values[k]) {
				return false
			}
		}
		return true
	case *Sequence:
		y, ok := b.(*Sequence)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Scalar:
		y, ok := b.(*Scalar)
		return ok && reflect.DeepEqual(x.Value, y.Value)
	default:
		return a == nil && b == nil
	}
}

func describe(n Node) string {
	switch n.(type) {
	case *Mapping:
		return "a mapping"
	case *Sequence:
		return "a sequence"
	default:
		return "a scalar"
	}
}
