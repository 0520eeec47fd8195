package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Merge merges src into dst. Mappings merge key by key, recursively; any
// other node in src replaces the node in dst. src is cloned, never aliased.
func Merge(dst, src *Mapping) {
	for _, k := range src.keys {
		incoming := src.values[k]
		if existing, ok := dst.Get(k); ok {
			dm, dok := existing.(*Mapping)
			sm, sok := incoming.(*Mapping)
			if dok && sok {
				Merge(dm, sm)
				continue
			}
		}
		dst.Set(k, incoming.Clone())
	}
}

// SetPath stores n at a dotted path, creating intermediate mappings as
// needed. A numeric segment indexes into an existing sequence.
func SetPath(root *Mapping, path string, n Node) error {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("invalid key path %q: empty segment", path)
		}
	}

	var cur Node = root
	for i, seg := range segments {
		last := i == len(segments)-1
		switch c := cur.(type) {
		case *Mapping:
			if last {
				if existing, ok := c.Get(seg); ok {
					em, eok := existing.(*Mapping)
					nm, nok := n.(*Mapping)
					if eok && nok {
						Merge(em, nm)
						return nil
					}
				}
				c.Set(seg, n)
				return nil
			}
			next, ok := c.Get(seg)
			if !ok {
				next = NewMapping()
				c.Set(seg, next)
			}
			if _, isScalar := next.(*Scalar); isScalar {
				next = NewMapping()
				c.Set(seg, next)
			}
			cur = next
		case *Sequence:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c.Items) {
				return fmt.Errorf("invalid key path %q: %q is not an index of a sequence of length %d", path, seg, len(c.Items))
			}
			if last {
				c.Items[idx] = n
				return nil
			}
			cur = c.Items[idx]
		default:
			return fmt.Errorf("invalid key path %q: cannot descend into a scalar at %q", path, seg)
		}
	}
	return nil
}

// GetPath returns the node at a dotted path.
func GetPath(root *Mapping, path string) (Node, bool) {
	var cur Node = root
	for _, seg := range strings.Split(path, ".") {
		switch c := cur.(type) {
		case *Mapping:
			next, ok := c.Get(seg)
			if !ok {
				return nil, false
			}
			cur = next
		case *Sequence:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(c.Items) {
				return nil, false
			}
			cur = c.Items[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Leaf is one flattened entry of a tree.
type Leaf struct {
	Key   string
	Value any
}

// Flatten walks the mappings of a tree depth-first and returns every
// non-mapping value under its dotted key, in order. Sequences are leaves.
func Flatten(m *Mapping) []Leaf {
	var out []Leaf
	var walk func(prefix string, m *Mapping)
	walk = func(prefix string, m *Mapping) {
		for _, k := range m.keys {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := m.values[k].(*Mapping); ok {
				walk(key, child)
				continue
			}
			out = append(out, Leaf{Key: key, Value: ToValue(m.values[k])})
		}
	}
	walk("", m)
	return out
}
