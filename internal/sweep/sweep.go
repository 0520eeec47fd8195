// Package sweep expands the SWEEP section of a configuration into the
// override sets of individual runs.
//
//	SWEEP:
//	  trainer.epochs: [1, 2]
//	  GROUP_opt:
//	    trainer.optimizer.OBJECT: [optim.SGD, optim.Adam]
//	    trainer.optimizer.lr: [0.1, 0.001]
//
// Top-level domains combine as a Cartesian product. The domains inside a
// key starting with GROUP are aligned index by index instead, so the
// example above describes four runs, not eight.
package sweep

import (
	"fmt"
	"strings"

	"github.com/vk/kwgraph/internal/tree"
	"gopkg.in/yaml.v3"
)

const (
	// Key is the top-level configuration key holding the sweep.
	Key = "SWEEP"
	// GroupPrefix marks a key whose domains are zipped rather than crossed.
	GroupPrefix = "GROUP"
)

// DomainTypeError is returned when a sweep domain is not a list, or a
// group is not a mapping of lists.
type DomainTypeError struct {
	Key string
	Got string
}

func (e *DomainTypeError) Error() string {
	return fmt.Sprintf("in %s, candidate values for %s should be a list, but got %s", Key, e.Key, e.Got)
}

// Run is the list of key=value overrides describing one run.
type Run []string

func (r Run) String() string {
	return strings.Join(r, " ")
}

// Pop removes the sweep section from root and returns it, or nil when the
// configuration has none.
func Pop(root *tree.Mapping) (*tree.Mapping, error) {
	n, ok := root.Delete(Key)
	if !ok {
		return nil, nil
	}
	m, ok := n.(*tree.Mapping)
	if !ok {
		return nil, &DomainTypeError{Key: Key, Got: describe(n)}
	}
	return m, nil
}

// Expand returns the runs a sweep describes. A nil or empty sweep is a
// single run without overrides.
func Expand(sweep *tree.Mapping) ([]Run, error) {
	if sweep.Len() == 0 {
		return []Run{nil}, nil
	}
	return expand(sweep, true)
}

func expand(sweep *tree.Mapping, product bool) ([]Run, error) {
	var dims [][]Run
	for _, k := range sweep.Keys() {
		domain, _ := sweep.Get(k)
		if strings.HasPrefix(k, GroupPrefix) {
			group, ok := domain.(*tree.Mapping)
			if !ok {
				return nil, &DomainTypeError{Key: k, Got: describe(domain)}
			}
			runs, err := expand(group, false)
			if err != nil {
				return nil, err
			}
			dims = append(dims, runs)
			continue
		}
		seq, ok := domain.(*tree.Sequence)
		if !ok {
			return nil, &DomainTypeError{Key: k, Got: describe(domain)}
		}
		runs := make([]Run, 0, len(seq.Items))
		for _, item := range seq.Items {
			v, err := formatValue(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			runs = append(runs, Run{k + "=" + v})
		}
		dims = append(dims, runs)
	}
	if product {
		return cross(dims), nil
	}
	return zip(dims), nil
}

// cross returns the Cartesian product of dims, the last dimension varying
// fastest.
func cross(dims [][]Run) []Run {
	out := []Run{nil}
	for _, dim := range dims {
		next := make([]Run, 0, len(out)*len(dim))
		for _, prefix := range out {
			for _, r := range dim {
				next = append(next, concat(prefix, r))
			}
		}
		out = next
	}
	return out
}

// zip aligns dims index by index, stopping at the shortest.
func zip(dims [][]Run) []Run {
	if len(dims) == 0 {
		return nil
	}
	n := len(dims[0])
	for _, dim := range dims[1:] {
		n = min(n, len(dim))
	}
	out := make([]Run, n)
	for i := range out {
		for _, dim := range dims {
			out[i] = concat(out[i], dim[i])
		}
	}
	return out
}

func concat(a, b Run) Run {
	out := make(Run, 0, len(a)+len(b))
	return append(append(out, a...), b...)
}

// formatValue renders a domain value as YAML flow text, which the override
// parser reads back with the same type.
func formatValue(n tree.Node) (string, error) {
	yn, err := tree.ToYAML(n)
	if err != nil {
		return "", err
	}
	flow(yn)
	out, err := yaml.Marshal(yn)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func flow(n *yaml.Node) {
	if n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode {
		n.Style = yaml.FlowStyle
	}
	for _, c := range n.Content {
		flow(c)
	}
}

func describe(n tree.Node) string {
	switch x := n.(type) {
	case *tree.Mapping:
		return "a mapping"
	case *tree.Sequence:
		return "a list"
	case *tree.Scalar:
		return fmt.Sprintf("%#v", x.Value)
	default:
		return fmt.Sprintf("%T", n)
	}
}
