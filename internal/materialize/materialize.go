// Package materialize checks configuration trees against the parameter
// tables of their construction targets and builds live objects from them.
//
// A construction request is a mapping carrying the tree.Marker key, whose
// value is the dotted path of a registered function or class. Validate
// rejects keys the target does not accept and fills in specifiable defaults
// so that the tree records every value a run uses. Instantiate then builds
// the object graph bottom-up.
package materialize

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/param"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/internal/signature"
	"github.com/vk/kwgraph/internal/specifiable"
	"github.com/vk/kwgraph/internal/tree"
)

// Overrides holds keyword arguments per construction target, keyed by the
// target's registered path (e.g. "optim.Adam").
type Overrides map[string]registry.Kwargs

// Validate walks n depth-first. Every construction request is checked
// against its target's resolved parameter table and completed with the
// target's specifiable defaults. n is modified in place; running Validate
// again on its result changes nothing.
func Validate(ctx context.Context, n tree.Node, ns registry.Namespace) error {
	switch x := n.(type) {
	case *tree.Sequence:
		for i, item := range x.Items {
			if err := Validate(ctx, item, ns); err != nil {
				return fmt.Errorf("%d: %w", i, err)
			}
		}
	case *tree.Mapping:
		for _, k := range x.Keys() {
			if k == tree.Marker {
				continue
			}
			child, _ := x.Get(k)
			if err := Validate(ctx, child, ns); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
		}
		return validateRequest(ctx, x, ns)
	}
	return nil
}

func validateRequest(ctx context.Context, m *tree.Mapping, ns registry.Namespace) error {
	path, ok, err := m.Target()
	if err != nil || !ok {
		return err
	}
	table, err := resolve(ctx, path, ns)
	if err != nil {
		return err
	}

	for _, k := range m.Keys() {
		if k != tree.Marker && !table.Has(k) {
			return &UnknownParameterError{Key: k, Target: path, Legal: table.Names()}
		}
	}

	logger := ctxlog.FromContext(ctx)
	for _, p := range table.Params() {
		if !insertable(p) {
			continue
		}
		if m.SetDefault(p.Name, tree.FromValue(p.Default)) {
			logger.Debug("Filled in default.", "target", path, "param", p.Name, "value", p.Default)
		}
	}
	return nil
}

// insertable reports whether the default of p belongs in a configuration
// tree. Private names and bucket-like names are left to the callable.
func insertable(p param.Parameter) bool {
	if strings.HasPrefix(p.Name, "_") || strings.HasSuffix(p.Name, "kwargs") {
		return false
	}
	return specifiable.Parameter(p)
}

func resolve(ctx context.Context, path string, ns registry.Namespace) (*param.Table, error) {
	sym, err := ns.Lookup(path)
	if err != nil {
		return nil, err
	}
	return signature.ResolveSymbol(ctx, sym, ns)
}

// Instantiate builds the object described by the construction request n.
// Nested requests are built first and passed to their parent as arguments.
// For every request, keyword arguments are merged from the node's own
// keys, then perType[target], then (top level only) kwargs, later sources
// winning.
func Instantiate(ctx context.Context, n tree.Node, ns registry.Namespace, perType Overrides, kwargs registry.Kwargs) (any, error) {
	m, ok := n.(*tree.Mapping)
	if !ok || !m.Has(tree.Marker) {
		return nil, &MissingMarkerError{Marker: tree.Marker}
	}
	b := &builder{ns: ns, perType: perType}
	return b.mapping(ctx, m, kwargs)
}

type builder struct {
	ns      registry.Namespace
	perType Overrides
}

func (b *builder) node(ctx context.Context, n tree.Node) (any, error) {
	switch x := n.(type) {
	case *tree.Mapping:
		return b.mapping(ctx, x, nil)
	case *tree.Sequence:
		out := make([]any, len(x.Items))
		for i, item := range x.Items {
			v, err := b.node(ctx, item)
			if err != nil {
				return nil, fmt.Errorf("%d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case *tree.Scalar:
		return x.Value, nil
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

func (b *builder) mapping(ctx context.Context, m *tree.Mapping, kwargs registry.Kwargs) (any, error) {
	args := make(registry.Kwargs, m.Len())
	for _, k := range m.Keys() {
		if k == tree.Marker {
			continue
		}
		child, _ := m.Get(k)
		v, err := b.node(ctx, child)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		args[k] = v
	}

	path, ok, err := m.Target()
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]any(args), nil
	}

	sym, err := b.ns.Lookup(path)
	if err != nil {
		return nil, err
	}
	fn, _, err := registry.Callable(sym)
	if err != nil {
		return nil, err
	}
	for k, v := range b.perType[sym.Path()] {
		args[k] = v
	}
	for k, v := range kwargs {
		args[k] = v
	}

	ctxlog.FromContext(ctx).Debug("Instantiating.", "target", path, "args", len(args))
	out, err := fn.Call(nil, args)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", path, err)
	}
	return out, nil
}
