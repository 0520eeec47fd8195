// Package signature computes the complete effective parameter table of a
// registered callable, flattening chains of variadic keyword forwarding.
//
// A callable that accepts a keyword bucket and expands it unmodified into
// another call effectively accepts that call's parameters too, minus the
// ones it already fills positionally or by explicit keyword. Resolve follows
// those forwarding chains through the declared forwarding bodies so that a
// configuration can be checked against every name the callable really
// accepts.
package signature

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/param"
	"github.com/vk/kwgraph/internal/registry"
	"github.com/vk/kwgraph/internal/tracer"
)

// AmbiguousOverloadError is returned when a callable declares an overload
// set whose size is not exactly two.
type AmbiguousOverloadError struct {
	Func  string
	Count int
}

func (e *AmbiguousOverloadError) Error() string {
	return fmt.Sprintf("%s: there are %d overloads, cannot tell which one is actually used", e.Func, e.Count)
}

// Resolve returns the parameter table of fn. class is the declaring class
// when fn is a method; when nil it is inferred from a bound receiver or from
// fn's qualified name, looked up in ns. The returned table never contains
// the receiver, the keyword bucket or a variadic positional parameter.
//
// Resolve keeps no state between calls: the namespace and context are only
// referenced for the duration of the call.
func Resolve(ctx context.Context, fn *registry.Func, class *registry.Class, ns registry.Namespace) (*param.Table, error) {
	r := &resolution{
		ns:       ns,
		logger:   ctxlog.FromContext(ctx),
		visiting: make(map[string]bool),
	}
	table, err := r.resolve(fn, class)
	if err != nil {
		return nil, err
	}
	return table.Without(param.VarPositional), nil
}

// ResolveSymbol resolves what constructing sym accepts: a function's own
// table, or a class's init table.
func ResolveSymbol(ctx context.Context, sym registry.Symbol, ns registry.Namespace) (*param.Table, error) {
	fn, class, err := registry.Callable(sym)
	if err != nil {
		return nil, err
	}
	return Resolve(ctx, fn, class, ns)
}

// resolution is the lookup context of a single top-level Resolve call.
type resolution struct {
	ns       registry.Namespace
	logger   *slog.Logger
	visiting map[string]bool
}

func (r *resolution) resolve(fn *registry.Func, class *registry.Class) (*param.Table, error) {
	key := fn.Path()
	if class != nil {
		key += "@" + class.Path()
	}
	if r.visiting[key] {
		return nil, fmt.Errorf("%s: keyword forwarding cycle", fn.Path())
	}
	r.visiting[key] = true
	defer delete(r.visiting, key)

	// The declared overload supplies the parameters, the implemented one the body.
	decl, impl := fn, fn
	if overloads := fn.Overloads(); len(overloads) > 0 {
		if len(overloads) != 2 {
			return nil, &AmbiguousOverloadError{Func: fn.Path(), Count: len(overloads)}
		}
		decl, impl = overloads[0], overloads[1]
	}

	if class == nil {
		var err error
		if class, err = r.declaringClass(fn); err != nil {
			return nil, err
		}
	}

	table := param.NewTable()
	var firstParam, kwargs string
	for i, p := range decl.Params() {
		if p.Kind == param.VarKeyword {
			kwargs = p.Name
			continue
		}
		if i == 0 {
			firstParam = p.Name
			if class != nil {
				continue
			}
		}
		table.Set(p)
	}

	if kwargs == "" {
		return table, nil
	}

	sites, err := tracer.Trace(impl, kwargs, firstParam)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Path(), err)
	}
	if len(sites) == 0 {
		return table, nil
	}
	site := sites[0]
	for _, other := range sites[1:] {
		if !sameForwarding(site, other) {
			r.logger.Warn("Forwarding call sites disagree; resolving with the first one.",
				"func", fn.Path(), "first", site.String(), "first_at", site.At.String(),
				"other", other.String(), "other_at", other.At.String())
		}
	}

	target, bound, err := r.target(fn, class, site)
	if err != nil {
		return nil, err
	}
	targetTable, err := r.resolve(target, bound)
	if err != nil {
		return nil, err
	}

	table.Merge(forwarded(targetTable, site))
	table.Delete(kwargs)

	r.logger.Debug("Resolved signature.", "func", fn.Path(), "via", site.String(), "params", strings.Join(table.Names(), ","))
	return table, nil
}

// declaringClass infers the class of a method from its bound receiver or
// its qualified name.
func (r *resolution) declaringClass(fn *registry.Func) (*registry.Class, error) {
	if bound := fn.Bound(); bound != nil {
		return bound, nil
	}
	qual := fn.QualName()
	if !strings.Contains(qual, ".") {
		return nil, nil
	}
	path := fn.Package() + "." + strings.TrimSuffix(qual, "."+fn.Name())
	sym, err := r.ns.Lookup(path)
	if err != nil {
		return nil, fmt.Errorf("%s: declaring class: %w", fn.Path(), err)
	}
	class, ok := sym.(*registry.Class)
	if !ok {
		return nil, fmt.Errorf("%s: declaring class %s is not a class", fn.Path(), path)
	}
	return class, nil
}

// target resolves the callable a call site forwards to, and the class it
// is bound to.
func (r *resolution) target(fn *registry.Func, class *registry.Class, site tracer.CallSite) (*registry.Func, *registry.Class, error) {
	var bound *registry.Class
	switch site.Binding {
	case tracer.Free:
		return r.free(fn, site.Target)
	case tracer.Self:
		bound = class
	case tracer.Parent:
		if class != nil {
			bound = class.Base()
			if bound == nil {
				return nil, nil, fmt.Errorf("%s: %s: class %s has no base", fn.Path(), site, class.Path())
			}
		}
	case tracer.Base:
		if class != nil {
			for _, b := range class.Bases() {
				if b.Name() == site.BaseName {
					bound = b
					break
				}
			}
			if bound == nil {
				return nil, nil, fmt.Errorf("%s: %s: %s is not a direct base of %s", fn.Path(), site, site.BaseName, class.Path())
			}
		}
	}
	if class == nil {
		return nil, nil, fmt.Errorf("%s: %s: no declaring class", fn.Path(), site)
	}
	method, ok := bound.Lookup(site.Target)
	if !ok {
		return nil, nil, fmt.Errorf("%s: %s: %s has no method %q", fn.Path(), site, bound.Path(), site.Target)
	}
	return method, bound, nil
}

// free resolves a plain name call against the namespace, falling back to
// the package the calling function is registered in.
func (r *resolution) free(fn *registry.Func, name string) (*registry.Func, *registry.Class, error) {
	sym, err := r.ns.Lookup(name)
	var unknown *registry.UnknownSymbolError
	if errors.As(err, &unknown) && !strings.Contains(name, ".") {
		sym, err = r.ns.Lookup(fn.Package() + "." + name)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: forwarding target: %w", fn.Path(), err)
	}
	target, class, err := registry.Callable(sym)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: forwarding target: %w", fn.Path(), err)
	}
	return target, class, nil
}

// forwarded returns the parameters of the target table that the bucket
// expansion can still reach: everything not consumed positionally or by
// explicit keyword at the call site. Positional consumption stops at a
// variadic positional parameter, which absorbs the remaining positionals.
func forwarded(target *param.Table, site tracer.CallSite) *param.Table {
	out := param.NewTable()
	varSeen := false
	consumed := 0
	for _, p := range target.Params() {
		if p.Kind == param.VarPositional {
			varSeen = true
			continue
		}
		if !varSeen && p.IsPositional() && consumed < site.Positional {
			consumed++
			continue
		}
		if slices.Contains(site.Keywords, p.Name) {
			continue
		}
		out.Set(p)
	}
	return out
}

func sameForwarding(a, b tracer.CallSite) bool {
	return a.Binding == b.Binding && a.BaseName == b.BaseName && a.Target == b.Target &&
		a.Positional == b.Positional && slices.Equal(a.Keywords, b.Keywords)
}
