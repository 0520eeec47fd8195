package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Module is the interface that host modules implement to expose their
// symbols to configuration.
type Module interface {
	Register(r *Registry)
}

// Namespace resolves dotted symbol paths. It is the only view of the host
// that the resolver and the materializer need.
type Namespace interface {
	Lookup(path string) (Symbol, error)
}

// Registry holds all registered packages for a single application instance.
type Registry struct {
	packages map[string]*Package
}

// New creates an empty Registry, optionally populated by modules.
func New(modules ...Module) *Registry {
	r := &Registry{packages: make(map[string]*Package)}
	r.Install(modules...)
	return r
}

// Install lets every module register its symbols.
func (r *Registry) Install(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}

// Package returns the package registered under name, creating it if needed.
func (r *Registry) Package(name string) *Package {
	if name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("invalid package name '%s'", name))
	}
	if p, ok := r.packages[name]; ok {
		return p
	}
	slog.Debug("Registering package.", "name", name)
	p := &Package{name: name, symbols: make(map[string]Symbol)}
	r.packages[name] = p
	return p
}

// Packages returns the registered package names, sorted.
func (r *Registry) Packages() []string {
	names := make([]string, 0, len(r.packages))
	for name := range r.packages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a dotted path: the first segment names a package, every
// following segment is an attribute of the previous symbol.
func (r *Registry) Lookup(path string) (Symbol, error) {
	segments := strings.Split(path, ".")
	pkg, ok := r.packages[segments[0]]
	if !ok {
		return nil, &UnknownSymbolError{Path: path, Segment: segments[0]}
	}
	var cur Symbol = pkg
	for _, seg := range segments[1:] {
		holder, ok := cur.(attributed)
		if !ok {
			return nil, &UnknownSymbolError{Path: path, Segment: seg}
		}
		next, ok := holder.Attr(seg)
		if !ok {
			return nil, &UnknownSymbolError{Path: path, Segment: seg}
		}
		cur = next
	}
	return cur, nil
}

// UnknownSymbolError is returned when a dotted path cannot be resolved.
type UnknownSymbolError struct {
	Path    string
	Segment string
}

func (e *UnknownSymbolError) Error() string {
	if e.Segment == e.Path {
		return fmt.Sprintf("unknown symbol %q", e.Path)
	}
	return fmt.Sprintf("unknown symbol %q: no attribute %q", e.Path, e.Segment)
}

// Callable returns the function invoked to construct sym, together with the
// class it is bound to (nil for free functions). Constructing a class calls
// its init method, inherited if the class declares none.
func Callable(sym Symbol) (*Func, *Class, error) {
	switch s := sym.(type) {
	case *Func:
		return s, nil, nil
	case *Class:
		init, ok := s.InitFunc()
		if !ok {
			return nil, nil, fmt.Errorf("class %s has no %s method", s.Path(), InitMethod)
		}
		return init, s, nil
	default:
		return nil, nil, fmt.Errorf("%s is not callable", sym.Path())
	}
}
