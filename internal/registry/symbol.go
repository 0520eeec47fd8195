package registry

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/vk/kwgraph/internal/param"
)

// InitMethod is the name of a class's constructor method.
const InitMethod = "init"

// Symbol is anything reachable through a Namespace.
type Symbol interface {
	// Path returns the dotted path the symbol was registered under.
	Path() string
}

// attributed is implemented by symbols that contain other symbols.
type attributed interface {
	Attr(name string) (Symbol, bool)
}

// Package is a named container of functions and classes.
type Package struct {
	name    string
	symbols map[string]Symbol
	order   []string
}

func (p *Package) Path() string { return p.name }

// Attr returns the symbol registered under name.
func (p *Package) Attr(name string) (Symbol, bool) {
	s, ok := p.symbols[name]
	return s, ok
}

// Names returns the symbol names in registration order.
func (p *Package) Names() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

func (p *Package) add(name string, s Symbol) {
	if _, exists := p.symbols[name]; exists {
		panic(fmt.Sprintf("symbol '%s' already registered in package '%s'", name, p.name))
	}
	p.symbols[name] = s
	p.order = append(p.order, name)
}

// Func registers a free function. impl is the Go implementation; opts
// declare its parameters and forwarding body. impl may be nil for
// signature-only functions that are never called.
func (p *Package) Func(name string, impl any, opts ...FuncOption) *Func {
	f := newFunc(p.name, name, name, false, impl, opts)
	p.add(name, f)
	slog.Debug("Registering function.", "path", f.Path(), "params", len(f.params))
	return f
}

// Class registers a class with the given direct bases, in order.
func (p *Package) Class(name string, bases ...*Class) *Class {
	c := &Class{name: name, pkg: p.name, bases: bases, methods: make(map[string]*Func)}
	p.add(name, c)
	slog.Debug("Registering class.", "path", c.Path(), "bases", len(bases))
	return c
}

// Class is a named type with ordered direct bases and a method set.
type Class struct {
	name    string
	pkg     string
	bases   []*Class
	methods map[string]*Func
	order   []string
}

// Name returns the class name without its package.
func (c *Class) Name() string { return c.name }

func (c *Class) Path() string { return c.pkg + "." + c.name }

func (c *Class) String() string { return c.Path() }

// Bases returns the direct bases in declaration order.
func (c *Class) Bases() []*Class {
	out := make([]*Class, len(c.bases))
	copy(out, c.bases)
	return out
}

// Base returns the first direct base, or nil.
func (c *Class) Base() *Class {
	if len(c.bases) == 0 {
		return nil
	}
	return c.bases[0]
}

// Init registers the class constructor. The declared receiver is never
// passed to impl, which builds and returns the instance. A class without
// its own Init is constructed by the nearest base's: the instance is
// whatever that implementation returns, typically the base's Go type.
func (c *Class) Init(impl any, opts ...FuncOption) *Func {
	return c.Method(InitMethod, impl, opts...)
}

// Method registers a method. Its first declared parameter is the receiver.
func (c *Class) Method(name string, impl any, opts ...FuncOption) *Func {
	if _, exists := c.methods[name]; exists {
		panic(fmt.Sprintf("method '%s' already registered on class '%s'", name, c.Path()))
	}
	f := newFunc(c.pkg, name, c.name+"."+name, true, impl, opts)
	c.methods[name] = f
	c.order = append(c.order, name)
	slog.Debug("Registering method.", "path", f.Path(), "params", len(f.params))
	return f
}

// Lookup returns a method, searching the class and then its bases
// depth-first in declaration order.
func (c *Class) Lookup(name string) (*Func, bool) {
	if f, ok := c.methods[name]; ok {
		return f, true
	}
	for _, b := range c.bases {
		if f, ok := b.Lookup(name); ok {
			return f, true
		}
	}
	return nil, false
}

// Attr implements attribute access on the class.
func (c *Class) Attr(name string) (Symbol, bool) {
	f, ok := c.Lookup(name)
	if !ok {
		return nil, false
	}
	return f, true
}

// InitFunc returns the constructor, inherited if the class declares none.
func (c *Class) InitFunc() (*Func, bool) {
	return c.Lookup(InitMethod)
}

// Func is a registered free function or method.
type Func struct {
	name      string
	qualName  string
	pkg       string
	method    bool
	params    []param.Parameter
	source    string
	overloads []*Func
	bound     *Class

	impl     reflect.Value
	argIndex []int

	// spec holds the options of a declared overload until it is built.
	spec []FuncOption
}

// Name returns the function's own name.
func (f *Func) Name() string { return f.name }

// QualName returns the name qualified by its declaring class, if any.
func (f *Func) QualName() string { return f.qualName }

// Package returns the name of the package the function was registered in.
func (f *Func) Package() string { return f.pkg }

func (f *Func) Path() string { return f.pkg + "." + f.qualName }

func (f *Func) String() string { return f.Path() }

// IsMethod reports whether the function was registered on a class.
func (f *Func) IsMethod() bool { return f.method }

// Params returns the declared parameters, receiver included.
func (f *Func) Params() []param.Parameter {
	out := make([]param.Parameter, len(f.params))
	copy(out, f.params)
	return out
}

// Source returns the declared forwarding body.
func (f *Func) Source() string { return f.source }

// Overloads returns the declared overload set.
func (f *Func) Overloads() []*Func {
	out := make([]*Func, len(f.overloads))
	copy(out, f.overloads)
	return out
}

// Bound returns the class the function is bound to, if any.
func (f *Func) Bound() *Class { return f.bound }

// Bind returns a copy of a method bound to c.
func (f *Func) Bind(c *Class) *Func {
	out := *f
	out.bound = c
	return &out
}
