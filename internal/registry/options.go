package registry

import (
	"fmt"
	"reflect"

	"github.com/vk/kwgraph/internal/param"
)

// Kwargs is the Go type of a variadic keyword bucket.
type Kwargs map[string]any

var kwargsType = reflect.TypeOf(Kwargs(nil))

// FuncOption declares part of a function's signature.
type FuncOption func(*funcSpec)

// ArgOption refines a single declared parameter.
type ArgOption func(*param.Parameter)

type funcSpec struct {
	params    []param.Parameter
	receiver  string
	source    string
	overloads []*Func
}

// Arg declares a positional-or-keyword parameter. Declared after VarArgs it
// becomes keyword-only.
func Arg(name string, opts ...ArgOption) FuncOption {
	return declare(name, param.PositionalOrKeyword, opts)
}

// KeywordOnly declares a parameter that can only be passed by keyword.
func KeywordOnly(name string, opts ...ArgOption) FuncOption {
	return declare(name, param.KeywordOnly, opts)
}

// VarArgs declares the variadic positional parameter. It maps to the Go
// implementation's variadic argument.
func VarArgs(name string) FuncOption {
	return declare(name, param.VarPositional, nil)
}

// VarKwargs declares the variadic keyword bucket. The implementation
// receives it as a Kwargs value.
func VarKwargs(name string) FuncOption {
	return declare(name, param.VarKeyword, nil)
}

func declare(name string, kind param.Kind, opts []ArgOption) FuncOption {
	return func(s *funcSpec) {
		p := param.New(name)
		p.Kind = kind
		for _, opt := range opts {
			opt(&p)
		}
		s.params = append(s.params, p)
	}
}

// Default sets a parameter's default value. nil is a valid default.
func Default(v any) ArgOption {
	return func(p *param.Parameter) { p.Default = v }
}

// OneOf declares a literal annotation: the parameter accepts exactly these values.
func OneOf(values ...any) ArgOption {
	return func(p *param.Parameter) { p.Annotation.Literal = values }
}

// Receiver renames a method's receiver parameter (default "self").
func Receiver(name string) FuncOption {
	return func(s *funcSpec) { s.receiver = name }
}

// Forwards declares the forwarding body of the function: Starlark source
// holding the calls its variadic keyword bucket is expanded into.
func Forwards(src string) FuncOption {
	return func(s *funcSpec) { s.source = src }
}

// Overload appends a declared overload: a signature without implementation.
// Resolution requires exactly two of them, the first supplying the
// parameter list and the second the forwarding body.
func Overload(opts ...FuncOption) FuncOption {
	return func(s *funcSpec) {
		s.overloads = append(s.overloads, &Func{spec: opts})
	}
}

// newFunc builds a Func from its declaration and aligns the declared
// parameters with the implementation's Go arguments. Declaration mistakes
// are programmer errors and panic.
func newFunc(pkg, name, qualName string, method bool, impl any, opts []FuncOption) *Func {
	f := &Func{name: name, qualName: qualName, pkg: pkg, method: method}
	f.apply(opts)

	for _, o := range f.overloads {
		o.name, o.qualName, o.pkg, o.method = name, qualName, pkg, method
		o.apply(o.spec)
		o.spec = nil
		o.validate()
	}
	f.validate()

	if impl != nil {
		f.bindImpl(reflect.ValueOf(impl))
	}
	return f
}

func (f *Func) apply(opts []FuncOption) {
	var spec funcSpec
	for _, opt := range opts {
		opt(&spec)
	}
	if f.method {
		recv := spec.receiver
		if recv == "" {
			recv = "self"
		}
		f.params = append([]param.Parameter{param.New(recv)}, spec.params...)
	} else {
		if spec.receiver != "" {
			panic(fmt.Sprintf("function '%s.%s' is not a method and cannot declare a receiver", f.pkg, f.qualName))
		}
		f.params = spec.params
	}
	// Parameters after the variadic positional can only be named.
	varPos := false
	for i := range f.params {
		switch {
		case f.params[i].Kind == param.VarPositional:
			varPos = true
		case varPos && f.params[i].Kind == param.PositionalOrKeyword:
			f.params[i].Kind = param.KeywordOnly
		}
	}
	f.source = spec.source
	f.overloads = spec.overloads
}

func (f *Func) validate() {
	seen := make(map[string]bool, len(f.params))
	var varPos, varKw int
	for i, p := range f.params {
		if p.Name == "" {
			panic(fmt.Sprintf("function '%s': parameter %d has no name", f.Path(), i))
		}
		if seen[p.Name] {
			panic(fmt.Sprintf("function '%s': duplicate parameter '%s'", f.Path(), p.Name))
		}
		seen[p.Name] = true
		switch p.Kind {
		case param.VarPositional:
			varPos++
		case param.VarKeyword:
			varKw++
			if i != len(f.params)-1 {
				panic(fmt.Sprintf("function '%s': variadic keyword parameter '%s' must be last", f.Path(), p.Name))
			}
		}
	}
	if varPos > 1 || varKw > 1 {
		panic(fmt.Sprintf("function '%s': at most one variadic positional and one variadic keyword parameter", f.Path()))
	}
}

func (f *Func) bindImpl(v reflect.Value) {
	t := v.Type()
	if t.Kind() != reflect.Func {
		panic(fmt.Sprintf("function '%s': implementation must be a func, got %s", f.Path(), t))
	}
	if t.NumOut() < 1 || t.NumOut() > 2 || (t.NumOut() == 2 && t.Out(1) != errorType) {
		panic(fmt.Sprintf("function '%s': implementation must return (T) or (T, error), got %s", f.Path(), t))
	}

	start := 0
	if f.method {
		start = 1
	}
	declared := f.params[start:]
	if len(declared) != t.NumIn() {
		panic(fmt.Sprintf("function '%s': %d parameters declared but implementation %s takes %d", f.Path(), len(declared), t, t.NumIn()))
	}

	f.argIndex = make([]int, len(f.params))
	if f.method {
		f.argIndex[0] = -1
	}
	next := 0
	for i := start; i < len(f.params); i++ {
		p := &f.params[i]
		if p.Kind == param.VarPositional {
			if !t.IsVariadic() {
				panic(fmt.Sprintf("function '%s': '*%s' declared but implementation is not variadic", f.Path(), p.Name))
			}
			f.argIndex[i] = t.NumIn() - 1
			p.Annotation.Type = t.In(t.NumIn() - 1).Elem()
			continue
		}
		f.argIndex[i] = next
		in := t.In(next)
		if p.Kind == param.VarKeyword {
			if in.Kind() != reflect.Map || in.Key().Kind() != reflect.String || !kwargsType.ConvertibleTo(in) {
				panic(fmt.Sprintf("function '%s': '**%s' must be received as registry.Kwargs, got %s", f.Path(), p.Name, in))
			}
		} else {
			p.Annotation.Type = in
		}
		next++
	}
	if t.IsVariadic() {
		hasVarPos := false
		for _, p := range f.params {
			hasVarPos = hasVarPos || p.Kind == param.VarPositional
		}
		if !hasVarPos {
			panic(fmt.Sprintf("function '%s': implementation is variadic but no VarArgs parameter is declared", f.Path()))
		}
	}
	f.impl = v
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()
