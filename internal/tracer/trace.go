// Package tracer finds the call sites in a forwarding body that expand a
// callable's variadic keyword bucket into another call, and classifies how
// each call's target is bound.
package tracer

import (
	"fmt"

	"go.starlark.net/syntax"
)

// Binding classifies how the target of a forwarding call is reached.
type Binding int

const (
	// Free is a plain name call: target(...).
	Free Binding = iota
	// Self is a call on the callable's own receiver: self.target(...).
	Self
	// Parent is an implicit superclass call: super().target(...).
	Parent
	// Base is a superclass call naming its base: super(Base, self).target(...).
	Base
)

func (b Binding) String() string {
	switch b {
	case Free:
		return "free"
	case Self:
		return "self"
	case Parent:
		return "parent"
	case Base:
		return "base"
	default:
		return fmt.Sprintf("Binding(%d)", int(b))
	}
}

// CallSite describes one call that expands the bucket unmodified.
type CallSite struct {
	Binding Binding
	// BaseName is the explicit base class name when Binding is Base.
	BaseName string
	// Target is the called name (or method name for bound calls).
	Target string
	// Positional is the number of positional arguments at the call site.
	Positional int
	// Keywords are the explicitly passed keyword names, in order.
	Keywords []string
	At       Pos
}

func (c CallSite) String() string {
	switch c.Binding {
	case Self:
		return "self." + c.Target
	case Parent:
		return "super()." + c.Target
	case Base:
		return "super(" + c.BaseName + ")." + c.Target
	default:
		return c.Target
	}
}

// Pos is a line and column in a forwarding body, both 1-based.
type Pos struct {
	Line, Col int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Sourced is anything that carries a forwarding body.
type Sourced interface {
	Source() string
}

// Trace parses the forwarding body of fn and returns every call site that
// expands the bucket named kwargs, in source order. firstParam is the
// callable's first declared parameter, used to recognise receiver calls.
func Trace(fn Sourced, kwargs, firstParam string) ([]CallSite, error) {
	return TraceSource(fn.Source(), kwargs, firstParam)
}

// TraceSource is Trace on raw source text. The body is Starlark: any
// statement is accepted, including if, for and def blocks, and calls are
// found wherever they are nested.
func TraceSource(src, kwargs, firstParam string) ([]CallSite, error) {
	f, err := syntax.Parse(filename, src, 0)
	if err != nil {
		return nil, fmt.Errorf("parse forwarding body: %w", err)
	}

	var sites []CallSite
	syntax.Walk(f, func(n syntax.Node) bool {
		call, ok := n.(*syntax.CallExpr)
		if !ok || !expands(call, kwargs) {
			return true
		}
		if site, ok := classify(call, firstParam); ok {
			for _, arg := range call.Args {
				if name, ok := keyword(arg); ok {
					site.Keywords = append(site.Keywords, name)
				} else if !isStarStar(arg) {
					site.Positional++
				}
			}
			start, _ := call.Span()
			site.At = Pos{Line: int(start.Line), Col: int(start.Col)}
			sites = append(sites, site)
		}
		return true
	})
	return sites, nil
}

const filename = "forwards"

// keyword returns the name of a name=value argument.
func keyword(arg syntax.Expr) (string, bool) {
	bin, ok := arg.(*syntax.BinaryExpr)
	if !ok || bin.Op != syntax.EQ {
		return "", false
	}
	id, ok := bin.X.(*syntax.Ident)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func isStarStar(arg syntax.Expr) bool {
	u, ok := arg.(*syntax.UnaryExpr)
	return ok && u.Op == syntax.STARSTAR
}

// expands reports whether call passes **kwargs, by exactly that name.
func expands(call *syntax.CallExpr, kwargs string) bool {
	for _, arg := range call.Args {
		if !isStarStar(arg) {
			continue
		}
		if id, ok := arg.(*syntax.UnaryExpr).X.(*syntax.Ident); ok && id.Name == kwargs {
			return true
		}
	}
	return false
}

// classify applies the binding rules in priority order. Calls reaching a
// method through an instance attribute, or through any other receiver,
// cannot be resolved statically and are skipped.
func classify(call *syntax.CallExpr, firstParam string) (CallSite, bool) {
	switch fn := call.Fn.(type) {
	case *syntax.Ident:
		return CallSite{Binding: Free, Target: fn.Name}, true
	case *syntax.DotExpr:
		if base, ok := superAccessor(fn.X); ok {
			if base == "" {
				return CallSite{Binding: Parent, Target: fn.Name.Name}, true
			}
			return CallSite{Binding: Base, BaseName: base, Target: fn.Name.Name}, true
		}
		if recv, ok := fn.X.(*syntax.Ident); ok && firstParam != "" && recv.Name == firstParam {
			return CallSite{Binding: Self, Target: fn.Name.Name}, true
		}
	}
	return CallSite{}, false
}

// superAccessor reports whether x is super(), super(Base) or
// super(Base, self), returning the explicit base name if any.
func superAccessor(x syntax.Expr) (string, bool) {
	call, ok := x.(*syntax.CallExpr)
	if !ok || len(call.Args) > 2 {
		return "", false
	}
	if id, ok := call.Fn.(*syntax.Ident); !ok || id.Name != "super" {
		return "", false
	}
	for _, arg := range call.Args {
		if _, ok := keyword(arg); ok {
			return "", false
		}
	}
	if len(call.Args) == 0 {
		return "", true
	}
	base, ok := call.Args[0].(*syntax.Ident)
	if !ok {
		return "", true
	}
	return base.Name, true
}
