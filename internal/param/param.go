package param

import (
	"fmt"
	"reflect"
	"strings"
)

// Kind classifies how a parameter can be bound at a call site.
type Kind int

const (
	PositionalOrKeyword Kind = iota
	KeywordOnly
	VarPositional
	VarKeyword
)

func (k Kind) String() string {
	switch k {
	case PositionalOrKeyword:
		return "positional-or-keyword"
	case KeywordOnly:
		return "keyword-only"
	case VarPositional:
		return "variadic-positional"
	case VarKeyword:
		return "variadic-keyword"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// noDefault is the type of the NoDefault sentinel.
type noDefault struct{}

func (noDefault) String() string { return "<no default>" }

// NoDefault marks a parameter without a default value. A nil Default is a
// real default (the null value) and is never confused with NoDefault.
var NoDefault any = noDefault{}

// Annotation describes the declared type of a parameter. A zero Annotation
// means the parameter is unannotated.
type Annotation struct {
	// Type is the Go type the implementation receives for this parameter.
	Type reflect.Type
	// Literal holds the allowed values of a literal-type annotation.
	Literal []any
}

// IsZero reports whether the annotation is absent.
func (a Annotation) IsZero() bool {
	return a.Type == nil && len(a.Literal) == 0
}

func (a Annotation) String() string {
	switch {
	case len(a.Literal) > 0:
		parts := make([]string, len(a.Literal))
		for i, v := range a.Literal {
			parts[i] = fmt.Sprintf("%#v", v)
		}
		return "Literal[" + strings.Join(parts, ", ") + "]"
	case a.Type != nil:
		return a.Type.String()
	default:
		return "<empty>"
	}
}

// Parameter is one formal argument of a callable.
type Parameter struct {
	Name       string
	Kind       Kind
	Annotation Annotation
	Default    any
}

// New returns a positional-or-keyword parameter without a default.
func New(name string) Parameter {
	return Parameter{Name: name, Kind: PositionalOrKeyword, Default: NoDefault}
}

// HasDefault reports whether the parameter declares a default value.
func (p Parameter) HasDefault() bool {
	_, empty := p.Default.(noDefault)
	return !empty
}

// IsPositional reports whether the parameter can be filled by a positional argument.
func (p Parameter) IsPositional() bool {
	return p.Kind == PositionalOrKeyword
}

func (p Parameter) String() string {
	var b strings.Builder
	switch p.Kind {
	case VarPositional:
		b.WriteString("*")
	case VarKeyword:
		b.WriteString("**")
	}
	b.WriteString(p.Name)
	if !p.Annotation.IsZero() {
		b.WriteString(": ")
		b.WriteString(p.Annotation.String())
	}
	if p.HasDefault() {
		fmt.Fprintf(&b, " = %#v", p.Default)
	}
	return b.String()
}
