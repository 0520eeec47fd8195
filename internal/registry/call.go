package registry

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/vk/kwgraph/internal/coerce"
	"github.com/vk/kwgraph/internal/param"
)

// ArgumentError reports a failure to bind call arguments to a function.
type ArgumentError struct {
	Func   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("%s: %s", e.Func, e.Reason)
}

func (f *Func) argErr(format string, args ...any) error {
	return &ArgumentError{Func: f.Path(), Reason: fmt.Sprintf(format, args...)}
}

// Call invokes the implementation. Positional args fill positional
// parameters in order (the receiver is never passed); kwargs fill the rest
// by name, and whatever no parameter claims goes to the variadic keyword
// bucket. Values are converted to the implementation's Go types.
func (f *Func) Call(args []any, kwargs Kwargs) (any, error) {
	if !f.impl.IsValid() {
		return nil, f.argErr("has no implementation")
	}
	t := f.impl.Type()
	in := make([]reflect.Value, t.NumIn())
	var variadic []reflect.Value

	remaining := make(Kwargs, len(kwargs))
	for k, v := range kwargs {
		remaining[k] = v
	}
	pos := args
	bucket := false

	for i, p := range f.params {
		idx := f.argIndex[i]
		if idx < 0 {
			continue
		}
		switch p.Kind {
		case param.PositionalOrKeyword, param.KeywordOnly:
			var v any
			kw, byName := remaining[p.Name]
			switch {
			case p.Kind == param.PositionalOrKeyword && len(pos) > 0:
				if byName {
					return nil, f.argErr("got multiple values for argument '%s'", p.Name)
				}
				v, pos = pos[0], pos[1:]
			case byName:
				v = kw
				delete(remaining, p.Name)
			case p.HasDefault():
				v = p.Default
			default:
				return nil, f.argErr("missing required argument '%s'", p.Name)
			}
			if err := checkLiteral(p, v); err != nil {
				return nil, f.argErr("%v", err)
			}
			rv, err := coerce.To(v, t.In(idx))
			if err != nil {
				return nil, f.argErr("argument '%s': %v", p.Name, err)
			}
			in[idx] = rv
		case param.VarPositional:
			elem := t.In(idx).Elem()
			for j, v := range pos {
				rv, err := coerce.To(v, elem)
				if err != nil {
					return nil, f.argErr("variadic argument %d: %v", j, err)
				}
				variadic = append(variadic, rv)
			}
			pos = nil
		case param.VarKeyword:
			in[idx] = reflect.ValueOf(remaining).Convert(t.In(idx))
			bucket = true
		}
	}

	if len(pos) > 0 {
		return nil, f.argErr("takes %d positional arguments but %d were given", len(args)-len(pos), len(args))
	}
	if !bucket && len(remaining) > 0 {
		names := make([]string, 0, len(remaining))
		for k := range remaining {
			names = append(names, k)
		}
		sort.Strings(names)
		return nil, f.argErr("got unexpected keyword arguments: %s", strings.Join(names, ", "))
	}

	if t.IsVariadic() {
		in = append(in[:len(in)-1], variadic...)
	}
	out := f.impl.Call(in)
	if len(out) == 2 && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func checkLiteral(p param.Parameter, v any) error {
	if len(p.Annotation.Literal) == 0 {
		return nil
	}
	for _, allowed := range p.Annotation.Literal {
		if reflect.DeepEqual(allowed, v) {
			return nil
		}
	}
	return fmt.Errorf("argument '%s' must be one of %v, got %#v", p.Name, p.Annotation.Literal, v)
}
