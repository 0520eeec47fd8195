// Package specifiable decides whether a parameter's type and default value
// are narrow enough to be copied into a serializable configuration tree.
package specifiable

import (
	"reflect"

	"github.com/vk/kwgraph/internal/param"
)

// pathLike is satisfied by path-like types that are not plain strings.
type pathLike interface {
	Path() string
}

var pathLikeType = reflect.TypeOf((*pathLike)(nil)).Elem()

// Type reports whether t is specifiable. A nil type is the type of the
// null value and is specifiable. Container types are specifiable when all of
// their type arguments are. Struct types (named records and typed mappings)
// never are, with the exception of the empty struct used as a set element.
func Type(t reflect.Type) bool {
	if t == nil {
		return true
	}
	if t.Implements(pathLikeType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Array, reflect.Slice:
		return Type(t.Elem())
	case reflect.Map:
		// map[K]struct{} is a set.
		if isSetElem(t.Elem()) {
			return Type(t.Key())
		}
		return Type(t.Key()) && Type(t.Elem())
	case reflect.Pointer:
		// Optional value.
		return Type(t.Elem())
	default:
		return false
	}
}

func isSetElem(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

// Annotation reports whether a declared annotation is specifiable. Literal
// annotations always are, since their arguments are plain values. An absent
// annotation is not.
func Annotation(a param.Annotation) bool {
	if len(a.Literal) > 0 {
		return true
	}
	if a.Type == nil {
		return false
	}
	return Type(a.Type)
}

// Value reports whether the dynamic type of v is specifiable. Only the
// outermost kind is inspected: a slice of interfaces is still a list.
func Value(v any) bool {
	if v == nil {
		return true
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		rv := reflect.ValueOf(v)
		if rv.IsNil() {
			return true
		}
		v = rv.Elem().Interface()
		t = reflect.TypeOf(v)
	}
	if t.Implements(pathLikeType) {
		return true
	}
	switch t.Kind() {
	case reflect.Array, reflect.Slice, reflect.Map:
		return true
	default:
		return Type(t)
	}
}

// Parameter reports whether both the annotation and the default value of p
// are specifiable. Parameters without a default are not.
func Parameter(p param.Parameter) bool {
	return p.HasDefault() && Annotation(p.Annotation) && Value(p.Default)
}
