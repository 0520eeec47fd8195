package param

import "strings"

// Table is an ordered mapping from parameter name to Parameter. Names are
// unique; re-setting an existing name replaces the entry in place and keeps
// its original position.
type Table struct {
	names  []string
	params map[string]Parameter
}

// NewTable returns a table holding params in the given order.
func NewTable(params ...Parameter) *Table {
	t := &Table{params: make(map[string]Parameter, len(params))}
	for _, p := range params {
		t.Set(p)
	}
	return t
}

// Set inserts or replaces a parameter.
func (t *Table) Set(p Parameter) {
	if t.params == nil {
		t.params = make(map[string]Parameter)
	}
	if _, ok := t.params[p.Name]; !ok {
		t.names = append(t.names, p.Name)
	}
	t.params[p.Name] = p
}

// Get returns the parameter with the given name.
func (t *Table) Get(name string) (Parameter, bool) {
	if t == nil {
		return Parameter{}, false
	}
	p, ok := t.params[name]
	return p, ok
}

// Has reports whether name is in the table.
func (t *Table) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Delete removes name from the table.
func (t *Table) Delete(name string) {
	if _, ok := t.params[name]; !ok {
		return
	}
	delete(t.params, name)
	for i, n := range t.names {
		if n == name {
			t.names = append(t.names[:i:i], t.names[i+1:]...)
			break
		}
	}
}

// Len returns the number of parameters.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.names)
}

// Names returns the parameter names in order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.names))
	copy(out, t.names)
	return out
}

// Params returns the parameters in order.
func (t *Table) Params() []Parameter {
	if t == nil {
		return nil
	}
	out := make([]Parameter, 0, len(t.names))
	for _, n := range t.names {
		out = append(out, t.params[n])
	}
	return out
}

// Merge appends every parameter of other, in order. Names already present
// are replaced in place.
func (t *Table) Merge(other *Table) {
	for _, p := range other.Params() {
		t.Set(p)
	}
}

// Without returns a copy of the table without parameters of the given kind.
func (t *Table) Without(kind Kind) *Table {
	out := NewTable()
	for _, p := range t.Params() {
		if p.Kind != kind {
			out.Set(p)
		}
	}
	return out
}

func (t *Table) String() string {
	parts := make([]string, 0, t.Len())
	for _, p := range t.Params() {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
