package param

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withDefault(name string, v any) Parameter {
	p := New(name)
	p.Default = v
	return p
}

func TestTable_SetKeepsPosition(t *testing.T) {
	table := NewTable(New("a"), New("b"), New("c"))
	table.Set(withDefault("b", 2))

	assert.Equal(t, []string{"a", "b", "c"}, table.Names())
	b, ok := table.Get("b")
	require.True(t, ok)
	assert.Equal(t, 2, b.Default)
}

func TestTable_MergeAndDelete(t *testing.T) {
	table := NewTable(New("a"), New("b"))
	table.Merge(NewTable(withDefault("a", 1), New("c")))
	assert.Equal(t, []string{"a", "b", "c"}, table.Names())

	table.Delete("b")
	table.Delete("missing")
	assert.Equal(t, []string{"a", "c"}, table.Names())
	assert.Equal(t, 2, table.Len())
	assert.False(t, table.Has("b"))
}

func TestTable_Without(t *testing.T) {
	rest := New("rest")
	rest.Kind = VarPositional
	table := NewTable(New("a"), rest, New("b"))

	out := table.Without(VarPositional)
	assert.Equal(t, []string{"a", "b"}, out.Names())
	assert.Equal(t, []string{"a", "rest", "b"}, table.Names(), "the source table is not modified")
}

func TestTable_NilIsEmpty(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Names())
	assert.False(t, table.Has("x"))
}

func TestParameter_DefaultSentinel(t *testing.T) {
	assert.False(t, New("x").HasDefault())
	assert.True(t, withDefault("x", nil).HasDefault(), "nil is a real default")
}

func TestParameter_String(t *testing.T) {
	p := withDefault("lr", 0.1)
	p.Annotation.Type = reflect.TypeOf(0.0)
	assert.Equal(t, "lr: float64 = 0.1", p.String())

	mode := withDefault("mode", "fast")
	mode.Annotation.Literal = []any{"fast", "slow"}
	assert.Equal(t, `mode: Literal["fast", "slow"] = "fast"`, mode.String())

	kw := New("kw")
	kw.Kind = VarKeyword
	assert.Equal(t, "**kw", kw.String())

	table := NewTable(New("a"), withDefault("b", 1))
	assert.Equal(t, "(a, b = 1)", table.String())
}
