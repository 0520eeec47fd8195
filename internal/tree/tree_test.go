package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Mapping {
	t.Helper()
	n, err := ParseYAML([]byte(src))
	require.NoError(t, err)
	m, ok := n.(*Mapping)
	require.True(t, ok, "document root must be a mapping")
	return m
}

func TestParseYAML_PreservesOrder(t *testing.T) {
	m := mustParse(t, `
zeta: 1
alpha:
  OBJECT: lib.thing
  inner: [1, 2.5, "x", null]
mid: true
`)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())

	alpha, ok := GetPath(m, "alpha")
	require.True(t, ok)
	target, isRequest, err := alpha.(*Mapping).Target()
	require.NoError(t, err)
	assert.True(t, isRequest)
	assert.Equal(t, "lib.thing", target)

	assert.Equal(t, []any{1, 2.5, "x", nil}, ToValue(mustGet(t, m, "alpha.inner")))
}

func TestParseYAML_MergeKeysAndDuplicates(t *testing.T) {
	m := mustParse(t, `
base: &base
  a: 1
  b: 2
derived:
  <<: *base
  c: 3
`)
	assert.Equal(t, []string{"a", "b", "c"}, mustGet(t, m, "derived").(*Mapping).Keys())

	_, err := ParseYAML([]byte("a: 1\na: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key")
}

func TestParseYAML_Empty(t *testing.T) {
	n, err := ParseYAML(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n.(*Mapping).Len())
}

func TestTarget_RejectsNonString(t *testing.T) {
	m := mustParse(t, "OBJECT: 3\n")
	_, isRequest, err := m.Target()
	assert.True(t, isRequest)
	require.Error(t, err)

	plain := mustParse(t, "a: 1\n")
	_, isRequest, err = plain.Target()
	assert.False(t, isRequest)
	require.NoError(t, err)
}

func TestMerge(t *testing.T) {
	dst := mustParse(t, `
model:
  OBJECT: lib.Model
  depth: 2
  layers: [1, 2]
seed: 0
`)
	src := mustParse(t, `
model:
  depth: 4
  layers: [3]
extra: x
`)
	Merge(dst, src)

	assert.Equal(t, map[string]any{
		"model": map[string]any{"OBJECT": "lib.Model", "depth": 4, "layers": []any{3}},
		"seed":  0,
		"extra": "x",
	}, ToValue(dst))

	// src is never aliased.
	mustGet(t, src, "model").(*Mapping).Set("depth", NewScalar(9))
	assert.Equal(t, 4, ToValue(mustGet(t, dst, "model.depth")))
}

func TestSetPath(t *testing.T) {
	m := mustParse(t, "a:\n  b: 1\nlist: [x, y]\nleaf: 1\n")

	require.NoError(t, SetPath(m, "a.c.d", NewScalar(2)))
	require.NoError(t, SetPath(m, "list.1", NewScalar("z")))
	require.NoError(t, SetPath(m, "leaf.sub", NewScalar(true)))

	assert.Equal(t, 2, ToValue(mustGet(t, m, "a.c.d")))
	assert.Equal(t, []any{"x", "z"}, ToValue(mustGet(t, m, "list")))
	assert.Equal(t, true, ToValue(mustGet(t, m, "leaf.sub")))

	assert.Error(t, SetPath(m, "list.5", NewScalar(1)))
	assert.Error(t, SetPath(m, "a..b", NewScalar(1)))
}

func TestFlatten(t *testing.T) {
	m := mustParse(t, "a:\n  b: 1\n  c:\n    d: [1]\ne: s\n")
	assert.Equal(t, []Leaf{
		{Key: "a.b", Value: 1},
		{Key: "a.c.d", Value: []any{1}},
		{Key: "e", Value: "s"},
	}, Flatten(m))
}

func TestFromValue(t *testing.T) {
	n := FromValue(map[string]any{"b": []int{1, 2}, "a": map[string]struct{}{"y": {}, "x": {}}})
	m := n.(*Mapping)
	assert.Equal(t, []string{"a", "b"}, m.Keys(), "keys are sorted")
	assert.Equal(t, []any{"x", "y"}, ToValue(mustGet(t, m, "a")), "sets become sorted sequences")
	assert.Equal(t, []any{1, 2}, ToValue(mustGet(t, m, "b")))
}

func TestCloneAndEqual(t *testing.T) {
	m := mustParse(t, "a:\n  b: [1, {c: 2}]\n")
	c := m.CloneMapping()
	assert.True(t, Equal(m, c))

	require.NoError(t, SetPath(c, "a.b.1.c", NewScalar(3)))
	assert.False(t, Equal(m, c))
	assert.Equal(t, 2, ToValue(mustGet(t, m, "a.b.1.c")))
}

func TestMarshalYAML_RoundTripsOrder(t *testing.T) {
	m := mustParse(t, "z: 1\na: [x]\n")
	out, err := MarshalYAML(m)
	require.NoError(t, err)
	assert.Equal(t, "z: 1\na:\n    - x\n", string(out))
}

func mustGet(t *testing.T, m *Mapping, path string) Node {
	t.Helper()
	n, ok := GetPath(m, path)
	require.True(t, ok, "path %s", path)
	return n
}
