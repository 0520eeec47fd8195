package logview

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/kwgraph/internal/param"
	"github.com/vk/kwgraph/internal/tree"
)

func parse(t *testing.T, src string) *tree.Mapping {
	t.Helper()
	n, err := tree.ParseYAML([]byte(src))
	require.NoError(t, err)
	return n.(*tree.Mapping)
}

func TestProject(t *testing.T) {
	m := parse(t, `
trainer:
  OBJECT: train.Trainer
  epochs: 3
  optimizer:
    OBJECT: optim.Adam
    lr: 0.001
  seed: 1
data:
  path: /tmp/data
`)
	p, err := NewProjector([]string{`trainer\.seed`, `data\..*`})
	require.NoError(t, err)

	assert.Equal(t, Record{
		{Key: "trainer.OBJECT", Value: "Trainer"},
		{Key: "trainer.epochs", Value: 3},
		{Key: "trainer.optimizer.OBJECT", Value: "Adam"},
		{Key: "trainer.optimizer.lr", Value: 0.001},
	}, p.Project(m))
}

func TestProject_FullMatchOnly(t *testing.T) {
	m := parse(t, "seed: 1\nseeds: [1]\n")
	p, err := NewProjector([]string{"seed"})
	require.NoError(t, err)
	assert.Equal(t, Record{{Key: "seeds", Value: []any{1}}}, p.Project(m))

	none, err := NewProjector(nil)
	require.NoError(t, err)
	assert.Len(t, none.Project(m), 2)
}

func TestNewProjector_InvalidPattern(t *testing.T) {
	_, err := NewProjector([]string{"("})
	assert.Error(t, err)
}

func TestRecordHelpers(t *testing.T) {
	r := Record{{Key: "a", Value: 1}, {Key: "b", Value: nil}}
	assert.Equal(t, map[string]any{"a": 1, "b": nil}, r.Map())
	assert.Equal(t, []any{"a", 1, "b", nil}, r.Attrs())
}

func TestRender(t *testing.T) {
	out := Render(Record{{Key: "trainer.epochs", Value: 3}, {Key: "x", Value: nil}})
	assert.Contains(t, out, "trainer.epochs")
	assert.Contains(t, out, "null")
	assert.Contains(t, out, "KEY")

	runs := RenderRuns([]string{"lr=0.1", "lr=0.01"})
	assert.Contains(t, runs, "lr=0.01")
	assert.Contains(t, runs, "OVERRIDES")
}

func TestRenderParams(t *testing.T) {
	lr := param.New("lr")
	lr.Default = 0.1
	lr.Annotation = param.Annotation{Type: reflect.TypeOf(0.0)}
	mode := param.New("mode")
	mode.Kind = param.KeywordOnly
	mode.Annotation = param.Annotation{Literal: []any{"a", "b"}}

	out := RenderParams(param.NewTable(lr, mode))
	assert.Contains(t, out, "lr")
	assert.Contains(t, out, "float64")
	assert.Contains(t, out, "0.1")
	assert.Contains(t, out, "keyword-only")
	assert.Contains(t, out, `Literal["a", "b"]`)
}
