package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/kwgraph/internal/tree"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MergesFilesAndOverrides(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", `
trainer:
  OBJECT: train.Trainer
  epochs: 3
  optimizer:
    OBJECT: optim.SGD
    lr: 0.1
seed: 1
`)
	local := writeFile(t, dir, "local.yml", `
trainer:
  epochs: 5
`)

	root, err := Load(context.Background(), []string{base, local}, []string{"trainer.optimizer.lr=0.01", "seed=", "tags=[a, b]"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"trainer": map[string]any{
			"OBJECT":    "train.Trainer",
			"epochs":    5,
			"optimizer": map[string]any{"OBJECT": "optim.SGD", "lr": 0.01},
		},
		"seed": nil,
		"tags": []any{"a", "b"},
	}, tree.ToValue(root))
	assert.Equal(t, []string{"trainer", "seed", "tags"}, root.Keys())
}

func TestLoad_MalformedOverrideBeforeReadingFiles(t *testing.T) {
	_, err := Load(context.Background(), []string{"/does/not/exist.yaml"}, []string{"ok=1", "broken"})
	var malformed *MalformedOverrideError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "broken", malformed.Arg)

	_, err = ParseOverrides([]string{"=3"})
	require.ErrorAs(t, err, &malformed)
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "conf/a.yaml", "x: 1\ny: 1\n")
	writeFile(t, dir, "conf/b.hcl", "y = 2\n")
	writeFile(t, dir, "conf/readme.md", "ignored")

	root, err := New().Load(context.Background(), filepath.Join(dir, "conf"))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, tree.ToValue(root))
}

type upperDecoder struct{}

func (upperDecoder) Decode(filename string, src []byte) (*tree.Mapping, error) {
	m := tree.NewMapping()
	m.Set("source", tree.NewScalar(strings.ToUpper(strings.TrimSpace(string(src)))))
	return m, nil
}

func TestLoad_JSONAndRegisteredDecoders(t *testing.T) {
	dir := t.TempDir()
	js := writeFile(t, dir, "run.json", `{"trainer": {"OBJECT": "train.Trainer", "epochs": 2}}`)
	custom := writeFile(t, dir, "note.up", "hello\n")

	l := New()
	l.Register(".up", upperDecoder{})
	root, err := l.Load(context.Background(), js, custom)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"trainer": map[string]any{"OBJECT": "train.Trainer", "epochs": 2},
		"source":  "HELLO",
	}, tree.ToValue(root))

	_, err = New().Load(context.Background(), custom)
	require.Error(t, err, "extension unknown without registration")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := New().Load(context.Background(), filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "conf.toml", "a = 1")
	_, err = New().Load(context.Background(), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown extension")

	list := writeFile(t, dir, "list.yaml", "- 1\n")
	_, err = New().Load(context.Background(), list)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a mapping")
}

func TestHCL_Decode(t *testing.T) {
	src := `
seed = 7

trainer "train.Trainer" {
  epochs = 2
  tags   = ["a", "b"]

  optimizer "optim.Adam" {
    lr    = 0.001
    betas = [0.9, 0.999]
  }

  callback "train.log_every" {
    every = 10
  }
  callback "train.checkpoint" {
    path = "/tmp/ckpt"
  }
}

data {
  batch = 32
}
`
	m, err := HCL{}.Decode("test.hcl", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"seed", "trainer", "data"}, m.Keys())
	trainer, ok := tree.GetPath(m, "trainer")
	require.True(t, ok)
	assert.Equal(t, []string{"OBJECT", "epochs", "tags", "optimizer", "callback"}, trainer.(*tree.Mapping).Keys())

	assert.Equal(t, map[string]any{
		"seed": 7,
		"trainer": map[string]any{
			"OBJECT": "train.Trainer",
			"epochs": 2,
			"tags":   []any{"a", "b"},
			"optimizer": map[string]any{
				"OBJECT": "optim.Adam",
				"lr":     0.001,
				"betas":  []any{0.9, 0.999},
			},
			"callback": []any{
				map[string]any{"OBJECT": "train.log_every", "every": 10},
				map[string]any{"OBJECT": "train.checkpoint", "path": "/tmp/ckpt"},
			},
		},
		"data": map[string]any{"batch": 32},
	}, tree.ToValue(m))
}

func TestHCL_DecodeErrors(t *testing.T) {
	for name, src := range map[string]string{
		"syntax":         "a = \n",
		"two labels":     `x "a" "b" {}`,
		"double marker":  "x \"a.b\" {\n  OBJECT = \"c.d\"\n}\n",
		"reference":      "a = var.b\n",
		"attr and block": "x = 1\nx {}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := HCL{}.Decode("bad.hcl", []byte(src))
			assert.Error(t, err)
		})
	}
}

func TestApplyOverrides_IndexesSequences(t *testing.T) {
	n, err := tree.ParseYAML([]byte("layers:\n  - width: 1\n  - width: 2\n"))
	require.NoError(t, err)
	root := n.(*tree.Mapping)

	require.NoError(t, ApplyOverrides(root, []string{"layers.1.width=8", "layers.0={width: 4, depth: 1}"}))
	assert.Equal(t, []any{
		map[string]any{"width": 4, "depth": 1},
		map[string]any{"width": 8},
	}, tree.ToValue(mustGet(t, root, "layers")))
}

func mustGet(t *testing.T, m *tree.Mapping, path string) tree.Node {
	t.Helper()
	n, ok := tree.GetPath(m, path)
	require.True(t, ok)
	return n
}
