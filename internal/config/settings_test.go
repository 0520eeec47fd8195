package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *s)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kwgraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_config_files = ["base.yaml", "/etc/kwgraph/site.yaml"]
skip_logging = ['.*\.seed']
max_sweep_workers = 4
log_level = "debug"
`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "base.yaml"), "/etc/kwgraph/site.yaml"}, s.DefaultConfigFiles)
	assert.Equal(t, []string{`.*\.seed`}, s.SkipLogging)
	assert.Equal(t, 4, s.MaxSweepWorkers)
	assert.Equal(t, "debug", s.LogLevel)
	assert.Equal(t, "text", s.LogFormat, "unset fields keep their defaults")
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)

	_, err = Load(write("unknown.toml", "colour = true\n"))
	assert.Error(t, err)

	_, err = Load(write("level.toml", "log_level = \"loud\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_level")

	_, err = New(Settings{LogLevel: "info", LogFormat: "xml"})
	assert.Error(t, err)

	_, err = New(Settings{LogLevel: "info", LogFormat: "json", MaxSweepWorkers: -1})
	assert.Error(t, err)
}
