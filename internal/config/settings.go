package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pelletier/go-toml/v2"
)

// Settings holds the host-level configuration of a run. It is separate
// from the configuration trees the runs are built from.
type Settings struct {
	// DefaultConfigFiles are loaded before any file given on the command
	// line. Relative paths are resolved against the settings file.
	DefaultConfigFiles []string `toml:"default_config_files"`
	// SkipLogging are regular expressions of dotted keys left out of the
	// log projection.
	SkipLogging []string `toml:"skip_logging"`
	// MaxSweepWorkers runs sweeps in parallel when positive.
	MaxSweepWorkers int    `toml:"max_sweep_workers"`
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Default returns the settings used when no settings file is given.
func Default() Settings {
	return Settings{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// New validates s and returns it.
func New(s Settings) (*Settings, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports the first invalid field.
func (s *Settings) Validate() error {
	if !slices.Contains(logLevels, s.LogLevel) {
		return fmt.Errorf("log_level must be one of %v, got %q", logLevels, s.LogLevel)
	}
	if !slices.Contains(logFormats, s.LogFormat) {
		return fmt.Errorf("log_format must be one of %v, got %q", logFormats, s.LogFormat)
	}
	if s.MaxSweepWorkers < 0 {
		return errors.New("max_sweep_workers must not be negative")
	}
	return nil
}

// Load reads settings from a TOML file on top of Default. An empty path
// returns the defaults. Unknown keys are rejected.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return New(s)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, f := range s.DefaultConfigFiles {
		if !filepath.IsAbs(f) {
			s.DefaultConfigFiles[i] = filepath.Join(dir, f)
		}
	}
	return New(s)
}
