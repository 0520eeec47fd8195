package runner

import (
	"io"
	"log/slog"

	"github.com/vk/kwgraph/internal/config"
)

// newLogger builds the runner's logger from its settings. It does not set
// the global logger, so several runners can coexist in one process.
func newLogger(s *config.Settings, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if s.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
