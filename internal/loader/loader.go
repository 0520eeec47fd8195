// Package loader builds a single merged configuration tree from YAML and
// HCL files plus command-line key=value overrides.
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/kwgraph/internal/ctxlog"
	"github.com/vk/kwgraph/internal/fsutil"
	"github.com/vk/kwgraph/internal/tree"
)

// Loader is the interface for reading configuration sources into a tree.
type Loader interface {
	// Load reads every path in order and merges them, later paths winning.
	Load(ctx context.Context, paths ...string) (*tree.Mapping, error)
}

// Decoder decodes the contents of one file into a tree.
type Decoder interface {
	Decode(filename string, src []byte) (*tree.Mapping, error)
}

// FileLoader loads files by extension. Directories are searched
// recursively for files with a known extension, in lexical order.
type FileLoader struct {
	decoders map[string]Decoder
}

// New returns a FileLoader that reads .yaml/.yml as YAML, .json through
// the YAML decoder and .hcl as HCL.
func New() *FileLoader {
	l := &FileLoader{decoders: make(map[string]Decoder)}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		l.Register(ext, YAML{})
	}
	l.Register(".hcl", HCL{})
	return l
}

// Register adds or replaces the decoder for an extension (with its dot).
func (l *FileLoader) Register(ext string, d Decoder) {
	l.decoders[ext] = d
}

func (l *FileLoader) extensions() []string {
	exts := make([]string, 0, len(l.decoders))
	for ext := range l.decoders {
		exts = append(exts, ext)
	}
	return exts
}

// Load implements Loader.
func (l *FileLoader) Load(ctx context.Context, paths ...string) (*tree.Mapping, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration.", "path_count", len(paths))

	files, err := l.expand(paths)
	if err != nil {
		return nil, err
	}

	root := tree.NewMapping()
	for _, file := range files {
		m, err := l.loadFile(file)
		if err != nil {
			return nil, err
		}
		tree.Merge(root, m)
		logger.Debug("Merged configuration file.", "file", file, "keys", m.Len())
	}
	return root, nil
}

func (l *FileLoader) expand(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing config path %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		found, err := fsutil.FindFilesByExtension(path, l.extensions()...)
		if err != nil {
			return nil, fmt.Errorf("error searching config directory %s: %w", path, err)
		}
		files = append(files, found...)
	}
	return files, nil
}

func (l *FileLoader) loadFile(file string) (*tree.Mapping, error) {
	ext := strings.ToLower(filepath.Ext(file))
	d, ok := l.decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported config file %s: unknown extension %q", file, ext)
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
	}
	m, err := d.Decode(file, src)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", file, err)
	}
	return m, nil
}

// Load reads and merges files with the default FileLoader, then applies
// overrides on top. Malformed overrides are reported before any file is
// read.
func Load(ctx context.Context, files []string, overrides []string) (*tree.Mapping, error) {
	parsed, err := ParseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	root, err := New().Load(ctx, files...)
	if err != nil {
		return nil, err
	}
	if err := parsed.Apply(root); err != nil {
		return nil, err
	}
	return root, nil
}
