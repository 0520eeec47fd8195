// Package logview projects a finalized configuration tree into flat,
// display-friendly records for logs and experiment trackers.
package logview

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/vk/kwgraph/internal/param"
	"github.com/vk/kwgraph/internal/tree"
)

// Entry is one dotted key and its value.
type Entry struct {
	Key   string
	Value any
}

// Record is an ordered projection of a tree.
type Record []Entry

// Map returns the record as a map.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r))
	for _, e := range r {
		out[e.Key] = e.Value
	}
	return out
}

// Attrs returns the record as alternating slog key/value arguments.
func (r Record) Attrs() []any {
	out := make([]any, 0, 2*len(r))
	for _, e := range r {
		out = append(out, e.Key, e.Value)
	}
	return out
}

// Projector flattens trees, dropping keys that fully match any of its skip
// patterns.
type Projector struct {
	skip *regexp.Regexp
}

// NewProjector compiles the skip patterns. Each pattern must match a whole
// dotted key, e.g. `trainer\..*\.seed`.
func NewProjector(skip []string) (*Projector, error) {
	if len(skip) == 0 {
		return &Projector{}, nil
	}
	re, err := regexp.Compile(`^(?:` + strings.Join(skip, "|") + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid skip_logging pattern: %w", err)
	}
	return &Projector{skip: re}, nil
}

// Project flattens m. A construction path shows only its final segment.
func (p *Projector) Project(m *tree.Mapping) Record {
	var out Record
	for _, leaf := range tree.Flatten(m) {
		if p.skip != nil && p.skip.MatchString(leaf.Key) {
			continue
		}
		v := leaf.Value
		if strings.HasSuffix(leaf.Key, tree.Marker) {
			if path, ok := v.(string); ok {
				v = path[strings.LastIndex(path, ".")+1:]
			}
		}
		out = append(out, Entry{Key: leaf.Key, Value: v})
	}
	return out
}

// Render prints a record as a two-column table.
func Render(r Record) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Value"})
	for _, e := range r {
		tw.AppendRow(table.Row{e.Key, formatValue(e.Value)})
	}
	return tw.Render()
}

// RenderRuns prints the override list of every run of a sweep.
func RenderRuns(runs []string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Run", "Overrides"})
	for i, r := range runs {
		tw.AppendRow(table.Row{strconv.Itoa(i), r})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

// RenderParams prints a resolved parameter table.
func RenderParams(t *param.Table) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Parameter", "Kind", "Type", "Default"})
	for _, p := range t.Params() {
		def := "-"
		if p.HasDefault() {
			def = fmt.Sprintf("%#v", p.Default)
		}
		typ := "-"
		if !p.Annotation.IsZero() {
			typ = p.Annotation.String()
		}
		tw.AppendRow(table.Row{p.Name, p.Kind.String(), typ, def})
	}
	return tw.Render()
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}
