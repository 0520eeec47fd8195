package loader

import (
	"fmt"
	"strings"

	"github.com/vk/kwgraph/internal/tree"
)

// MalformedOverrideError is returned for a command-line override that is
// not of the form key=value.
type MalformedOverrideError struct {
	Arg string
}

func (e *MalformedOverrideError) Error() string {
	return fmt.Sprintf("malformed override %q: expected key=value", e.Arg)
}

// Override is one parsed key=value argument.
type Override struct {
	Key   string
	Value tree.Node
}

// Overrides are applied in order; a later override of the same key wins.
type Overrides []Override

// ParseOverrides parses key=value arguments. Values are YAML, so "3" is a
// number, "[1, 2]" a sequence and "{a: 1}" a mapping. An empty value is null.
func ParseOverrides(args []string) (Overrides, error) {
	for _, arg := range args {
		if k, _, ok := strings.Cut(arg, "="); !ok || strings.TrimSpace(k) == "" {
			return nil, &MalformedOverrideError{Arg: arg}
		}
	}
	out := make(Overrides, 0, len(args))
	for _, arg := range args {
		k, v, _ := strings.Cut(arg, "=")
		node, err := parseValue(v)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", arg, err)
		}
		out = append(out, Override{Key: strings.TrimSpace(k), Value: node})
	}
	return out, nil
}

func parseValue(v string) (tree.Node, error) {
	if strings.TrimSpace(v) == "" {
		return tree.NewScalar(nil), nil
	}
	return tree.ParseYAML([]byte(v))
}

// Apply sets every override on root.
func (o Overrides) Apply(root *tree.Mapping) error {
	for _, ov := range o {
		if err := tree.SetPath(root, ov.Key, ov.Value.Clone()); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOverrides parses args and applies them to root.
func ApplyOverrides(root *tree.Mapping, args []string) error {
	parsed, err := ParseOverrides(args)
	if err != nil {
		return err
	}
	return parsed.Apply(root)
}
