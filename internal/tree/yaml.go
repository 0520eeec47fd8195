package tree

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// FromYAML converts a decoded YAML node into a tree, preserving key order.
// Aliases are followed.
func FromYAML(n *yaml.Node) (Node, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return NewMapping(), nil
		}
		return FromYAML(n.Content[0])
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valueNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", keyNode.Line)
			}
			if keyNode.Tag == "!!merge" {
				merged, err := FromYAML(valueNode)
				if err != nil {
					return nil, err
				}
				if mm, ok := merged.(*Mapping); ok {
					Merge(m, mm)
				}
				continue
			}
			child, err := FromYAML(valueNode)
			if err != nil {
				return nil, err
			}
			if m.Has(keyNode.Value) {
				return nil, fmt.Errorf("line %d: duplicate key %q", keyNode.Line, keyNode.Value)
			}
			m.Set(keyNode.Value, child)
		}
		return m, nil
	case yaml.SequenceNode:
		seq := &Sequence{Items: make([]Node, 0, len(n.Content))}
		for _, item := range n.Content {
			child, err := FromYAML(item)
			if err != nil {
				return nil, err
			}
			seq.Items = append(seq.Items, child)
		}
		return seq, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return NewScalar(v), nil
	case yaml.AliasNode:
		return FromYAML(n.Alias)
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %v", n.Line, n.Kind)
	}
}

// ToYAML converts a tree into a YAML node.
func ToYAML(n Node) (*yaml.Node, error) {
	switch x := n.(type) {
	case *Mapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range x.keys {
			child, err := ToYAML(x.values[k])
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, child)
		}
		return out, nil
	case *Sequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range x.Items {
			child, err := ToYAML(item)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, child)
		}
		return out, nil
	case *Scalar:
		out := &yaml.Node{}
		if err := out.Encode(x.Value); err != nil {
			return nil, fmt.Errorf("encode %#v: %w", x.Value, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported node %T", n)
	}
}

// MarshalYAML renders a tree as a YAML document.
func MarshalYAML(n Node) ([]byte, error) {
	yn, err := ToYAML(n)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(yn)
}

// ParseYAML decodes a YAML document into a tree.
func ParseYAML(src []byte) (Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		return NewMapping(), nil
	}
	return FromYAML(&doc)
}
