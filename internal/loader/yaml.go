package loader

import (
	"fmt"

	"github.com/vk/kwgraph/internal/tree"
)

// YAML decodes YAML documents. The document root must be a mapping.
type YAML struct{}

// Decode implements Decoder.
func (YAML) Decode(filename string, src []byte) (*tree.Mapping, error) {
	n, err := tree.ParseYAML(src)
	if err != nil {
		return nil, err
	}
	m, ok := n.(*tree.Mapping)
	if !ok {
		return nil, fmt.Errorf("%s: document root must be a mapping", filename)
	}
	return m, nil
}
