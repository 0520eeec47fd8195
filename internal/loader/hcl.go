package loader

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/kwgraph/internal/coerce"
	"github.com/vk/kwgraph/internal/tree"
)

// HCL decodes HCL native syntax. Attributes become keys in source order.
// A block with one label is a construction request for the labelled path:
//
//	optimizer "optim.Adam" {
//	  lr = 0.01
//	}
//
// is the same as an "optimizer" mapping with OBJECT = "optim.Adam". A block
// without labels is a plain mapping, and a block type repeated in the same
// body becomes a sequence.
type HCL struct{}

// Decode implements Decoder.
func (HCL) Decode(filename string, src []byte) (*tree.Mapping, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected HCL body type %T", filename, file.Body)
	}
	return decodeBody(body)
}

// entry is an attribute or block, positioned for source ordering.
type entry struct {
	name  string
	start hcl.Pos
	node  tree.Node
}

func decodeBody(body *hclsyntax.Body) (*tree.Mapping, error) {
	var entries []entry
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		plain, err := coerce.FromCty(val)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %q: %w", attr.SrcRange, name, err)
		}
		entries = append(entries, entry{name: name, start: attr.SrcRange.Start, node: tree.FromValue(plain)})
	}

	counts := make(map[string]int)
	for _, block := range body.Blocks {
		counts[block.Type]++
	}
	seqs := make(map[string]*tree.Sequence)
	for _, block := range body.Blocks {
		m, err := decodeBlock(block)
		if err != nil {
			return nil, err
		}
		if counts[block.Type] == 1 {
			entries = append(entries, entry{name: block.Type, start: block.TypeRange.Start, node: m})
			continue
		}
		seq, ok := seqs[block.Type]
		if !ok {
			seq = tree.NewSequence()
			seqs[block.Type] = seq
			entries = append(entries, entry{name: block.Type, start: block.TypeRange.Start, node: seq})
		}
		seq.Items = append(seq.Items, m)
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].start.Byte < entries[j].start.Byte })
	out := tree.NewMapping()
	for _, e := range entries {
		if out.Has(e.name) {
			return nil, fmt.Errorf("line %d: %q is defined both as an attribute and as a block", e.start.Line, e.name)
		}
		out.Set(e.name, e.node)
	}
	return out, nil
}

func decodeBlock(block *hclsyntax.Block) (*tree.Mapping, error) {
	if len(block.Labels) > 1 {
		return nil, fmt.Errorf("%s: block %q takes at most one label, the construction path", block.TypeRange, block.Type)
	}
	inner, err := decodeBody(block.Body)
	if err != nil {
		return nil, err
	}
	if len(block.Labels) == 0 {
		return inner, nil
	}
	if inner.Has(tree.Marker) {
		return nil, fmt.Errorf("%s: block %q sets %s both as label and attribute", block.TypeRange, block.Type, tree.Marker)
	}
	m := tree.NewMapping()
	m.Set(tree.Marker, tree.NewScalar(block.Labels[0]))
	for _, k := range inner.Keys() {
		v, _ := inner.Get(k)
		m.Set(k, v)
	}
	return m, nil
}
