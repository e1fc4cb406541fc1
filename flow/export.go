package flow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Export renders a canonical tree back to the compact document notation
// under a diagram key. It is the documented inverse of Normalize:
// normalizing the exported text yields a structurally equal tree, though
// the text layout is not guaranteed byte-identical to the original.
func Export(root *Block) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("export: nil tree")
	}

	var diagram *yaml.Node
	if root.Name == DiagramKey && root.Category == "" && len(root.Fields) == 0 {
		// Synthetic root from a multi-block diagram: emit the children
		// as the top-level sequence.
		diagram = &yaml.Node{Kind: yaml.SequenceNode}
		for _, c := range root.Children {
			diagram.Content = append(diagram.Content, compactNode(c))
		}
	} else {
		diagram = compactNode(root)
	}

	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			scalarNode(DiagramKey),
			diagram,
		},
	}

	return yaml.Marshal(doc)
}

// compactNode renders one block as its one-key compact mapping.
func compactNode(b *Block) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{scalarNode(b.Name), contentNode(b)},
	}
}

// contentNode renders a block's polymorphic value. Blocks that carry
// fields or a category use the mapping form: its scalar entries are
// unambiguously fields on re-parse, so a field key that collides with
// a block name (or the data_field marker) survives the round trip,
// where a sequence entry would re-normalize into a child block.
func contentNode(b *Block) *yaml.Node {
	if b.Category == "" && len(b.Children) == 0 {
		switch len(b.Fields) {
		case 0:
			return nullNode()
		case 1:
			if b.Fields[0].Key == b.Name {
				// Single self-keyed field degenerates to the scalar
				// shorthand.
				return stringNode(b.Fields[0].Value)
			}
		}
	}

	if b.Category == "" && len(b.Fields) == 0 {
		return childSequence(b.Children)
	}

	m := &yaml.Node{Kind: yaml.MappingNode}
	if b.Category != "" {
		m.Content = append(m.Content, scalarNode(blockTypeKey), stringNode(b.Category))
	}
	for _, f := range b.Fields {
		m.Content = append(m.Content, scalarNode(f.Key), stringNode(f.Value))
	}
	if len(b.Children) > 0 {
		m.Content = append(m.Content, scalarNode(childListKey(b)), childSequence(b.Children))
	}
	return m
}

// childListKey names the mapping entry holding the child sequence. The
// normalizer ignores the key of a sequence-valued entry, but it must
// not shadow one of the block's own field keys.
func childListKey(b *Block) string {
	key := "children"
	for {
		if _, taken := b.Field(key); !taken {
			return key
		}
		key = "_" + key
	}
}

// childSequence renders children in the compact sequence form.
func childSequence(children []*Block) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range children {
		if c.Category == CategoryDataField && c.Kind == KindLeaf && len(c.Fields) == 0 {
			// data_field shorthand round-trips through the marker key.
			seq.Content = append(seq.Content, entryNode(CategoryDataField, c.Name))
			continue
		}
		seq.Content = append(seq.Content, compactNode(c))
	}
	return seq
}

func entryNode(key, value string) *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.MappingNode,
		Content: []*yaml.Node{scalarNode(key), stringNode(value)},
	}
}

func scalarNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

// stringNode forces the string tag so values like "null" or "true"
// survive a re-parse as the same field text.
func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}
