package flow

import (
	"gopkg.in/yaml.v3"
)

// DiagramKey is the required top-level key of a flow document.
const DiagramKey = "diagram"

// blockTypeKey is the reserved field key promoted to Block.Category.
const blockTypeKey = "block_type"

// Normalize converts a compact flow document into the canonical block
// tree. The known set decides whether an ambiguous key names a child
// block or a field; block-name membership is always checked first.
//
// Normalize is a pure function: on error no partial tree is returned.
func Normalize(doc []byte, known map[string]bool) (*Block, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(doc, &root); err != nil {
		return nil, structureError("parse document: %v", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, ErrMissingDiagram
	}

	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, ErrMissingDiagram
	}

	var diagram *yaml.Node
	for i := 0; i+1 < len(top.Content); i += 2 {
		if top.Content[i].Value == DiagramKey {
			diagram = top.Content[i+1]
			break
		}
	}
	if diagram == nil {
		return nil, ErrMissingDiagram
	}

	n := normalizer{known: known}
	blocks, err := n.topLevel(diagram)
	if err != nil {
		return nil, err
	}

	switch len(blocks) {
	case 0:
		return nil, ErrEmptyDiagram
	case 1:
		return blocks[0], nil
	default:
		// Several top-level blocks share a synthetic root so callers
		// always receive a single tree.
		return &Block{Kind: KindContainer, Name: DiagramKey, Children: blocks}, nil
	}
}

type normalizer struct {
	known map[string]bool
}

// topLevel accepts the diagram value: a single compact-block mapping or
// a sequence of them.
func (n *normalizer) topLevel(node *yaml.Node) ([]*Block, error) {
	switch {
	case isNull(node):
		return nil, nil
	case node.Kind == yaml.MappingNode:
		b, err := n.compactBlock(node)
		if err != nil {
			return nil, err
		}
		return []*Block{b}, nil
	case node.Kind == yaml.SequenceNode:
		var blocks []*Block
		for _, el := range node.Content {
			if el.Kind != yaml.MappingNode {
				return nil, structureError("diagram entries must be block mappings")
			}
			b, err := n.compactBlock(el)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, b)
		}
		return blocks, nil
	default:
		return nil, structureError("diagram must be a block mapping or a sequence of them")
	}
}

// compactBlock parses a one-key mapping whose key is the block name.
func (n *normalizer) compactBlock(node *yaml.Node) (*Block, error) {
	if len(node.Content) != 2 {
		return nil, structureError("a compact block must have exactly one key, got %d", len(node.Content)/2)
	}
	return n.block(node.Content[0].Value, node.Content[1])
}

// block builds a canonical block from a name and its polymorphic value.
func (n *normalizer) block(name string, value *yaml.Node) (*Block, error) {
	if !n.known[name] {
		return nil, &UnknownBlockError{Name: name}
	}

	b := &Block{Kind: KindLeaf, Name: name}

	switch {
	case isNull(value):
		// Bare block: no fields, no children.

	case value.Kind == yaml.ScalarNode:
		// Shorthand: the block's sole field is keyed by its own name.
		b.setField(name, value.Value)

	case value.Kind == yaml.MappingNode:
		for i := 0; i+1 < len(value.Content); i += 2 {
			key, val := value.Content[i].Value, value.Content[i+1]
			switch {
			case val.Kind == yaml.SequenceNode:
				if err := n.elements(b, val); err != nil {
					return nil, err
				}
			case isNull(val):
				b.setField(key, "")
			case val.Kind == yaml.ScalarNode:
				n.assignField(b, key, val.Value)
			default:
				return nil, structureError("field %q of block %q must be a scalar or a list", key, name)
			}
		}

	case value.Kind == yaml.SequenceNode:
		if err := n.elements(b, value); err != nil {
			return nil, err
		}

	default:
		return nil, structureError("unsupported content for block %q", name)
	}

	if len(b.Children) > 0 {
		b.Kind = KindContainer
	}
	return b, nil
}

// elements resolves each sequence element to Child | Field | Error.
// Block-name membership is checked before any field interpretation so a
// field name colliding with a block name always yields the child.
func (n *normalizer) elements(parent *Block, seq *yaml.Node) error {
	for _, el := range seq.Content {
		if el.Kind != yaml.MappingNode || len(el.Content) != 2 {
			return structureError("entries of block %q must be one-key mappings", parent.Name)
		}
		key, val := el.Content[0].Value, el.Content[1]

		switch {
		case key == CategoryDataField && val.Kind == yaml.ScalarNode && !isNull(val):
			// data_field marker: the value names a data-field leaf.
			parent.Children = append(parent.Children, &Block{
				Kind:     KindLeaf,
				Name:     val.Value,
				Category: CategoryDataField,
			})

		case n.known[key]:
			child, err := n.block(key, val)
			if err != nil {
				return err
			}
			parent.Children = append(parent.Children, child)

		case isNull(val):
			// A bare unknown key is shaped like a block, not a field.
			return &UnknownBlockError{Name: key}

		case val.Kind == yaml.ScalarNode:
			// Declared field, or the conservative scalar fallback.
			n.assignField(parent, key, val.Value)

		default:
			return &UnknownBlockError{Name: key}
		}
	}
	return nil
}

// assignField records a field, routing the reserved block_type key to
// the node category.
func (n *normalizer) assignField(b *Block, key, value string) {
	if key == blockTypeKey {
		if b.Category == "" {
			b.Category = value
		}
		return
	}
	b.setField(key, value)
}

func isNull(n *yaml.Node) bool {
	if n == nil || n.Kind == 0 {
		return true
	}
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}
