// Package flow provides the canonical block tree model for flow documents
// and the normalizer that builds it from the compact YAML notation.
package flow

// Kind distinguishes container blocks from terminal leaves.
type Kind string

const (
	// KindContainer is a block that may hold child blocks.
	KindContainer Kind = "container"
	// KindLeaf is a terminal block without children.
	KindLeaf Kind = "leaf"
)

// CategoryDataField tags leaves declared through the data_field shorthand.
const CategoryDataField = "data_field"

// Field is one key/value entry on a block. Fields keep their document
// order so re-exported documents stay deterministic.
type Field struct {
	Key   string
	Value string
}

// Block is one node of the canonical tree. A Leaf never has children;
// a Container's Children may be empty. Blocks are built once by
// Normalize and read-only traversed afterwards.
type Block struct {
	Kind     Kind
	Name     string
	Category string
	Fields   []Field
	Children []*Block
}

// Field returns the value for key and whether it is set.
func (b *Block) Field(key string) (string, bool) {
	for _, f := range b.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// setField appends a field, keeping the first value on duplicate keys.
func (b *Block) setField(key, value string) {
	if _, ok := b.Field(key); ok {
		return
	}
	b.Fields = append(b.Fields, Field{Key: key, Value: value})
}

// FirstChild returns the first child with the given category, or nil.
func (b *Block) FirstChild(category string) *Block {
	for _, c := range b.Children {
		if c.Category == category {
			return c
		}
	}
	return nil
}

// IsContainer reports whether the block holds children.
func (b *Block) IsContainer() bool {
	return b.Kind == KindContainer
}
