package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protocolNames() map[string]bool {
	return map[string]bool{
		"Protocol":        true,
		"Switch":          true,
		"Case":            true,
		"Fill Data":       true,
		"Access Decision": true,
	}
}

func TestNormalize_MissingDiagramKey(t *testing.T) {
	_, err := Normalize([]byte("flows:\n  Protocol:\n"), protocolNames())
	require.ErrorIs(t, err, ErrMissingDiagram)
}

func TestNormalize_EmptyDiagram(t *testing.T) {
	_, err := Normalize([]byte("diagram:\n"), protocolNames())
	require.ErrorIs(t, err, ErrEmptyDiagram)
}

func TestNormalize_UnknownBlock(t *testing.T) {
	doc := `diagram:
  Protocol:
    - Frobnicate:
        - data_field: x
`
	_, err := Normalize([]byte(doc), protocolNames())
	require.ErrorIs(t, err, ErrUnknownBlock)

	var ub *UnknownBlockError
	require.ErrorAs(t, err, &ub)
	assert.Equal(t, "Frobnicate", ub.Name)
}

func TestNormalize_BareLeaf(t *testing.T) {
	b, err := Normalize([]byte("diagram:\n  Protocol:\n"), protocolNames())
	require.NoError(t, err)
	assert.Equal(t, KindLeaf, b.Kind)
	assert.Equal(t, "Protocol", b.Name)
	assert.Empty(t, b.Fields)
	assert.Empty(t, b.Children)
}

func TestNormalize_ScalarShorthand(t *testing.T) {
	doc := `diagram:
  Access Decision: granted
`
	b, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)
	assert.Equal(t, KindLeaf, b.Kind)

	v, ok := b.Field("Access Decision")
	require.True(t, ok)
	assert.Equal(t, "granted", v)
}

func TestNormalize_DataFieldMarker(t *testing.T) {
	doc := `diagram:
  Fill Data:
    - block_type: Action
    - data_field: license_plate
`
	b, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)
	assert.Equal(t, KindContainer, b.Kind)
	assert.Equal(t, "Action", b.Category)

	require.Len(t, b.Children, 1)
	child := b.Children[0]
	assert.Equal(t, "license_plate", child.Name)
	assert.Equal(t, CategoryDataField, child.Category)
	assert.Equal(t, KindLeaf, child.Kind)
}

func TestNormalize_BlockNameWinsOverField(t *testing.T) {
	// "Case" is both a plausible field key and a known block name; the
	// known-block check must win.
	doc := `diagram:
  Switch:
    - On: vehicle_type
    - Case:
        - match: bobtail
`
	b, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)

	on, ok := b.Field("On")
	require.True(t, ok)
	assert.Equal(t, "vehicle_type", on)

	require.Len(t, b.Children, 1)
	assert.Equal(t, "Case", b.Children[0].Name)
	match, ok := b.Children[0].Field("match")
	require.True(t, ok)
	assert.Equal(t, "bobtail", match)
}

func TestNormalize_UnrecognizedScalarKeyIsField(t *testing.T) {
	doc := `diagram:
  Protocol:
    - note: forward compatible
`
	b, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)

	v, ok := b.Field("note")
	require.True(t, ok)
	assert.Equal(t, "forward compatible", v)
}

func TestNormalize_MultiKeyBlockIsInvalid(t *testing.T) {
	doc := `diagram:
  - Protocol: null
    Switch: null
`
	_, err := Normalize([]byte(doc), protocolNames())
	require.ErrorIs(t, err, ErrInvalidStructure)
}

func TestNormalize_MultipleTopLevelBlocks(t *testing.T) {
	doc := `diagram:
  - Protocol:
  - Switch:
      - On: gate
`
	b, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)
	assert.Equal(t, DiagramKey, b.Name)
	assert.Equal(t, KindContainer, b.Kind)
	require.Len(t, b.Children, 2)
	assert.Equal(t, "Protocol", b.Children[0].Name)
	assert.Equal(t, "Switch", b.Children[1].Name)
}

func TestNormalize_NestedTree(t *testing.T) {
	doc := `diagram:
  Protocol:
    - Fill Data:
        - block_type: Action
        - data_field: vehicle_type
    - Switch:
        - On: vehicle_type
        - Case:
            - match: bobtail
            - Access Decision:
                access: granted
`
	b, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)
	require.Len(t, b.Children, 2)

	sw := b.Children[1]
	require.Len(t, sw.Children, 1)
	c := sw.Children[0]
	require.Len(t, c.Children, 1)

	ad := c.Children[0]
	assert.Equal(t, "Access Decision", ad.Name)
	access, ok := ad.Field("access")
	require.True(t, ok)
	assert.Equal(t, "granted", access)
}

func TestRoundTrip(t *testing.T) {
	docs := []string{
		"diagram:\n  Protocol:\n",
		"diagram:\n  Access Decision: granted\n",
		`diagram:
  Protocol:
    - Fill Data:
        - block_type: Action
        - data_field: vehicle_type
    - Switch:
        - On: vehicle_type
        - Case:
            - match: bobtail
            - Fill Data:
                - block_type: Action
                - data_field: truck_number
            - Access Decision:
                access: granted
        - Case:
            - match: unknown
            - Access Decision:
                access: denied
`,
		"diagram:\n  - Protocol:\n  - Switch:\n      - On: gate\n",
	}

	for _, doc := range docs {
		tree, err := Normalize([]byte(doc), protocolNames())
		require.NoError(t, err)

		out, err := Export(tree)
		require.NoError(t, err)

		again, err := Normalize(out, protocolNames())
		require.NoError(t, err)
		assert.Equal(t, tree, again, "round-trip mismatch for:\n%s", doc)
	}
}

func TestRoundTrip_FieldKeyCollidingWithBlockName(t *testing.T) {
	// In the mapping form every scalar entry is a field, even one whose
	// key spells a block name. Export must keep such fields out of the
	// sequence form, where the block-name-first rule would turn them
	// back into child blocks.
	doc := `diagram:
  Switch:
    On: vehicle_type
    Case: annotation
`
	tree, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)

	caseField, ok := tree.Field("Case")
	require.True(t, ok)
	assert.Equal(t, "annotation", caseField)
	assert.Empty(t, tree.Children)

	out, err := Export(tree)
	require.NoError(t, err)

	again, err := Normalize(out, protocolNames())
	require.NoError(t, err)
	assert.Equal(t, tree, again)
}

func TestRoundTrip_DataFieldKeyAsMappingField(t *testing.T) {
	// The data_field marker is special only in sequence elements; as a
	// mapping entry it is an ordinary field and must stay one.
	doc := `diagram:
  Protocol:
    data_field: note
`
	tree, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)

	v, ok := tree.Field("data_field")
	require.True(t, ok)
	assert.Equal(t, "note", v)
	assert.Empty(t, tree.Children)

	out, err := Export(tree)
	require.NoError(t, err)

	again, err := Normalize(out, protocolNames())
	require.NoError(t, err)
	assert.Equal(t, tree, again)
}

func TestRoundTrip_FieldsAndChildren(t *testing.T) {
	doc := `diagram:
  Switch:
    On: vehicle_type
    branches:
      - Case:
          - match: bobtail
          - Access Decision: granted
`
	tree, err := Normalize([]byte(doc), protocolNames())
	require.NoError(t, err)
	require.Len(t, tree.Children, 1)

	out, err := Export(tree)
	require.NoError(t, err)

	again, err := Normalize(out, protocolNames())
	require.NoError(t, err)
	assert.Equal(t, tree, again)
}

func TestExport_AmbiguousFieldValues(t *testing.T) {
	tree := &Block{
		Kind: KindLeaf,
		Name: "Protocol",
		Fields: []Field{
			{Key: "note", Value: "null"},
			{Key: "flag", Value: "true"},
		},
	}

	out, err := Export(tree)
	require.NoError(t, err)

	again, err := Normalize(out, protocolNames())
	require.NoError(t, err)
	assert.Equal(t, tree, again)
}
