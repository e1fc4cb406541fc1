package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/flowplan/flow"
	"github.com/c360studio/flowplan/planspace"
	"github.com/c360studio/flowplan/transform"
	"github.com/c360studio/flowplan/workspace"
)

func newTransformer() *Transformer {
	return New(workspace.Protocols(), nil)
}

const vehicleAccessFlow = `diagram:
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
            - match: truck
            - Access Decision:
                access: granted
        - Case:
            - match: unknown
            - Access Decision:
                access: denied
`

func TestTransform_VehicleAccess(t *testing.T) {
	doc, err := newTransformer().Transform([]byte(vehicleAccessFlow))
	require.NoError(t, err)

	require.Len(t, doc.Actions, 5)

	names := make([]string, len(doc.Actions))
	for i, a := range doc.Actions {
		names[i] = a.Name
	}
	assert.Equal(t, []string{
		"fill_vehicle_type",
		"fill_truck_number",
		"grant_access",
		"grant_access",
		"deny_access",
	}, names)

	fill := doc.Actions[0]
	assert.Equal(t, 1, fill.Cost)
	assert.Equal(t, []string{"state.vehicle_type_filled == False"}, fill.PreConditions)
	assert.Equal(t, []string{"state.vehicle_type_filled = True"}, fill.PostEffects)

	truckNum := doc.Actions[1]
	assert.Equal(t, []string{
		`state.vehicle_type == "bobtail"`,
		"state.vehicle_type_filled == True",
		"state.truck_number_filled == False",
	}, truckNum.PreConditions)

	grant := doc.Actions[2]
	assert.Equal(t, []string{
		`state.vehicle_type == "bobtail"`,
		"state.vehicle_type_filled == True",
		"state.truck_number_filled == True",
	}, grant.PreConditions)
	assert.Equal(t, []string{
		"state.access_granted = True",
		"state.access_denied = False",
	}, grant.PostEffects)

	deny := doc.Actions[4]
	assert.Equal(t, []string{
		`state.vehicle_type == "unknown"`,
		"state.vehicle_type_filled == True",
	}, deny.PreConditions)
	assert.Equal(t, []string{
		"state.access_denied = True",
		"state.access_granted = False",
	}, deny.PostEffects)

	assert.Equal(t, GoalExpression, doc.Goal)
}

func TestTransform_StartStateInference(t *testing.T) {
	doc, err := newTransformer().Transform([]byte(vehicleAccessFlow))
	require.NoError(t, err)

	expect := map[string]any{
		"vehicle_type_filled": false,
		"truck_number_filled": false,
		"vehicle_type":        planspace.UnknownValue,
		"access_granted":      false,
		"access_denied":       false,
	}
	assert.Equal(t, len(expect), doc.Start.Len())
	for name, want := range expect {
		got, ok := doc.Start.Value(name)
		require.True(t, ok, "missing variable %s", name)
		assert.Equal(t, want, got, "variable %s", name)
	}
}

func TestTransform_BranchIsolation(t *testing.T) {
	const doc = `diagram:
  Protocol:
    - Switch:
        - On: gate
        - Case:
            - match: north
            - Fill Data:
                - block_type: Action
                - data_field: badge_id
        - Case:
            - match: south
            - Fill Data:
                - block_type: Action
                - data_field: badge_id
`
	out, err := newTransformer().Transform([]byte(doc))
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)

	north, south := out.Actions[0], out.Actions[1]
	assert.Equal(t, north.Name, south.Name)

	assert.Contains(t, north.PreConditions, `state.gate == "north"`)
	assert.NotContains(t, north.PreConditions, `state.gate == "south"`)
	assert.Contains(t, south.PreConditions, `state.gate == "south"`)
	assert.NotContains(t, south.PreConditions, `state.gate == "north"`)
}

func TestTransform_NonRepeatableFill(t *testing.T) {
	doc, err := newTransformer().Transform([]byte(vehicleAccessFlow))
	require.NoError(t, err)

	for _, a := range doc.Actions {
		if len(a.Name) < 5 || a.Name[:5] != "fill_" {
			continue
		}
		field := a.Name[5:]
		assert.Contains(t, a.PreConditions, "state."+field+"_filled == False", a.Name)
		assert.Contains(t, a.PostEffects, "state."+field+"_filled = True", a.Name)
	}
}

func TestTransform_LeafFillForm(t *testing.T) {
	const doc = `diagram:
  Protocol:
    - Fill Data:
        - name: license_plate
`
	out, err := newTransformer().Transform([]byte(doc))
	require.NoError(t, err)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, "fill_license_plate", out.Actions[0].Name)
}

func TestTransform_CaseHeuristicWithoutSwitchVar(t *testing.T) {
	// A Case with no enclosing Switch variable recovers one from the
	// most recent completed fill.
	const doc = `diagram:
  Protocol:
    - Fill Data:
        - block_type: Action
        - data_field: vehicle_type
    - Case:
        - match: bobtail
        - Access Decision:
            access: granted
`
	out, err := newTransformer().Transform([]byte(doc))
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)

	grant := out.Actions[1]
	assert.Contains(t, grant.PreConditions, `state.vehicle_type == "bobtail"`)
}

func TestTransform_MalformedAccessValueEmitsNothing(t *testing.T) {
	const doc = `diagram:
  Protocol:
    - Access Decision:
        access: maybe
`
	out, err := newTransformer().Transform([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, out.Actions)
	assert.Equal(t, GoalExpression, out.Goal)
}

func TestTransform_AccessDecisionScalarShorthand(t *testing.T) {
	const doc = `diagram:
  Protocol:
    - Access Decision: Granted
`
	out, err := newTransformer().Transform([]byte(doc))
	require.NoError(t, err)
	require.Len(t, out.Actions, 1)
	assert.Equal(t, "grant_access", out.Actions[0].Name)
}

func TestTransform_UnknownBlock(t *testing.T) {
	const doc = `diagram:
  Protocol:
    - Frobnicate:
        - data_field: x
`
	_, err := newTransformer().Transform([]byte(doc))
	require.ErrorIs(t, err, flow.ErrUnknownBlock)

	var ub *flow.UnknownBlockError
	require.ErrorAs(t, err, &ub)
	assert.Equal(t, "Frobnicate", ub.Name)
}

func TestTransformTree_SiblingOrderPreserved(t *testing.T) {
	tree := &flow.Block{
		Kind: flow.KindContainer,
		Name: workspace.BlockProtocol,
		Children: []*flow.Block{
			{Kind: flow.KindLeaf, Name: workspace.BlockFillData, Fields: []flow.Field{{Key: "name", Value: "b_field"}}},
			{Kind: flow.KindLeaf, Name: workspace.BlockFillData, Fields: []flow.Field{{Key: "name", Value: "a_field"}}},
		},
	}

	out, err := newTransformer().TransformTree(tree)
	require.NoError(t, err)
	require.Len(t, out.Actions, 2)
	assert.Equal(t, "fill_b_field", out.Actions[0].Name)
	assert.Equal(t, "fill_a_field", out.Actions[1].Name)

	// The second fill is gated on the first along the same path.
	assert.Contains(t, out.Actions[1].PreConditions, "state.b_field_filled == True")
}

func TestTransformTree_FaultSurfacesAsTransformationError(t *testing.T) {
	// A tree the normalizer would never produce; the traversal fault
	// must come back as the catch-all error, not a panic.
	tree := &flow.Block{
		Kind:     flow.KindContainer,
		Name:     workspace.BlockProtocol,
		Children: []*flow.Block{nil},
	}

	out, err := newTransformer().TransformTree(tree)
	require.ErrorIs(t, err, transform.ErrTransformation)
	assert.Nil(t, out)
}
