// Package workspace defines the static block catalogs for each flow
// dialect. A workspace's catalog supplies the known-block-name set the
// normalizer uses to tell child blocks from field assignments.
package workspace

// Built-in workspace identifiers.
const (
	IDProtocols = "protocols"
	IDActions   = "actions"
)

// Block names shared with the dialect transformers.
const (
	BlockProtocol       = "Protocol"
	BlockSwitch         = "Switch"
	BlockCase           = "Case"
	BlockFillData       = "Fill Data"
	BlockAccessDecision = "Access Decision"

	BlockCard             = "Card"
	BlockStateList        = "State List"
	BlockState            = "State"
	BlockPreConditionList = "Pre-Conditions List"
	BlockPreCondition     = "Pre-Condition"
	BlockPostEffects      = "post_effects"
	BlockPostEffect       = "Post Effect"
	BlockGoalState        = "Goal State"
)

// Well-known field keys.
const (
	FieldOn           = "On"
	FieldMatch        = "match"
	FieldName         = "name"
	FieldFieldName    = "field_name"
	FieldAccess       = "access"
	FieldCardID       = "card_id"
	FieldInit         = "init"
	FieldPreCondition = "pre_condition"
	FieldPostEffect   = "post_effect"
	FieldGoalState    = "goal_state"
)

// BlockDef describes one block type of a workspace catalog.
type BlockDef struct {
	// Name is the block identifier as written in documents.
	Name string

	// Container reports whether the block usually holds children.
	Container bool

	// Fields lists the declared field keys for this block type.
	Fields []string

	// Description is shown by catalog listings.
	Description string
}

// Workspace is one dialect's static catalog.
type Workspace struct {
	ID     string
	Name   string
	Blocks []BlockDef
}

// BlockNames returns the known-block-name set for the normalizer.
func (w *Workspace) BlockNames() map[string]bool {
	names := make(map[string]bool, len(w.Blocks))
	for _, b := range w.Blocks {
		names[b.Name] = true
	}
	return names
}

// Protocols returns the catalog for branching access/decision flows.
func Protocols() *Workspace {
	return &Workspace{
		ID:   IDProtocols,
		Name: "Access Protocols",
		Blocks: []BlockDef{
			{Name: BlockProtocol, Container: true, Description: "Root scope of an access protocol"},
			{Name: BlockSwitch, Container: true, Fields: []string{FieldOn}, Description: "Conditional dispatch on a state variable"},
			{Name: BlockCase, Container: true, Fields: []string{FieldMatch}, Description: "One branch of an enclosing Switch"},
			{Name: BlockFillData, Fields: []string{FieldName, FieldFieldName}, Description: "Collects one data field from the subject"},
			{Name: BlockAccessDecision, Fields: []string{FieldAccess}, Description: "Terminal granted/denied decision"},
		},
	}
}

// Actions returns the catalog for explicit-state interaction flows.
func Actions() *Workspace {
	return &Workspace{
		ID:   IDActions,
		Name: "Card Actions",
		Blocks: []BlockDef{
			{Name: BlockCard, Container: true, Fields: []string{FieldCardID}, Description: "One invocable card step"},
			{Name: BlockStateList, Container: true, Description: "Initial state variable declarations"},
			{Name: BlockState, Fields: []string{FieldInit}, Description: "A single state variable declaration"},
			{Name: BlockPreConditionList, Container: true, Description: "Preconditions of the enclosing card"},
			{Name: BlockPreCondition, Fields: []string{FieldPreCondition}, Description: "One literal precondition"},
			{Name: BlockPostEffects, Container: true, Description: "Effects of the enclosing card"},
			{Name: BlockPostEffect, Fields: []string{FieldPostEffect}, Description: "One literal post effect"},
			{Name: BlockGoalState, Fields: []string{FieldGoalState}, Description: "One goal disjunct"},
		},
	}
}

// Builtin returns all built-in workspaces in a stable order.
func Builtin() []*Workspace {
	return []*Workspace{Protocols(), Actions()}
}
