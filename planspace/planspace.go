// Package planspace models the compiled planning-domain document: a
// flat action list with preconditions and effects, an inferred start
// state, and a goal expression.
package planspace

// DefaultCost is the cost assigned to every compiled action.
const DefaultCost = 1

// Action is one STRIPS-style planning action. Conditions and effects
// are kept as opaque strings; that exact syntax is the downstream
// contract.
type Action struct {
	Cost          int
	Name          string
	PreConditions []string
	PostEffects   []string
}

// NewAction returns an action with the default cost.
func NewAction(name string, pre, post []string) Action {
	return Action{
		Cost:          DefaultCost,
		Name:          name,
		PreConditions: pre,
		PostEffects:   post,
	}
}

// Document is a complete PlanSpace: the output of one transform call.
type Document struct {
	Actions []Action
	Start   *StateSet
	Goal    string
}

// NewDocument returns an empty document with an initialized start state.
func NewDocument() *Document {
	return &Document{Start: NewStateSet()}
}

// Append adds an action to the flat output list and registers every
// state variable its conditions and effects reference.
func (d *Document) Append(a Action) {
	d.Actions = append(d.Actions, a)
	for _, s := range a.PreConditions {
		d.Start.EnsureReferenced(s)
	}
	for _, s := range a.PostEffects {
		d.Start.EnsureReferenced(s)
	}
}
