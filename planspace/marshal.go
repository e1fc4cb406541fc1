package planspace

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Top-level keys of the serialized PlanSpace document.
const (
	DocumentKey   = "PlanSpace"
	actionsKey    = "Actions"
	actionKey     = "Action"
	goalStateKey  = "GoalState"
	startStateKey = "StartState"
)

// Marshal renders the document in the fixed PlanSpace YAML shape:
//
//	PlanSpace:
//	  Actions:
//	    - Action:
//	        cost: <int>
//	        name: <string>
//	        pre_conditions: [<string>, ...]
//	        post_effects: [<string>, ...]
//	  GoalState:
//	    expression: <string>
//	  StartState:
//	    state:
//	      <var_name>: <bool | "unknown" | string>
//
// Key order and state-variable order are deterministic.
func (d *Document) Marshal() ([]byte, error) {
	actions := &yaml.Node{Kind: yaml.SequenceNode}
	for _, a := range d.Actions {
		actions.Content = append(actions.Content, actionNode(a))
	}

	goal := mappingNode(
		keyNode("expression"),
		stringNode(d.Goal),
	)

	state := &yaml.Node{Kind: yaml.MappingNode}
	if d.Start != nil {
		for _, name := range d.Start.Names() {
			v, _ := d.Start.Value(name)
			state.Content = append(state.Content, keyNode(name), valueNode(v))
		}
	}
	start := mappingNode(keyNode("state"), state)

	root := mappingNode(
		keyNode(DocumentKey),
		mappingNode(
			keyNode(actionsKey), actions,
			keyNode(goalStateKey), goal,
			keyNode(startStateKey), start,
		),
	)

	return yaml.Marshal(root)
}

func actionNode(a Action) *yaml.Node {
	body := mappingNode(
		keyNode("cost"), intNode(a.Cost),
		keyNode("name"), stringNode(a.Name),
		keyNode("pre_conditions"), stringListNode(a.PreConditions),
		keyNode("post_effects"), stringListNode(a.PostEffects),
	)
	return mappingNode(keyNode(actionKey), body)
}

func stringListNode(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, s := range items {
		seq.Content = append(seq.Content, stringNode(s))
	}
	return seq
}

func valueNode(v any) *yaml.Node {
	switch t := v.(type) {
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(t)}
	case string:
		return stringNode(t)
	default:
		return stringNode(fmt.Sprintf("%v", t))
	}
}

func mappingNode(pairs ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Content: pairs}
}

func keyNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
}
