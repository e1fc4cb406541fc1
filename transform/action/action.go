// Package action compiles explicit-state interaction flows: Card
// steps with declared preconditions and effects, State List initial
// declarations, and Goal State terminals combined disjunctively. The
// dialect never infers conditions from tree shape.
package action

import (
	"log/slog"
	"strings"

	"github.com/c360studio/flowplan/flow"
	"github.com/c360studio/flowplan/planspace"
	"github.com/c360studio/flowplan/transform"
	"github.com/c360studio/flowplan/workspace"
)

// PlaceholderGoal is emitted when a flow declares no goal states.
const PlaceholderGoal = "state.goal_reached == True"

// Transformer implements transform.Transformer for the actions
// workspace.
type Transformer struct {
	known  map[string]bool
	logger *slog.Logger
}

// New returns the action dialect transformer backed by the given
// workspace catalog.
func New(ws *workspace.Workspace, logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{known: ws.BlockNames(), logger: logger}
}

// Transform normalizes the compact document and compiles it.
func (t *Transformer) Transform(doc []byte) (*planspace.Document, error) {
	tree, err := flow.Normalize(doc, t.known)
	if err != nil {
		return nil, err
	}
	return t.TransformTree(tree)
}

// TransformTree compiles an already-normalized tree.
func (t *Transformer) TransformTree(root *flow.Block) (out *planspace.Document, err error) {
	defer transform.Guard(&err)

	w := &walker{doc: planspace.NewDocument(), logger: t.logger}
	w.walk(root)

	if len(w.goals) == 0 {
		w.doc.Goal = PlaceholderGoal
	} else {
		clauses := make([]string, len(w.goals))
		for i, g := range w.goals {
			clauses[i] = "(" + g + ")"
		}
		w.doc.Goal = strings.Join(clauses, " or ")
	}

	return w.doc, nil
}

type walker struct {
	doc    *planspace.Document
	logger *slog.Logger
	goals  []string
}

func (w *walker) walk(n *flow.Block) {
	switch n.Name {
	case workspace.BlockStateList:
		w.declareStates(n)

	case workspace.BlockCard:
		w.emitCard(n)

	case workspace.BlockGoalState:
		w.addGoal(n)

	default:
		for _, c := range n.Children {
			w.walk(c)
		}
	}
}

// declareStates records initial values from a State List. Children
// either carry an explicit init field formatted "name: value" or bare
// field maps whose entries are declarations themselves.
func (w *walker) declareStates(n *flow.Block) {
	for _, child := range n.Children {
		if init, ok := child.Field(workspace.FieldInit); ok {
			name, value, found := strings.Cut(init, ":")
			if !found {
				w.logger.Warn("state declaration without a value, skipped", "init", init)
				continue
			}
			w.declare(strings.TrimSpace(name), strings.TrimSpace(value))
			continue
		}
		for _, f := range child.Fields {
			w.declare(f.Key, f.Value)
		}
	}
}

// declare applies one explicit declaration under first-wins semantics
// and surfaces silently-dropped conflicts as warnings.
func (w *walker) declare(name, raw string) {
	if name == "" {
		return
	}
	value := coerce(raw)
	if !w.doc.Start.Declare(name, value) {
		if prev, _ := w.doc.Start.Value(name); prev != value {
			w.logger.Warn("conflicting state declaration ignored",
				"variable", name, "kept", prev, "ignored", value)
		}
	}
}

// emitCard compiles one Card into an invoke action. A card is always a
// plan step, with or without conditions.
func (w *walker) emitCard(n *flow.Block) {
	cardID, ok := n.Field(workspace.FieldCardID)
	if !ok || cardID == "" {
		w.logger.Warn("card without a card_id, skipped")
		return
	}

	var pre, post []string
	w.collect(n, &pre, &post)

	w.doc.Append(planspace.NewAction("invoke_card_"+cardID, pre, post))
}

// collect gathers declarations, preconditions, and effects from a
// card's subtree in document order. Condition and effect strings are
// taken verbatim; no rewriting.
func (w *walker) collect(n *flow.Block, pre, post *[]string) {
	for _, child := range n.Children {
		switch child.Name {
		case workspace.BlockStateList:
			w.declareStates(child)

		case workspace.BlockPreConditionList:
			for _, c := range child.Children {
				if expr := leafExpression(c, workspace.FieldPreCondition); expr != "" {
					*pre = append(*pre, expr)
				}
			}

		case workspace.BlockPostEffects:
			for _, c := range child.Children {
				if expr := leafExpression(c, workspace.FieldPostEffect); expr != "" {
					*post = append(*post, expr)
				}
			}

		default:
			w.collect(child, pre, post)
		}
	}
}

// addGoal records one goal disjunct, prefixing the state qualifier for
// author convenience when it is missing.
func (w *walker) addGoal(n *flow.Block) {
	expr := leafExpression(n, workspace.FieldGoalState)
	if expr == "" {
		w.logger.Warn("goal state without an expression, skipped")
		return
	}
	if !strings.HasPrefix(expr, "state.") && !strings.HasPrefix(expr, "(") {
		expr = "state." + expr
	}

	w.goals = append(w.goals, expr)
	w.doc.Start.EnsureReferenced(expr)
}

// leafExpression reads a leaf's expression from its declared field or
// from the self-keyed scalar shorthand.
func leafExpression(n *flow.Block, key string) string {
	if v, ok := n.Field(key); ok {
		return v
	}
	v, _ := n.Field(n.Name)
	return v
}

// coerce turns boolean-looking declaration values into bools and keeps
// anything else as an opaque string.
func coerce(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	default:
		return raw
	}
}
