// Package protocol compiles branching access/decision flows into
// PlanSpace documents. Branch conditions are inferred from the tree
// shape: Switch/Case scopes contribute predicates, Fill Data steps
// contribute completion flags, and Access Decision leaves terminate a
// path.
package protocol

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/flowplan/flow"
	"github.com/c360studio/flowplan/planspace"
	"github.com/c360studio/flowplan/transform"
	"github.com/c360studio/flowplan/workspace"
)

// GoalExpression is fixed for the dialect: every protocol path is
// expected to end in exactly one access decision.
const GoalExpression = "(state.access_granted == True) or (state.access_denied == True)"

// filledSuffix marks a data field as collected.
const filledSuffix = "_filled"

// Transformer implements transform.Transformer for the protocols
// workspace.
type Transformer struct {
	known  map[string]bool
	logger *slog.Logger
}

// New returns the protocol dialect transformer backed by the given
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
	w.walk(root, transform.Context{})
	w.doc.Goal = GoalExpression
	return w.doc, nil
}

// walker carries the output document of one traversal. The branch
// context travels by value through walk so sibling branches stay
// isolated.
type walker struct {
	doc    *planspace.Document
	logger *slog.Logger
}

// walk descends one node and returns the context subsequent siblings
// continue with.
func (w *walker) walk(n *flow.Block, ctx transform.Context) transform.Context {
	switch n.Name {
	case workspace.BlockSwitch:
		w.walkSwitch(n, ctx)
		return ctx

	case workspace.BlockCase:
		w.walkCase(n, ctx)
		return ctx

	case workspace.BlockFillData:
		return w.emitFill(n, ctx)

	case workspace.BlockAccessDecision:
		w.emitDecision(n, ctx)
		return ctx

	default:
		// Protocol roots and unrecognized containers carry no planning
		// semantics of their own: traverse children with the context
		// threaded through in document order.
		return w.walkChildren(n.Children, ctx)
	}
}

func (w *walker) walkChildren(children []*flow.Block, ctx transform.Context) transform.Context {
	for _, c := range children {
		ctx = w.walk(c, ctx)
	}
	return ctx
}

// walkSwitch scopes the dispatch variable for its cases. Completions
// inside one case never reach a sibling case or the blocks after the
// switch; every branch starts from a copy of the inherited context.
func (w *walker) walkSwitch(n *flow.Block, ctx transform.Context) {
	if on, ok := n.Field(workspace.FieldOn); ok && on != "" {
		ctx = ctx.WithSwitchVar(on)
	}
	for _, c := range n.Children {
		w.walk(c, ctx)
	}
}

// walkCase appends this branch's condition to a copy of the inherited
// context and traverses the branch with it.
func (w *walker) walkCase(n *flow.Block, ctx transform.Context) {
	branch := ctx

	variable := ctx.SwitchVar()
	if variable == "" {
		// Malformed input: no enclosing Switch declared a variable.
		// Best effort: recover one from the most recent completed fill.
		recovered, ok := ctx.LastCompletedWithSuffix(filledSuffix)
		if !ok {
			w.logger.Warn("case without a dispatch variable, branch condition omitted",
				"match", fieldOrEmpty(n, workspace.FieldMatch))
		}
		variable = recovered
	}

	if match, ok := n.Field(workspace.FieldMatch); ok && variable != "" {
		branch = branch.WithCondition(fmt.Sprintf("%s == %q", variable, match))
	}

	w.walkChildren(n.Children, branch)
}

// emitFill compiles a Fill Data block into a non-repeatable fill_<x>
// action and records the completion flag for the rest of the path.
func (w *walker) emitFill(n *flow.Block, ctx transform.Context) transform.Context {
	field := w.fillField(n)
	if field == "" {
		w.logger.Warn("fill block names no data field, skipped", "block", n.Name)
		return ctx
	}

	flag := field + filledSuffix

	pre := inheritedPreconditions(ctx)
	pre = append(pre, fmt.Sprintf("state.%s == False", flag))

	w.doc.Append(planspace.NewAction(
		"fill_"+field,
		pre,
		[]string{fmt.Sprintf("state.%s = True", flag)},
	))

	return ctx.WithCompleted(flag)
}

// fillField resolves the data field name: an explicit field on the
// leaf form, or the first data_field child on the container form.
func (w *walker) fillField(n *flow.Block) string {
	if v, ok := n.Field(workspace.FieldName); ok && v != "" {
		return v
	}
	if v, ok := n.Field(workspace.FieldFieldName); ok && v != "" {
		return v
	}
	if child := n.FirstChild(flow.CategoryDataField); child != nil {
		return child.Name
	}
	return ""
}

// emitDecision compiles an Access Decision leaf. Values other than
// granted/denied emit nothing; that permissiveness is part of the
// observable contract, so it is only surfaced as a warning.
func (w *walker) emitDecision(n *flow.Block, ctx transform.Context) {
	access, _ := n.Field(workspace.FieldAccess)
	if access == "" {
		access, _ = n.Field(n.Name)
	}

	var name string
	var post []string
	switch strings.ToLower(access) {
	case "granted":
		name = "grant_access"
		post = []string{
			"state.access_granted = True",
			"state.access_denied = False",
		}
	case "denied":
		name = "deny_access"
		post = []string{
			"state.access_denied = True",
			"state.access_granted = False",
		}
	default:
		w.logger.Warn("access decision with unrecognized value, no action emitted",
			"access", access)
		return
	}

	w.doc.Append(planspace.NewAction(name, inheritedPreconditions(ctx), post))
}

// inheritedPreconditions qualifies the accumulated branch conditions
// and completion flags as state predicates, conditions first.
func inheritedPreconditions(ctx transform.Context) []string {
	var pre []string
	for _, cond := range ctx.Conditions() {
		pre = append(pre, "state."+cond)
	}
	for _, flag := range ctx.Completed() {
		pre = append(pre, fmt.Sprintf("state.%s == True", flag))
	}
	return pre
}

func fieldOrEmpty(n *flow.Block, key string) string {
	v, _ := n.Field(key)
	return v
}
