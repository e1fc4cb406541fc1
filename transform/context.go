package transform

import "strings"

// Context is the per-branch accumulator carried down a traversal path:
// state flags established earlier on the path, branch conditions from
// enclosing conditional scopes, and the variable the nearest dispatch
// is keyed on.
//
// Context is an immutable value. Every With* method returns a fresh
// copy with its own backing arrays, so sibling branches can never
// observe each other's accumulation. That isolation is the central
// correctness invariant of multi-branch compilation.
type Context struct {
	completed  []string
	conditions []string
	switchVar  string
}

// WithCompleted returns a copy with flag appended to the completed
// list.
func (c Context) WithCompleted(flag string) Context {
	next := c.clone()
	next.completed = append(next.completed, flag)
	return next
}

// WithCondition returns a copy with one more branch condition.
func (c Context) WithCondition(cond string) Context {
	next := c.clone()
	next.conditions = append(next.conditions, cond)
	return next
}

// WithSwitchVar returns a copy keyed on the given dispatch variable.
func (c Context) WithSwitchVar(name string) Context {
	next := c.clone()
	next.switchVar = name
	return next
}

// Completed returns the flags established along this path, in order.
func (c Context) Completed() []string {
	return append([]string(nil), c.completed...)
}

// Conditions returns the accumulated branch conditions, in order.
func (c Context) Conditions() []string {
	return append([]string(nil), c.conditions...)
}

// SwitchVar returns the nearest enclosing dispatch variable, or "".
func (c Context) SwitchVar() string {
	return c.switchVar
}

// LastCompletedWithSuffix scans the completed list from the most
// recent entry backwards for a flag carrying the suffix and returns it
// with the suffix stripped.
func (c Context) LastCompletedWithSuffix(suffix string) (string, bool) {
	for i := len(c.completed) - 1; i >= 0; i-- {
		if strings.HasSuffix(c.completed[i], suffix) {
			return strings.TrimSuffix(c.completed[i], suffix), true
		}
	}
	return "", false
}

func (c Context) clone() Context {
	return Context{
		completed:  append([]string(nil), c.completed...),
		conditions: append([]string(nil), c.conditions...),
		switchVar:  c.switchVar,
	}
}
