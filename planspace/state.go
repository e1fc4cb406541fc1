package planspace

import (
	"regexp"
	"strings"
)

// UnknownValue is the placeholder initial value for variables whose
// domain cannot be inferred from their name.
const UnknownValue = "unknown"

// flagSuffix marks data-collection completion flags.
const flagSuffix = "_filled"

// Access flags toggled by terminal decisions; always boolean.
const (
	VarAccessGranted = "access_granted"
	VarAccessDenied  = "access_denied"
)

// stateRef matches state.<name> references inside condition strings.
var stateRef = regexp.MustCompile(`\bstate\.([A-Za-z_][A-Za-z0-9_]*)`)

// Variables returns the state variable names referenced by expr, in
// first-appearance order without duplicates.
func Variables(expr string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range stateRef.FindAllStringSubmatch(expr, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// DefaultValue infers a variable's initial value from its name: false
// for completion flags and the access flags, the unknown placeholder
// otherwise.
func DefaultValue(name string) any {
	if strings.HasSuffix(name, flagSuffix) || name == VarAccessGranted || name == VarAccessDenied {
		return false
	}
	return UnknownValue
}

// StateSet maps variable names to initial values. Insertion order is
// preserved for deterministic serialization. A variable's value is
// fixed by its first encounter and never revised afterwards.
type StateSet struct {
	names  []string
	values map[string]any
}

// NewStateSet returns an empty state set.
func NewStateSet() *StateSet {
	return &StateSet{values: make(map[string]any)}
}

// Declare records an explicit initial value. It reports whether the
// value was applied; a variable that is already present keeps its
// earlier value.
func (s *StateSet) Declare(name string, value any) bool {
	if _, ok := s.values[name]; ok {
		return false
	}
	s.names = append(s.names, name)
	s.values[name] = value
	return true
}

// Ensure registers name with its inferred default unless it is already
// present. Auto-registration never overrides an explicit declaration.
func (s *StateSet) Ensure(name string) {
	s.Declare(name, DefaultValue(name))
}

// EnsureReferenced registers every state variable referenced by expr.
func (s *StateSet) EnsureReferenced(expr string) {
	for _, name := range Variables(expr) {
		s.Ensure(name)
	}
}

// Names returns the variable names in registration order.
func (s *StateSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Value returns the initial value for name and whether it is set.
func (s *StateSet) Value(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Len returns the number of registered variables.
func (s *StateSet) Len() int {
	return len(s.names)
}
