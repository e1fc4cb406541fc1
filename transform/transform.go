// Package transform defines the dialect transformer contract, the
// traversal context, and the workspace registry that dispatches to the
// dialect implementations.
package transform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/c360studio/flowplan/flow"
	"github.com/c360studio/flowplan/planspace"
)

// ErrTransformation wraps unexpected faults raised during traversal.
// Malformed input surfaces as the flow package's typed errors instead.
var ErrTransformation = errors.New("transformation failed")

// Transformer compiles a flow document of one dialect into a PlanSpace
// document. Implementations are pure and safe for concurrent use.
type Transformer interface {
	// Transform normalizes the compact document text and compiles it.
	Transform(doc []byte) (*planspace.Document, error)

	// TransformTree compiles an already-normalized canonical tree.
	TransformTree(root *flow.Block) (*planspace.Document, error)
}

// Registry maps workspace identifiers to their dialect transformer.
// It is built once at startup and never mutated; absence of a
// workspace means no transformation is available, not a fault.
type Registry struct {
	transformers map[string]Transformer
}

// NewRegistry builds a registry from the given mapping. The mapping is
// copied; later changes to the argument do not affect the registry.
func NewRegistry(m map[string]Transformer) *Registry {
	transformers := make(map[string]Transformer, len(m))
	for id, t := range m {
		transformers[id] = t
	}
	return &Registry{transformers: transformers}
}

// Get returns the transformer for a workspace id, if one is registered.
func (r *Registry) Get(workspaceID string) (Transformer, bool) {
	t, ok := r.transformers[workspaceID]
	return t, ok
}

// IDs returns the registered workspace identifiers, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.transformers))
	for id := range r.transformers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Guard converts a traversal panic into the catch-all transformation
// error so no fault crosses the package boundary untyped. Use with
// defer and a named error return.
func Guard(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("%w: %v", ErrTransformation, r)
	}
}
