package flow

import (
	"errors"
	"fmt"
)

// Normalization errors. All are terminal for the call that raised them;
// no partial tree accompanies an error.
var (
	// ErrMissingDiagram is returned when the document has no diagram key.
	ErrMissingDiagram = errors.New("document has no diagram key")

	// ErrEmptyDiagram is returned when the diagram holds zero blocks.
	ErrEmptyDiagram = errors.New("diagram contains no blocks")

	// ErrInvalidStructure is returned for malformed compact-block shapes.
	ErrInvalidStructure = errors.New("invalid block structure")

	// ErrUnknownBlock is the match target for UnknownBlockError.
	ErrUnknownBlock = errors.New("unknown block")
)

// UnknownBlockError reports a name that was used where a block was
// expected but is not in the workspace's known-block set.
type UnknownBlockError struct {
	Name string
}

func (e *UnknownBlockError) Error() string {
	return fmt.Sprintf("unknown block %q", e.Name)
}

// Unwrap lets errors.Is match against ErrUnknownBlock.
func (e *UnknownBlockError) Unwrap() error {
	return ErrUnknownBlock
}

func structureError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidStructure, fmt.Sprintf(format, args...))
}
