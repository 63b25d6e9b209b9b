package wfc

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput = errors.New("wfc: malformed input")
	ErrContradiction  = errors.New("wfc: contradiction - no valid tiles for cell")
	ErrNoCandidate    = errors.New("wfc: no cell available for collapse")
	ErrNoSolution     = errors.New("wfc: failed to find valid solution")
)

// MalformedInputError reports a sample, tile size or grid size that cannot be
// solved. It matches ErrMalformedInput with errors.Is.
type MalformedInputError struct {
	Field  string
	Reason string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("wfc: malformed %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrMalformedInput
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// ContradictionError reports the cell whose distribution collapsed to all
// zeros. It matches ErrContradiction with errors.Is.
type ContradictionError struct {
	X, Y int
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("wfc: contradiction at (%d, %d) - no tile fits its neighbors", e.X, e.Y)
}

// Is reports whether target is ErrContradiction
func (e *ContradictionError) Is(target error) bool {
	return target == ErrContradiction
}
