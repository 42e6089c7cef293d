package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput is matched by MissingInputError
	ErrMissingInput = errors.New("missing input")
	// ErrNoFeatures means none of the feature candidates exist in the input
	ErrNoFeatures = errors.New("no numeric columns found for modeling")
)

// MissingInputError reports a stage input file that does not exist and
// the stage that produces it.
type MissingInputError struct {
	Path  string
	Stage string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("%s: %s not found, run %s first", ErrMissingInput, e.Path, e.Stage)
}

func (e *MissingInputError) Is(target error) bool {
	return target == ErrMissingInput
}
