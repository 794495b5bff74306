package matching

import (
	"errors"
	"fmt"
)

// ErrInvalidContext is returned when a context is not hackathon, romantic or friendship.
var ErrInvalidContext = errors.New("invalid context")

// ErrInvalidVector is returned when a vector carries an out-of-range score.
var ErrInvalidVector = errors.New("invalid personality vector")

// InvalidContextError carries the rejected context value.
type InvalidContextError struct {
	Value string
}

func (e *InvalidContextError) Error() string {
	return fmt.Sprintf("invalid context %q: must be hackathon, romantic or friendship", e.Value)
}

// Is makes errors.Is(err, ErrInvalidContext) hold.
func (e *InvalidContextError) Is(target error) bool {
	return target == ErrInvalidContext
}
