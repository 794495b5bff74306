package team

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTeamSize is returned when k < 2.
	ErrInvalidTeamSize = errors.New("team size must be at least 2")
	// ErrInsufficientPool is matched by *InsufficientPoolError.
	ErrInsufficientPool = errors.New("insufficient pool")
	// ErrPoolTooLarge is matched by *PoolTooLargeError.
	ErrPoolTooLarge = errors.New("pool too large")
	// ErrLengthMismatch is returned when names and vectors differ in length.
	ErrLengthMismatch = errors.New("names and vectors differ in length")
)

// InsufficientPoolError reports a pool smaller than the requested team.
type InsufficientPoolError struct {
	Required int
	Actual   int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient pool: need at least %d members, got %d", e.Required, e.Actual)
}

func (e *InsufficientPoolError) Is(target error) bool {
	return target == ErrInsufficientPool
}

// PoolTooLargeError reports a search beyond the exhaustive-search bounds:
// either the pool itself or the number of k-subsets it yields.
type PoolTooLargeError struct {
	Max    int
	Actual int

	// Set when the pool fits but C(Actual, TeamSize) does not.
	TeamSize   int
	Subsets    int
	MaxSubsets int
}

func (e *PoolTooLargeError) Error() string {
	if e.MaxSubsets > 0 {
		return fmt.Sprintf("pool too large: teams of %d from %d members exceed the limit of %d subsets",
			e.TeamSize, e.Actual, e.MaxSubsets)
	}
	return fmt.Sprintf("pool too large: %d members exceeds the limit of %d", e.Actual, e.Max)
}

func (e *PoolTooLargeError) Is(target error) bool {
	return target == ErrPoolTooLarge
}
