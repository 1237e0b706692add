package buddy

import "errors"

var (
	// ErrInvalidConfiguration is returned when the arena size is not a positive power of two.
	ErrInvalidConfiguration = errors.New("invalid configuration: arena size must be a positive power of two")

	// ErrInvalidRequestSize is returned by Allocate for non-positive sizes.
	ErrInvalidRequestSize = errors.New("allocation failed: size invalid")

	// ErrOutOfMemory is returned by Allocate when no free block is large enough.
	ErrOutOfMemory = errors.New("allocation failed: insufficient memory")

	// ErrInvalidAddress is returned by Deallocate for addresses that are not allocated,
	// which covers both unknown addresses and double frees.
	ErrInvalidAddress = errors.New("deallocation failed: invalid address")

	// ErrCorrupted is returned by Check when the block bookkeeping breaks an invariant.
	ErrCorrupted = errors.New("buddy: corrupted state")
)
