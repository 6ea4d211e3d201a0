package plan

import "errors"

var (
	// ErrInvalidInput reports an empty polygon where one is required,
	// a non-finite or non-positive speed, or an out-of-range overlap
	// ratio. No partial state is retained.
	ErrInvalidInput = errors.New("plan: invalid input")

	// ErrConfigConflict reports a queue operation whose config has a
	// zero line width without being the travel config, or the other
	// way around.
	ErrConfigConflict = errors.New("plan: config conflict")
)
