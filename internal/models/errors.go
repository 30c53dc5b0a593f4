package models

import "errors"

// Domain errors shared by the repository and application layers.
// Callers match them with errors.Is; layers add context with fmt.Errorf("%w").
var (
	// ErrConflict: an active (non-ended) session already occupies the channel.
	ErrConflict = errors.New("an active match session already exists in this channel")

	// ErrValidation: malformed input (bad best_of, out-of-sequence game number,
	// unknown side).
	ErrValidation = errors.New("invalid input")

	// ErrStaleState: the operation does not match the session's current state,
	// or the session changed under a concurrent writer before commit.
	ErrStaleState = errors.New("match session state has changed")

	// ErrNotFound: unknown session, game or bracket link.
	ErrNotFound = errors.New("not found")

	// ErrBracketSync: pushing a result to the bracket provider failed. Never
	// escapes the synchronizer.
	ErrBracketSync = errors.New("bracket sync failed")
)
