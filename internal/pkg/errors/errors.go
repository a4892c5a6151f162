package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingAttempt marks an event referencing a work attempt the engine does
	// not know about. Such events are recorded to the dead-letter table.
	ErrMissingAttempt = errors.New("work attempt not found")
	// ErrInvalidTransition is returned for alert/hint state changes that are not
	// present in the transition table.
	ErrInvalidTransition = errors.New("state transition not allowed")
	// ErrAlreadyResolved is returned by a second resolve of the same prediction
	// feedback record. Callers must treat it as a no-op success.
	ErrAlreadyResolved = errors.New("prediction feedback already resolved")
	// ErrUnknownPredictionType is a caller contract violation and fails fast.
	ErrUnknownPredictionType = errors.New("unknown prediction type")
)
