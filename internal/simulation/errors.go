package simulation

import "errors"

var (
	// ErrSessionConflict is returned by StartSession when the user already
	// has an in_progress session. Callers should offer resume instead.
	ErrSessionConflict = errors.New("an in-progress session already exists for this user")

	// ErrSequence marks a section-ordering violation: starting the next
	// section before the current one is completed, answering or completing
	// outside an in_progress section, and similar.
	ErrSequence = errors.New("operation violates section ordering")

	// ErrCorruptSession is returned on resume when the persisted state
	// violates the single-active-attempt invariant.
	ErrCorruptSession = errors.New("persisted session state is corrupt")

	// ErrNotFound is returned when a session or exam type id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrBreakTooSoon is returned when the inter-section break is skipped
	// before the configured minimum wait has elapsed.
	ErrBreakTooSoon = errors.New("break cannot be skipped yet")
)
