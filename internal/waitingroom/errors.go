package waitingroom

import "errors"

var (
	// ErrDuplicateEntry is returned when a user already has a waiting entry
	// for the session.
	ErrDuplicateEntry = errors.New("already waiting for this session")
	// ErrInvalidTransition is returned when admit/deny targets an entry that
	// is not in waiting status (already resolved, lost a race, or missing).
	ErrInvalidTransition = errors.New("entry is not in waiting status")
	// ErrCapacityExceeded is returned when admission would exceed the
	// session's max participants.
	ErrCapacityExceeded = errors.New("session is at capacity")
	// ErrSessionNotFound is returned when the target session does not exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned when joining a session that already ended.
	ErrSessionEnded = errors.New("session has ended")
)
